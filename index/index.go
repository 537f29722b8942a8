/*
 * Copyright (c) 2020 Siemens AG
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 * Author(s): Jonas Plum
 */

// Package index provides a full text search index over the entities of a
// case. Every element is stored as JSON in a sqlite fts5 table, a view per
// element type exposes the fields of that type as columns.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"crawshaw.io/sqlite"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	indexVersion  = 1
	applicationID = 1668446563
	discriminator = "type"
)

var (
	ErrIndexExists    = errors.New("index already exists")
	ErrIndexNotExists = errors.New("index does not exist")
	ErrNotFound       = errors.New("element does not exist")
)

// Element is a JSON object with a "type" field.
type Element []byte

// Type returns the type of the element.
func (e Element) Type() string {
	return gjson.GetBytes(e, discriminator).String()
}

// ID returns the id of the element.
func (e Element) ID() string {
	return gjson.GetBytes(e, "id").String()
}

// Get returns a field of the element, path uses the gjson syntax.
func (e Element) Get(path string) gjson.Result {
	return gjson.GetBytes(e, path)
}

// Index is a search index stored in a sqlite database. It is not safe for
// concurrent use.
type Index struct {
	conn  *sqlite.Conn
	types *typeMap
}

// New creates a new index at url. url may be ":memory:".
func New(url string) (*Index, error) {
	return open(url, true)
}

// Open opens an existing index.
func Open(url string) (*Index, error) {
	return open(url, false)
}

// OpenOrCreate opens the index at url and creates it if it does not exist.
func OpenOrCreate(url string) (*Index, error) {
	idx, err := Open(url)
	if errors.Is(err, ErrIndexNotExists) {
		return New(url)
	}
	return idx, err
}

func open(url string, create bool) (*Index, error) {
	if url != ":memory:" {
		exists := true
		if _, err := os.Stat(url); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			exists = false
		}
		if create && exists {
			return nil, errors.Wrap(ErrIndexExists, url)
		}
		if !create && !exists {
			return nil, errors.Wrap(ErrIndexNotExists, url)
		}
		if create {
			if err := os.MkdirAll(filepath.Dir(url), 0750); err != nil {
				return nil, err
			}
		}
	}

	conn, err := sqlite.OpenConn(url, 0)
	if err != nil {
		return nil, errors.Wrap(err, "could not open index")
	}
	idx := &Index{conn: conn, types: newTypeMap()}

	if create {
		err = idx.init()
	} else {
		err = idx.check()
	}
	if err == nil {
		err = idx.setupTypes()
	}
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) init() error {
	if err := setPragma(idx.conn, "application_id", applicationID); err != nil {
		return err
	}
	if err := setPragma(idx.conn, "user_version", indexVersion); err != nil {
		return err
	}
	return idx.exec("CREATE VIRTUAL TABLE `elements` " +
		"USING fts5(id UNINDEXED, json, insert_time UNINDEXED, tokenize=\"unicode61 tokenchars '/.-'\")")
}

func (idx *Index) check() error {
	id, err := pragma(idx.conn, "application_id")
	if err != nil {
		return err
	}
	if id != applicationID {
		return fmt.Errorf("wrong file format (application_id is %d, requires %d)", id, applicationID)
	}
	version, err := pragma(idx.conn, "user_version")
	if err != nil {
		return err
	}
	if version != indexVersion {
		return fmt.Errorf("wrong file format (user_version is %d, requires %d)", version, indexVersion)
	}
	return nil
}

// Insert adds an element and returns its id. An element without id gets
// one of the form <type>--<uuid>.
func (idx *Index) Insert(element []byte) (string, error) {
	if !gjson.ValidBytes(element) {
		return "", errors.New("element is not valid json")
	}
	elementType := gjson.GetBytes(element, discriminator)
	if elementType.Type != gjson.String || elementType.String() == "" {
		return "", errors.New("element requires type")
	}

	nested := map[string]interface{}{}
	if err := json.Unmarshal(element, &nested); err != nil {
		return "", errors.Wrap(err, "element must be an object")
	}
	flat := flatten(nested)
	if _, ok := flat[elementType.String()]; ok {
		return "", fmt.Errorf("element must not contain a field '%s'", elementType.String())
	}

	id := gjson.GetBytes(element, "id").String()
	if id == "" {
		id = elementType.String() + "--" + uuid.New().String()
		nested["id"] = id
		flat["id"] = id

		var err error
		element, err = json.Marshal(nested)
		if err != nil {
			return "", err
		}
	}

	idx.types.addAll(elementType.String(), flat)

	stmt, err := idx.conn.Prepare("INSERT INTO `elements` (id, json, insert_time) VALUES ($id, $json, $time)")
	if err != nil {
		return "", errors.Wrap(err, "could not prepare insert")
	}
	stmt.SetText("$id", id)
	stmt.SetText("$json", string(element))
	stmt.SetText("$time", time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	if _, err := stmt.Step(); err != nil {
		return "", errors.Wrap(err, "could not insert element")
	}
	return id, stmt.Finalize()
}

// Get returns a single element.
func (idx *Index) Get(id string) (Element, error) {
	stmt, err := idx.conn.Prepare("SELECT json FROM `elements` WHERE id = $id")
	if err != nil {
		return nil, err
	}
	stmt.SetText("$id", id)

	elements, err := rowsToElements(stmt)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, errors.Wrap(ErrNotFound, id)
	}
	return elements[0], nil
}

// Select returns all elements of a type in insertion order.
func (idx *Index) Select(elementType string) ([]Element, error) {
	stmt, err := idx.conn.Prepare("SELECT json FROM `elements` WHERE json_extract(json, '$." + discriminator + "') = $type ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	stmt.SetText("$type", elementType)
	return rowsToElements(stmt)
}

// Search returns the elements matching an fts5 query, best match first.
func (idx *Index) Search(q string) ([]Element, error) {
	stmt, err := idx.conn.Prepare("SELECT json FROM `elements` WHERE elements MATCH $query ORDER BY rank")
	if err != nil {
		return nil, err
	}
	stmt.SetText("$query", q)
	return rowsToElements(stmt)
}

// All returns every element in insertion order.
func (idx *Index) All() ([]Element, error) {
	stmt, err := idx.conn.Prepare("SELECT json FROM `elements` ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	return rowsToElements(stmt)
}

// Fields returns the flattened field names seen for an element type.
func (idx *Index) Fields(elementType string) []string {
	var fields []string
	for field := range idx.types.all()[elementType] {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Close updates the type views and closes the database.
func (idx *Index) Close() error {
	var viewErr error
	if idx.types.changed {
		viewErr = idx.createViews()
	}
	if err := idx.conn.Close(); err != nil {
		return err
	}
	return viewErr
}

func (idx *Index) createViews() error {
	for typeName, fields := range idx.types.all() {
		if err := idx.exec(fmt.Sprintf("DROP VIEW IF EXISTS \"%s\"", typeName)); err != nil {
			return err
		}
		var columns []string
		for field := range fields {
			columns = append(columns, fmt.Sprintf("json_extract(json, '$.%s') AS \"%s\"", field, field))
		}
		sort.Strings(columns)
		err := idx.exec(fmt.Sprintf("CREATE VIEW \"%s\" AS SELECT %s FROM elements WHERE json_extract(json, '$.%s') = '%s'",
			typeName, strings.Join(columns, ", "), discriminator, typeName))
		if err != nil {
			return errors.Wrapf(err, "could not create view %s", typeName)
		}
	}
	return nil
}

// setupTypes loads the columns of existing views.
func (idx *Index) setupTypes() error {
	stmt, err := idx.conn.Prepare("SELECT name FROM sqlite_master WHERE type = 'view'")
	if err != nil {
		return err
	}
	var views []string
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return err
		}
		if !hasRow {
			break
		}
		views = append(views, stmt.GetText("name"))
	}
	if err := stmt.Finalize(); err != nil {
		return err
	}

	for _, view := range views {
		info, err := idx.conn.Prepare(fmt.Sprintf("PRAGMA table_info (\"%s\")", view))
		if err != nil {
			return err
		}
		for {
			hasRow, err := info.Step()
			if err != nil {
				return err
			}
			if !hasRow {
				break
			}
			idx.types.add(view, info.GetText("name"))
		}
		if err := info.Finalize(); err != nil {
			return err
		}
	}
	idx.types.changed = false
	return nil
}

func (idx *Index) exec(query string) error {
	stmt, err := idx.conn.Prepare(query)
	if err != nil {
		return err
	}
	if _, err := stmt.Step(); err != nil {
		return err
	}
	return stmt.Finalize()
}

func rowsToElements(stmt *sqlite.Stmt) ([]Element, error) {
	elements := []Element{}
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, err
		}
		if !hasRow {
			break
		}
		elements = append(elements, Element(stmt.GetText("json")))
	}
	return elements, stmt.Finalize()
}

func pragma(conn *sqlite.Conn, name string) (int64, error) {
	stmt, err := conn.Prepare("PRAGMA " + name)
	if err != nil {
		return 0, err
	}
	if _, err := stmt.Step(); err != nil {
		return 0, err
	}
	i := stmt.GetInt64(name)
	return i, stmt.Finalize()
}

func setPragma(conn *sqlite.Conn, name string, i int64) error {
	stmt, err := conn.Prepare("PRAGMA " + name + " = " + fmt.Sprint(i))
	if err != nil {
		return err
	}
	if _, err := stmt.Step(); err != nil {
		return err
	}
	return stmt.Finalize()
}
