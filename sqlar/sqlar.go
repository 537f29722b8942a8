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

// Package sqlar stores captured container headers in an SQLite archive
// (https://sqlite.org/sqlar.html) next to the case. The archive can be
// listed and extracted with "sqlite3 -A".
package sqlar

import (
	"bytes"
	"compress/zlib"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"crawshaw.io/sqlite"
	"github.com/pkg/errors"
)

// ErrNotExist is returned by Get for unknown names.
var ErrNotExist = os.ErrNotExist

const table = `CREATE TABLE IF NOT EXISTS sqlar(
  name TEXT PRIMARY KEY,  -- name of the file
  mode INT,               -- access permissions
  mtime INT,              -- last modification time
  sz INT,                 -- original file size
  data BLOB               -- compressed content
);`

// An Entry describes one archived file.
type Entry struct {
	Name string
	// Mode is the unix st_mode of the entry.
	Mode    int64
	ModTime time.Time
	Size    int64
}

// Archive is an sqlar archive. It is not safe for concurrent use.
type Archive struct {
	conn *sqlite.Conn
	base string
	now  func() time.Time
}

// Open opens or creates the archive at url.
func Open(url string) (*Archive, error) {
	if url != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(url), 0750); err != nil {
			return nil, err
		}
	}
	conn, err := sqlite.OpenConn(url, 0)
	if err != nil {
		return nil, errors.Wrap(err, "could not open archive")
	}
	a := &Archive{conn: conn, base: filepath.Base(url), now: time.Now}
	if err := a.exec(table); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return a, nil
}

// Put stores data under name, replacing an existing entry. It returns the
// location of the entry in the form <archive file>:<name>.
func (a *Archive) Put(name string, data []byte) (string, error) {
	name = normalizeName(name)

	blob := data
	compressed := &bytes.Buffer{}
	w := zlib.NewWriter(compressed)
	if _, err := w.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	// uncompressed content is marked by sz == length(data)
	if compressed.Len() < len(data) {
		blob = compressed.Bytes()
	}

	stmt, err := a.conn.Prepare(`INSERT OR REPLACE INTO sqlar (name, mode, mtime, sz, data) VALUES ($name, $mode, $mtime, $sz, $data)`)
	if err != nil {
		return "", err
	}
	stmt.SetText("$name", name)
	stmt.SetInt64("$mode", 0100444)
	stmt.SetInt64("$mtime", a.now().Unix())
	stmt.SetInt64("$sz", int64(len(data)))
	stmt.SetBytes("$data", blob)
	if err := exec(stmt); err != nil {
		return "", errors.Wrapf(err, "could not store %s", name)
	}
	return a.base + ":" + name, nil
}

// Get returns the content stored under name.
func (a *Archive) Get(name string) ([]byte, error) {
	name = normalizeName(name)

	stmt, err := a.conn.Prepare(`SELECT rowid, sz, length(data) AS len FROM sqlar WHERE name = $name`)
	if err != nil {
		return nil, err
	}
	stmt.SetText("$name", name)
	hasRow, err := stmt.Step()
	if err != nil {
		return nil, err
	}
	if !hasRow {
		_ = stmt.Finalize()
		return nil, errors.Wrap(ErrNotExist, name)
	}
	id, size, stored := stmt.GetInt64("rowid"), stmt.GetInt64("sz"), stmt.GetInt64("len")
	if err := stmt.Finalize(); err != nil {
		return nil, err
	}
	if size == 0 {
		return []byte{}, nil
	}

	blob, err := a.conn.OpenBlob("", "sqlar", "data", id, false)
	if err != nil {
		return nil, err
	}
	defer blob.Close() // nolint:errcheck

	var r io.Reader = blob
	if stored != size {
		zr, err := zlib.NewReader(blob)
		if err != nil {
			return nil, errors.Wrapf(err, "could not decompress %s", name)
		}
		defer zr.Close() // nolint:errcheck
		r = zr
	}

	data := make([]byte, 0, size)
	buf := bytes.NewBuffer(data)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, errors.Wrapf(err, "could not read %s", name)
	}
	return buf.Bytes(), nil
}

// List returns all entries ordered by name.
func (a *Archive) List() ([]Entry, error) {
	stmt, err := a.conn.Prepare(`SELECT name, mode, mtime, sz FROM sqlar ORDER BY name`)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, err
		}
		if !hasRow {
			break
		}
		entries = append(entries, Entry{
			Name:    stmt.GetText("name"),
			Mode:    stmt.GetInt64("mode"),
			ModTime: time.Unix(stmt.GetInt64("mtime"), 0),
			Size:    stmt.GetInt64("sz"),
		})
	}
	return entries, stmt.Finalize()
}

// Close closes the archive.
func (a *Archive) Close() error {
	return a.conn.Close()
}

func (a *Archive) exec(query string) error {
	stmt, err := a.conn.Prepare(query)
	if err != nil {
		return err
	}
	return exec(stmt)
}

func exec(stmt *sqlite.Stmt) error {
	if _, err := stmt.Step(); err != nil {
		return err
	}
	return stmt.Finalize()
}

// normalizeName returns a relative slash separated name.
func normalizeName(name string) string {
	name = path.Clean("/" + filepath.ToSlash(name))
	return strings.TrimPrefix(name, "/")
}
