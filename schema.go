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

package cryptocase

import (
	"context"
	_ "embed" // case schema
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"
)

const snapshotVersion = 1

//go:embed case.schema.json
var caseSchemaJSON []byte

var caseSchema *jsonschema.Schema // nolint:gochecknoglobals

func init() { // nolint:gochecknoinits
	caseSchema = &jsonschema.Schema{}
	if err := json.Unmarshal(caseSchemaJSON, caseSchema); err != nil {
		panic(err)
	}
}

// DeserializationError is returned when a persisted case snapshot cannot be
// turned back into a Case.
type DeserializationError struct {
	Path  string
	Flaws []string
	Err   error
}

func (e *DeserializationError) Error() string {
	if len(e.Flaws) > 0 {
		return fmt.Sprintf("invalid case snapshot %s: [%s]", e.Path, strings.Join(e.Flaws, ", "))
	}
	return fmt.Sprintf("invalid case snapshot %s: %v", e.Path, e.Err)
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// Encode returns the canonical snapshot encoding of c.
func Encode(c *Case) ([]byte, error) {
	cp := c.clone()
	cp.Version = snapshotVersion
	return json.MarshalIndent(cp, "", "  ")
}

// Decode validates data against the case schema and decodes it.
func Decode(data []byte) (*Case, error) {
	errs, err := caseSchema.ValidateBytes(context.Background(), data)
	if err != nil {
		return nil, &DeserializationError{Err: err}
	}
	if len(errs) > 0 {
		var flaws []string
		for _, verr := range errs {
			flaws = append(flaws, verr.Error())
		}
		return nil, &DeserializationError{Flaws: flaws}
	}

	c := &Case{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, &DeserializationError{Err: err}
	}
	if c.UnlockAttempts == nil {
		c.UnlockAttempts = []UnlockAttempt{}
	}
	return c, nil
}
