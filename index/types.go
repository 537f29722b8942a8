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

package index

import (
	"sync"
)

// typeMap records the flattened fields of every element type.
type typeMap struct {
	sync.RWMutex
	changed bool
	types   map[string]map[string]bool
}

func newTypeMap() *typeMap {
	return &typeMap{types: map[string]map[string]bool{}}
}

func (tm *typeMap) all() map[string]map[string]bool {
	tm.RLock()
	defer tm.RUnlock()
	return tm.types
}

func (tm *typeMap) add(name, field string) {
	tm.Lock()
	defer tm.Unlock()
	tm.addLocked(name, field)
}

func (tm *typeMap) addAll(name string, fields map[string]interface{}) {
	tm.Lock()
	defer tm.Unlock()
	for field := range fields {
		tm.addLocked(name, field)
	}
}

func (tm *typeMap) addLocked(name, field string) {
	if _, ok := tm.types[name]; !ok {
		tm.types[name] = map[string]bool{}
	}
	if !tm.types[name][field] {
		tm.types[name][field] = true
		tm.changed = true
	}
}
