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

// Package signature holds the static table of container header signatures
// and the fixed probe locations where known container formats place them.
package signature

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forensicanalysis/cryptocase"
)

const (
	// HeaderWindow is the number of bytes read at every probe offset.
	HeaderWindow = 8192
	// DefaultChunkSize is the block size of the streaming sweep.
	DefaultChunkSize = 1024 * 1024
)

// A Signature is a literal byte sequence marking a container header.
type Signature struct {
	Kind       cryptocase.ContainerKind
	Magic      []byte
	Name       string
	Confidence float64
}

// A Match is one occurrence of a signature inside a buffer.
type Match struct {
	Signature *Signature
	Index     int
}

// Catalog is the set of signatures, probe offsets and headerless container
// extensions the scanners work with.
type Catalog struct {
	signatures []Signature
	offsets    []int64
	window     int
	extensions map[string]cryptocase.ContainerKind
	maxLen     int
}

// Default returns the built-in catalog.
//
// VeraCrypt and TrueCrypt volumes have no stable plaintext header, they are
// only recognised by their file extension and the entropy heuristic.
func Default() *Catalog {
	return New(
		[]Signature{
			{Kind: cryptocase.BitLocker, Magic: []byte("-FVE-FS-"), Name: "FVE-FS header signature detected", Confidence: 0.9},
			{Kind: cryptocase.LUKS, Magic: []byte("LUKS\xba\xbe"), Name: "LUKS magic detected", Confidence: 0.9},
		},
		[]int64{0, 4096, 65536},
		HeaderWindow,
		map[string]cryptocase.ContainerKind{
			".hc": cryptocase.VeraCrypt,
			".tc": cryptocase.TrueCrypt,
		},
	)
}

// New creates a catalog. Extensions are matched case-insensitively.
func New(signatures []Signature, offsets []int64, window int, extensions map[string]cryptocase.ContainerKind) *Catalog {
	c := &Catalog{
		signatures: append([]Signature(nil), signatures...),
		offsets:    append([]int64(nil), offsets...),
		window:     window,
		extensions: map[string]cryptocase.ContainerKind{},
	}
	for ext, kind := range extensions {
		c.extensions[strings.ToLower(ext)] = kind
	}
	for _, s := range c.signatures {
		if len(s.Magic) > c.maxLen {
			c.maxLen = len(s.Magic)
		}
	}
	return c
}

// Signatures returns a copy of the signature table.
func (c *Catalog) Signatures() []Signature {
	return append([]Signature(nil), c.signatures...)
}

// ProbeOffsets returns the offsets that are probed before the sweep.
func (c *Catalog) ProbeOffsets() []int64 {
	return append([]int64(nil), c.offsets...)
}

// Window returns the header window size.
func (c *Catalog) Window() int {
	return c.window
}

// MaxMagicLen returns the length of the longest magic sequence. Chunk
// boundary overlap in the sweep is sized from it.
func (c *Catalog) MaxMagicLen() int {
	return c.maxLen
}

// HeaderlessKind reports the container kind associated with the extension of
// name, for container formats that carry no plaintext header.
func (c *Catalog) HeaderlessKind(name string) (cryptocase.ContainerKind, bool) {
	kind, ok := c.extensions[strings.ToLower(filepath.Ext(name))]
	return kind, ok
}

// Find returns every occurrence of every signature in buf ordered by index.
func (c *Catalog) Find(buf []byte) []Match {
	var matches []Match
	for i := range c.signatures {
		sig := &c.signatures[i]
		if len(sig.Magic) == 0 {
			continue
		}
		start := 0
		for start <= len(buf)-len(sig.Magic) {
			idx := bytes.Index(buf[start:], sig.Magic)
			if idx < 0 {
				break
			}
			matches = append(matches, Match{Signature: sig, Index: start + idx})
			start += idx + 1
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Index < matches[j].Index
	})
	return matches
}
