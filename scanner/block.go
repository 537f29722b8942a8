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

// Package scanner finds container candidates in files and drives scans over
// whole directory trees.
package scanner

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/forensicanalysis/cryptocase"
	"github.com/forensicanalysis/cryptocase/heuristic"
	"github.com/forensicanalysis/cryptocase/signature"
)

// Options configure a BlockScanner.
type Options struct {
	// ChunkSize is the block size of the streaming sweep. Zero selects
	// signature.DefaultChunkSize.
	ChunkSize int
}

// BlockScanner scans a single file in two phases: a probe of the catalog's
// fixed offsets followed by a sweep over the whole file.
type BlockScanner struct {
	fs        afero.Fs
	catalog   *signature.Catalog
	chunkSize int
	log       *zap.SugaredLogger
}

// NewBlockScanner creates a scanner. A nil catalog selects signature.Default.
func NewBlockScanner(fs afero.Fs, catalog *signature.Catalog, opts Options, logger *zap.SugaredLogger) *BlockScanner {
	if catalog == nil {
		catalog = signature.Default()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = signature.DefaultChunkSize
	}
	return &BlockScanner{fs: fs, catalog: catalog, chunkSize: chunkSize, log: logger}
}

// Catalog returns the signature catalog of the scanner.
func (s *BlockScanner) Catalog() *signature.Catalog {
	return s.catalog
}

type key struct {
	kind   cryptocase.ContainerKind
	offset int64
}

type scan struct {
	path       string
	candidates []cryptocase.ContainerCandidate
	seen       map[key]bool
}

func (sc *scan) add(kind cryptocase.ContainerKind, offset int64, confidence float64, notes string) {
	k := key{kind, offset}
	if sc.seen[k] {
		return
	}
	sc.seen[k] = true
	c := cryptocase.NewContainerCandidate("", kind, offset, confidence, notes)
	c.SourcePath = sc.path
	sc.candidates = append(sc.candidates, c)
}

func (sc *scan) has(kinds ...cryptocase.ContainerKind) bool {
	for _, c := range sc.candidates {
		for _, kind := range kinds {
			if c.Kind == kind {
				return true
			}
		}
	}
	return false
}

// ScanFile returns the candidates found in the file at path. No two
// candidates share kind and offset. The evidence id of the candidates is
// left empty.
func (s *BlockScanner) ScanFile(path string) ([]cryptocase.ContainerCandidate, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open file")
	}
	defer f.Close() // nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "could not stat file")
	}

	sc := &scan{path: path, seen: map[key]bool{}}

	head, err := s.probe(f, info.Size(), sc)
	if err != nil {
		return nil, err
	}
	if err := s.sweep(f, sc); err != nil {
		return nil, err
	}

	if !sc.has(cryptocase.VeraCrypt, cryptocase.TrueCrypt) {
		if kind, ok := s.catalog.HeaderlessKind(path); ok {
			s.log.Debugw("evaluating headerless container", "path", path, "kind", kind, "profile", heuristic.Measure(head).String())
			if confidence, basis, ok := heuristic.Score(head); ok {
				sc.add(kind, 0, confidence, fmt.Sprintf("%s file extension, %s", kind, basis))
			}
		}
	}

	s.log.Debugw("scanned file", "path", path, "size", info.Size(), "candidates", len(sc.candidates))
	return sc.candidates, nil
}

// probe reads one window at every probe offset and returns the window at
// offset 0.
func (s *BlockScanner) probe(f afero.File, size int64, sc *scan) ([]byte, error) {
	var head []byte
	for _, offset := range s.catalog.ProbeOffsets() {
		if offset >= size && offset != 0 {
			continue
		}
		window, err := readAt(f, offset, s.catalog.Window())
		if err != nil {
			return nil, errors.Wrapf(err, "could not probe offset %d", offset)
		}
		if offset == 0 {
			head = window
		}
		for _, m := range s.catalog.Find(window) {
			sc.add(m.Signature.Kind, offset+int64(m.Index), m.Signature.Confidence, m.Signature.Name)
		}
	}
	return head, nil
}

func (s *BlockScanner) sweep(f afero.File, sc *scan) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "could not rewind file")
	}
	return s.catalog.Sweep(f, s.chunkSize, func(sig *signature.Signature, offset int64) {
		sc.add(sig.Kind, offset, sig.Confidence, sig.Name)
	})
}

// ReadWindow reads up to size bytes at offset of the file at path. The
// result is shorter if the file ends before.
func (s *BlockScanner) ReadWindow(path string, offset int64, size int) ([]byte, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() // nolint:errcheck
	return readAt(f, offset, size)
}

func readAt(f afero.File, offset int64, size int) ([]byte, error) {
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	window := make([]byte, size)
	n, err := io.ReadFull(f, window)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF { // nolint:errorlint
		return nil, err
	}
	return window[:n], nil
}
