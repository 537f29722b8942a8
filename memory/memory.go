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

// Package memory searches memory dumps for container signatures and for
// key-like data close to them.
package memory

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

const (
	// KeyLength is the size of a potential key.
	KeyLength = 32
	// KeySearchRange is the number of bytes after a signature searched for keys.
	KeySearchRange = 256
	// MinKeyEntropy is the entropy in bits per byte a key candidate needs.
	// A 32 byte window has at most 5 bits per byte.
	MinKeyEntropy = 4.0
)

// Scanner scans memory dumps.
type Scanner struct {
	fs        afero.Fs
	catalog   *signature.Catalog
	chunkSize int
	log       *zap.SugaredLogger
}

// New creates a Scanner. A nil catalog selects signature.Default.
func New(fs afero.Fs, catalog *signature.Catalog, logger *zap.SugaredLogger) *Scanner {
	if catalog == nil {
		catalog = signature.Default()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scanner{fs: fs, catalog: catalog, chunkSize: signature.DefaultChunkSize, log: logger}
}

type hit struct {
	kind   cryptocase.ContainerKind
	offset int64
}

// ScanDump returns memory artefacts for every signature in the dump at path
// and for every key-like window following a signature. The artefacts are not
// added to a case.
func (s *Scanner) ScanDump(path, evidenceID string) ([]cryptocase.Artefact, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open memory dump")
	}
	defer f.Close() // nolint:errcheck

	s.log.Infow("scanning memory dump", "path", path)

	var hits []hit
	seen := map[hit]bool{}
	err = s.catalog.Sweep(f, s.chunkSize, func(sig *signature.Signature, offset int64) {
		h := hit{sig.Kind, offset}
		if !seen[h] {
			seen[h] = true
			hits = append(hits, h)
		}
	})
	if err != nil {
		return nil, err
	}

	var artefacts []cryptocase.Artefact
	for _, h := range hits {
		artefacts = append(artefacts, cryptocase.NewArtefact(cryptocase.Memory, evidenceID,
			fmt.Sprintf("signature %s located in memory at offset %d", h.kind, h.offset)))

		keys, err := s.keys(f, h.offset)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			artefacts = append(artefacts, cryptocase.NewArtefact(cryptocase.Memory, evidenceID,
				fmt.Sprintf("potential key material at offset %d near %s signature (%.2f bits/byte)", k.offset, h.kind, k.entropy)))
			s.log.Debugw("key candidate", "offset", k.offset, "signature", h.offset)
		}
	}

	s.log.Infow("memory scan complete", "path", path, "artefacts", len(artefacts))
	return artefacts, nil
}

type key struct {
	offset  int64
	entropy float64
}

// keys reads KeySearchRange bytes at offset and returns the aligned
// KeyLength windows of high entropy.
func (s *Scanner) keys(f afero.File, offset int64) ([]key, error) {
	buf := make([]byte, KeySearchRange)
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF { // nolint:errorlint
		return nil, errors.Wrapf(err, "could not read at %d", offset)
	}
	buf = buf[:n]

	var keys []key
	for start := 0; start+KeyLength <= len(buf); start += KeyLength {
		e := heuristic.Entropy(buf[start : start+KeyLength])
		if e >= MinKeyEntropy {
			keys = append(keys, key{offset + int64(start), e})
		}
	}
	return keys, nil
}
