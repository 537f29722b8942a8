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

package signature

import (
	"io"

	"github.com/pkg/errors"
)

// Sweep reads r in chunks of chunkSize bytes and calls fn for every
// signature occurrence with its offset relative to the start of r. The last
// MaxMagicLen-1 bytes of every chunk are kept and searched again together
// with the next chunk, so a signature crossing a chunk border is found. A
// short signature lying completely inside the kept bytes is reported twice,
// callers deduplicate by offset.
func (c *Catalog) Sweep(r io.Reader, chunkSize int, fn func(sig *Signature, offset int64)) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	keep := c.maxLen - 1
	if keep < 0 {
		keep = 0
	}

	buf := make([]byte, keep+chunkSize)
	tail := 0
	var read int64

	for {
		n, err := io.ReadFull(r, buf[tail:tail+chunkSize])
		if n > 0 {
			combined := buf[:tail+n]
			for _, m := range c.Find(combined) {
				fn(m.Signature, read-int64(tail)+int64(m.Index))
			}
			read += int64(n)

			next := keep
			if len(combined) < next {
				next = len(combined)
			}
			copy(buf, combined[len(combined)-next:])
			tail = next
		}
		switch {
		case err == io.EOF || err == io.ErrUnexpectedEOF: // nolint:errorlint
			return nil
		case err != nil:
			return errors.Wrapf(err, "could not read chunk at %d", read)
		}
	}
}
