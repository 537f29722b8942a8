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
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicanalysis/cryptocase"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 8, c.MaxMagicLen())
	assert.Equal(t, []int64{0, 4096, 65536}, c.ProbeOffsets())
	assert.Equal(t, HeaderWindow, c.Window())
	assert.Len(t, c.Signatures(), 2)
}

func TestCatalog_HeaderlessKind(t *testing.T) {
	c := Default()
	tests := []struct {
		name   string
		file   string
		want   cryptocase.ContainerKind
		wantOk bool
	}{
		{"veracrypt", "/cases/vault.hc", cryptocase.VeraCrypt, true},
		{"upper case", "VAULT.HC", cryptocase.VeraCrypt, true},
		{"truecrypt", "old.tc", cryptocase.TrueCrypt, true},
		{"image", "disk.dd", "", false},
		{"no extension", "hc", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.HeaderlessKind(tt.file)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalog_Find(t *testing.T) {
	c := Default()
	buf := []byte("xx-FVE-FS-yyLUKS\xba\xbezz-FVE-FS-")
	matches := c.Find(buf)
	if assert.Len(t, matches, 3) {
		assert.Equal(t, 2, matches[0].Index)
		assert.Equal(t, cryptocase.BitLocker, matches[0].Signature.Kind)
		assert.Equal(t, 12, matches[1].Index)
		assert.Equal(t, cryptocase.LUKS, matches[1].Signature.Kind)
		assert.Equal(t, 20, matches[2].Index)
	}

	assert.Empty(t, c.Find([]byte("-FVE-FS")))
	assert.Empty(t, c.Find(nil))
}

func TestCatalog_FindOverlapping(t *testing.T) {
	c := New([]Signature{{Kind: cryptocase.Unknown, Magic: []byte("aa")}}, nil, 16, nil)
	assert.Len(t, c.Find([]byte("aaaa")), 3)
}

func TestCatalog_Sweep(t *testing.T) {
	c := Default()
	data := make([]byte, 100)
	copy(data[7:], "LUKS\xba\xbe")
	copy(data[90:], "-FVE-FS-")

	for _, chunkSize := range []int{1, 3, 10, 64, 0} {
		offsets := map[int64]cryptocase.ContainerKind{}
		err := c.Sweep(bytes.NewReader(data), chunkSize, func(sig *Signature, offset int64) {
			offsets[offset] = sig.Kind
		})
		require.NoError(t, err)
		assert.Equal(t, map[int64]cryptocase.ContainerKind{7: cryptocase.LUKS, 90: cryptocase.BitLocker}, offsets, "chunk size %d", chunkSize)
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestCatalog_SweepError(t *testing.T) {
	err := Default().Sweep(brokenReader{}, 16, func(*Signature, int64) {})
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}
