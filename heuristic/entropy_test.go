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

package heuristic

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func randomBytes(n int, seed int64) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b) // nolint:gosec
	return b
}

func TestEntropy(t *testing.T) {
	uniform := make([]byte, 256*16)
	for i := range uniform {
		uniform[i] = byte(i)
	}

	tests := []struct {
		name string
		data []byte
		min  float64
		max  float64
	}{
		{"empty", nil, 0, 0},
		{"single value", bytes.Repeat([]byte{0x41}, 4096), 0, 0},
		{"two values", bytes.Repeat([]byte{0x00, 0xff}, 2048), 1, 1},
		{"uniform", uniform, 8, 8},
		{"random", randomBytes(8192, 1), 7.9, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Entropy(tt.data)
			assert.GreaterOrEqual(t, got, tt.min-1e-9)
			assert.LessOrEqual(t, got, tt.max+1e-9)
		})
	}
}

func TestScore(t *testing.T) {
	medium := make([]byte, 4096)
	for i := range medium {
		// 80 distinct values, about 6.3 bits per byte
		medium[i] = byte(i % 80)
	}

	tests := []struct {
		name       string
		window     []byte
		confidence float64
		ok         bool
	}{
		{"short window", randomBytes(512, 2), 0.30, true},
		{"random", randomBytes(4096, 3), 0.65, true},
		{"medium", medium, 0.45, true},
		{"zeros", make([]byte, 4096), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confidence, basis, ok := Score(tt.window)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.confidence, confidence, 1e-9)
			if ok {
				assert.NotEmpty(t, basis)
			}
		})
	}
}

func TestScoreMonotonic(t *testing.T) {
	var last float64
	for distinct := 1; distinct <= 256; distinct *= 2 {
		window := make([]byte, 8192)
		for i := range window {
			window[i] = byte(i % distinct)
		}
		confidence, _, _ := Score(window)
		assert.GreaterOrEqual(t, confidence, last, "distinct=%d", distinct)
		last = confidence
	}
}

func TestMeasure(t *testing.T) {
	p := Measure(randomBytes(65536, 4))
	assert.InDelta(t, 127.5, p.Mean, 2)
	assert.InDelta(t, 0, p.SerialCorrelation, 0.05)

	p = Measure(bytes.Repeat([]byte{7}, 100))
	assert.Equal(t, 0.0, p.Entropy)
	assert.InDelta(t, 7, p.Mean, 1e-9)
	assert.Equal(t, 0.0, p.SerialCorrelation)

	assert.Equal(t, Profile{}, Measure(nil))
}
