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

// Package heuristic scores byte windows that carry no container signature.
package heuristic

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

const (
	// MinWindow is the smallest window whose entropy is considered meaningful.
	MinWindow = 1024

	extensionOnlyConfidence = 0.30
	highEntropy             = 7.2
	highConfidence          = 0.65
	mediumEntropy           = 6.0
	mediumConfidence        = 0.45
)

// Entropy returns the Shannon entropy of data in bits per byte (0 to 8).
func Entropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var histogram [256]int
	for _, b := range data {
		histogram[b]++
	}
	total := float64(len(data))
	var entropy float64
	for _, count := range histogram {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// Score grades a window of a file whose name suggests a headerless
// container. The returned confidence grows with the measured entropy. A
// window below MinWindow only gets the low extension-only confidence. ok is
// false when the data looks too structured to be ciphertext.
func Score(window []byte) (confidence float64, basis string, ok bool) {
	if len(window) < MinWindow {
		return extensionOnlyConfidence, "extension only, not enough data for entropy", true
	}

	p := Measure(window)
	switch {
	case p.Entropy >= highEntropy:
		return highConfidence, "high entropy " + p.String(), true
	case p.Entropy >= mediumEntropy:
		return mediumConfidence, "elevated entropy " + p.String(), true
	default:
		return 0, "", false
	}
}

// Profile describes the byte distribution of a window.
type Profile struct {
	Entropy           float64
	Mean              float64
	SerialCorrelation float64
}

func (p Profile) String() string {
	return fmt.Sprintf("(%.2f bits/byte, mean byte %.1f, serial correlation %.3f)", p.Entropy, p.Mean, p.SerialCorrelation)
}

// Measure computes the entropy together with the mean byte value and the
// lag-1 serial correlation. Ciphertext has a mean close to 127.5 and a
// serial correlation close to 0.
func Measure(window []byte) Profile {
	p := Profile{Entropy: Entropy(window)}
	if len(window) == 0 {
		return p
	}

	data := make(stats.Float64Data, len(window))
	for i, b := range window {
		data[i] = float64(b)
	}
	if mean, err := stats.Mean(data); err == nil {
		p.Mean = mean
	}
	if len(data) > 2 {
		// constant input has no variance, Correlation reports 0 then
		if corr, err := stats.Correlation(data[:len(data)-1], data[1:]); err == nil && !math.IsNaN(corr) {
			p.SerialCorrelation = corr
		}
	}
	return p
}
