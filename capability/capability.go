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

// Package capability describes the outcome of examination steps that are
// not, or only partially, implemented. Callers can tell verified results
// apart from simulated or rejected ones.
package capability

import (
	"github.com/pkg/errors"
)

// ErrNotImplemented is returned by capabilities that refuse to run.
var ErrNotImplemented = errors.New("not implemented")

// Status tells how far a result can be trusted.
type Status string

const (
	Verified      Status = "verified"
	Simulated     Status = "simulated"
	Unimplemented Status = "unimplemented"
)

// Outcome is the result of invoking a capability.
type Outcome struct {
	Capability string
	Status     Status
	Message    string
}

// Verified reports whether the outcome is backed by a real result.
func (o Outcome) Verified() bool {
	return o.Status == Verified
}

func (o Outcome) String() string {
	return o.Capability + ": " + string(o.Status) + ", " + o.Message
}

// NotImplemented returns the outcome of a capability that refused to run
// together with ErrNotImplemented.
func NotImplemented(capability string) (Outcome, error) {
	return Outcome{Capability: capability, Status: Unimplemented, Message: "not implemented"},
		errors.Wrap(ErrNotImplemented, capability)
}

// Simulate returns the outcome of a capability that produced placeholder
// data.
func Simulate(capability, message string) Outcome {
	return Outcome{Capability: capability, Status: Simulated, Message: message}
}
