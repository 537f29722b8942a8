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

// Package unlock accepts requests to unlock a detected container. Unlocking
// is not implemented, every request is rejected and recorded as such.
package unlock

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/forensicanalysis/cryptocase"
	"github.com/forensicanalysis/cryptocase/capability"
)

// Method is the kind of secret used for an unlock.
type Method string

const (
	Password    Method = "password"
	RecoveryKey Method = "recovery_key"
	Keyfile     Method = "keyfile"
)

// A Request asks to unlock a container with a secret. The secret itself is
// never stored, only its identifier.
type Request struct {
	Container cryptocase.ContainerCandidate
	Method    Method `validate:"oneof=password recovery_key keyfile"`
	SecretID  string `validate:"required"`
}

var validate = validator.New() // nolint:gochecknoglobals

// Unlock rejects the request. It returns an unimplemented outcome, the
// attempt to record in the case and capability.ErrNotImplemented. A
// malformed request fails with a validation error instead.
func Unlock(req Request) (capability.Outcome, cryptocase.UnlockAttempt, error) {
	if err := validate.Struct(req); err != nil {
		return capability.Outcome{}, cryptocase.UnlockAttempt{}, errors.Wrap(err, "invalid unlock request")
	}
	if req.Container.ID == "" {
		return capability.Outcome{}, cryptocase.UnlockAttempt{}, errors.New("invalid unlock request: container without id")
	}

	outcome, err := capability.NotImplemented("unlock " + string(req.Container.Kind))
	attempt := cryptocase.UnlockAttempt{
		ContainerID: req.Container.ID,
		Method:      string(req.Method),
		SecretID:    req.SecretID,
		Result:      cryptocase.UnlockError,
		Message:     outcome.Message,
	}
	return outcome, attempt, err
}
