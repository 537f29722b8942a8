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

package cmd

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/forensicanalysis/cryptocase"
	"github.com/forensicanalysis/cryptocase/capability"
	"github.com/forensicanalysis/cryptocase/crack"
	"github.com/forensicanalysis/cryptocase/unlock"
)

// ErrContainerNotFound is returned for unknown container ids.
var ErrContainerNotFound = errors.New("container not found")

func findContainer(ledger *cryptocase.Ledger, id string) (cryptocase.ContainerCandidate, error) {
	for _, c := range ledger.Snapshot().Containers {
		if c.ID == id {
			return c, nil
		}
	}
	return cryptocase.ContainerCandidate{}, errors.Wrap(ErrContainerNotFound, id)
}

func unlockCommand(a *app) *cobra.Command {
	var method, secretID string
	unlockCmd := &cobra.Command{
		Use:   "unlock <case> <container-id>",
		Short: "Unlock a detected container (not implemented)",
		Args:  a.requireCase(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, done, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer done()

			container, err := findContainer(ledger, args[1])
			if err != nil {
				return err
			}
			outcome, attempt, err := unlock.Unlock(unlock.Request{
				Container: container,
				Method:    unlock.Method(method),
				SecretID:  secretID,
			})
			if !errors.Is(err, capability.ErrNotImplemented) {
				return err
			}
			if err := ledger.AppendUnlockAttempt(attempt); err != nil {
				return err
			}
			warningColor.Fprintln(cmd.OutOrStdout(), outcome) // nolint:errcheck
			return err
		},
	}
	unlockCmd.Flags().StringVar(&method, "method", string(unlock.Password), "secret type (password, recovery_key, keyfile)")
	unlockCmd.Flags().StringVar(&secretID, "secret-id", "", "identifier of the secret, the secret itself is never stored")
	return unlockCmd
}

func crackCommand(a *app) *cobra.Command {
	var wordlist string
	var maxRuntime time.Duration
	crackCmd := &cobra.Command{
		Use:   "crack <case> <container-id>",
		Short: "Run a password search against a container (not implemented)",
		Args:  a.requireCase(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, done, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer done()

			container, err := findContainer(ledger, args[1])
			if err != nil {
				return err
			}
			engine := crack.NewEngine(crack.Config{Container: container, WordlistPath: wordlist, MaxRuntime: maxRuntime}, a.log)
			outcome, err := engine.Run(cmd.Context())
			if !errors.Is(err, capability.ErrNotImplemented) {
				return err
			}
			attempt := cryptocase.UnlockAttempt{
				ContainerID: container.ID,
				Method:      "wordlist",
				SecretID:    wordlist,
				Result:      cryptocase.UnlockError,
				Message:     outcome.Message,
			}
			if err := ledger.AppendUnlockAttempt(attempt); err != nil {
				return err
			}
			warningColor.Fprintln(cmd.OutOrStdout(), outcome) // nolint:errcheck
			return err
		},
	}
	crackCmd.Flags().StringVar(&wordlist, "wordlist", "", "password candidates, one per line")
	crackCmd.Flags().DurationVar(&maxRuntime, "max-runtime", time.Hour, "stop the search after this duration")
	return crackCmd
}
