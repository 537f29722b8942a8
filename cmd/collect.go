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
	"github.com/spf13/cobra"

	"github.com/forensicanalysis/cryptocase/collect"
)

func collectCommand(a *app) *cobra.Command {
	var osName string
	collectCmd := &cobra.Command{
		Use:   "collect <case> <root>",
		Short: "Record the encryption context of a mounted system",
		Args:  a.requireCase(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, done, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer done()

			artefacts, outcome, err := collect.New(ledger, a.log).Collect(collect.OS(osName), args[1])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, artefact := range artefacts {
				successColor.Fprintln(w, artefact.Description) // nolint:errcheck
			}
			if !outcome.Verified() {
				warningColor.Fprintln(w, outcome) // nolint:errcheck
			}
			return nil
		},
	}
	collectCmd.Flags().StringVar(&osName, "os", string(collect.Windows), "operating system of the root (windows, linux)")
	return collectCmd
}
