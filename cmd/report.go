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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forensicanalysis/cryptocase/report"
)

func reportCommand(a *app) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report <case> <out>",
		Short: "Export the case as json or markdown report",
		Args:  a.requireCase(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(a.cfg.Report.Format)
			if err != nil {
				return err
			}
			ledger, done, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer done()

			if err := report.Save(a.fs, ledger.Snapshot(), args[1], format); err != nil {
				return err
			}
			if _, err := ledger.AppendCustodyEvent(fmt.Sprintf("exported %s report to %s", format, args[1])); err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "report written to %s\n", args[1]) // nolint:errcheck
			return nil
		},
	}
	reportCmd.Flags().String("format", "json", "report format (json, md)")
	bind(a.v, "report.format", reportCmd.Flags().Lookup("format"))
	return reportCmd
}
