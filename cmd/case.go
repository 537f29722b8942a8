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

	"github.com/forensicanalysis/cryptocase"
	"github.com/forensicanalysis/cryptocase/report"
)

func caseCommand(a *app) *cobra.Command {
	caseCmd := &cobra.Command{
		Use:   "case",
		Short: "Create and inspect cases",
	}
	caseCmd.AddCommand(caseCreateCommand(a), caseInfoCommand(a))
	return caseCmd
}

func caseCreateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <dir>",
		Short: "Create a case folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := cryptocase.Create(a.fs, args[0], a.cfg.Examiner, cryptocase.WithLogger(a.log))
			if err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "created case %s in %s\n", ledger.ID(), ledger.Root()) // nolint:errcheck
			return nil
		},
	}
}

func caseInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <dir>",
		Short: "Print a summary of a case",
		Args:  a.requireCase(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := cryptocase.Open(a.fs, args[0], cryptocase.WithLogger(a.log))
			if err != nil {
				return err
			}
			c := ledger.Snapshot()
			w := cmd.OutOrStdout()

			headerColor.Fprintf(w, "Case %s\n", c.Metadata.CaseID) // nolint:errcheck
			fmt.Fprintf(w, "examiner: %s\n", c.Actor())
			fmt.Fprintf(w, "created: %s\n", c.Metadata.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
			fmt.Fprintf(w, "evidence: %d\n", len(c.Evidence))
			for _, e := range c.Evidence {
				fmt.Fprintf(w, "  %s %s (%s, %s)\n", e.ID, e.Path, e.Kind, report.FormatBytes(e.Size))
			}
			fmt.Fprintf(w, "containers: %d\n", len(c.Containers))
			for _, container := range c.Containers {
				fmt.Fprintf(w, "  %s %s at offset %d (confidence %.2f)\n", container.ID, container.Kind, container.Offset, container.Confidence)
			}
			fmt.Fprintf(w, "artefacts: %d\n", len(c.Artefacts))
			fmt.Fprintf(w, "timeline events: %d\n", len(c.Timeline))
			fmt.Fprintf(w, "unlock attempts: %d\n", len(c.UnlockAttempts))
			fmt.Fprintf(w, "custody events: %d\n", len(c.CustodyLog))
			return nil
		},
	}
}
