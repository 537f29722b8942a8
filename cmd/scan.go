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
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forensicanalysis/cryptocase"
	"github.com/forensicanalysis/cryptocase/memory"
	"github.com/forensicanalysis/cryptocase/metrics"
	"github.com/forensicanalysis/cryptocase/scanner"
	"github.com/forensicanalysis/cryptocase/sqlar"
)

// printSink writes accepted candidates and skipped files to the terminal.
type printSink struct {
	scanner.NopSink
	w io.Writer
}

func (p printSink) OnResult(c cryptocase.ContainerCandidate) {
	successColor.Fprintf(p.w, "%-10s %s @ %d (confidence %.2f)\n", c.Kind, c.SourcePath, c.Offset, c.Confidence) // nolint:errcheck
}

func (p printSink) OnError(path string, err error) {
	warningColor.Fprintf(p.w, "skipped %s: %v\n", path, err) // nolint:errcheck
}

func (p printSink) OnComplete(total int) {
	fmt.Fprintf(p.w, "%d candidates\n", total)
}

func scanCommand(a *app) *cobra.Command {
	var description string
	scanCmd := &cobra.Command{
		Use:   "scan <case> <target>",
		Short: "Scan a file or folder for encrypted containers",
		Args:  a.requireCase(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, target := args[0], args[1]
			ledger, done, err := a.open(root)
			if err != nil {
				return err
			}
			defer done()

			opts := []scanner.OrchestratorOption{
				scanner.WithLogger(a.log),
				scanner.WithRecorder(ledger, description, cryptocase.EvidenceKind(a.cfg.Scan.EvidenceKind)),
			}
			if a.cfg.Scan.CaptureHeaders {
				archive, err := sqlar.Open(filepath.Join(root, a.cfg.Scan.HeaderArchive))
				if err != nil {
					return err
				}
				defer archive.Close() // nolint:errcheck
				opts = append(opts, scanner.WithHeaderArchive(archive))
			}

			block := scanner.NewBlockScanner(a.fs, nil, scanner.Options{ChunkSize: a.cfg.Scan.ChunkSize}, a.log)
			collectors := metrics.NewSink()
			sink := scanner.MultiSink{scanner.LogSink{Log: a.log}, collectors, printSink{w: cmd.OutOrStdout()}}

			candidates, err := scanner.NewOrchestrator(a.fs, block, opts...).Run(cmd.Context(), target, sink)
			if err != nil {
				return err
			}

			if _, err := ledger.AppendTimelineEvent(fmt.Sprintf("scan of %s completed, %d containers detected", target, len(candidates)), ""); err != nil {
				return err
			}
			if a.cfg.Scan.MetricsTextfile != "" {
				return collectors.WriteTextfile(a.cfg.Scan.MetricsTextfile)
			}
			return nil
		},
	}

	flags := scanCmd.Flags()
	flags.StringVar(&description, "description", "", "description of the registered evidence")
	flags.String("kind", "disk_image", "evidence type (disk_image, memory_dump, config, other)")
	flags.Int("chunk-size", 1024*1024, "size of the chunks read by the sweep")
	flags.Bool("capture-headers", false, "store the header window of every candidate")
	flags.String("metrics-textfile", "", "write scan metrics in the prometheus text format")
	bind(a.v, "scan.evidence_kind", flags.Lookup("kind"))
	bind(a.v, "scan.chunk_size", flags.Lookup("chunk-size"))
	bind(a.v, "scan.capture_headers", flags.Lookup("capture-headers"))
	bind(a.v, "scan.metrics_textfile", flags.Lookup("metrics-textfile"))
	return scanCmd
}

func memoryCommand(a *app) *cobra.Command {
	var description string
	memoryCmd := &cobra.Command{
		Use:   "memory <case> <dump>",
		Short: "Search a memory dump for container signatures and key material",
		Args:  a.requireCase(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, done, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer done()

			evidence, err := ledger.RegisterEvidence(args[1], description, cryptocase.MemoryDump)
			if err != nil {
				return err
			}
			artefacts, err := memory.New(a.fs, nil, a.log).ScanDump(args[1], evidence.ID)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, artefact := range artefacts {
				if err := ledger.AppendArtefact(artefact); err != nil {
					return err
				}
				successColor.Fprintln(w, artefact.Description) // nolint:errcheck
			}
			_, err = ledger.AppendTimelineEvent(fmt.Sprintf("memory scan of %s completed, %d artefacts", args[1], len(artefacts)), "")
			return err
		},
	}
	memoryCmd.Flags().StringVar(&description, "description", "", "description of the registered evidence")
	return memoryCmd
}
