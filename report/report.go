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

// Package report renders a case as JSON or Markdown.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/forensicanalysis/cryptocase"
)

// Format is a report format.
type Format string

const (
	JSON     Format = "json"
	Markdown Format = "md"
)

const limitation = "Detection only; no container was decrypted and no cryptographic validation was performed."

// ParseFormat accepts json, md and markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return JSON, nil
	case "md", "markdown":
		return Markdown, nil
	default:
		return "", fmt.Errorf("unsupported report format: %s", s)
	}
}

type jsonReport struct {
	*cryptocase.Case
	Notes string `json:"notes"`
}

// BuildJSON returns the case with an added notes field.
func BuildJSON(c *cryptocase.Case) ([]byte, error) {
	return json.MarshalIndent(jsonReport{Case: c, Notes: limitation}, "", "  ")
}

// BuildMarkdown returns a Markdown summary of the case.
func BuildMarkdown(c *cryptocase.Case) string {
	var b strings.Builder
	line := func(format string, a ...interface{}) {
		fmt.Fprintf(&b, format+"\n", a...)
	}

	line("# Encrypted Container Report for Case %s", c.Metadata.CaseID)
	line("")
	line("**Examiner:** %s", c.Actor())
	line("**Created:** %s", timestamp(c.Metadata.CreatedAt))

	line("\n## Evidence")
	for _, e := range c.Evidence {
		line("- `%s` %s (%s), size=%s, SHA-256: %s", e.ID, e.Description, e.Kind, FormatBytes(e.Size), e.SHA256)
	}

	line("\n## Detected Containers")
	for _, cc := range c.Containers {
		line("- `%s` from evidence `%s` at offset %d bytes; type=%s, confidence=%.2f, %s",
			cc.ID, cc.EvidenceID, cc.Offset, cc.Kind, cc.Confidence, cc.Notes)
	}

	line("\n## Artefacts")
	for _, a := range c.Artefacts {
		line("- `%s`: %s (source=%s, type=%s)", a.ID, a.Description, a.Source, a.Kind)
	}

	line("\n## Timeline")
	if len(c.Timeline) == 0 {
		line("- No timeline events recorded")
	}
	for _, t := range c.Timeline {
		detail := ""
		if t.ArtefactID != nil {
			detail = ", artefact " + *t.ArtefactID
		}
		line("- %s: %s%s", timestamp(t.Timestamp), t.Description, detail)
	}

	line("\n## Unlock Attempts")
	for _, u := range c.UnlockAttempts {
		line("- Container `%s` via %s (%s): %s, %s", u.ContainerID, u.Method, u.SecretID, u.Result, u.Message)
	}

	line("\n## Chain of Custody")
	for _, e := range c.CustodyLog {
		line("- %s %s: %s", timestamp(e.Timestamp), e.Actor, e.Action)
	}

	line("\n## Limitations")
	line("- %s", limitation)
	return b.String()
}

// Write renders the case to w.
func Write(c *cryptocase.Case, w io.Writer, format Format) error {
	switch format {
	case JSON:
		b, err := BuildJSON(c)
		if err != nil {
			return err
		}
		_, err = w.Write(append(b, '\n'))
		return err
	case Markdown:
		_, err := io.WriteString(w, BuildMarkdown(c))
		return err
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

// Save writes the report to path, creating missing folders.
func Save(fs afero.Fs, c *cryptocase.Case, path string, format Format) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return errors.Wrap(err, "could not create report folder")
	}
	f, err := fs.Create(path)
	if err != nil {
		return errors.Wrap(err, "could not create report")
	}
	if err := Write(c, f, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// FormatBytes formats a size with a binary unit.
func FormatBytes(size int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}
	value := float64(size)
	unit := 0
	for value >= 1024 && unit < len(units)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", value, units[unit])
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
