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

package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicanalysis/cryptocase"
)

func exampleCase(t *testing.T) *cryptocase.Case {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/evidence/disk.img", []byte("-FVE-FS-"), 0644))

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ledger, err := cryptocase.Create(fs, "/case", "alice", cryptocase.WithClock(func() time.Time { return clock }))
	require.NoError(t, err)
	evidence, err := ledger.RegisterEvidence("/evidence/disk.img", "laptop image", cryptocase.DiskImage)
	require.NoError(t, err)
	artefact, err := ledger.RegisterContainer(cryptocase.NewContainerCandidate(evidence.ID, cryptocase.BitLocker, 0, 0.9, "FVE-FS header signature detected"))
	require.NoError(t, err)
	_, err = ledger.AppendTimelineEvent("container found", artefact.ID)
	require.NoError(t, err)
	return ledger.Snapshot()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", JSON, false},
		{"MD", Markdown, false},
		{"markdown", Markdown, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		assert.Equal(t, tt.wantErr, err != nil, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestBuildJSON(t *testing.T) {
	c := exampleCase(t)
	b, err := BuildJSON(c)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, limitation, got["notes"])
	assert.Equal(t, c.Metadata.CaseID, got["metadata"].(map[string]interface{})["case_id"])
	assert.Len(t, got["containers"], 1)
}

func TestBuildMarkdown(t *testing.T) {
	c := exampleCase(t)
	md := BuildMarkdown(c)

	assert.True(t, strings.HasPrefix(md, "# Encrypted Container Report for Case "+c.Metadata.CaseID))
	assert.Contains(t, md, "**Examiner:** alice")
	assert.Contains(t, md, "size=8 B")
	assert.Contains(t, md, "at offset 0 bytes; type=bitlocker, confidence=0.90")
	assert.Contains(t, md, "- 2024-05-01T12:00:00Z: container found, artefact "+c.Artefacts[0].ID)
	assert.Contains(t, md, "2024-05-01T12:00:00Z alice: added evidence "+c.Evidence[0].ID)
	assert.Contains(t, md, "## Limitations")
}

func TestSave(t *testing.T) {
	c := exampleCase(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, Save(fs, c, "/case/reports/report.md", Markdown))

	b, err := afero.ReadFile(fs, "/case/reports/report.md")
	require.NoError(t, err)
	assert.Equal(t, BuildMarkdown(c), string(b))

	var buf bytes.Buffer
	assert.Error(t, Write(c, &buf, Format("pdf")))
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 << 40, "3.00 TB"},
		{2048 << 40, "2048.00 TB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in))
	}
}
