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

package cryptocase

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// clock returns the given times in order, then start.
func clock(times ...time.Time) func() time.Time {
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		if len(times) == 0 {
			return start
		}
		t := times[0]
		times = times[1:]
		return t
	}
}

func setup(t *testing.T, opts ...Option) (afero.Fs, *Ledger) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/images/a.dd", []byte("first image"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/images/b.dd", []byte("second image"), 0644))
	l, err := Create(fs, "/cases/1", "alice", opts...)
	require.NoError(t, err)
	return fs, l
}

func TestCreate(t *testing.T) {
	fs, l := setup(t)

	for _, name := range []string{"/cases/1/case.json", "/cases/1/logs", "/cases/1/artifacts", "/cases/1/reports"} {
		exists, err := afero.Exists(fs, name)
		require.NoError(t, err)
		assert.True(t, exists, name)
	}
	c := l.Snapshot()
	assert.NotEmpty(t, c.Metadata.CaseID)
	assert.Equal(t, "alice", c.Actor())
	assert.Equal(t, "/cases/1", l.Root())
	assert.Empty(t, c.Evidence)

	_, err := Create(fs, "/cases/1", "bob")
	assert.ErrorIs(t, err, ErrCaseExists)

	l, err = Create(fs, "/cases/2", "")
	require.NoError(t, err)
	assert.Nil(t, l.Snapshot().Metadata.Examiner)
	assert.Equal(t, "unknown", l.Snapshot().Actor())
}

func TestLedger_RegisterEvidenceAndContainer(t *testing.T) {
	_, l := setup(t)

	first, err := l.RegisterEvidence("/images/a.dd", "laptop", DiskImage)
	require.NoError(t, err)
	_, err = l.RegisterEvidence("/images/b.dd", "usb stick", DiskImage)
	require.NoError(t, err)
	assert.Equal(t, int64(len("first image")), first.Size)
	assert.Len(t, first.SHA256, 64)

	artefact, err := l.RegisterContainer(NewContainerCandidate(first.ID, BitLocker, 0, 0.9, "FVE-FS header"))
	require.NoError(t, err)

	c := l.Snapshot()
	assert.Len(t, c.Evidence, 2)
	require.Len(t, c.Containers, 1)
	require.Len(t, c.Artefacts, 1)
	assert.Equal(t, artefact, c.Artefacts[0])
	assert.Equal(t, Detection, artefact.Kind)
	assert.Equal(t, first.ID, artefact.Source)
	assert.Equal(t, "detected container at offset 0", artefact.Description)
	assert.Nil(t, artefact.Path)
	assert.GreaterOrEqual(t, len(c.CustodyLog), 2)
	assert.Equal(t, "added evidence "+first.ID, c.CustodyLog[0].Action)
	assert.Equal(t, "alice", c.CustodyLog[0].Actor)
	assert.Empty(t, c.Timeline)
}

func TestLedger_RegisterContainerHeaderPath(t *testing.T) {
	_, l := setup(t)
	candidate := NewContainerCandidate("evidence--1", LUKS, 4096, 0.9, "")
	candidate.HeaderPath = "headers.sqlar:headers/x.bin"

	artefact, err := l.RegisterContainer(candidate)
	require.NoError(t, err)
	require.NotNil(t, artefact.Path)
	assert.Equal(t, candidate.HeaderPath, *artefact.Path)

	_, err = l.RegisterContainer(NewContainerCandidate("evidence--1", LUKS, 0, 1.5, ""))
	assert.Error(t, err)
	assert.Len(t, l.Snapshot().Containers, 1)
}

func TestLedger_RegisterEvidenceUnreadable(t *testing.T) {
	_, l := setup(t)

	_, err := l.RegisterEvidence("/images/missing.dd", "", DiskImage)
	assert.ErrorIs(t, err, ErrEvidenceUnreadable)

	_, err = l.RegisterEvidence("/images/a.dd", "", EvidenceKind("floppy"))
	assert.Error(t, err)
	assert.Empty(t, l.Snapshot().Evidence)
	assert.Empty(t, l.Snapshot().CustodyLog)
}

func TestLedger_TimelineOrdering(t *testing.T) {
	times := []time.Time{start, start.Add(3 * time.Second), start.Add(time.Second), start.Add(2 * time.Second), start.Add(time.Second)}
	_, l := setup(t, WithClock(clock(times...)))

	for i := 0; i < 4; i++ {
		_, err := l.AppendTimelineEvent(fmt.Sprintf("event %d", i), "")
		require.NoError(t, err)
	}

	timeline := l.Snapshot().Timeline
	require.Len(t, timeline, 4)
	assert.True(t, sort.SliceIsSorted(timeline, func(i, j int) bool {
		return timeline[i].Timestamp.Before(timeline[j].Timestamp)
	}))
	var descriptions []string
	for _, e := range timeline {
		descriptions = append(descriptions, e.Description)
	}
	// equal timestamps keep their insertion order
	assert.Equal(t, []string{"event 1", "event 3", "event 2", "event 0"}, descriptions)
}

func TestLedger_AppendArtefact(t *testing.T) {
	tests := []struct {
		name     string
		artefact Artefact
		wantErr  bool
	}{
		{"memory", NewArtefact(Memory, "evidence--1", "signature luks located in memory at offset 10"), false},
		{"without id", Artefact{Kind: OtherKind, Description: "note"}, false},
		{"with timestamp", NewArtefact(OSContext, "/mnt", "crypttab").WithTimestamp(start).WithPath("/etc/crypttab"), false},
		{"invalid kind", Artefact{ID: "artefact--1", Kind: "bogus"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, l := setup(t)
			err := l.AppendArtefact(tt.artefact)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, l.Snapshot().Artefacts)
				return
			}
			require.NoError(t, err)
			artefacts := l.Snapshot().Artefacts
			require.Len(t, artefacts, 1)
			assert.NotEmpty(t, artefacts[0].ID)
			assert.Equal(t, tt.artefact.Description, artefacts[0].Description)
		})
	}
}

func TestLedger_AppendUnlockAttempt(t *testing.T) {
	_, l := setup(t)

	require.NoError(t, l.AppendUnlockAttempt(UnlockAttempt{ContainerID: "container--1", Method: "password", Result: UnlockError, Message: "not implemented"}))
	assert.Error(t, l.AppendUnlockAttempt(UnlockAttempt{Result: UnlockError}))
	assert.Error(t, l.AppendUnlockAttempt(UnlockAttempt{ContainerID: "container--1", Result: "maybe"}))
	assert.Len(t, l.Snapshot().UnlockAttempts, 1)
}

func TestOpen(t *testing.T) {
	fs, l := setup(t, WithClock(clock(start, start.Add(time.Minute))))
	evidence, err := l.RegisterEvidence("/images/a.dd", "laptop", DiskImage)
	require.NoError(t, err)
	_, err = l.RegisterContainer(NewContainerCandidate(evidence.ID, VeraCrypt, 0, 0.65, "high entropy"))
	require.NoError(t, err)
	_, err = l.AppendTimelineEvent("scan", "")
	require.NoError(t, err)
	require.NoError(t, l.AppendUnlockAttempt(UnlockAttempt{ContainerID: "container--1", Result: UnlockError}))

	loaded, err := Open(fs, "/cases/1")
	require.NoError(t, err)
	assert.Equal(t, l.Snapshot(), loaded.Snapshot())

	_, err = Open(fs, "/cases/2")
	assert.ErrorIs(t, err, ErrCaseNotExists)
}

func TestOpen_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		snapshot string
	}{
		{"not json", `{"version": 1`},
		{"missing arrays", `{"version": 1, "root_path": "/cases/1", "metadata": {"case_id": "x", "created_at": "2024-03-01T12:00:00Z"}}`},
		{"wrong container kind", `{"version": 1, "root_path": "/cases/1", "metadata": {"case_id": "x", "created_at": "2024-03-01T12:00:00Z"},
			"evidence": [], "artefacts": [], "timeline": [], "custody_log": [],
			"containers": [{"candidate_id": "c", "evidence_id": "e", "offset": 0, "container_type": "zip", "confidence": 0.9}]}`},
		{"wrong version", `{"version": 2, "root_path": "/cases/1", "metadata": {"case_id": "x", "created_at": "2024-03-01T12:00:00Z"},
			"evidence": [], "containers": [], "artefacts": [], "timeline": [], "custody_log": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, filepath.Join("/cases/1", CaseFile), []byte(tt.snapshot), 0644))

			_, err := Open(fs, "/cases/1")
			var derr *DeserializationError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, filepath.Join("/cases/1", CaseFile), derr.Path)
		})
	}
}

func TestLedger_PersistFailure(t *testing.T) {
	fs, _ := setup(t)
	l, err := Open(afero.NewReadOnlyFs(fs), "/cases/1")
	require.NoError(t, err)

	_, err = l.RegisterEvidence("/images/a.dd", "", DiskImage)
	assert.Error(t, err)
	_, err = l.AppendTimelineEvent("scan", "")
	assert.Error(t, err)

	c := l.Snapshot()
	assert.Empty(t, c.Evidence)
	assert.Empty(t, c.CustodyLog)
	assert.Empty(t, c.Timeline)
}

type recordingIndex struct {
	mu       sync.Mutex
	elements []string
}

func (r *recordingIndex) Insert(element []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elements = append(r.elements, string(element))
	return "", nil
}

func TestLedger_WithIndex(t *testing.T) {
	idx := &recordingIndex{}
	_, l := setup(t, WithIndex(idx))

	evidence, err := l.RegisterEvidence("/images/a.dd", "laptop", DiskImage)
	require.NoError(t, err)
	_, err = l.RegisterContainer(NewContainerCandidate(evidence.ID, LUKS, 0, 0.9, ""))
	require.NoError(t, err)

	require.Len(t, idx.elements, 4)
	assert.Contains(t, idx.elements[0], `"type":"evidence"`)
	assert.Contains(t, idx.elements[0], `"id":"`+evidence.ID+`"`)
	assert.Contains(t, idx.elements[0], `"case_id":"`+l.ID()+`"`)
	assert.Contains(t, idx.elements[1], `"type":"custody"`)
	assert.Contains(t, idx.elements[2], `"type":"container"`)
	assert.Contains(t, idx.elements[3], `"type":"artefact"`)
}

func TestLedger_Concurrent(t *testing.T) {
	_, l := setup(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.AppendArtefact(NewArtefact(OtherKind, "test", fmt.Sprint(i))))
		}(i)
	}
	wg.Wait()

	assert.Len(t, l.Snapshot().Artefacts, 20)
	loaded, err := Open(l.fs, l.Root())
	require.NoError(t, err)
	assert.Len(t, loaded.Snapshot().Artefacts, 20)
}
