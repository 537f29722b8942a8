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

package scanner

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicanalysis/cryptocase"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	onProg func(path string)
}

func (r *recordingSink) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) OnProgress(path string) {
	r.add(EventProgress{Path: path})
	if r.onProg != nil {
		r.onProg(path)
	}
}
func (r *recordingSink) OnResult(c cryptocase.ContainerCandidate) { r.add(EventResult{Candidate: c}) }
func (r *recordingSink) OnError(path string, err error) { r.add(EventError{Path: path, Err: err}) }
func (r *recordingSink) OnComplete(total int) { r.add(EventDone{Total: total}) }

func (r *recordingSink) errors() []EventError {
	var errs []EventError
	for _, e := range r.events {
		if ee, ok := e.(EventError); ok {
			errs = append(errs, ee)
		}
	}
	return errs
}

// assertOrdered checks that the events of a path follow its progress event.
func assertOrdered(t *testing.T, events []Event) {
	t.Helper()
	current := ""
	for _, e := range events {
		switch e := e.(type) {
		case EventProgress:
			current = e.Path
		case EventResult:
			assert.Equal(t, current, e.Candidate.SourcePath)
		case EventError:
			assert.Equal(t, current, e.Path)
		}
	}
}

func threeFiles(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/evidence/a.img", place(1024, bitlockerMagic, 0))
	writeFile(t, fs, "/evidence/b.img", place(1024, bitlockerMagic, 0))
	writeFile(t, fs, "/evidence/c.img", place(8192, luksMagic, 4096))
	return fs
}

func TestOrchestrator_UnreadableFile(t *testing.T) {
	fs := failingFs{Fs: threeFiles(t), fail: "/evidence/b.img"}
	o := NewOrchestrator(fs, NewBlockScanner(fs, nil, Options{}, nil))

	sink := &recordingSink{}
	results, err := o.Run(context.Background(), "/evidence", sink)
	require.NoError(t, err)

	if assert.Len(t, sink.errors(), 1) {
		assert.Equal(t, "/evidence/b.img", sink.errors()[0].Path)
	}
	assert.Equal(t, []tuple{{cryptocase.BitLocker, 0, 0.9}, {cryptocase.LUKS, 4096, 0.9}}, tuples(results))
	assert.Equal(t, "/evidence/a.img", results[0].SourcePath)
	assert.Equal(t, "/evidence/c.img", results[1].SourcePath)

	assertOrdered(t, sink.events)
	assert.Equal(t, EventDone{Total: 2}, sink.events[len(sink.events)-1])
}

func TestOrchestrator_MissingRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	o := NewOrchestrator(fs, NewBlockScanner(fs, nil, Options{}, nil))

	sink := &recordingSink{}
	_, err := o.Run(context.Background(), "/nope", sink)
	assert.ErrorIs(t, err, ErrRootNotFound)
	assert.Empty(t, sink.events)
}

func TestOrchestrator_SingleFileRoot(t *testing.T) {
	fs := threeFiles(t)
	o := NewOrchestrator(fs, NewBlockScanner(fs, nil, Options{}, nil))

	results, err := o.Run(context.Background(), "/evidence/c.img", nil)
	require.NoError(t, err)
	assert.Equal(t, []tuple{{cryptocase.LUKS, 4096, 0.9}}, tuples(results))
}

type memArchive struct {
	files map[string][]byte
}

func (m *memArchive) Put(name string, data []byte) (string, error) {
	m.files[name] = data
	return "headers.sqlar:" + name, nil
}

func TestOrchestrator_Recorder(t *testing.T) {
	fs := threeFiles(t)
	ledger, err := cryptocase.Create(fs, "/case", "examiner")
	require.NoError(t, err)
	archive := &memArchive{files: map[string][]byte{}}

	o := NewOrchestrator(fs, NewBlockScanner(fs, nil, Options{}, nil),
		WithRecorder(ledger, "seized laptop", cryptocase.DiskImage),
		WithHeaderArchive(archive),
	)
	results, err := o.Run(context.Background(), "/evidence", nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	c := ledger.Snapshot()
	assert.Len(t, c.Evidence, 3)
	assert.Len(t, c.Containers, 3)
	assert.Len(t, c.Artefacts, 3)
	assert.Len(t, c.CustodyLog, 3)
	assert.Empty(t, c.Timeline)

	for i, candidate := range c.Containers {
		assert.Equal(t, c.Evidence[i].ID, candidate.EvidenceID)
		assert.Equal(t, results[i].ID, candidate.ID)
		require.NotEmpty(t, candidate.HeaderPath)
		assert.Equal(t, candidate.HeaderPath, *c.Artefacts[i].Path)
		assert.Equal(t, cryptocase.Detection, c.Artefacts[i].Kind)
	}
	assert.Len(t, archive.files, 3)
	for _, data := range archive.files {
		assert.NotEmpty(t, data)
	}
}

type brokenRecorder struct {
	evidence int
}

func (b *brokenRecorder) RegisterEvidence(path, _ string, kind cryptocase.EvidenceKind) (cryptocase.Evidence, error) {
	b.evidence++
	return cryptocase.Evidence{ID: fmt.Sprintf("evidence--%d", b.evidence), Path: path, Kind: kind}, nil
}

func (b *brokenRecorder) RegisterContainer(cryptocase.ContainerCandidate) (cryptocase.Artefact, error) {
	return cryptocase.Artefact{}, errors.New("disk full")
}

func TestOrchestrator_RecorderFailureAborts(t *testing.T) {
	fs := threeFiles(t)
	recorder := &brokenRecorder{}
	o := NewOrchestrator(fs, NewBlockScanner(fs, nil, Options{}, nil), WithRecorder(recorder, "", cryptocase.DiskImage))

	sink := &recordingSink{}
	_, err := o.Run(context.Background(), "/evidence", sink)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, recorder.evidence)
	assert.Empty(t, sink.errors())
}

func TestOrchestrator_UnreadableEvidence(t *testing.T) {
	base := threeFiles(t)
	fs := failingFs{Fs: base, fail: "/evidence/a.img"}
	ledger, err := cryptocase.Create(fs, "/case", "")
	require.NoError(t, err)

	o := NewOrchestrator(fs, NewBlockScanner(fs, nil, Options{}, nil), WithRecorder(ledger, "", cryptocase.DiskImage))
	sink := &recordingSink{}
	results, err := o.Run(context.Background(), "/evidence", sink)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	if assert.Len(t, sink.errors(), 1) {
		assert.ErrorIs(t, sink.errors()[0].Err, cryptocase.ErrEvidenceUnreadable)
	}
	assert.Len(t, ledger.Snapshot().Evidence, 2)
	assert.Equal(t, "unknown", ledger.Snapshot().CustodyLog[0].Actor)
}

func TestOrchestrator_CancelBetweenFiles(t *testing.T) {
	fs := threeFiles(t)
	o := NewOrchestrator(fs, NewBlockScanner(fs, nil, Options{}, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &recordingSink{onProg: func(string) { cancel() }}

	results, err := o.Run(ctx, "/evidence", sink)
	assert.ErrorIs(t, err, context.Canceled)
	// the file in progress is finished
	assert.Len(t, results, 1)
	assert.Equal(t, []Event{
		EventProgress{Path: "/evidence/a.img"},
		EventResult{Candidate: results[0]},
		EventDone{Total: 1},
	}, sink.events)
}

func drain(events <-chan Event) []Event {
	var all []Event
	for e := range events {
		all = append(all, e)
	}
	return all
}

func TestOrchestrator_Start(t *testing.T) {
	fs := failingFs{Fs: threeFiles(t), fail: "/evidence/b.img"}
	o := NewOrchestrator(fs, NewBlockScanner(fs, nil, Options{}, nil))

	events := drain(o.Start(context.Background(), "/evidence"))
	require.NotEmpty(t, events)
	assertOrdered(t, events)

	var progress, results, errs int
	for _, e := range events[:len(events)-1] {
		switch e.(type) {
		case EventProgress:
			progress++
		case EventResult:
			results++
		case EventError:
			errs++
		case EventDone:
			t.Fatal("done before the end")
		}
	}
	assert.Equal(t, 3, progress)
	assert.Equal(t, 2, results)
	assert.Equal(t, 1, errs)
	assert.Equal(t, EventDone{Total: 2}, events[len(events)-1])
}

func TestOrchestrator_StartMissingRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	o := NewOrchestrator(fs, NewBlockScanner(fs, nil, Options{}, nil))

	events := drain(o.Start(context.Background(), "/nope"))
	require.Len(t, events, 1)
	done, ok := events[0].(EventDone)
	require.True(t, ok)
	assert.ErrorIs(t, done.Err, ErrRootNotFound)
}

func TestOrchestrator_StartCancelled(t *testing.T) {
	fs := threeFiles(t)
	o := NewOrchestrator(fs, NewBlockScanner(fs, nil, Options{}, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	events := drain(o.Start(ctx, "/evidence"))
	require.Len(t, events, 1)
	done := events[0].(EventDone) // nolint:forcetypeassert
	assert.ErrorIs(t, done.Err, context.Canceled)
	assert.Zero(t, done.Total)
}

func TestQueue_Unbounded(t *testing.T) {
	q := newQueue()
	for i := 0; i < 10000; i++ {
		q.push(EventProgress{Path: fmt.Sprint(i)})
	}
	q.close()
	for i := 0; i < 10000; i++ {
		e, ok := q.pop()
		require.True(t, ok)
		assert.Equal(t, EventProgress{Path: fmt.Sprint(i)}, e)
	}
	_, ok := q.pop()
	assert.False(t, ok)
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	var s Sink = MultiSink{a, b, NopSink{}}
	s.OnProgress("/x")
	s.OnError("/x", errors.New("boom"))
	s.OnComplete(0)
	assert.Equal(t, a.events, b.events)
	assert.Len(t, a.events, 3)
}
