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

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/forensicanalysis/cryptocase"
	"github.com/forensicanalysis/cryptocase/walker"
)

// ErrRootNotFound is returned by Run if the scan root does not exist. No
// event is sent in this case.
var ErrRootNotFound = errors.New("scan root not found")

// A Recorder persists evidence and candidates, usually a *cryptocase.Ledger.
type Recorder interface {
	RegisterEvidence(path, description string, kind cryptocase.EvidenceKind) (cryptocase.Evidence, error)
	RegisterContainer(candidate cryptocase.ContainerCandidate) (cryptocase.Artefact, error)
}

// A HeaderArchive stores captured header windows and returns their location.
type HeaderArchive interface {
	Put(name string, data []byte) (string, error)
}

// Orchestrator walks a root and scans every file with a BlockScanner.
type Orchestrator struct {
	fs          afero.Fs
	scanner     *BlockScanner
	recorder    Recorder
	description string
	kind        cryptocase.EvidenceKind
	archive     HeaderArchive
	log         *zap.SugaredLogger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRecorder registers every scanned file as evidence of the given kind
// and every accepted candidate as container.
func WithRecorder(r Recorder, description string, kind cryptocase.EvidenceKind) OrchestratorOption {
	return func(o *Orchestrator) {
		o.recorder = r
		o.description = description
		o.kind = kind
	}
}

// WithHeaderArchive captures the header window of every accepted candidate.
func WithHeaderArchive(a HeaderArchive) OrchestratorOption {
	return func(o *Orchestrator) { o.archive = a }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.SugaredLogger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.log = logger
		}
	}
}

// NewOrchestrator creates an orchestrator that reads from fs.
func NewOrchestrator(fs afero.Fs, scanner *BlockScanner, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		fs:      fs,
		scanner: scanner,
		kind:    cryptocase.DiskImage,
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run scans every file below root and returns all accepted candidates.
// Unreadable files are reported to the sink and skipped. The context is
// checked between files. An error is returned if root does not exist, the
// context is cancelled or the recorder cannot persist a result.
func (o *Orchestrator) Run(ctx context.Context, root string, sink Sink) ([]cryptocase.ContainerCandidate, error) {
	if sink == nil {
		sink = NopSink{}
	}
	if _, err := o.fs.Stat(root); err != nil {
		return nil, errors.Wrapf(ErrRootNotFound, "%s: %v", root, err)
	}

	var results []cryptocase.ContainerCandidate
	defer func() { sink.OnComplete(len(results)) }()

	for path := range walker.New(o.fs, root, o.log).Paths() {
		if err := ctx.Err(); err != nil {
			o.log.Infow("scan cancelled", "root", root, "candidates", len(results))
			return results, err
		}

		sink.OnProgress(path)
		candidates, err := o.scanPath(path)
		var ferr *fileError
		if errors.As(err, &ferr) {
			sink.OnError(path, ferr.err)
			continue
		}
		if err != nil {
			return results, err
		}
		for _, c := range candidates {
			sink.OnResult(c)
			results = append(results, c)
		}
	}
	return results, nil
}

// fileError is a failure that only affects a single file.
type fileError struct {
	err error
}

func (e *fileError) Error() string { return e.err.Error() }

func (o *Orchestrator) scanPath(path string) ([]cryptocase.ContainerCandidate, error) {
	var evidenceID string
	if o.recorder != nil {
		evidence, err := o.recorder.RegisterEvidence(path, o.description, o.kind)
		if errors.Is(err, cryptocase.ErrEvidenceUnreadable) {
			return nil, &fileError{err}
		}
		if err != nil {
			return nil, errors.Wrap(err, "could not register evidence")
		}
		evidenceID = evidence.ID
	}

	candidates, err := o.scanner.ScanFile(path)
	if err != nil {
		return nil, &fileError{err}
	}

	for i := range candidates {
		c := &candidates[i]
		c.EvidenceID = evidenceID
		if o.archive != nil {
			o.capture(c)
		}
		if o.recorder != nil {
			if _, err := o.recorder.RegisterContainer(*c); err != nil {
				return nil, errors.Wrap(err, "could not register container")
			}
		}
	}
	return candidates, nil
}

// capture stores the header window of c. A failure only loses the capture.
func (o *Orchestrator) capture(c *cryptocase.ContainerCandidate) {
	window, err := o.scanner.ReadWindow(c.SourcePath, c.Offset, o.scanner.Catalog().Window())
	if err != nil {
		o.log.Warnw("could not read header", "path", c.SourcePath, "offset", c.Offset, "error", err)
		return
	}
	name := fmt.Sprintf("headers/%s-%s-%d.bin", c.ID, c.Kind, c.Offset)
	location, err := o.archive.Put(name, window)
	if err != nil {
		o.log.Warnw("could not archive header", "name", name, "error", err)
		return
	}
	c.HeaderPath = location
}

// Start runs the scan on a new goroutine and returns its events in order.
// The worker never waits for the consumer, events are queued until they are
// received. The last event is an EventDone, after that the channel is
// closed. Cancelling ctx stops the scan at the next file. The consumer must
// drain the channel.
func (o *Orchestrator) Start(ctx context.Context, root string) <-chan Event {
	q := newQueue()
	go func() {
		results, err := o.Run(ctx, root, queueSink{q})
		q.push(EventDone{Total: len(results), Err: err})
		q.close()
	}()

	events := make(chan Event)
	go func() {
		defer close(events)
		for {
			e, ok := q.pop()
			if !ok {
				return
			}
			events <- e
		}
	}()
	return events
}
