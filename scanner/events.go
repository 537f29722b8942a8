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
	"sync"

	"go.uber.org/zap"

	"github.com/forensicanalysis/cryptocase"
)

// A Sink receives the events of a scan. For every path OnProgress is called
// before the OnResult or OnError calls of that path. OnComplete is called
// once at the end of a scan.
type Sink interface {
	OnProgress(path string)
	OnResult(candidate cryptocase.ContainerCandidate)
	OnError(path string, err error)
	OnComplete(total int)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) OnProgress(string) {}
func (NopSink) OnResult(cryptocase.ContainerCandidate) {}
func (NopSink) OnError(string, error) {}
func (NopSink) OnComplete(int) {}

// MultiSink forwards every event to all of its sinks in order.
type MultiSink []Sink

func (m MultiSink) OnProgress(path string) {
	for _, s := range m {
		s.OnProgress(path)
	}
}

func (m MultiSink) OnResult(candidate cryptocase.ContainerCandidate) {
	for _, s := range m {
		s.OnResult(candidate)
	}
}

func (m MultiSink) OnError(path string, err error) {
	for _, s := range m {
		s.OnError(path, err)
	}
}

func (m MultiSink) OnComplete(total int) {
	for _, s := range m {
		s.OnComplete(total)
	}
}

// LogSink writes scan events to a logger.
type LogSink struct {
	Log *zap.SugaredLogger
}

func (l LogSink) OnProgress(path string) {
	l.Log.Debugw("scanning", "path", path)
}

func (l LogSink) OnResult(c cryptocase.ContainerCandidate) {
	l.Log.Infow("container candidate", "path", c.SourcePath, "kind", c.Kind, "offset", c.Offset, "confidence", c.Confidence)
}

func (l LogSink) OnError(path string, err error) {
	l.Log.Warnw("skipped file", "path", path, "error", err)
}

func (l LogSink) OnComplete(total int) {
	l.Log.Infow("scan complete", "candidates", total)
}

// Event is one of EventProgress, EventResult, EventError and EventDone.
type Event interface {
	event()
}

type EventProgress struct {
	Path string
}

type EventResult struct {
	Candidate cryptocase.ContainerCandidate
}

type EventError struct {
	Path string
	Err  error
}

// EventDone is the last event of an asynchronous scan. Err is set if the
// scan was aborted.
type EventDone struct {
	Total int
	Err   error
}

func (EventProgress) event() {}
func (EventResult) event() {}
func (EventError) event() {}
func (EventDone) event() {}

// queue is an unbounded FIFO of events. Producers never block.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	events []Event
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) push(e Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Signal()
}

// pop blocks until an event is available. ok is false once the queue is
// closed and drained.
func (q *queue) pop() (e Event, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.events) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.events) == 0 {
		return nil, false
	}
	e = q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	return e, true
}

// queueSink turns sink calls into queued events. OnComplete is dropped, the
// done event is pushed by Start together with the error of the run.
type queueSink struct {
	q *queue
}

func (s queueSink) OnProgress(path string) { s.q.push(EventProgress{Path: path}) }
func (s queueSink) OnResult(c cryptocase.ContainerCandidate) {
	s.q.push(EventResult{Candidate: c})
}
func (s queueSink) OnError(path string, err error) { s.q.push(EventError{Path: path, Err: err}) }
func (s queueSink) OnComplete(int) {}
