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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// CaseFile is the name of the snapshot inside the case folder.
const CaseFile = "case.json"

var caseFolders = []string{"logs", "artifacts", "reports"}

var (
	ErrCaseExists    = errors.New("case already exists")
	ErrCaseNotExists = errors.New("case does not exist")
	// ErrEvidenceUnreadable is returned by RegisterEvidence when the evidence
	// cannot be hashed.
	ErrEvidenceUnreadable = errors.New("evidence unreadable")
)

// Indexer receives a copy of every entity appended to the case.
type Indexer interface {
	Insert(element []byte) (string, error)
}

// The Ledger owns a Case. It is the only way to mutate it; every mutation is
// validated, appended and persisted before the call returns. A Ledger is
// safe for concurrent use, mutations are applied one at a time.
type Ledger struct {
	fs       afero.Fs
	c        *Case
	mu       sync.Mutex
	log      *zap.SugaredLogger
	index    Indexer
	now      func() time.Time
	validate *validator.Validate
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger of the ledger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.log = logger
		}
	}
}

// WithIndex mirrors all appended entities into idx.
func WithIndex(idx Indexer) Option {
	return func(l *Ledger) { l.index = idx }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func newLedger(fs afero.Fs, opts []Option) *Ledger {
	l := &Ledger{
		fs:       fs,
		log:      zap.NewNop().Sugar(),
		now:      time.Now,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create creates a new case in root and persists the empty snapshot.
func Create(fs afero.Fs, root string, examiner string, opts ...Option) (*Ledger, error) {
	l := newLedger(fs, opts)

	exists, err := afero.Exists(fs, filepath.Join(root, CaseFile))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Wrap(ErrCaseExists, root)
	}

	if err := fs.MkdirAll(root, 0750); err != nil {
		return nil, errors.Wrap(err, "could not create case folder")
	}
	for _, folder := range caseFolders {
		if err := fs.MkdirAll(filepath.Join(root, folder), 0750); err != nil {
			return nil, errors.Wrapf(err, "could not create %s folder", folder)
		}
	}

	meta := CaseMetadata{CaseID: uuid.New().String(), CreatedAt: l.now().UTC()}
	if examiner != "" {
		meta.Examiner = &examiner
	}
	l.c = &Case{
		Version:        snapshotVersion,
		RootPath:       root,
		Metadata:       meta,
		Evidence:       []Evidence{},
		Containers:     []ContainerCandidate{},
		Artefacts:      []Artefact{},
		Timeline:       []TimelineEvent{},
		UnlockAttempts: []UnlockAttempt{},
		CustodyLog:     []CustodyEvent{},
	}

	if err := l.persist(); err != nil {
		return nil, err
	}
	l.log.Infow("created case", "case", meta.CaseID, "root", root)
	return l, nil
}

// Open loads an existing case from root.
func Open(fs afero.Fs, root string, opts ...Option) (*Ledger, error) {
	l := newLedger(fs, opts)

	name := filepath.Join(root, CaseFile)
	exists, err := afero.Exists(fs, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Wrap(ErrCaseNotExists, root)
	}

	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, errors.Wrap(err, "could not read case")
	}
	c, err := Decode(data)
	if err != nil {
		var derr *DeserializationError
		if errors.As(err, &derr) {
			derr.Path = name
		}
		return nil, err
	}
	l.c = c
	l.log.Infow("loaded case", "case", c.Metadata.CaseID, "root", root)
	return l, nil
}

// Snapshot returns a copy of the current case.
func (l *Ledger) Snapshot() *Case {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.clone()
}

// ID returns the case id.
func (l *Ledger) ID() string {
	return l.c.Metadata.CaseID
}

// Root returns the case folder.
func (l *Ledger) Root() string {
	return l.c.RootPath
}

// RegisterEvidence hashes the file at path and adds it as evidence.
func (l *Ledger) RegisterEvidence(path, description string, kind EvidenceKind) (Evidence, error) {
	digest, size, err := hashFile(l.fs, path)
	if err != nil {
		return Evidence{}, errors.Wrapf(ErrEvidenceUnreadable, "%s: %v", path, err)
	}

	evidence := Evidence{
		ID:          "evidence--" + uuid.New().String(),
		Path:        path,
		Description: description,
		Kind:        kind,
		SHA256:      digest,
		Size:        size,
	}
	if err := l.validate.Struct(evidence); err != nil {
		return Evidence{}, errors.Wrap(err, "invalid evidence")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	var custody CustodyEvent
	err = l.apply(func(c *Case) {
		c.Evidence = append(c.Evidence, evidence)
		custody = l.custody(fmt.Sprintf("added evidence %s", evidence.ID))
	})
	if err != nil {
		return Evidence{}, err
	}
	l.indexElement("evidence", evidence.ID, evidence)
	l.indexElement("custody", "", custody)
	l.log.Infow("registered evidence", "evidence", evidence.ID, "path", path, "sha256", digest)
	return evidence, nil
}

// RegisterContainer adds a container candidate together with one detection
// artefact pointing to the owning evidence.
func (l *Ledger) RegisterContainer(candidate ContainerCandidate) (Artefact, error) {
	if candidate.ID == "" {
		candidate.ID = "container--" + uuid.New().String()
	}
	if err := l.validate.Struct(candidate); err != nil {
		return Artefact{}, errors.Wrap(err, "invalid container candidate")
	}

	artefact := NewArtefact(Detection, candidate.EvidenceID, fmt.Sprintf("detected container at offset %d", candidate.Offset))
	if candidate.HeaderPath != "" {
		artefact = artefact.WithPath(candidate.HeaderPath)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.apply(func(c *Case) {
		c.Containers = append(c.Containers, candidate)
		c.Artefacts = append(c.Artefacts, artefact)
	})
	if err != nil {
		return Artefact{}, err
	}
	l.indexElement("container", candidate.ID, candidate)
	l.indexElement("artefact", artefact.ID, artefact)
	l.log.Infow("registered container", "container", candidate.ID, "kind", candidate.Kind, "offset", candidate.Offset)
	return artefact, nil
}

// AppendTimelineEvent adds an event stamped with the current time. The
// timeline stays sorted by timestamp.
func (l *Ledger) AppendTimelineEvent(description string, artefactID string) (TimelineEvent, error) {
	event := TimelineEvent{Description: description, Timestamp: l.now().UTC()}
	if artefactID != "" {
		event.ArtefactID = &artefactID
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.apply(func(c *Case) {
		c.Timeline = append(c.Timeline, event)
		sort.SliceStable(c.Timeline, func(i, j int) bool {
			return c.Timeline[i].Timestamp.Before(c.Timeline[j].Timestamp)
		})
	})
	if err != nil {
		return TimelineEvent{}, err
	}
	l.indexElement("timeline-event", "", event)
	l.log.Debugw("timeline updated", "description", description)
	return event, nil
}

// AppendArtefact adds an artefact.
func (l *Ledger) AppendArtefact(artefact Artefact) error {
	if artefact.ID == "" {
		artefact.ID = "artefact--" + uuid.New().String()
	}
	if err := l.validate.Struct(artefact); err != nil {
		return errors.Wrap(err, "invalid artefact")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.apply(func(c *Case) {
		c.Artefacts = append(c.Artefacts, artefact)
	})
	if err != nil {
		return err
	}
	l.indexElement("artefact", artefact.ID, artefact)
	l.log.Infow("artefact recorded", "artefact", artefact.ID, "kind", artefact.Kind)
	return nil
}

// AppendUnlockAttempt records an unlock attempt.
func (l *Ledger) AppendUnlockAttempt(attempt UnlockAttempt) error {
	if err := l.validate.Struct(attempt); err != nil {
		return errors.Wrap(err, "invalid unlock attempt")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.apply(func(c *Case) {
		c.UnlockAttempts = append(c.UnlockAttempts, attempt)
	})
	if err != nil {
		return err
	}
	l.indexElement("unlock-attempt", "", attempt)
	l.log.Infow("unlock attempt stored", "container", attempt.ContainerID, "result", attempt.Result)
	return nil
}

// AppendCustodyEvent records an action of the examiner, e.g. a report export.
func (l *Ledger) AppendCustodyEvent(action string) (CustodyEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var event CustodyEvent
	err := l.apply(func(*Case) {
		event = l.custody(action)
	})
	if err != nil {
		return CustodyEvent{}, err
	}
	l.indexElement("custody", "", event)
	return event, nil
}

// apply runs mutate and persists the result. If persisting fails the case is
// rolled back, memory and disk never disagree. Must be called with mu held.
func (l *Ledger) apply(mutate func(c *Case)) error {
	prev := l.c.clone()
	mutate(l.c)
	if err := l.persist(); err != nil {
		l.c = prev
		return err
	}
	return nil
}

// custody must be called with mu held.
func (l *Ledger) custody(action string) CustodyEvent {
	event := CustodyEvent{Timestamp: l.now().UTC(), Actor: l.c.Actor(), Action: action}
	l.c.CustodyLog = append(l.c.CustodyLog, event)
	return event
}

// persist writes the full snapshot. The snapshot is written to a temporary
// file first and renamed, so a crash never leaves a partial case.json.
func (l *Ledger) persist() error {
	data, err := Encode(l.c)
	if err != nil {
		return errors.Wrap(err, "could not encode case")
	}

	name := filepath.Join(l.c.RootPath, CaseFile)
	tmp := name + ".tmp"
	if err := afero.WriteFile(l.fs, tmp, data, 0640); err != nil {
		return errors.Wrap(err, "could not write case")
	}
	if err := l.fs.Rename(tmp, name); err != nil {
		return errors.Wrap(err, "could not replace case")
	}
	l.log.Debugw("saved case", "case", l.c.Metadata.CaseID)
	return nil
}

func (l *Ledger) indexElement(elementType, id string, v interface{}) {
	if l.index == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		l.log.Warnw("could not index element", "type", elementType, "error", err)
		return
	}
	element := map[string]interface{}{}
	if err := json.Unmarshal(b, &element); err != nil {
		l.log.Warnw("could not index element", "type", elementType, "error", err)
		return
	}
	element["type"] = elementType
	element["case_id"] = l.c.Metadata.CaseID
	if id != "" {
		element["id"] = id
	}
	b, err = json.Marshal(element)
	if err != nil {
		l.log.Warnw("could not index element", "type", elementType, "error", err)
		return
	}
	if _, err := l.index.Insert(b); err != nil {
		l.log.Warnw("could not index element", "type", elementType, "error", err)
	}
}

func hashFile(fs afero.Fs, path string) (string, int64, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close() // nolint:errcheck

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}
