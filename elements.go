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
	"time"

	"github.com/google/uuid"
)

// ContainerKind names a family of encrypted volume formats.
type ContainerKind string

// Known container kinds.
const (
	BitLocker ContainerKind = "bitlocker"
	LUKS      ContainerKind = "luks"
	VeraCrypt ContainerKind = "veracrypt"
	TrueCrypt ContainerKind = "truecrypt"
	Unknown   ContainerKind = "unknown"
)

// EvidenceKind categorizes registered evidence.
type EvidenceKind string

// Evidence kinds.
const (
	DiskImage  EvidenceKind = "disk_image"
	MemoryDump EvidenceKind = "memory_dump"
	Config     EvidenceKind = "config"
	Other      EvidenceKind = "other"
)

// ArtefactKind categorizes artefacts.
type ArtefactKind string

// Artefact kinds.
const (
	OSContext ArtefactKind = "os_context"
	Memory    ArtefactKind = "memory"
	Detection ArtefactKind = "detection"
	OtherKind ArtefactKind = "other"
)

// UnlockResult is the outcome tag of an unlock attempt.
type UnlockResult string

// Unlock results.
const (
	UnlockSuccess UnlockResult = "success"
	UnlockFailure UnlockResult = "failure"
	UnlockError   UnlockResult = "error"
)

// Evidence is a registered source of data, e.g. a disk image. The hash is
// computed once at registration.
type Evidence struct {
	ID          string       `json:"evidence_id" validate:"required"`
	Path        string       `json:"path" validate:"required"`
	Description string       `json:"description"`
	Kind        EvidenceKind `json:"evidence_type" validate:"oneof=disk_image memory_dump config other"`
	SHA256      string       `json:"sha256" validate:"required,len=64,hexadecimal"`
	Size        int64        `json:"size" validate:"gte=0"`
}

// ContainerCandidate is a byte offset believed, with some confidence, to hold
// an encrypted volume header.
type ContainerCandidate struct {
	ID         string        `json:"candidate_id" validate:"required"`
	EvidenceID string        `json:"evidence_id"`
	SourcePath string        `json:"source_path,omitempty"`
	Offset     int64         `json:"offset" validate:"gte=0"`
	Kind       ContainerKind `json:"container_type" validate:"oneof=bitlocker luks veracrypt truecrypt unknown"`
	Confidence float64       `json:"confidence" validate:"gte=0,lte=1"`
	Notes      string        `json:"notes"`
	HeaderPath string        `json:"header_path,omitempty"`
}

// NewContainerCandidate creates a candidate with a fresh id.
func NewContainerCandidate(evidenceID string, kind ContainerKind, offset int64, confidence float64, notes string) ContainerCandidate {
	return ContainerCandidate{
		ID:         "container--" + uuid.New().String(),
		EvidenceID: evidenceID,
		Offset:     offset,
		Kind:       kind,
		Confidence: confidence,
		Notes:      notes,
	}
}

// Artefact is a recorded fact discovered during the examination.
type Artefact struct {
	ID          string       `json:"artefact_id" validate:"required"`
	Description string       `json:"description"`
	Source      string       `json:"source"`
	Kind        ArtefactKind `json:"artefact_type" validate:"oneof=os_context memory detection other"`
	Path        *string      `json:"path"`
	Timestamp   *time.Time   `json:"timestamp"`
}

// NewArtefact creates an artefact with a fresh id.
func NewArtefact(kind ArtefactKind, source, description string) Artefact {
	return Artefact{
		ID:          "artefact--" + uuid.New().String(),
		Description: description,
		Source:      source,
		Kind:        kind,
	}
}

// WithTimestamp sets the artefact timestamp.
func (a Artefact) WithTimestamp(t time.Time) Artefact {
	a.Timestamp = &t
	return a
}

// WithPath sets the artefact path.
func (a Artefact) WithPath(p string) Artefact {
	a.Path = &p
	return a
}

// TimelineEvent is an entry of the case timeline.
type TimelineEvent struct {
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	ArtefactID  *string   `json:"artefact_id"`
}

// CustodyEvent records who did what to the case and when.
type CustodyEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
}

// UnlockAttempt records a (rejected) request to unlock a container.
type UnlockAttempt struct {
	ContainerID string       `json:"container_id" validate:"required"`
	Method      string       `json:"method"`
	SecretID    string       `json:"secret_id"`
	Result      UnlockResult `json:"result" validate:"oneof=success failure error"`
	Message     string       `json:"message"`
}

// CaseMetadata is fixed at case creation.
type CaseMetadata struct {
	CaseID    string    `json:"case_id"`
	Examiner  *string   `json:"examiner"`
	CreatedAt time.Time `json:"created_at"`
}

// Case is the aggregate root persisted as the case snapshot.
type Case struct {
	Version        int                  `json:"version"`
	RootPath       string               `json:"root_path"`
	Metadata       CaseMetadata         `json:"metadata"`
	Evidence       []Evidence           `json:"evidence"`
	Containers     []ContainerCandidate `json:"containers"`
	Artefacts      []Artefact           `json:"artefacts"`
	Timeline       []TimelineEvent      `json:"timeline"`
	UnlockAttempts []UnlockAttempt      `json:"unlock_attempts"`
	CustodyLog     []CustodyEvent       `json:"custody_log"`
}

// Actor returns the examiner or "unknown".
func (c *Case) Actor() string {
	if c.Metadata.Examiner == nil || *c.Metadata.Examiner == "" {
		return "unknown"
	}
	return *c.Metadata.Examiner
}

func (c *Case) clone() *Case {
	cp := *c
	cp.Evidence = append([]Evidence{}, c.Evidence...)
	cp.Containers = append([]ContainerCandidate{}, c.Containers...)
	cp.Artefacts = append([]Artefact{}, c.Artefacts...)
	cp.Timeline = append([]TimelineEvent{}, c.Timeline...)
	cp.UnlockAttempts = append([]UnlockAttempt{}, c.UnlockAttempts...)
	cp.CustodyLog = append([]CustodyEvent{}, c.CustodyLog...)
	return &cp
}
