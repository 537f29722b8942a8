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

// Package collect records operating system context of an examined system.
// The collectors do not parse real artefacts yet, they record placeholder
// artefacts marked as simulated.
package collect

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/forensicanalysis/cryptocase"
	"github.com/forensicanalysis/cryptocase/capability"
)

// OS is an operating system family.
type OS string

const (
	Windows OS = "windows"
	Linux   OS = "linux"
)

// Appender receives collected artefacts, usually a *cryptocase.Ledger.
type Appender interface {
	AppendArtefact(artefact cryptocase.Artefact) error
	AppendTimelineEvent(description string, artefactID string) (cryptocase.TimelineEvent, error)
}

type placeholder struct {
	artefact string
	timeline string
}

var placeholders = map[OS]placeholder{ // nolint:gochecknoglobals
	Windows: {
		artefact: "Simulated Windows Registry hive with BitLocker traces",
		timeline: "Collected Windows registry placeholder",
	},
	Linux: {
		artefact: "Simulated /etc/crypttab entry referencing encrypted volume",
		timeline: "Collected Linux crypttab placeholder",
	},
}

// Collector appends OS context artefacts to a case.
type Collector struct {
	target Appender
	now    func() time.Time
	log    *zap.SugaredLogger
}

// New creates a collector. A nil logger discards log output.
func New(appender Appender, logger *zap.SugaredLogger) *Collector {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Collector{target: appender, now: time.Now, log: logger}
}

// Collect records the context of the system mounted at root. Every artefact
// gets a timeline event. The outcome is always simulated.
func (c *Collector) Collect(os OS, root string) ([]cryptocase.Artefact, capability.Outcome, error) {
	p, ok := placeholders[os]
	if !ok {
		return nil, capability.Outcome{}, fmt.Errorf("unsupported operating system %q", os)
	}

	artefact := cryptocase.NewArtefact(cryptocase.OSContext, root, p.artefact).WithTimestamp(c.now().UTC())
	if err := c.target.AppendArtefact(artefact); err != nil {
		return nil, capability.Outcome{}, err
	}
	if _, err := c.target.AppendTimelineEvent(p.timeline, artefact.ID); err != nil {
		return nil, capability.Outcome{}, err
	}

	c.log.Infow("context collection complete", "os", os, "root", root)
	return []cryptocase.Artefact{artefact}, capability.Simulate("collect "+string(os), p.artefact), nil
}
