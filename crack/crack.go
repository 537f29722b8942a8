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

// Package crack is the entry point for password searches against detected
// containers. The search is not implemented.
package crack

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/forensicanalysis/cryptocase"
	"github.com/forensicanalysis/cryptocase/capability"
)

// Config configures a password search.
type Config struct {
	Container    cryptocase.ContainerCandidate
	WordlistPath string
	MaxRuntime   time.Duration
}

// Engine runs password searches.
type Engine struct {
	config Config
	log    *zap.SugaredLogger
}

// NewEngine creates an engine. A nil logger discards log output.
func NewEngine(config Config, logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{config: config, log: logger}
}

// Run always fails with capability.ErrNotImplemented.
func (e *Engine) Run(ctx context.Context) (capability.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return capability.Outcome{}, err
	}
	e.log.Warnw("password search is not implemented", "container", e.config.Container.ID)
	return capability.NotImplemented("crack " + string(e.config.Container.Kind))
}
