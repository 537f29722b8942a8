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

// Package metrics counts scan events with prometheus collectors. The
// collectors live in their own registry which can be written in the text
// exposition format, e.g. for the node exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/forensicanalysis/cryptocase"
)

// Sink is a scanner.Sink that records scan metrics.
type Sink struct {
	registry *prometheus.Registry
	start    time.Time
	now      func() time.Time

	FilesScanned prometheus.Counter
	FilesSkipped prometheus.Counter
	Candidates   *prometheus.CounterVec
	Confidence   prometheus.Histogram
	Duration     prometheus.Gauge
}

// NewSink creates a sink with a fresh registry.
func NewSink() *Sink {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	s := &Sink{
		registry: reg,
		now:      time.Now,
		FilesScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "cryptocase_files_scanned_total",
			Help: "Total number of files handed to the block scanner",
		}),
		FilesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "cryptocase_files_skipped_total",
			Help: "Total number of files skipped because of an error",
		}),
		Candidates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptocase_candidates_total",
			Help: "Total number of accepted container candidates",
		}, []string{"kind"}),
		Confidence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cryptocase_candidate_confidence",
			Help:    "Confidence of accepted container candidates",
			Buckets: []float64{0.3, 0.45, 0.65, 0.9, 1},
		}),
		Duration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cryptocase_scan_duration_seconds",
			Help: "Wall time of the last scan",
		}),
	}
	s.start = s.now()
	return s
}

// Registry returns the registry of the collectors.
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Sink) OnProgress(string) {
	s.FilesScanned.Inc()
}

func (s *Sink) OnResult(c cryptocase.ContainerCandidate) {
	s.Candidates.WithLabelValues(string(c.Kind)).Inc()
	s.Confidence.Observe(c.Confidence)
}

func (s *Sink) OnError(string, error) {
	s.FilesSkipped.Inc()
}

func (s *Sink) OnComplete(int) {
	s.Duration.Set(s.now().Sub(s.start).Seconds())
}

// WriteTextfile writes all metrics to path.
func (s *Sink) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, s.registry)
}
