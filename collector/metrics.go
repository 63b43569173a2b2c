// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what a Collector has done. The counters live in
// their own registry and are exported with WriteTextfile, for the
// node exporter's textfile collector.
type Metrics struct {
	reg *prometheus.Registry

	measured prometheus.Counter
	failures prometheus.Counter
	runs     prometheus.Counter
	stats    prometheus.Counter
	uploads  prometheus.Counter
}

// NewMetrics returns zeroed Metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		measured: f.NewCounter(prometheus.CounterOpts{
			Name: "collector_benchmarks_measured_total",
			Help: "Benchmarks measured successfully.",
		}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Name: "collector_benchmark_failures_total",
			Help: "Benchmarks whose measurement failed and was recorded as an error.",
		}),
		runs: f.NewCounter(prometheus.CounterOpts{
			Name: "collector_runs_recorded_total",
			Help: "Runs written to storage.",
		}),
		stats: f.NewCounter(prometheus.CounterOpts{
			Name: "collector_statistics_recorded_total",
			Help: "Statistics written to storage.",
		}),
		uploads: f.NewCounter(prometheus.CounterOpts{
			Name: "collector_self_profile_uploads_total",
			Help: "Raw self-profiles uploaded.",
		}),
	}
}

// WriteTextfile writes the metrics to path in the Prometheus text
// format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
