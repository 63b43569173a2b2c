// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package influx mirrors collected results into an InfluxDB bucket,
// one point per statistic, for dashboards.
package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/compilerperf/perf/benchdata"
	"github.com/compilerperf/perf/config"
	"github.com/compilerperf/perf/storage"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	statMeasurement  = "compile_stat"
	errorMeasurement = "compile_error"
)

// pointWriter is the subset of api.WriteAPIBlocking used here.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Recorder is a storage.Recorder writing to InfluxDB.
type Recorder struct {
	client influxdb2.Client
	w      pointWriter
	// now stamps releases, which have no commit date.
	now func() time.Time
}

var _ storage.Recorder = (*Recorder)(nil)

// ErrNotConfigured is returned by New when no InfluxDB URL is set.
var ErrNotConfigured = errors.New("influx: INFLUX_URL not set")

// New connects to the InfluxDB instance named by cfg.
func New(cfg *config.Config) (*Recorder, error) {
	if cfg.InfluxURL == "" {
		return nil, ErrNotConfigured
	}
	if cfg.InfluxOrg == "" || cfg.InfluxBucket == "" {
		return nil, fmt.Errorf("influx: INFLUX_ORG and INFLUX_BUCKET must be set with INFLUX_URL")
	}
	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	return &Recorder{
		client: client,
		w:      client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		now:    time.Now,
	}, nil
}

func (r *Recorder) timestamp(a storage.Artifact) time.Time {
	if a.Date.IsZero() {
		return r.now()
	}
	return a.Date
}

// RecordRun writes one point per statistic of run.
func (r *Recorder) RecordRun(ctx context.Context, a storage.Artifact, collection string, bench benchdata.BenchmarkName, run *benchdata.Run) error {
	id := run.ID()
	ts := r.timestamp(a)
	var points []*write.Point
	for _, p := range run.Stats.Pairs() {
		points = append(points, influxdb2.NewPoint(statMeasurement,
			map[string]string{
				"artifact":   a.Name,
				"kind":       string(a.Kind),
				"benchmark":  string(bench),
				"profile":    id.BuildKind().Profile(),
				"scenario":   id.State.ID(),
				"statistic":  p.Name,
				"collection": collection,
			},
			map[string]interface{}{"value": p.Value},
			ts))
	}
	if len(points) == 0 {
		return nil
	}
	if err := r.w.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("writing %d points for %s: %w", len(points), bench, err)
	}
	return nil
}

// RecordError writes the failure of bench as a single point.
func (r *Recorder) RecordError(ctx context.Context, a storage.Artifact, bench benchdata.BenchmarkName, msg string) error {
	p := influxdb2.NewPointWithMeasurement(errorMeasurement).
		AddTag("artifact", a.Name).
		AddTag("kind", string(a.Kind)).
		AddTag("benchmark", string(bench)).
		AddField("error", msg).
		SetTime(r.timestamp(a))
	return r.w.WritePoint(ctx, p)
}

// Close releases the client's resources.
func (r *Recorder) Close() {
	if r.client != nil {
		r.client.Close()
	}
}
