// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package influx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/compilerperf/perf/benchdata"
	"github.com/compilerperf/perf/config"
	"github.com/compilerperf/perf/storage"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

type fakeWriter struct {
	points []*write.Point
	err    error
}

func (w *fakeWriter) WritePoint(_ context.Context, point ...*write.Point) error {
	w.points = append(w.points, point...)
	return w.err
}

func tags(p *write.Point) map[string]string {
	m := make(map[string]string)
	for _, t := range p.TagList() {
		m[t.Key] = t.Value
	}
	return m
}

func TestRecordRun(t *testing.T) {
	w := new(fakeWriter)
	release := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	r := &Recorder{w: w, now: func() time.Time { return release }}

	date := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	a := storage.Commit(benchdata.Commit{Sha: "abc", Date: date})
	run := &benchdata.Run{
		Stats:   benchdata.NewStats(benchdata.StatPair{Name: "wall-time", Value: 1.5}, benchdata.StatPair{Name: "max-rss", Value: 2048}),
		Release: true,
		State:   benchdata.State{Scenario: benchdata.IncrUnchanged},
	}
	if err := r.RecordRun(context.Background(), a, "c1", "helloworld", run); err != nil {
		t.Fatal(err)
	}
	if len(w.points) != 2 {
		t.Fatalf("wrote %d points, want 2", len(w.points))
	}
	p := w.points[0]
	if p.Name() != statMeasurement || !p.Time().Equal(date) {
		t.Errorf("point = %s at %v", p.Name(), p.Time())
	}
	want := map[string]string{
		"artifact": "abc", "kind": "commit", "benchmark": "helloworld",
		"profile": "opt", "scenario": "incr-unchanged", "statistic": "wall-time", "collection": "c1",
	}
	got := tags(p)
	for k, v := range want {
		if got[k] != v {
			t.Errorf("tag %s = %q, want %q", k, got[k], v)
		}
	}

	w.points = nil
	if err := r.RecordError(context.Background(), storage.Release("1.70.0"), "helloworld", "boom"); err != nil {
		t.Fatal(err)
	}
	if len(w.points) != 1 || !w.points[0].Time().Equal(release) {
		t.Errorf("RecordError wrote %v", w.points)
	}
}

func TestRecordRunError(t *testing.T) {
	w := &fakeWriter{err: errors.New("unavailable")}
	r := &Recorder{w: w, now: time.Now}
	run := &benchdata.Run{Stats: benchdata.NewStats(benchdata.StatPair{Name: "wall-time", Value: 1})}
	if err := r.RecordRun(context.Background(), storage.Release("x"), "c1", "foo", run); !errors.Is(err, w.err) {
		t.Errorf("RecordRun = %v, want wrapped %v", err, w.err)
	}
}

func TestNewUnconfigured(t *testing.T) {
	if _, err := New(&config.Config{}); err != ErrNotConfigured {
		t.Errorf("New = %v, want ErrNotConfigured", err)
	}
	if _, err := New(&config.Config{InfluxURL: "http://localhost:8086"}); err == nil {
		t.Error("New without org succeeded")
	}
}
