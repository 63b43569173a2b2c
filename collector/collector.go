// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package collector runs benchmark sessions for a compiler artifact
// and stores their results.
//
// A session measures each benchmark in turn. Benchmarks already
// recorded for the artifact are skipped, so an interrupted session
// resumes where it stopped. A benchmark that fails is recorded as an
// error and the session continues with the next one, unless the
// failure means no further measurement can be trusted.
package collector

import (
	"context"
	"fmt"
	"log"

	"github.com/compilerperf/perf/benchdata"
	"github.com/compilerperf/perf/execute"
	"github.com/compilerperf/perf/storage"
	"github.com/compilerperf/perf/storage/fs"
	"github.com/google/uuid"
)

// A Collector runs benchmark sessions.
type Collector struct {
	Env  *execute.Env
	Conn storage.Connection
	// Mirrors receive a copy of every result written to Conn.
	Mirrors []storage.Recorder
	// Uploads, if non-nil, receives the raw self-profile data of
	// self-profiled builds.
	Uploads fs.FS
	// Version identifies the collector in the Collections table.
	Version string
	Metrics *Metrics

	// measure and newProcessor are replaced in tests.
	measure      func(b *execute.Benchmark, env *execute.Env, p *execute.Processor, c execute.Compiler, kinds []benchdata.BuildKind, scenarios []benchdata.Scenario, iterations int) ([]*benchdata.Run, error)
	newProcessor func(opts execute.MeasureOptions, perf string) (*execute.Processor, error)
}

// New returns a Collector storing results in conn.
func New(env *execute.Env, conn storage.Connection) *Collector {
	return &Collector{
		Env:          env,
		Conn:         conn,
		Metrics:      NewMetrics(),
		measure:      (*execute.Benchmark).Measure,
		newProcessor: execute.NewMeasureProcessor,
	}
}

// A Request describes one session.
type Request struct {
	Artifact   storage.Artifact
	Compiler   execute.Compiler
	Benchmarks []*execute.Benchmark
	Kinds      []benchdata.BuildKind
	Scenarios  []benchdata.Scenario
	Iterations int
	// SelfProfile collects self-profile data in the first iteration
	// of every build kind.
	SelfProfile bool
}

// A Report summarizes a finished session.
type Report struct {
	Collection string
	Measured   []benchdata.BenchmarkName
	Skipped    []benchdata.BenchmarkName
	Failed     map[benchdata.BenchmarkName]string
}

// Bench runs the session described by req. It returns an error only
// if the session could not complete; failures of single benchmarks
// are recorded and reported in the Report.
func (c *Collector) Bench(ctx context.Context, req *Request) (*Report, error) {
	r := &Report{Collection: uuid.NewString(), Failed: make(map[benchdata.BenchmarkName]string)}
	if err := c.Conn.StartCollection(ctx, r.Collection, c.Version); err != nil {
		return nil, fmt.Errorf("starting collection: %w", err)
	}
	done, err := c.Conn.LoadArtifact(ctx, req.Artifact)
	if err != nil {
		return nil, fmt.Errorf("loading %v: %w", req.Artifact, err)
	}

	var up *uploader
	if c.Uploads != nil && req.SelfProfile {
		row, err := c.Conn.ArtifactRow(ctx, req.Artifact)
		if err != nil {
			return nil, err
		}
		up = newUploader(c.Uploads, c.Conn, req.Artifact, row, r.Collection, c.Metrics)
	}

	err = c.bench(ctx, req, done, up, r)
	if up != nil {
		if uerr := up.wait(); uerr != nil {
			log.Printf("warning: uploading self-profiles: %v", uerr)
		}
	}
	return r, err
}

func (c *Collector) bench(ctx context.Context, req *Request, done map[benchdata.BenchmarkName]benchdata.Result, up *uploader, r *Report) error {
	for i, b := range req.Benchmarks {
		if _, ok := done[b.Name]; ok {
			log.Printf("%s already recorded for %v, skipping", b.Name, req.Artifact)
			r.Skipped = append(r.Skipped, b.Name)
			continue
		}
		log.Printf("%d/%d: %s", i+1, len(req.Benchmarks), b.Name)

		opts := execute.MeasureOptionsFromConfig(c.Env.Config, req.SelfProfile)
		if up != nil {
			opts.OnRawSelfProfile = func(name benchdata.BenchmarkName, id benchdata.RunID, files []execute.RawFile) {
				up.upload(ctx, name, id, files)
			}
		}
		// Each benchmark gets its own processor so that nothing
		// accumulated by a failed benchmark leaks into the next.
		p, err := c.newProcessor(opts, c.Env.Config.Perf)
		if err != nil {
			return err
		}
		runs, err := c.measure(b, c.Env, p, req.Compiler, req.Kinds, req.Scenarios, req.Iterations)
		if err != nil {
			if execute.IsFatal(err) {
				return fmt.Errorf("%s: %w", b.Name, err)
			}
			log.Printf("%s failed: %v", b.Name, err)
			r.Failed[b.Name] = err.Error()
			c.Metrics.failures.Inc()
			if err := c.recordError(ctx, req.Artifact, b.Name, err.Error()); err != nil {
				return err
			}
			continue
		}
		for _, run := range runs {
			if err := c.recordRun(ctx, req.Artifact, r.Collection, b.Name, run); err != nil {
				return err
			}
		}
		r.Measured = append(r.Measured, b.Name)
		c.Metrics.measured.Inc()
	}
	return nil
}

func (c *Collector) recordRun(ctx context.Context, a storage.Artifact, collection string, bench benchdata.BenchmarkName, run *benchdata.Run) error {
	if err := c.Conn.RecordRun(ctx, a, collection, bench, run); err != nil {
		return fmt.Errorf("recording %s %v: %w", bench, run.ID(), err)
	}
	c.Metrics.runs.Inc()
	c.Metrics.stats.Add(float64(run.Stats.Len()))
	for _, m := range c.Mirrors {
		if err := m.RecordRun(ctx, a, collection, bench, run); err != nil {
			log.Printf("warning: mirroring %s %v: %v", bench, run.ID(), err)
		}
	}
	return nil
}

func (c *Collector) recordError(ctx context.Context, a storage.Artifact, bench benchdata.BenchmarkName, msg string) error {
	if err := c.Conn.RecordError(ctx, a, bench, msg); err != nil {
		return fmt.Errorf("recording error of %s: %w", bench, err)
	}
	for _, m := range c.Mirrors {
		if err := m.RecordError(ctx, a, bench, msg); err != nil {
			log.Printf("warning: mirroring error of %s: %v", bench, err)
		}
	}
	return nil
}
