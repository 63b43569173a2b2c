// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package execute

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/compilerperf/perf/benchdata"
	"github.com/compilerperf/perf/config"
	"github.com/compilerperf/perf/profiler"
)

// A RawFile is one file of raw self-profile data.
type RawFile struct {
	Name string
	Data []byte
}

// MeasureOptions configures a measurement processor.
type MeasureOptions struct {
	// SelfProfile collects a self-profile during the first
	// iteration of each build kind.
	SelfProfile bool
	// MaxTries bounds the builds attempted for one measurement
	// when perf produces no statistics.
	MaxTries int
	// MinCounterActive is passed to ParsePerfStat.
	MinCounterActive float64
	// OnRawSelfProfile, if set, receives the raw self-profile data
	// of every self-profiled build.
	OnRawSelfProfile func(name benchdata.BenchmarkName, id benchdata.RunID, files []RawFile)
}

// MeasureOptionsFromConfig returns the options set by cfg.
func MeasureOptionsFromConfig(cfg *config.Config, selfProfile bool) MeasureOptions {
	return MeasureOptions{
		SelfProfile:      selfProfile,
		MaxTries:         cfg.MaxStatTries,
		MinCounterActive: cfg.MinCounterActive,
	}
}

// A MeasureProcessor sums the statistics of repeated builds per
// scenario.
type MeasureProcessor struct {
	opts            MeasureOptions
	firstCollection bool
	tries           int
	buckets         []*bucket
}

// A bucket accumulates one scenario of one build kind.
type bucket struct {
	state   benchdata.State
	stats   *benchdata.Stats
	profile *benchdata.SelfProfile
}

// NewMeasureProcessor returns a Processor that measures builds under
// perf stat. It fails if perf is not installed.
func NewMeasureProcessor(opts MeasureOptions, perf string) (*Processor, error) {
	if err := requireTool(perf); err != nil {
		return nil, err
	}
	if opts.MaxTries < 1 {
		opts.MaxTries = 5
	}
	if opts.MinCounterActive <= 0 {
		opts.MinCounterActive = 100
	}
	return &Processor{kind: measureKind, measure: &MeasureProcessor{opts: opts}}, nil
}

func (m *MeasureProcessor) tool() profiler.Tool {
	if m.opts.SelfProfile && m.firstCollection {
		return profiler.PerfStatSelfProfile
	}
	return profiler.PerfStat
}

func (m *MeasureProcessor) finishedFirstCollection() bool {
	before := m.tool()
	m.firstCollection = false
	return m.tool() != before
}

func (m *MeasureProcessor) bucket(s benchdata.State) *bucket {
	key := s.Erase()
	for _, b := range m.buckets {
		if b.state.Erase() == key {
			return b
		}
	}
	b := &bucket{state: s, stats: new(benchdata.Stats)}
	m.buckets = append(m.buckets, b)
	return b
}

func (m *MeasureProcessor) processOutput(data *OutputData, out *Output) (Retry, error) {
	stats, profile, err := ParsePerfStat(out.Stdout, m.opts.MinCounterActive)
	var noOutput *NoOutputError
	if errors.As(err, &noOutput) {
		m.tries++
		if m.tries >= m.opts.MaxTries {
			return RetryNo, fmt.Errorf("%s %v %v: %w after %d: %w", data.Name, data.BuildKind, data.State, ErrTooManyTries, m.tries, err)
		}
		warnf("%s %v %v: %v, retrying (attempt %d of %d)", data.Name, data.BuildKind, data.State, err, m.tries+1, m.opts.MaxTries)
		return RetryYes, nil
	}
	if err != nil {
		return RetryNo, err
	}
	m.tries = 0

	addArtifactSizes(stats, profile)
	b := m.bucket(data.State)
	b.stats.Combine(stats)
	if profile != nil {
		b.profile = profile
		if m.opts.OnRawSelfProfile != nil {
			files, err := readRawSelfProfile(filepath.Join(data.Cwd, "self-profile-output"))
			if err != nil {
				return RetryNo, err
			}
			m.opts.OnRawSelfProfile(data.Name, benchdata.NewRunID(data.BuildKind, data.State), files)
		}
	}
	return RetryNo, nil
}

func (m *MeasureProcessor) finishBuildKind(k benchdata.BuildKind) []*benchdata.Run {
	var runs []*benchdata.Run
	for _, b := range m.buckets {
		if b.stats.IsEmpty() {
			continue
		}
		runs = append(runs, &benchdata.Run{
			Stats:       b.stats,
			SelfProfile: b.profile,
			Check:       k == benchdata.Check,
			Release:     k == benchdata.Opt,
			State:       b.state,
		})
	}
	m.buckets = nil
	return runs
}

// readRawSelfProfile reads every file the self-profiler wrote to dir.
// The build directory is deleted after the iteration, so the data is
// copied into memory.
func readRawSelfProfile(dir string) ([]RawFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []RawFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, RawFile{Name: e.Name(), Data: data})
	}
	return files, nil
}
