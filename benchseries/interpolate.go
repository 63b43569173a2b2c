// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchseries presents the history of benchmark results as
// series over commits. Holes left by failed or missing measurements
// are filled by interpolating between the nearest measured commits, in
// an overlay that records which values were filled.
package benchseries

import (
	"errors"
	"fmt"

	"github.com/compilerperf/perf/benchdata"
)

// DefaultWindow is the default number of most recent commits whose
// runs every commit is expected to have.
const DefaultWindow = 20

// Options configures Interpolate.
type Options struct {
	// Window is the number of most recent commits used to decide
	// which runs of a benchmark should exist. Runs that no recent
	// commit has are assumed to have been removed, and are not
	// filled in. Zero means DefaultWindow.
	Window int
}

// An Interpolation records a value filled in at a commit.
type Interpolation struct {
	Benchmark benchdata.BenchmarkName
	// Run is the filled run, or nil if the whole benchmark was
	// filled.
	Run *benchdata.RunID
}

func (i Interpolation) String() string {
	if i.Run == nil {
		return string(i.Benchmark)
	}
	return fmt.Sprintf("%s %v", i.Benchmark, *i.Run)
}

// An Overlay is a copy of a commit history with its holes filled.
type Overlay struct {
	// Commits are copies of the input commits, in the same order.
	Commits []*benchdata.CommitData
	// Interpolations maps a commit sha to the values filled in at
	// that commit.
	Interpolations map[string][]Interpolation
	// Unfillable lists benchmarks that never succeeded at any
	// commit, and so could not be filled anywhere.
	Unfillable []benchdata.BenchmarkName
}

// Interpolated reports whether any value of bench at sha was filled
// in. If id is non-nil, only fills of that run count.
func (o *Overlay) Interpolated(sha string, bench benchdata.BenchmarkName, id *benchdata.RunID) bool {
	for _, in := range o.Interpolations[sha] {
		if in.Benchmark != bench {
			continue
		}
		if in.Run == nil || id == nil || *in.Run == *id {
			return true
		}
	}
	return false
}

// ErrInconsistent is returned by Interpolate when a run is missing at
// a commit but exists at no other commit.
var ErrInconsistent = errors.New("benchseries: missing run has no neighbors")

// Interpolate fills the holes of commits, which must be in history
// order. A benchmark missing or failed at a commit is filled from the
// nearest commits before and after it where it succeeded: statistics
// shared by runs present at both are interpolated linearly, and if
// only one neighbor exists its data is copied. A benchmark that
// succeeded but lacks some run recently seen elsewhere is filled in
// the same way, run by run.
//
// Try commits are left as they are and are not used as neighbors.
// commits is not modified.
func Interpolate(commits []*benchdata.CommitData, opts Options) (*Overlay, error) {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	o := &Overlay{Interpolations: make(map[string][]Interpolation)}

	// seq holds the commits taking part, and out their copies.
	var seq, out []*benchdata.CommitData
	for _, c := range commits {
		cp := c.Clone()
		o.Commits = append(o.Commits, cp)
		if c.Commit.IsTry() {
			continue
		}
		seq = append(seq, c)
		out = append(out, cp)
	}

	o.fillBenchmarks(seq, out)
	if err := o.fillRuns(seq, out, opts.Window); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Overlay) record(sha string, in Interpolation) {
	o.Interpolations[sha] = append(o.Interpolations[sha], in)
}

// fillBenchmarks fills the benchmarks missing entirely from a commit.
func (o *Overlay) fillBenchmarks(seq, out []*benchdata.CommitData) {
	present := make(map[benchdata.BenchmarkName][]int)
	var names []benchdata.BenchmarkName
	for i, c := range seq {
		for name, res := range c.Benchmarks {
			if _, ok := present[name]; !ok {
				present[name] = nil
				names = append(names, name)
			}
			if res.OK() {
				present[name] = append(present[name], i)
			}
		}
	}
	sortNames(names)

	for _, name := range names {
		idx := present[name]
		if len(idx) == 0 {
			o.Unfillable = append(o.Unfillable, name)
			continue
		}
		for i, c := range seq {
			if c.Benchmarks[name].OK() {
				continue
			}
			start, end := neighbors(idx, i)
			var b *benchdata.Benchmark
			switch {
			case start >= 0 && end >= 0:
				b = interpolateBenchmark(seq[start].Benchmarks[name].Benchmark, seq[end].Benchmarks[name].Benchmark, i-start, end-start)
			case start >= 0:
				b = seq[start].Benchmarks[name].Benchmark.Clone()
			default:
				b = seq[end].Benchmarks[name].Benchmark.Clone()
			}
			out[i].Benchmarks[name] = benchdata.Result{Benchmark: b}
			o.record(c.Commit.Sha, Interpolation{Benchmark: name})
		}
	}
}

// neighbors returns the last element of the sorted list idx before i
// and the first after it, or -1 where there is none.
func neighbors(idx []int, i int) (start, end int) {
	start, end = -1, -1
	for _, j := range idx {
		if j < i {
			start = j
		} else if j > i {
			end = j
			break
		}
	}
	return start, end
}

// interpolateBenchmark returns the runs present in both start and end,
// interpolated to the point from commits after start of the distance
// between them.
func interpolateBenchmark(start, end *benchdata.Benchmark, from, distance int) *benchdata.Benchmark {
	b := &benchdata.Benchmark{Name: start.Name}
	for _, sr := range start.Runs {
		er := end.Run(sr.ID())
		if er == nil {
			continue
		}
		b.Runs = append(b.Runs, interpolateRun(sr, er, from, distance))
	}
	return b
}

// interpolateRun interpolates each statistic present in both start
// and end.
func interpolateRun(start, end *benchdata.Run, from, distance int) *benchdata.Run {
	r := &benchdata.Run{
		Stats:   new(benchdata.Stats),
		Check:   start.Check,
		Release: start.Release,
		State:   start.State,
	}
	for _, p := range start.Stats.Pairs() {
		ev, ok := end.Stats.Get(p.Name)
		if !ok {
			continue
		}
		slope := (ev - p.Value) / float64(distance)
		r.Stats.Set(p.Name, slope*float64(from)+p.Value)
	}
	return r
}

// A runKey names one run of one benchmark.
type runKey struct {
	bench benchdata.BenchmarkName
	id    benchdata.RunID
}

// fillRuns fills the runs missing from benchmarks that succeeded.
func (o *Overlay) fillRuns(seq, out []*benchdata.CommitData, window int) error {
	if len(seq) == 0 {
		return nil
	}
	// The runs each benchmark should have.
	known := make(map[benchdata.BenchmarkName][]benchdata.RunID)
	seen := make(map[runKey]bool)
	lo := len(seq) - window
	if lo < 0 {
		lo = 0
	}
	for _, c := range seq[lo:] {
		for _, name := range c.BenchmarkNames() {
			res := c.Benchmarks[name]
			if !res.OK() {
				continue
			}
			for _, r := range res.Benchmark.Runs {
				k := runKey{name, r.ID()}
				if !seen[k] {
					seen[k] = true
					known[name] = append(known[name], k.id)
				}
			}
		}
	}

	// missing[i] lists the runs missing at seq[i].
	missing := make([][]runKey, len(seq))
	for i, c := range seq {
		for _, name := range c.BenchmarkNames() {
			res := c.Benchmarks[name]
			if !res.OK() {
				continue
			}
			for _, id := range known[name] {
				if res.Benchmark.Run(id) == nil {
					missing[i] = append(missing[i], runKey{name, id})
				}
			}
		}
	}

	// prev[i][k] and next[i][k] are the nearest commits before and
	// after seq[i] having run k, for every k missing at seq[i].
	prev := make([]map[runKey]int, len(seq))
	next := make([]map[runKey]int, len(seq))
	last := make(map[runKey]int)
	for i, c := range seq {
		prev[i] = lookup(last, missing[i])
		note(last, c, i)
	}
	last = make(map[runKey]int)
	for i := len(seq) - 1; i >= 0; i-- {
		next[i] = lookup(last, missing[i])
		note(last, seq[i], i)
	}

	for i, c := range seq {
		for _, k := range missing[i] {
			start, hasStart := prev[i][k]
			end, hasEnd := next[i][k]
			var r *benchdata.Run
			switch {
			case hasStart && hasEnd:
				r = interpolateRun(seq[start].Benchmarks[k.bench].Benchmark.Run(k.id), seq[end].Benchmarks[k.bench].Benchmark.Run(k.id), i-start, end-start)
			case hasStart:
				r = seq[start].Benchmarks[k.bench].Benchmark.Run(k.id).Clone()
			case hasEnd:
				r = seq[end].Benchmarks[k.bench].Benchmark.Run(k.id).Clone()
			default:
				return fmt.Errorf("%w: %s %v at %s", ErrInconsistent, k.bench, k.id, c.Commit.Sha)
			}
			b := out[i].Benchmarks[k.bench].Benchmark
			b.Runs = append(b.Runs, r)
			b.SortRuns()
			id := k.id
			o.record(c.Commit.Sha, Interpolation{Benchmark: k.bench, Run: &id})
		}
	}
	return nil
}

// lookup returns the entries of last for keys.
func lookup(last map[runKey]int, keys []runKey) map[runKey]int {
	if len(keys) == 0 {
		return nil
	}
	m := make(map[runKey]int, len(keys))
	for _, k := range keys {
		if i, ok := last[k]; ok {
			m[k] = i
		}
	}
	return m
}

// note records in last that the measured runs of c are at index i.
func note(last map[runKey]int, c *benchdata.CommitData, i int) {
	for name, res := range c.Benchmarks {
		if !res.OK() {
			continue
		}
		for _, r := range res.Benchmark.Runs {
			last[runKey{name, r.ID()}] = i
		}
	}
}
