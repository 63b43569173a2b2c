// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchdata

import "sort"

// A Run is one completed measurement of a benchmark.
type Run struct {
	Stats       *Stats
	SelfProfile *SelfProfile // nil unless self-profiling was enabled
	Check       bool
	Release     bool
	State       State
}

// A RunID classifies a Run independently of its measurements.
// RunIDs are comparable and usable as map keys.
type RunID struct {
	Check   bool
	Release bool
	State   State
}

// ID returns r's classification with the patch index erased.
func (r *Run) ID() RunID {
	return RunID{Check: r.Check, Release: r.Release, State: r.State.Erase()}
}

// NewRunID returns the RunID for a build of kind k in state s.
func NewRunID(k BuildKind, s State) RunID {
	return RunID{Check: k == Check, Release: k == Opt, State: s.Erase()}
}

// BuildKind returns the build kind id was measured with.
func (id RunID) BuildKind() BuildKind {
	switch {
	case id.Check:
		return Check
	case id.Release:
		return Opt
	}
	return Debug
}

func (id RunID) String() string {
	return id.BuildKind().Profile() + "/" + id.State.ID()
}

// Less orders RunIDs by build kind, then scenario, then patch name.
func (id RunID) Less(o RunID) bool {
	if a, b := id.BuildKind(), o.BuildKind(); a != b {
		return a < b
	}
	if id.State.Scenario != o.State.Scenario {
		return id.State.Scenario < o.State.Scenario
	}
	return id.State.Patch.Name < o.State.Patch.Name
}

// Clone returns a deep copy of r.
func (r *Run) Clone() *Run {
	c := *r
	c.Stats = r.Stats.Clone()
	return &c
}

// A Benchmark is every Run measured for one benchmark at one
// artifact.
type Benchmark struct {
	Name BenchmarkName
	Runs []*Run
}

// Run returns the Run of b identified by id, or nil.
func (b *Benchmark) Run(id RunID) *Run {
	for _, r := range b.Runs {
		if r.ID() == id {
			return r
		}
	}
	return nil
}

// Clone returns a deep copy of b.
func (b *Benchmark) Clone() *Benchmark {
	c := &Benchmark{Name: b.Name, Runs: make([]*Run, len(b.Runs))}
	for i, r := range b.Runs {
		c.Runs[i] = r.Clone()
	}
	return c
}

// SortRuns sorts b's runs by RunID.
func (b *Benchmark) SortRuns() {
	sort.SliceStable(b.Runs, func(i, j int) bool {
		return b.Runs[i].ID().Less(b.Runs[j].ID())
	})
}

// A Result is the outcome of measuring one benchmark: either a
// Benchmark or an error message.
type Result struct {
	Benchmark *Benchmark
	Error     string
}

// OK reports whether the benchmark was measured successfully.
func (r Result) OK() bool {
	return r.Benchmark != nil
}
