// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/compilerperf/perf/benchdata"
	"github.com/google/go-cmp/cmp"
)

var (
	full      = benchdata.State{Scenario: benchdata.Full}
	incrFull  = benchdata.State{Scenario: benchdata.IncrFull}
	debugFull = benchdata.NewRunID(benchdata.Debug, full)
	debugIncr = benchdata.NewRunID(benchdata.Debug, incrFull)
)

// history builds commits c0, c1, ... one day apart.
func history(n int) []*benchdata.CommitData {
	var cs []*benchdata.CommitData
	for i := 0; i < n; i++ {
		cs = append(cs, &benchdata.CommitData{
			Commit:     benchdata.Commit{Sha: fmt.Sprintf("c%d", i), Date: time.Date(2020, 1, 1+i, 0, 0, 0, 0, time.UTC)},
			Benchmarks: make(map[benchdata.BenchmarkName]benchdata.Result),
		})
	}
	return cs
}

// set records value of stat for run id of bench at c.
func set(c *benchdata.CommitData, bench benchdata.BenchmarkName, id benchdata.RunID, stat string, value float64) {
	res := c.Benchmarks[bench]
	if res.Benchmark == nil {
		res = benchdata.Result{Benchmark: &benchdata.Benchmark{Name: bench}}
		c.Benchmarks[bench] = res
	}
	r := res.Benchmark.Run(id)
	if r == nil {
		r = &benchdata.Run{Stats: new(benchdata.Stats), Check: id.Check, Release: id.Release, State: id.State}
		res.Benchmark.Runs = append(res.Benchmark.Runs, r)
		res.Benchmark.SortRuns()
	}
	r.Stats.Set(stat, value)
}

func value(t *testing.T, c *benchdata.CommitData, bench benchdata.BenchmarkName, id benchdata.RunID, stat string) float64 {
	t.Helper()
	res := c.Benchmarks[bench]
	if !res.OK() {
		t.Fatalf("%s: %s not present", c.Commit.Sha, bench)
	}
	r := res.Benchmark.Run(id)
	if r == nil {
		t.Fatalf("%s: %s %v not present", c.Commit.Sha, bench, id)
	}
	v, ok := r.Stats.Get(stat)
	if !ok {
		t.Fatalf("%s: %s %v has no %s", c.Commit.Sha, bench, id, stat)
	}
	return v
}

func TestInterpolateMiddle(t *testing.T) {
	cs := history(3)
	set(cs[0], "foo", debugFull, "wall-time", 10)
	set(cs[2], "foo", debugFull, "wall-time", 30)

	o, err := Interpolate(cs, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if v := value(t, o.Commits[1], "foo", debugFull, "wall-time"); v != 20 {
		t.Errorf("c1 wall-time = %v, want 20", v)
	}
	want := map[string][]Interpolation{"c1": {{Benchmark: "foo"}}}
	if d := cmp.Diff(want, o.Interpolations); d != "" {
		t.Errorf("Interpolations mismatch (-want +got):\n%s", d)
	}
	if _, ok := cs[1].Benchmarks["foo"]; ok {
		t.Error("Interpolate modified its input")
	}
}

func TestInterpolateEnds(t *testing.T) {
	cs := history(5)
	set(cs[1], "foo", debugFull, "wall-time", 1)
	set(cs[3], "foo", debugFull, "wall-time", 3)
	cs[2].Benchmarks["foo"] = benchdata.Result{Error: "failed to compile"}

	o, err := Interpolate(cs, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []float64{1, 1, 2, 3, 3} {
		if v := value(t, o.Commits[i], "foo", debugFull, "wall-time"); v != want {
			t.Errorf("c%d wall-time = %v, want %v", i, v, want)
		}
	}
	if len(o.Interpolations) != 3 {
		t.Errorf("Interpolations = %v, want fills at c0, c2, c4", o.Interpolations)
	}
}

func TestInterpolateSharedOnly(t *testing.T) {
	cs := history(3)
	set(cs[0], "foo", debugFull, "wall-time", 10)
	set(cs[0], "foo", debugFull, "max-rss", 100)
	set(cs[0], "foo", debugIncr, "wall-time", 5)
	set(cs[2], "foo", debugFull, "wall-time", 20)

	o, err := Interpolate(cs, Options{})
	if err != nil {
		t.Fatal(err)
	}
	b := o.Commits[1].Benchmarks["foo"].Benchmark
	if len(b.Runs) != 1 {
		t.Fatalf("c1 has %d runs, want only the run present at both ends", len(b.Runs))
	}
	if names := b.Runs[0].Stats.Names(); len(names) != 1 || names[0] != "wall-time" {
		t.Errorf("c1 statistics = %v, want [wall-time]", names)
	}
}

func TestInterpolateBounded(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	cs := history(50)
	for i, c := range cs {
		if r.Intn(3) == 0 && i != 0 && i != len(cs)-1 {
			continue
		}
		set(c, "foo", debugFull, "instructions:u", r.Float64()*1000)
	}
	o, err := Interpolate(cs, Options{})
	if err != nil {
		t.Fatal(err)
	}
	var present []int
	for i, c := range cs {
		if c.Benchmarks["foo"].OK() {
			present = append(present, i)
		}
	}
	for i := range cs {
		start, end := neighbors(present, i)
		if cs[i].Benchmarks["foo"].OK() {
			continue
		}
		lo := value(t, cs[start], "foo", debugFull, "instructions:u")
		hi := value(t, cs[end], "foo", debugFull, "instructions:u")
		if lo > hi {
			lo, hi = hi, lo
		}
		if v := value(t, o.Commits[i], "foo", debugFull, "instructions:u"); v < lo || v > hi {
			t.Errorf("c%d = %v, outside [%v, %v]", i, v, lo, hi)
		}
	}
}

func TestInterpolateDense(t *testing.T) {
	cs := history(4)
	for i, c := range cs {
		set(c, "foo", debugFull, "wall-time", float64(i))
		set(c, "foo", debugIncr, "wall-time", float64(2*i))
		set(c, "bar", debugFull, "max-rss", 7)
	}
	o, err := Interpolate(cs, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Interpolations) != 0 {
		t.Errorf("Interpolations = %v, want none", o.Interpolations)
	}
	for i := range cs {
		for _, name := range cs[i].BenchmarkNames() {
			want, got := cs[i].Benchmarks[name].Benchmark, o.Commits[i].Benchmarks[name].Benchmark
			if len(want.Runs) != len(got.Runs) {
				t.Fatalf("c%d %s: %d runs, want %d", i, name, len(got.Runs), len(want.Runs))
			}
			for j := range want.Runs {
				if want.Runs[j].ID() != got.Runs[j].ID() || !want.Runs[j].Stats.Equal(got.Runs[j].Stats) {
					t.Errorf("c%d %s: run %d differs", i, name, j)
				}
			}
		}
	}
}

func TestInterpolateTryCommits(t *testing.T) {
	cs := history(4)
	set(cs[0], "foo", debugFull, "wall-time", 10)
	cs[1].Commit.Date = benchdata.TryDate
	set(cs[1], "foo", debugFull, "wall-time", 1000)
	cs[2].Commit.Date = benchdata.TryDate
	set(cs[3], "foo", debugFull, "wall-time", 20)

	o, err := Interpolate(cs, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Interpolations) != 0 {
		t.Errorf("Interpolations = %v, want none", o.Interpolations)
	}
	if _, ok := o.Commits[2].Benchmarks["foo"]; ok {
		t.Error("try commit c2 was filled")
	}
	if v := value(t, o.Commits[1], "foo", debugFull, "wall-time"); v != 1000 {
		t.Errorf("try commit c1 = %v, want its measured 1000", v)
	}
}

func TestInterpolateRuns(t *testing.T) {
	cs := history(5)
	for i, c := range cs {
		set(c, "foo", debugFull, "wall-time", 1)
		if i != 2 {
			set(c, "foo", debugIncr, "wall-time", float64(10*i))
		}
	}
	o, err := Interpolate(cs, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if v := value(t, o.Commits[2], "foo", debugIncr, "wall-time"); v != 20 {
		t.Errorf("c2 incr-full = %v, want 20", v)
	}
	id := debugIncr
	want := map[string][]Interpolation{"c2": {{Benchmark: "foo", Run: &id}}}
	if d := cmp.Diff(want, o.Interpolations); d != "" {
		t.Errorf("Interpolations mismatch (-want +got):\n%s", d)
	}
	if !o.Interpolated("c2", "foo", &id) || o.Interpolated("c2", "foo", &debugFull) {
		t.Error("Interpolated does not distinguish runs")
	}
}

func TestInterpolateWindow(t *testing.T) {
	// A run that disappeared long ago is not filled in.
	cs := history(6)
	for i, c := range cs {
		set(c, "foo", debugFull, "wall-time", 1)
		if i == 0 {
			set(c, "foo", debugIncr, "wall-time", 1)
		}
	}
	o, err := Interpolate(cs, Options{Window: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Interpolations) != 0 {
		t.Errorf("Interpolations = %v, want none", o.Interpolations)
	}

	// With a window covering the whole history it is copied
	// forward.
	o, err = Interpolate(cs, Options{Window: 6})
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Interpolations) != 5 {
		t.Errorf("Interpolations = %v, want fills at c1..c5", o.Interpolations)
	}
}

func TestInterpolateUnfillable(t *testing.T) {
	cs := history(2)
	set(cs[0], "foo", debugFull, "wall-time", 1)
	cs[0].Benchmarks["broken"] = benchdata.Result{Error: "always fails"}
	cs[1].Benchmarks["broken"] = benchdata.Result{Error: "always fails"}

	o, err := Interpolate(cs, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]benchdata.BenchmarkName{"broken"}, o.Unfillable); d != "" {
		t.Errorf("Unfillable mismatch (-want +got):\n%s", d)
	}
	if o.Commits[1].Benchmarks["broken"].OK() {
		t.Error("unfillable benchmark was filled")
	}
}
