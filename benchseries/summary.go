// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"
	"github.com/compilerperf/perf/benchdata"
)

// A Summary describes one statistic of one run across a history.
type Summary struct {
	First, Last float64
	Min, Max    float64
	Mean        float64
	// Variance is the sample variance, or 0 for fewer than two
	// values.
	Variance float64
	// Trend is the percentage change from the mean of the first
	// quartile of values to the mean of the last, relative to
	// First. It is only computed for at least 10 values.
	Trend float64
	// TrendB is the percentage change from First to Last.
	TrendB float64
	N      int
}

// Summarize summarizes values, which are in history order.
func Summarize(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}
	s := stats.Sample{Xs: values}
	sum := Summary{
		First: values[0],
		Last:  values[n-1],
		Mean:  s.Mean(),
		N:     n,
	}
	sum.Min, sum.Max = s.Bounds()
	if n > 1 {
		sum.Variance = s.Variance()
	}
	if n >= 10 {
		q1, q4 := n/4, 3*n/4
		sum.Trend = 100 * (stats.Mean(values[q4:]) - stats.Mean(values[:q1])) / sum.First
	}
	sum.TrendB = 100 * (sum.Last - sum.First) / sum.First
	sum.Trend = finite(sum.Trend)
	sum.TrendB = finite(sum.TrendB)
	return sum
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// A Point is one value of a series.
type Point struct {
	Commit benchdata.Commit
	Value  float64
	// Interpolated is set if the value was filled in.
	Interpolated bool
}

// Series returns the values of stat for run id of bench, in history
// order. Commits where the value is absent even after filling are
// skipped, as are try commits.
func (o *Overlay) Series(bench benchdata.BenchmarkName, id benchdata.RunID, stat string) []Point {
	var pts []Point
	for _, c := range o.Commits {
		if c.Commit.IsTry() {
			continue
		}
		res := c.Benchmarks[bench]
		if !res.OK() {
			continue
		}
		r := res.Benchmark.Run(id)
		if r == nil {
			continue
		}
		v, ok := r.Stats.Get(stat)
		if !ok {
			continue
		}
		pts = append(pts, Point{Commit: c.Commit, Value: v, Interpolated: o.Interpolated(c.Commit.Sha, bench, &id)})
	}
	return pts
}

// Values returns the values of pts.
func Values(pts []Point) []float64 {
	vs := make([]float64, len(pts))
	for i, p := range pts {
		vs[i] = p.Value
	}
	return vs
}

// A Key names one series of an Overlay.
type Key struct {
	Benchmark benchdata.BenchmarkName
	Run       benchdata.RunID
	Stat      string
}

// Keys returns every series of o in sorted order.
func (o *Overlay) Keys() []Key {
	seen := make(map[Key]bool)
	var keys []Key
	for _, c := range o.Commits {
		for name, res := range c.Benchmarks {
			if !res.OK() {
				continue
			}
			for _, r := range res.Benchmark.Runs {
				for _, stat := range r.Stats.Names() {
					k := Key{name, r.ID(), stat}
					if !seen[k] {
						seen[k] = true
						keys = append(keys, k)
					}
				}
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Benchmark != b.Benchmark {
			return a.Benchmark < b.Benchmark
		}
		if a.Run != b.Run {
			return a.Run.Less(b.Run)
		}
		return a.Stat < b.Stat
	})
	return keys
}

func sortNames(names []benchdata.BenchmarkName) {
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
}
