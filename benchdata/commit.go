// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchdata

import (
	"sort"
	"time"
)

// A Commit is a revision of the compiler. Commits are identified by
// Sha alone; Date only affects display order.
type Commit struct {
	Sha  string
	Date time.Time
}

// TryDate is the sentinel date carried by try commits, whose
// ancestry is not tracked.
var TryDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// IsTry reports whether c is a try commit.
func (c Commit) IsTry() bool {
	y, m, d := c.Date.UTC().Date()
	return y == 2000 && m == time.January && d == 1
}

// Less orders commits by date, then sha.
func (c Commit) Less(o Commit) bool {
	if !c.Date.Equal(o.Date) {
		return c.Date.Before(o.Date)
	}
	return c.Sha < o.Sha
}

// CommitData holds every benchmark result recorded for a commit.
type CommitData struct {
	Commit     Commit
	Triple     string
	Benchmarks map[BenchmarkName]Result
}

// Clone returns a deep copy of c.
func (c *CommitData) Clone() *CommitData {
	n := &CommitData{Commit: c.Commit, Triple: c.Triple, Benchmarks: make(map[BenchmarkName]Result, len(c.Benchmarks))}
	for name, r := range c.Benchmarks {
		if r.Benchmark != nil {
			r.Benchmark = r.Benchmark.Clone()
		}
		n.Benchmarks[name] = r
	}
	return n
}

// BenchmarkNames returns the sorted names of every benchmark in c.
func (c *CommitData) BenchmarkNames() []BenchmarkName {
	names := make([]BenchmarkName, 0, len(c.Benchmarks))
	for n := range c.Benchmarks {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// SortCommits sorts cs into display order.
func SortCommits(cs []*CommitData) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Commit.Less(cs[j].Commit)
	})
}

// ArtifactData holds the results for a named artifact, such as a
// published release, that is not a commit.
type ArtifactData struct {
	ID         string
	Benchmarks map[BenchmarkName]Result
}
