// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package storage defines how the collector stores results.
//
// Results are keyed by (artifact, benchmark, profile, scenario,
// statistic). Implementations live in subpackages: storage/db is the
// SQL store the collector resumes from, and the influx package
// mirrors results into a time-series database.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/compilerperf/perf/benchdata"
)

// An ArtifactKind distinguishes commits from named releases.
type ArtifactKind string

const (
	CommitArtifact  ArtifactKind = "commit"
	ReleaseArtifact ArtifactKind = "release"
)

// An Artifact is a compiler build that results are recorded for.
type Artifact struct {
	Kind ArtifactKind
	// Name is the commit sha or the release name.
	Name string
	// Date is the commit date. It is zero for releases.
	Date time.Time
}

// Commit returns the Artifact for commit c.
func Commit(c benchdata.Commit) Artifact {
	return Artifact{Kind: CommitArtifact, Name: c.Sha, Date: c.Date}
}

// Release returns the Artifact for the release named name.
func Release(name string) Artifact {
	return Artifact{Kind: ReleaseArtifact, Name: name}
}

func (a Artifact) String() string {
	return fmt.Sprintf("%s %s", a.Kind, a.Name)
}

// A Recorder stores results.
type Recorder interface {
	// RecordRun stores every statistic and self-profile query of
	// run for benchmark bench at artifact a, as part of collection.
	RecordRun(ctx context.Context, a Artifact, collection string, bench benchdata.BenchmarkName, run *benchdata.Run) error
	// RecordError stores the failure of bench at a.
	RecordError(ctx context.Context, a Artifact, bench benchdata.BenchmarkName, msg string) error
}

// A Connection is a Recorder that can read back what was recorded.
type Connection interface {
	Recorder

	// StartCollection records the start of a collection session
	// by a collector at version.
	StartCollection(ctx context.Context, collection, version string) error
	// ArtifactRow returns the numeric identifier of a, creating it
	// if necessary.
	ArtifactRow(ctx context.Context, a Artifact) (int64, error)
	// RecordRawSelfProfile notes that the raw self-profile of the
	// build identified by id has been uploaded.
	RecordRawSelfProfile(ctx context.Context, a Artifact, collection string, bench benchdata.BenchmarkName, id benchdata.RunID) error

	// LoadArtifact returns every result recorded for a.
	LoadArtifact(ctx context.Context, a Artifact) (map[benchdata.BenchmarkName]benchdata.Result, error)
	// LoadCommits returns the results of every commit, in
	// (date, sha) order.
	LoadCommits(ctx context.Context) ([]*benchdata.CommitData, error)

	// DeleteBenchmark removes every result for bench.
	DeleteBenchmark(ctx context.Context, bench benchdata.BenchmarkName) error
	// DeleteErrors removes the errors recorded for a, so that the
	// failed benchmarks are run again.
	DeleteErrors(ctx context.Context, a Artifact) error
}
