// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/compilerperf/perf/benchdata"
	"github.com/compilerperf/perf/storage"
	"golang.org/x/net/context"
)

// results assembles rows of the Statistics and Errors tables into
// per-artifact benchmark results.
type results struct {
	byArtifact map[int64]map[benchdata.BenchmarkName]benchdata.Result
	runs       map[runKey]*benchdata.Run
}

type runKey struct {
	artifact int64
	bench    benchdata.BenchmarkName
	id       benchdata.RunID
}

func newResults() *results {
	return &results{
		byArtifact: make(map[int64]map[benchdata.BenchmarkName]benchdata.Result),
		runs:       make(map[runKey]*benchdata.Run),
	}
}

func (r *results) artifact(aid int64) map[benchdata.BenchmarkName]benchdata.Result {
	m := r.byArtifact[aid]
	if m == nil {
		m = make(map[benchdata.BenchmarkName]benchdata.Result)
		r.byArtifact[aid] = m
	}
	return m
}

// addStat adds one row of the Statistics table.
func (r *results) addStat(aid int64, bench, profile, scenario, stat string, value float64) error {
	kind, err := benchdata.ParseProfile(profile)
	if err != nil {
		return err
	}
	state, err := benchdata.ParseState(scenario)
	if err != nil {
		return err
	}
	name := benchdata.BenchmarkName(bench)
	id := benchdata.NewRunID(kind, state)
	key := runKey{aid, name, id}
	run := r.runs[key]
	if run == nil {
		m := r.artifact(aid)
		res := m[name]
		if res.Benchmark == nil {
			res = benchdata.Result{Benchmark: &benchdata.Benchmark{Name: name}}
			m[name] = res
		}
		run = &benchdata.Run{Stats: new(benchdata.Stats), Check: id.Check, Release: id.Release, State: state}
		res.Benchmark.Runs = append(res.Benchmark.Runs, run)
		r.runs[key] = run
	}
	run.Stats.Set(stat, value)
	return nil
}

// addError adds one row of the Errors table. A benchmark with any
// recorded statistics is reported as successful.
func (r *results) addError(aid int64, bench, msg string) {
	m := r.artifact(aid)
	name := benchdata.BenchmarkName(bench)
	if res, ok := m[name]; ok && res.OK() {
		return
	}
	m[name] = benchdata.Result{Error: msg}
}

func (r *results) sortRuns() {
	for _, m := range r.byArtifact {
		for _, res := range m {
			if res.Benchmark != nil {
				res.Benchmark.SortRuns()
			}
		}
	}
}

// scan reads every row of rows with scan, then closes rows.
func scan(rows *sql.Rows, f func() error) error {
	defer rows.Close()
	for rows.Next() {
		if err := f(); err != nil {
			return err
		}
	}
	return rows.Err()
}

// load reads the statistics and errors of the artifacts selected by
// where, a condition on the Artifacts table aliased as a.
func (db *DB) load(ctx context.Context, where string, args ...interface{}) (*results, error) {
	r := newResults()

	rows, err := db.sql.QueryContext(ctx, "SELECT s.ArtifactID, s.Benchmark, s.Profile, s.Scenario, s.Statistic, s.Value FROM Statistics s JOIN Artifacts a ON s.ArtifactID = a.ArtifactID WHERE "+where+" ORDER BY s.ArtifactID, s.Benchmark, s.Profile, s.Scenario, s.Statistic", args...)
	if err != nil {
		return nil, err
	}
	var aid int64
	var bench, profile, scenario, stat, msg string
	var value float64
	err = scan(rows, func() error {
		if err := rows.Scan(&aid, &bench, &profile, &scenario, &stat, &value); err != nil {
			return err
		}
		return r.addStat(aid, bench, profile, scenario, stat, value)
	})
	if err != nil {
		return nil, fmt.Errorf("loading statistics: %v", err)
	}

	rows, err = db.sql.QueryContext(ctx, "SELECT e.ArtifactID, e.Benchmark, e.Error FROM Errors e JOIN Artifacts a ON e.ArtifactID = a.ArtifactID WHERE "+where, args...)
	if err != nil {
		return nil, err
	}
	err = scan(rows, func() error {
		if err := rows.Scan(&aid, &bench, &msg); err != nil {
			return err
		}
		r.addError(aid, bench, msg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading errors: %v", err)
	}
	r.sortRuns()
	return r, nil
}

// LoadArtifact returns every result recorded for a.
func (db *DB) LoadArtifact(ctx context.Context, a storage.Artifact) (map[benchdata.BenchmarkName]benchdata.Result, error) {
	r, err := db.load(ctx, "a.Name = ?", a.Name)
	if err != nil {
		return nil, err
	}
	for _, m := range r.byArtifact {
		return m, nil
	}
	return make(map[benchdata.BenchmarkName]benchdata.Result), nil
}

// LoadCommits returns the results of every commit in (date, sha)
// order. Commits with no results are included.
func (db *DB) LoadCommits(ctx context.Context) ([]*benchdata.CommitData, error) {
	r, err := db.load(ctx, "a.Kind = ?", string(storage.CommitArtifact))
	if err != nil {
		return nil, err
	}
	rows, err := db.sql.QueryContext(ctx, "SELECT ArtifactID, Name, Date FROM Artifacts WHERE Kind = ?", string(storage.CommitArtifact))
	if err != nil {
		return nil, err
	}
	var commits []*benchdata.CommitData
	var aid, date int64
	var name string
	err = scan(rows, func() error {
		if err := rows.Scan(&aid, &name, &date); err != nil {
			return err
		}
		benchmarks := r.byArtifact[aid]
		if benchmarks == nil {
			benchmarks = make(map[benchdata.BenchmarkName]benchdata.Result)
		}
		commits = append(commits, &benchdata.CommitData{
			Commit:     benchdata.Commit{Sha: name, Date: time.Unix(date, 0).UTC()},
			Benchmarks: benchmarks,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	benchdata.SortCommits(commits)
	return commits, nil
}

// Tables lists the tables of the results schema.
var Tables = []string{"Artifacts", "Collections", "Statistics", "SelfProfileQueries", "RawSelfProfiles", "Errors"}

// CountRows returns the number of rows in table, which must be one of
// Tables.
func (db *DB) CountRows(table string) (int, error) {
	known := false
	for _, t := range Tables {
		known = known || t == table
	}
	if !known {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
	return n, err
}

// CountArtifacts returns the number of artifacts in the database.
func (db *DB) CountArtifacts() (int, error) {
	return db.CountRows("Artifacts")
}
