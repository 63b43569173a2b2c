// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/compilerperf/perf/benchdata"
	"github.com/compilerperf/perf/execute"
	"github.com/compilerperf/perf/profiler"
)

// A ProfileRequest describes a profiling session. Profiling stores
// nothing in the database: the profiler's output files are written to
// OutDir.
type ProfileRequest struct {
	Tool       profiler.Tool
	OutDir     string
	ID         string
	Compiler   execute.Compiler
	Benchmarks []*execute.Benchmark
	Kinds      []benchdata.BuildKind
	Scenarios  []benchdata.Scenario
}

// Profile runs every benchmark of req once under req.Tool. It returns
// the failures of single benchmarks, or an error if the session could
// not complete.
func (c *Collector) Profile(req *ProfileRequest) (map[benchdata.BenchmarkName]error, error) {
	if req.Tool.IsStat() {
		return nil, fmt.Errorf("%v collects statistics; use bench_local instead", req.Tool)
	}
	if err := os.MkdirAll(req.OutDir, 0777); err != nil {
		return nil, err
	}
	failed := make(map[benchdata.BenchmarkName]error)
	for i, b := range req.Benchmarks {
		log.Printf("%d/%d: profiling %s with %v", i+1, len(req.Benchmarks), b.Name, req.Tool)
		p, err := execute.NewProfileProcessor(req.Tool, req.OutDir, req.ID)
		if err != nil {
			return nil, err
		}
		if _, err := c.measure(b, c.Env, p, req.Compiler, req.Kinds, req.Scenarios, 1); err != nil {
			if execute.IsFatal(err) && !isLegality(err) {
				return failed, fmt.Errorf("%s: %w", b.Name, err)
			}
			log.Printf("%s failed: %v", b.Name, err)
			failed[b.Name] = err
		}
	}
	return failed, nil
}

// isLegality reports whether err rejects one tool and build
// combination. Other benchmarks may still be profiled.
func isLegality(err error) bool {
	var notAllowed *profiler.NotAllowedError
	return errors.As(err, &notAllowed)
}
