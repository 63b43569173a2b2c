// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

import (
	"strconv"
	"strings"

	"github.com/compilerperf/perf/benchdata"
	"github.com/compilerperf/perf/execute"
	"github.com/compilerperf/perf/storage"
)

// StableBenchmarks returns the benchmarks that build with c. Only
// benchmarks marked supports_stable build with a stable compiler.
func StableBenchmarks(bs []*execute.Benchmark, c execute.Compiler) []*execute.Benchmark {
	if c.IsNightly {
		return bs
	}
	var out []*execute.Benchmark
	for _, b := range bs {
		if b.Config.SupportsStable {
			out = append(out, b)
		}
	}
	return out
}

// ReleaseScenarios returns the scenarios to measure for the published
// release named version. Incremental compilation is only measured
// from 1.24.0 on, and for beta and master builds.
func ReleaseScenarios(version string) []benchdata.Scenario {
	if supportsIncremental(version) {
		return []benchdata.Scenario{benchdata.Full, benchdata.IncrFull, benchdata.IncrUnchanged, benchdata.IncrPatched}
	}
	return []benchdata.Scenario{benchdata.Full}
}

func supportsIncremental(version string) bool {
	if version == "beta" || strings.HasPrefix(version, "master") {
		return true
	}
	major, minor, ok := parseVersion(version)
	if !ok {
		return false
	}
	return major > 1 || major == 1 && minor >= 24
}

// parseVersion parses the major and minor components of a version
// such as "1.24.0".
func parseVersion(v string) (major, minor int, ok bool) {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}

// PublishedRequest returns the session request for the published
// release version built by c.
func PublishedRequest(version string, c execute.Compiler, bs []*execute.Benchmark) *Request {
	return &Request{
		Artifact:   storage.Release(version),
		Compiler:   c,
		Benchmarks: StableBenchmarks(bs, c),
		Kinds:      []benchdata.BuildKind{benchdata.Check, benchdata.Debug, benchdata.Opt},
		Scenarios:  ReleaseScenarios(version),
		Iterations: 3,
	}
}
