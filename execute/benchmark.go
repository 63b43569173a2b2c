// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package execute

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/compilerperf/perf/benchdata"
	"github.com/otiai10/copy"
)

// ConfigFile is the name of the per-benchmark configuration file.
const ConfigFile = "perf-config.json"

// BenchmarkConfig is the contents of a benchmark's perf-config.json.
type BenchmarkConfig struct {
	// CargoOpts are extra arguments to cargo, separated by spaces.
	CargoOpts string `json:"cargo_opts,omitempty"`
	// CargoRustcOpts are extra compiler arguments.
	CargoRustcOpts string `json:"cargo_rustc_opts,omitempty"`
	// CargoToml is the manifest path, relative to the benchmark.
	CargoToml string `json:"cargo_toml,omitempty"`
	Disabled  bool   `json:"disabled,omitempty"`
	// Runs caps the number of iterations.
	Runs int `json:"runs,omitempty"`
	// SupportsStable is set for benchmarks that build with a
	// stable compiler.
	SupportsStable bool `json:"supports_stable,omitempty"`
}

const defaultRuns = 3

// ErrDisabled is returned by Measure for a disabled benchmark.
var ErrDisabled = errors.New("benchmark disabled")

// A Benchmark is a crate to build and measure.
type Benchmark struct {
	Name    benchdata.BenchmarkName
	Path    string
	Patches []benchdata.Patch
	Config  BenchmarkConfig
}

// NewBenchmark loads the benchmark in dir.
func NewBenchmark(name benchdata.BenchmarkName, dir string) (*Benchmark, error) {
	b := &Benchmark{Name: name, Path: dir, Config: BenchmarkConfig{Runs: defaultRuns}}
	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &b.Config); err != nil {
			return nil, fmt.Errorf("%s: %v", filepath.Join(dir, ConfigFile), err)
		}
		if b.Config.Runs <= 0 {
			b.Config.Runs = defaultRuns
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.patch"))
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		p, err := benchdata.NewPatch(path)
		if err != nil {
			return nil, err
		}
		b.Patches = append(b.Patches, p)
	}
	benchdata.SortPatches(b.Patches)
	return b, nil
}

// Discover loads every benchmark in dir. Hidden directories and
// scripts are not benchmarks. If include is non-empty,
// only benchmarks whose name contains one of its comma-separated
// substrings are loaded; benchmarks whose name contains one of the
// substrings in exclude are skipped. The result is sorted by name.
func Discover(dir, include, exclude string) ([]*Benchmark, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var benchmarks []*Benchmark
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || name == "scripts" {
			continue
		}
		if include != "" && !containsAny(name, include) {
			continue
		}
		if exclude != "" && containsAny(name, exclude) {
			continue
		}
		b, err := NewBenchmark(benchdata.BenchmarkName(name), filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		benchmarks = append(benchmarks, b)
	}
	sort.Slice(benchmarks, func(i, j int) bool { return benchmarks[i].Name < benchmarks[j].Name })
	return benchmarks, nil
}

func containsAny(name, list string) bool {
	for _, s := range strings.Split(list, ",") {
		if s != "" && strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// makeTempDir copies the benchmark into a new temporary directory,
// following symbolic links.
func (b *Benchmark) makeTempDir(src string) (string, error) {
	dir, err := os.MkdirTemp("", "perf-"+string(b.Name)+"-")
	if err != nil {
		return "", err
	}
	opt := copy.Options{
		OnSymlink: func(string) copy.SymlinkAction { return copy.Deep },
	}
	if err := copy.Copy(src, dir, opt); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("copying %s: %w", src, err)
	}
	return dir, nil
}

// manifestPath returns the path of the Cargo.toml to build.
func (b *Benchmark) manifestPath() string {
	if b.Config.CargoToml != "" {
		return b.Config.CargoToml
	}
	return "Cargo.toml"
}
