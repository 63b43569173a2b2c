// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package execute

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/compilerperf/perf/benchdata"
	"github.com/compilerperf/perf/wrapper"
	"github.com/sourcegraph/go-diff/diff"
)

// A cargoProcess is one build of a benchmark.
type cargoProcess struct {
	env         *Env
	compiler    Compiler
	bench       *Benchmark
	cwd         string
	kind        benchdata.BuildKind
	incremental bool
	// processor is nil for builds whose output is not processed.
	processor *Processor
	state     benchdata.State
	label     string
}

func (b *Benchmark) cargo(env *Env, c Compiler, cwd string, kind benchdata.BuildKind) *cargoProcess {
	return &cargoProcess{env: env, compiler: c, bench: b, cwd: cwd, kind: kind, label: "Full"}
}

// scenario returns a copy of p that builds state and passes its
// output to proc, which may be nil.
func (p *cargoProcess) scenario(state benchdata.State, label string, proc *Processor) *cargoProcess {
	q := *p
	q.state = state
	q.label = label
	q.incremental = state.Scenario.Incremental()
	q.processor = proc
	return &q
}

// baseCommand returns a cargo command with the environment reduced to
// what the build needs.
func (p *cargoProcess) baseCommand(subcommand string) *exec.Cmd {
	cfg := p.env.Config
	incr := "0"
	if p.incremental {
		incr = "1"
	}
	cmd := exec.Command(p.compiler.Cargo, subcommand, "--manifest-path", p.bench.manifestPath())
	cmd.Dir = p.cwd
	cmd.Env = []string{
		"SHELL=" + cfg.Shell,
		"PATH=" + cfg.Path,
		"HOME=" + cfg.Home,
		"RUSTC=" + p.env.Shim,
		"RUSTC_REAL=" + p.compiler.Rustc,
		"CARGO_INCREMENTAL=" + incr,
		"PERF=" + cfg.Perf,
		"VALGRIND=" + cfg.Valgrind,
		"OPERF=" + cfg.Operf,
	}
	if n := cfg.RustcThreadCount; n > 0 {
		cmd.Env = append(cmd.Env, "RUSTC_THREAD_COUNT="+strconv.Itoa(n))
	}
	return cmd
}

func (p *cargoProcess) pkgid() (string, error) {
	out, err := runCommand(p.baseCommand("pkgid"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out.Stdout)), nil
}

// run builds the benchmark, repeating the build for as long as the
// processor asks for a retry.
func (p *cargoProcess) run() error {
	subcommand := "rustc"
	if p.processor != nil {
		tool := p.processor.Tool()
		if err := tool.Check(p.kind, p.state.Scenario); err != nil {
			return err
		}
		subcommand = tool.Subcommand()
	}
	pkgid, err := p.pkgid()
	if err != nil {
		return err
	}
	for {
		cmd := p.baseCommand(subcommand)
		cmd.Args = append(cmd.Args, "-p", pkgid)
		switch p.kind {
		case benchdata.Check:
			cmd.Args = append(cmd.Args, "--profile", "check")
		case benchdata.Opt:
			cmd.Args = append(cmd.Args, "--release")
		}
		cmd.Args = append(cmd.Args, strings.Fields(p.bench.Config.CargoOpts)...)
		if n := p.env.Config.CargoThreadCount; n > 0 {
			cmd.Args = append(cmd.Args, "-j"+strconv.Itoa(n))
		}
		cmd.Args = append(cmd.Args, "--")
		// The marker is taken by the tool chosen for this attempt;
		// it can change between the first and later iterations.
		if p.processor != nil {
			cmd.Args = append(cmd.Args, wrapper.WrapFlag, p.processor.Tool().Name())
		}
		cmd.Args = append(cmd.Args, strings.Fields(p.bench.Config.CargoRustcOpts)...)

		if err := touchAll(p.cwd); err != nil {
			return err
		}
		out, err := runCommand(cmd)
		if err != nil {
			return err
		}
		if p.processor == nil {
			return nil
		}
		data := &OutputData{
			Name:      p.bench.Name,
			Cwd:       p.cwd,
			BuildKind: p.kind,
			State:     p.state,
			Label:     p.label,
		}
		retry, err := p.processor.ProcessOutput(data, out)
		if err != nil {
			return err
		}
		if retry == RetryNo {
			return nil
		}
	}
}

// touchAll marks every Rust source under dir as modified, so cargo
// rebuilds the crate, and removes CMake caches that would go stale.
func touchAll(dir string) error {
	now := time.Now()
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return nil
		case strings.HasSuffix(path, ".rs"):
			return os.Chtimes(path, now, now)
		case d.Name() == "CMakeCache.txt":
			return os.Remove(path)
		}
		return nil
	})
}

// applyPatch applies patch to the benchmark copy in dir.
func applyPatch(dir string, patch benchdata.Patch) error {
	path, err := filepath.Abs(patch.Path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fds, err := diff.ParseMultiFileDiff(data)
	if err != nil {
		return fmt.Errorf("patch %s: %v", path, err)
	}
	if len(fds) == 0 {
		return fmt.Errorf("patch %s: no file changes", path)
	}
	cmd := exec.Command("patch", "-Np1", "-i", path)
	cmd.Dir = dir
	_, err = runCommand(cmd)
	return err
}
