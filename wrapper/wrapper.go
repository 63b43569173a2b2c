// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wrapper implements the compiler shim that cargo invokes in
// place of the real compiler. When the final crate is built, the
// collector appends "--wrap-rustc-with <tool>" to the compiler
// arguments; the shim strips that marker and runs the real compiler
// under the named instrumentation tool.
package wrapper

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/compilerperf/perf/config"
	"github.com/compilerperf/perf/profiler"
)

// WrapFlag is the marker argument naming the wrapping tool.
const WrapFlag = "--wrap-rustc-with"

// SelfProfileMarker prefixes the line carrying self-profile JSON on
// the shim's standard output.
const SelfProfileMarker = "!self-profile-output:"

// selfProfileDir is where perf-stat-self-profile writes raw data,
// relative to the build directory.
const selfProfileDir = "self-profile-output"

// perfEvents are the counters recorded by perf-stat.
const perfEvents = "instructions:u,cycles:u,task-clock,cpu-clock,faults"

// A MissingToolError reports that an external tool needed by a
// wrapper mode is not installed. It is never retried.
type MissingToolError struct {
	Tool string
	Err  error
}

func (e *MissingToolError) Error() string {
	return fmt.Sprintf("%s is not available: %v", e.Tool, e.Err)
}

func (e *MissingToolError) Unwrap() error { return e.Err }

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// RequireTool returns a *MissingToolError if name cannot be found.
func RequireTool(name string) error {
	if _, err := lookPath(name); err != nil {
		return &MissingToolError{Tool: name, Err: err}
	}
	return nil
}

// A Shim runs one compiler invocation.
type Shim struct {
	Config *config.Shim
	// Dir is the directory the compiler runs in. If empty, the
	// current directory is used.
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run runs the real compiler with args, wrapped as requested by the
// marker argument if present. A non-zero compiler exit is returned
// as an *exec.ExitError.
func (s *Shim) Run(args []string) error {
	args, tool, wrapped, err := s.splitArgs(args)
	if err != nil {
		return err
	}
	if !wrapped {
		return s.run(exec.Command(s.Config.Real, args...))
	}
	switch tool {
	case profiler.PerfStat, profiler.PerfStatSelfProfile:
		return s.perfStat(tool, args)
	}
	cmd, err := s.command(tool, args)
	if err != nil {
		return err
	}
	return s.run(cmd)
}

// splitArgs appends the arguments every compilation gets and removes
// the wrap marker.
func (s *Shim) splitArgs(args []string) (rest []string, tool profiler.Tool, wrapped bool, err error) {
	rest = append([]string(nil), args...)
	if s.Config.ThreadCount > 0 {
		rest = append(rest, "-Zthreads="+strconv.Itoa(s.Config.ThreadCount))
	}
	rest = append(rest, "-Adeprecated")
	for i, a := range rest {
		if a != WrapFlag {
			continue
		}
		if i+1 >= len(rest) {
			return nil, 0, false, fmt.Errorf("%s requires a tool name", WrapFlag)
		}
		name := rest[i+1]
		t, ok := profiler.Lookup(name)
		if !ok {
			return nil, 0, false, &profiler.UnknownToolError{Name: name}
		}
		rest = append(rest[:i], rest[i+2:]...)
		return rest, t, true, nil
	}
	return rest, 0, false, nil
}

// command returns the command running the real compiler under tool,
// after checking that the tool is installed.
func (s *Shim) command(tool profiler.Tool, args []string) (*exec.Cmd, error) {
	rustc := s.Config.Real
	bin := s.Config.Binaries
	var name string
	var pre []string
	switch tool {
	case profiler.PerfStat, profiler.PerfStatSelfProfile:
		name, pre = bin.Perf, []string{"stat", "-x;", "-e", perfEvents, "--log-fd", "1"}
	case profiler.SelfProfile:
		return exec.Command(rustc, append(args, "-Zself-profile=Zsp")...), nil
	case profiler.TimePasses:
		return exec.Command(rustc, append(args, "-Ztime-passes")...), nil
	case profiler.PerfRecord:
		name, pre = bin.Perf, []string{"record", "--call-graph=dwarf", "--output=perf", "--freq=299", "--event=cycles:u,instructions:u"}
	case profiler.OProfile:
		name = bin.Operf
	case profiler.Cachegrind:
		name, pre = bin.Valgrind, []string{"--tool=cachegrind", "--cache-sim=no", "--branch-sim=no", "--cachegrind-out-file=cgout"}
	case profiler.Callgrind:
		name, pre = bin.Valgrind, []string{"--tool=callgrind", "--branch-sim=no", "--callgrind-out-file=clgout"}
	case profiler.DHAT:
		name, pre = bin.Valgrind, []string{"--tool=dhat", "--num-callers=4", "--dhat-out-file=dhout"}
	case profiler.Massif:
		name, pre = bin.Valgrind, []string{"--tool=massif", "--heap-admin=0", "--depth=15", "--threshold=0.2", "--massif-out-file=msout", "--alloc-fn=__rdl_alloc"}
	case profiler.Eprintln, profiler.LlvmLines:
		return exec.Command(rustc, args...), nil
	default:
		return nil, fmt.Errorf("unsupported wrapper mode %v", tool)
	}
	if err := RequireTool(name); err != nil {
		return nil, err
	}
	argv := append(append(pre, rustc), args...)
	return exec.Command(name, argv...), nil
}

func (s *Shim) run(cmd *exec.Cmd) error {
	cmd.Dir = s.Dir
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	return cmd.Run()
}

// perfStat runs the compiler under perf stat at raised priority and
// appends max-rss and wall-time lines in perf's CSV format.
func (s *Shim) perfStat(tool profiler.Tool, args []string) error {
	if tool == profiler.PerfStatSelfProfile {
		if err := RequireTool("summarize"); err != nil {
			return err
		}
		dir, err := s.absDir(selfProfileDir)
		if err != nil {
			return err
		}
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0777); err != nil {
			return err
		}
		args = append(args, "-Zself-profile="+dir)
	}
	cmd, err := s.command(tool, args)
	if err != nil {
		return err
	}

	raisePriority()
	start := time.Now()
	if err := s.run(cmd); err != nil {
		return err
	}
	wall := time.Since(start)
	rss, err := maxRSS()
	if err != nil {
		return fmt.Errorf("getrusage: %w", err)
	}
	if err := writeStatLines(s.Stdout, rss, wall); err != nil {
		return err
	}

	if tool == profiler.PerfStatSelfProfile {
		return s.summarizeSelfProfile(args)
	}
	return nil
}

// writeStatLines writes the max-rss and wall-time statistics in the
// format of "perf stat -x;".
func writeStatLines(w io.Writer, maxRSS int64, wall time.Duration) error {
	secs := int64(wall / time.Second)
	nanos := int64(wall % time.Second)
	_, err := fmt.Fprintf(w, "%d;;max-rss;3;100.00\n%d.%09d;;wall-time;4;100.00\n", maxRSS, secs, nanos)
	return err
}

func (s *Shim) absDir(name string) (string, error) {
	dir := s.Dir
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, name), nil
}
