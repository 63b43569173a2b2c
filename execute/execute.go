// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package execute builds benchmarks with cargo under an
// instrumentation tool and turns the tool output into statistics or
// profile artifacts.
//
// Every build of a benchmark runs in a private temporary copy of its
// sources. A Benchmark is measured by building it for each requested
// build kind and scenario, for several iterations, passing the output
// of each build to a Processor.
package execute

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/compilerperf/perf/config"
	"github.com/compilerperf/perf/profiler"
	"github.com/compilerperf/perf/wrapper"
)

// Verbose enables logging of every command run.
var Verbose = false

// A Compiler is a toolchain to benchmark.
type Compiler struct {
	Rustc     string
	Cargo     string
	Triple    string
	IsNightly bool
}

// An Env holds what every build needs besides the compiler.
type Env struct {
	Config *config.Config
	// Shim is the path of the rustc-shim binary cargo runs in
	// place of the compiler.
	Shim string
}

// A CommandError reports a command that exited unsuccessfully.
type CommandError struct {
	Args   []string
	Err    error
	Stdout []byte
	Stderr []byte
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v\nstdout:\n%s\nstderr:\n%s", strings.Join(e.Args, " "), e.Err, e.Stdout, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// An Output is what a command wrote.
type Output struct {
	Stdout []byte
	Stderr []byte
}

// commandRunner is replaced in tests.
var commandRunner = func(cmd *exec.Cmd) (*Output, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if Verbose {
		logf("running %s", strings.Join(cmd.Args, " "))
	}
	if err := cmd.Run(); err != nil {
		return nil, &CommandError{Args: cmd.Args, Err: err, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	}
	return &Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
}

// runCommand runs cmd, capturing its output.
func runCommand(cmd *exec.Cmd) (*Output, error) {
	return commandRunner(cmd)
}

// IsFatal reports whether err means the whole collection must stop,
// rather than only the benchmark it occurred in. Missing tools,
// illegal tool requests and untrustworthy measurements are fatal.
func IsFatal(err error) bool {
	var (
		missing    *wrapper.MissingToolError
		notAllowed *profiler.NotAllowedError
		unknown    *profiler.UnknownToolError
		parse      *ParseError
		inactive   *InactiveCounterError
	)
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrTooManyTries),
		errors.Is(err, profiler.ErrPerfStatByName),
		errors.As(err, &missing),
		errors.As(err, &notAllowed),
		errors.As(err, &unknown),
		errors.As(err, &parse),
		errors.As(err, &inactive):
		return true
	}
	return false
}

// requireTool is replaced in tests.
var requireTool = wrapper.RequireTool
