// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package profiler enumerates the instrumentation tools the collector
// can wrap compiler invocations with, and which builds each may be
// used for.
package profiler

import (
	"errors"
	"fmt"

	"github.com/compilerperf/perf/benchdata"
)

// A Tool is an instrumentation mode understood by the compiler shim.
type Tool int

const (
	PerfStat Tool = iota
	PerfStatSelfProfile
	SelfProfile
	TimePasses
	PerfRecord
	OProfile
	Cachegrind
	Callgrind
	DHAT
	Massif
	Eprintln
	LlvmLines
)

var names = [...]string{
	PerfStat:            "perf-stat",
	PerfStatSelfProfile: "perf-stat-self-profile",
	SelfProfile:         "self-profile",
	TimePasses:          "time-passes",
	PerfRecord:          "perf-record",
	OProfile:            "oprofile",
	Cachegrind:          "cachegrind",
	Callgrind:           "callgrind",
	DHAT:                "dhat",
	Massif:              "massif",
	Eprintln:            "eprintln",
	LlvmLines:           "llvm-lines",
}

// ErrPerfStatByName is returned by FromName for "perf-stat", which is
// only used by the measurement path and cannot be requested directly.
var ErrPerfStatByName = errors.New("perf-stat cannot be requested by name; it is the default measurement tool")

// An UnknownToolError reports a tool name that names no Tool.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown profiler %q", e.Name)
}

// A NotAllowedError reports a tool requested for a build kind or
// scenario it cannot instrument.
type NotAllowedError struct {
	Tool      Tool
	BuildKind benchdata.BuildKind
	Scenario  benchdata.Scenario
	// ForScenario is set when the scenario, not the build kind,
	// is the problem.
	ForScenario bool
}

func (e *NotAllowedError) Error() string {
	if e.ForScenario {
		return fmt.Sprintf("profiler %s is not allowed for this run kind (%s)", e.Tool, e.Scenario)
	}
	return fmt.Sprintf("profiler %s is not allowed for this build kind (%s)", e.Tool, e.BuildKind)
}

// FromName returns the profiling Tool named name.
func FromName(name string) (Tool, error) {
	if name == names[PerfStat] {
		return 0, ErrPerfStatByName
	}
	if t, ok := Lookup(name); ok {
		return t, nil
	}
	return 0, &UnknownToolError{name}
}

// Lookup returns the Tool named name, including perf-stat.
func Lookup(name string) (Tool, bool) {
	for t, n := range names {
		if n == name {
			return Tool(t), true
		}
	}
	return 0, false
}

// Name returns the name of t as passed to the compiler shim.
func (t Tool) Name() string {
	if t < 0 || int(t) >= len(names) {
		return fmt.Sprintf("Tool(%d)", int(t))
	}
	return names[t]
}

func (t Tool) String() string {
	return t.Name()
}

// Subcommand returns the cargo subcommand used to build under t.
func (t Tool) Subcommand() string {
	if t == LlvmLines {
		return "llvm-lines"
	}
	return "rustc"
}

// IsStat reports whether t produces counter statistics rather than
// raw profile artifacts.
func (t Tool) IsStat() bool {
	return t == PerfStat || t == PerfStatSelfProfile
}

// BuildKindAllowed reports whether t may instrument builds of kind k.
// llvm-lines needs codegen and cannot run on Check builds.
func (t Tool) BuildKindAllowed(k benchdata.BuildKind) bool {
	return !(t == LlvmLines && k == benchdata.Check)
}

// ScenarioAllowed reports whether t may instrument scenario s.
func (t Tool) ScenarioAllowed(s benchdata.Scenario) bool {
	return t != LlvmLines || s == benchdata.Full
}

// Check returns a *NotAllowedError if t may not instrument a build of
// kind k in scenario s.
func (t Tool) Check(k benchdata.BuildKind, s benchdata.Scenario) error {
	if !t.BuildKindAllowed(k) {
		return &NotAllowedError{Tool: t, BuildKind: k, Scenario: s}
	}
	if !t.ScenarioAllowed(s) {
		return &NotAllowedError{Tool: t, BuildKind: k, Scenario: s, ForScenario: true}
	}
	return nil
}

// Tools lists every tool that can be requested by name.
func Tools() []Tool {
	var ts []Tool
	for t := PerfStatSelfProfile; t <= LlvmLines; t++ {
		ts = append(ts, t)
	}
	return ts
}
