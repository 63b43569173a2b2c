// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profiler

import (
	"errors"
	"testing"

	"github.com/compilerperf/perf/benchdata"
)

func TestFromName(t *testing.T) {
	for _, tool := range Tools() {
		have, err := FromName(tool.Name())
		if err != nil || have != tool {
			t.Errorf("FromName(%q) = %v, %v, want %v", tool.Name(), have, err, tool)
		}
	}

	if _, err := FromName("perf-stat"); !errors.Is(err, ErrPerfStatByName) {
		t.Errorf("FromName(perf-stat) error = %v, want %v", err, ErrPerfStatByName)
	}

	_, err := FromName("vtune")
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) || unknown.Name != "vtune" {
		t.Errorf("FromName(vtune) error = %v, want UnknownToolError", err)
	}
}

func TestSubcommand(t *testing.T) {
	for _, tool := range Tools() {
		want := "rustc"
		if tool == LlvmLines {
			want = "llvm-lines"
		}
		if have := tool.Subcommand(); have != want {
			t.Errorf("%v.Subcommand() = %q, want %q", tool, have, want)
		}
	}
}

func TestCheck(t *testing.T) {
	for _, test := range []struct {
		tool     Tool
		kind     benchdata.BuildKind
		scenario benchdata.Scenario
		ok       bool
	}{
		{Cachegrind, benchdata.Check, benchdata.IncrPatched, true},
		{LlvmLines, benchdata.Debug, benchdata.Full, true},
		{LlvmLines, benchdata.Check, benchdata.Full, false},
		{LlvmLines, benchdata.Opt, benchdata.IncrFull, false},
		{LlvmLines, benchdata.Opt, benchdata.IncrPatched, false},
	} {
		err := test.tool.Check(test.kind, test.scenario)
		if (err == nil) != test.ok {
			t.Errorf("%v.Check(%v, %v) = %v, want ok=%v", test.tool, test.kind, test.scenario, err, test.ok)
		}
		var na *NotAllowedError
		if err != nil && !errors.As(err, &na) {
			t.Errorf("%v.Check(%v, %v) returned %T, want *NotAllowedError", test.tool, test.kind, test.scenario, err)
		}
	}

	err := LlvmLines.Check(benchdata.Debug, benchdata.IncrPatched)
	if want := "profiler llvm-lines is not allowed for this run kind (IncrPatched)"; err == nil || err.Error() != want {
		t.Errorf("error = %v, want %q", err, want)
	}
}
