// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wrapper

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"testing"
	"time"

	"github.com/compilerperf/perf/config"
	"github.com/compilerperf/perf/profiler"
	"github.com/google/go-cmp/cmp"
)

func testShim() *Shim {
	return &Shim{Config: &config.Shim{
		Real:     "/rust/bin/rustc",
		Binaries: config.Binaries{Perf: "perf", Valgrind: "valgrind", Operf: "operf"},
	}}
}

func stubLookPath(t *testing.T, missing string) {
	old := lookPath
	lookPath = func(name string) (string, error) {
		if name == missing {
			return "", exec.ErrNotFound
		}
		return "/usr/bin/" + name, nil
	}
	t.Cleanup(func() { lookPath = old })
}

func TestSplitArgs(t *testing.T) {
	for _, test := range []struct {
		threads int
		args    []string
		want    []string
		tool    profiler.Tool
		wrapped bool
	}{
		{0, []string{"--crate-name", "foo"}, []string{"--crate-name", "foo", "-Adeprecated"}, 0, false},
		{4, []string{"lib.rs"}, []string{"lib.rs", "-Zthreads=4", "-Adeprecated"}, 0, false},
		{0, []string{"lib.rs", WrapFlag, "cachegrind", "-Cdebuginfo=2"}, []string{"lib.rs", "-Cdebuginfo=2", "-Adeprecated"}, profiler.Cachegrind, true},
		{0, []string{WrapFlag, "perf-stat"}, []string{"-Adeprecated"}, profiler.PerfStat, true},
	} {
		s := testShim()
		s.Config.ThreadCount = test.threads
		have, tool, wrapped, err := s.splitArgs(test.args)
		if err != nil {
			t.Errorf("splitArgs(%q): %v", test.args, err)
			continue
		}
		if d := cmp.Diff(test.want, have); d != "" {
			t.Errorf("splitArgs(%q) mismatch (-want +have):\n%s", test.args, d)
		}
		if tool != test.tool || wrapped != test.wrapped {
			t.Errorf("splitArgs(%q) tool = %v, %v, want %v, %v", test.args, tool, wrapped, test.tool, test.wrapped)
		}
	}

	var unknown *profiler.UnknownToolError
	if _, _, _, err := testShim().splitArgs([]string{WrapFlag, "vtune"}); !errors.As(err, &unknown) {
		t.Errorf("splitArgs with unknown tool: error = %v", err)
	}
	if _, _, _, err := testShim().splitArgs([]string{"x", WrapFlag}); err == nil {
		t.Errorf("splitArgs with no tool name succeeded")
	}
}

func TestCommand(t *testing.T) {
	stubLookPath(t, "")
	args := []string{"lib.rs"}
	for _, test := range []struct {
		tool profiler.Tool
		want []string
	}{
		{profiler.PerfStat, []string{"perf", "stat", "-x;", "-e", perfEvents, "--log-fd", "1", "/rust/bin/rustc", "lib.rs"}},
		{profiler.SelfProfile, []string{"/rust/bin/rustc", "lib.rs", "-Zself-profile=Zsp"}},
		{profiler.TimePasses, []string{"/rust/bin/rustc", "lib.rs", "-Ztime-passes"}},
		{profiler.OProfile, []string{"operf", "/rust/bin/rustc", "lib.rs"}},
		{profiler.Cachegrind, []string{"valgrind", "--tool=cachegrind", "--cache-sim=no", "--branch-sim=no", "--cachegrind-out-file=cgout", "/rust/bin/rustc", "lib.rs"}},
		{profiler.DHAT, []string{"valgrind", "--tool=dhat", "--num-callers=4", "--dhat-out-file=dhout", "/rust/bin/rustc", "lib.rs"}},
		{profiler.Eprintln, []string{"/rust/bin/rustc", "lib.rs"}},
		{profiler.LlvmLines, []string{"/rust/bin/rustc", "lib.rs"}},
	} {
		cmd, err := testShim().command(test.tool, args)
		if err != nil {
			t.Errorf("command(%v): %v", test.tool, err)
			continue
		}
		if d := cmp.Diff(test.want, cmd.Args); d != "" {
			t.Errorf("command(%v) mismatch (-want +have):\n%s", test.tool, d)
		}
	}
}

func TestCommandMissingTool(t *testing.T) {
	stubLookPath(t, "valgrind")
	_, err := testShim().command(profiler.Massif, nil)
	var missing *MissingToolError
	if !errors.As(err, &missing) || missing.Tool != "valgrind" {
		t.Fatalf("command(massif) error = %v, want MissingToolError for valgrind", err)
	}
	if _, err := testShim().command(profiler.TimePasses, nil); err != nil {
		t.Errorf("command(time-passes) needs no external tool, got %v", err)
	}
}

func TestWriteStatLines(t *testing.T) {
	var buf bytes.Buffer
	if err := writeStatLines(&buf, 123456, 2*time.Second+42*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	want := "123456;;max-rss;3;100.00\n2.042000000;;wall-time;4;100.00\n"
	if have := buf.String(); have != want {
		t.Errorf("writeStatLines = %q, want %q", have, want)
	}
}

func TestFindProfilePrefix(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"foo-1234.events", "foo-1234.string_data", "foo-1234.string_index", "bar-99.mm_profdata"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0666); err != nil {
			t.Fatal(err)
		}
	}
	have, err := findProfilePrefix(dir, "foo")
	if err != nil {
		t.Fatal(err)
	}
	if have != "foo-1234" {
		t.Errorf("findProfilePrefix = %q, want foo-1234", have)
	}

	if err := os.WriteFile(filepath.Join(dir, "foo-5678.mm_profdata"), nil, 0666); err != nil {
		t.Fatal(err)
	}
	if p, err := findProfilePrefix(dir, "foo"); err == nil {
		t.Errorf("findProfilePrefix with two profiles = %q, want error", p)
	}
	if p, err := findProfilePrefix(dir, ""); err == nil {
		t.Errorf("findProfilePrefix without crate name = %q, want error", p)
	}
}

func writeScript(t *testing.T, name, body string) string {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0777); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunUnwrapped(t *testing.T) {
	s := testShim()
	s.Config.Real = writeScript(t, "rustc", `echo "$@"`+"\n")
	var out bytes.Buffer
	s.Stdout = &out
	if err := s.Run([]string{"--crate-name", "foo"}); err != nil {
		t.Fatal(err)
	}
	if have, want := out.String(), "--crate-name foo -Adeprecated\n"; have != want {
		t.Errorf("output = %q, want %q", have, want)
	}
}

func TestRunPerfStat(t *testing.T) {
	stubLookPath(t, "")
	s := testShim()
	s.Config.Real = "rustc"
	// The fake perf prints one counter line and ignores the compiler.
	s.Config.Perf = writeScript(t, "perf", `echo "1000;;instructions:u;500;100.00"`+"\n")
	var out bytes.Buffer
	s.Stdout = &out
	if err := s.Run([]string{WrapFlag, "perf-stat"}); err != nil {
		t.Fatal(err)
	}
	re := regexp.MustCompile(`^1000;;instructions:u;500;100\.00\n\d+;;max-rss;3;100\.00\n\d+\.\d{9};;wall-time;4;100\.00\n$`)
	if !re.MatchString(out.String()) {
		t.Errorf("output = %q, want match for %s", out.String(), re)
	}
}

func TestRunFailure(t *testing.T) {
	s := testShim()
	s.Config.Real = writeScript(t, "rustc", "exit 3\n")
	err := s.Run(nil)
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
		t.Errorf("Run error = %v, want exit status 3", err)
	}
}
