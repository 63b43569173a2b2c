// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package execute

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/compilerperf/perf/profiler"
	"github.com/dustin/go-humanize"
	"github.com/otiai10/copy"
)

// A ProfileProcessor saves the artifacts of a profiler into an output
// directory, post-processing them where the profiler needs it.
type ProfileProcessor struct {
	tool   profiler.Tool
	outDir string
	id     string
}

// postTools lists the post-processing commands each tool needs.
var postTools = map[profiler.Tool][]string{
	profiler.SelfProfile: {"summarize", "flamegraph", "crox"},
	profiler.OProfile:    {"opreport", "opannotate"},
	profiler.Cachegrind:  {"cg_annotate"},
	profiler.Callgrind:   {"callgrind_annotate"},
}

// NewProfileProcessor returns a Processor that runs builds under tool
// and saves the results in outDir, with id in every file name. It
// fails if a post-processing command for tool is not installed.
func NewProfileProcessor(tool profiler.Tool, outDir, id string) (*Processor, error) {
	if tool.IsStat() {
		return nil, fmt.Errorf("%v is a measurement tool, not a profiler", tool)
	}
	for _, name := range postTools[tool] {
		if err := requireTool(name); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(outDir, 0777); err != nil {
		return nil, err
	}
	return &Processor{kind: profileKind, profile: &ProfileProcessor{tool: tool, outDir: outDir, id: id}}, nil
}

// outFile returns the path of an output file for the build described
// by data.
func (p *ProfileProcessor) outFile(prefix string, data *OutputData) string {
	name := fmt.Sprintf("%s-%s-%s-%v-%s", prefix, p.id, data.Name, data.BuildKind, data.Label)
	return filepath.Join(p.outDir, name)
}

func (p *ProfileProcessor) processOutput(data *OutputData, out *Output) error {
	cwd := func(name string) string { return filepath.Join(data.Cwd, name) }
	switch p.tool {
	case profiler.SelfProfile:
		return p.selfProfile(data)

	case profiler.TimePasses:
		return writeFile(p.outFile("Ztp", data), out.Stdout)

	case profiler.PerfRecord:
		return copyFile(cwd("perf"), p.outFile("perf", data))

	case profiler.OProfile:
		session := p.outFile("opout", data)
		if err := move(cwd("oprofile_data"), session); err != nil {
			return err
		}
		if err := p.annotate(p.outFile("oprep", data), "opreport", "--symbols", "--debug-info", "--threshold", "0.5", "--session-dir="+session); err != nil {
			return err
		}
		return p.annotate(p.outFile("opann", data), "opannotate", "--source", "--threshold", "0.5", "--session-dir="+session)

	case profiler.Cachegrind:
		raw := p.outFile("cgout", data)
		if err := copyFile(cwd("cgout"), raw); err != nil {
			return err
		}
		return p.annotate(p.outFile("cgann", data), "cg_annotate", "--auto=yes", "--show-percs=yes", raw)

	case profiler.Callgrind:
		raw := p.outFile("clgout", data)
		if err := copyFile(cwd("clgout"), raw); err != nil {
			return err
		}
		return p.annotate(p.outFile("clgann", data), "callgrind_annotate", "--auto=yes", "--show-percs=yes", raw)

	case profiler.DHAT:
		return copyFile(cwd("dhout"), p.outFile("dhout", data))

	case profiler.Massif:
		return copyFile(cwd("msout"), p.outFile("msout", data))

	case profiler.Eprintln:
		return writeFile(p.outFile("eprintln", data), out.Stderr)

	case profiler.LlvmLines:
		return writeFile(p.outFile("ll", data), out.Stdout)
	}
	return fmt.Errorf("unexpected profiler %v", p.tool)
}

// selfProfile moves the raw self-profile into the output directory
// and renders its summary, flamegraph and chrome trace.
func (p *ProfileProcessor) selfProfile(data *OutputData) error {
	dir := p.outFile("Zsp", data)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}
	src := filepath.Join(data.Cwd, "Zsp")
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	// Older compilers write three files; newer ones write a single
	// .mm_profdata file.
	want := map[string]bool{".events": true, ".string_data": true, ".string_index": true}
	if len(entries) == 1 {
		want = map[string]bool{".mm_profdata": true}
	}
	if len(entries) != len(want) {
		return fmt.Errorf("self-profile %s: found %d files, want 1 or 3", src, len(entries))
	}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !want[ext] {
			return fmt.Errorf("self-profile %s: unexpected file %s", src, e.Name())
		}
		if err := move(filepath.Join(src, e.Name()), filepath.Join(dir, "Zsp"+ext)); err != nil {
			return err
		}
	}
	prefix := filepath.Join(dir, "Zsp")

	if err := p.annotate(p.outFile("summarize", data), "summarize", "summarize", prefix); err != nil {
		return err
	}
	if err := p.render(dir, "rustc.svg", p.outFile("flamegraph", data)+".svg", "flamegraph", prefix); err != nil {
		return err
	}
	return p.render(dir, "chrome_profiler.json", p.outFile("crox", data)+".json", "crox", prefix)
}

// annotate runs a post-processing command and saves its output.
func (p *ProfileProcessor) annotate(dst, name string, args ...string) error {
	out, err := runCommand(exec.Command(name, args...))
	if err != nil {
		return err
	}
	return writeFile(dst, out.Stdout)
}

// render runs a command in dir that writes the file result, then
// moves result to dst.
func (p *ProfileProcessor) render(dir, result, dst, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if _, err := runCommand(cmd); err != nil {
		return err
	}
	return move(filepath.Join(dir, result), dst)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0666); err != nil {
		return err
	}
	logSaved(path, int64(len(data)))
	return nil
}

func copyFile(src, dst string) error {
	if err := copy.Copy(src, dst); err != nil {
		return err
	}
	if fi, err := os.Stat(dst); err == nil {
		logSaved(dst, fi.Size())
	}
	return nil
}

// move renames src to dst, copying if they are on different file
// systems.
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copy.Copy(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

func logSaved(path string, size int64) {
	if Verbose {
		logf("saved %s (%s)", strings.TrimPrefix(path, "./"), humanize.Bytes(uint64(size)))
	}
}
