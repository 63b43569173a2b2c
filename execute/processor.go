// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package execute

import (
	"github.com/compilerperf/perf/benchdata"
	"github.com/compilerperf/perf/profiler"
)

// Retry is a processor's verdict on one build.
type Retry int

const (
	// RetryNo accepts the build.
	RetryNo Retry = iota
	// RetryYes repeats the build in the same directory.
	RetryYes
)

// OutputData describes the build whose output is being processed.
type OutputData struct {
	Name      benchdata.BenchmarkName
	Cwd       string
	BuildKind benchdata.BuildKind
	State     benchdata.State
	// Label names the scenario in file names, such as "Full" or
	// "IncrPatched0".
	Label string
}

type processorKind int

const (
	measureKind processorKind = iota
	profileKind
)

// A Processor consumes the output of instrumented builds. It is
// either a measurement processor, which aggregates statistics into
// Runs, or a profile processor, which saves profiler artifacts.
// A Processor is owned by one benchmark measurement at a time.
type Processor struct {
	kind    processorKind
	measure *MeasureProcessor
	profile *ProfileProcessor
}

// Tool returns the tool the next build should run under.
func (p *Processor) Tool() profiler.Tool {
	switch p.kind {
	case measureKind:
		return p.measure.tool()
	case profileKind:
		return p.profile.tool
	}
	panic("unreachable")
}

// ProcessOutput handles the output of one build.
func (p *Processor) ProcessOutput(data *OutputData, out *Output) (Retry, error) {
	switch p.kind {
	case measureKind:
		return p.measure.processOutput(data, out)
	case profileKind:
		return RetryNo, p.profile.processOutput(data, out)
	}
	panic("unreachable")
}

// StartFirstCollection is called before the first iteration of a
// build kind.
func (p *Processor) StartFirstCollection() {
	if p.kind == measureKind {
		p.measure.firstCollection = true
	}
}

// FinishedFirstCollection is called after the first iteration. It
// reports whether the processor needs a second iteration even if
// only one was requested.
func (p *Processor) FinishedFirstCollection() bool {
	if p.kind == measureKind {
		return p.measure.finishedFirstCollection()
	}
	return false
}

// FinishBuildKind returns the Runs accumulated for build kind k and
// resets the processor for the next build kind.
func (p *Processor) FinishBuildKind(k benchdata.BuildKind) []*benchdata.Run {
	if p.kind == measureKind {
		return p.measure.finishBuildKind(k)
	}
	return nil
}
