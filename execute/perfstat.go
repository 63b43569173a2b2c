// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package execute

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/compilerperf/perf/benchdata"
	"github.com/compilerperf/perf/wrapper"
)

// A NoOutputError reports build output containing no statistics.
// The build is retried, since this is usually transient.
type NoOutputError struct {
	Output []byte
}

func (e *NoOutputError) Error() string {
	return "no statistics in perf output"
}

// A ParseError reports a malformed statistic. It is never retried.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing perf output line %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// An InactiveCounterError reports a hardware counter that was not
// running for the whole process lifetime, so its value is scaled from
// a sample. It is never retried.
type InactiveCounterError struct {
	Name    string
	Percent string
}

func (e *InactiveCounterError) Error() string {
	return fmt.Sprintf("counter %s was only active for %s%% of the run", e.Name, e.Percent)
}

// ErrTooManyTries is wrapped by the error returned when a build
// repeatedly produced no statistics.
var ErrTooManyTries = errors.New("too many attempts")

// ParsePerfStat parses the output of a build run under the perf-stat
// wrapper modes. Statistic lines have the form
//
//	value;unit;name;runtime;percent[;metric;metric-unit]
//
// where fields after the fifth are ignored. A line starting with
// wrapper.SelfProfileMarker carries the self-profile summary as JSON.
// A counter whose percent is below minActive is rejected; with
// minActive of 100 the percent must read "100.x" exactly.
func ParsePerfStat(out []byte, minActive float64) (*benchdata.Stats, *benchdata.SelfProfile, error) {
	stats := new(benchdata.Stats)
	var profile *benchdata.SelfProfile
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(nil, 64<<20)
	for sc.Scan() {
		line := sc.Text()
		if data, ok := strings.CutPrefix(line, wrapper.SelfProfileMarker); ok {
			p, err := benchdata.ParseSummarize([]byte(data))
			if err != nil {
				return nil, nil, &ParseError{Line: wrapper.SelfProfileMarker + "...", Err: err}
			}
			profile = p
			continue
		}
		f := strings.Split(line, ";")
		if len(f) < 5 {
			if Verbose {
				logf("unhandled line: %s", line)
			}
			continue
		}
		value, name, pct := strings.TrimSpace(f[0]), f[2], strings.TrimSpace(f[4])
		if value == "<not supported>" || value == "" {
			continue
		}
		if err := checkActive(name, pct, minActive); err != nil {
			return nil, nil, err
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, nil, &ParseError{Line: line, Err: err}
		}
		stats.Set(name, v)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	if stats.IsEmpty() {
		return nil, nil, &NoOutputError{Output: out}
	}
	return stats, profile, nil
}

func checkActive(name, pct string, minActive float64) error {
	if minActive >= 100 {
		if !strings.HasPrefix(pct, "100.") {
			return &InactiveCounterError{Name: name, Percent: pct}
		}
		return nil
	}
	p, err := strconv.ParseFloat(pct, 64)
	if err != nil {
		return &ParseError{Line: pct, Err: err}
	}
	if p < minActive {
		return &InactiveCounterError{Name: name, Percent: pct}
	}
	return nil
}

// addArtifactSizes records the artifact sizes in p as "size:<label>"
// statistics.
func addArtifactSizes(stats *benchdata.Stats, p *benchdata.SelfProfile) {
	if p == nil {
		return
	}
	for _, a := range p.ArtifactSizes {
		stats.Set("size:"+a.Label, float64(a.Value))
	}
}
