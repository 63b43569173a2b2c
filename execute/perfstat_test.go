// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package execute

import (
	"errors"
	"testing"

	"github.com/compilerperf/perf/benchdata"
)

const perfOutput = `   Compiling foo v0.1.0
123456789;;instructions:u;1000000;100.00;1.25;insn per cycle
98765432;;cycles:u;1000000;100.00;0.080;GHz
1234.5;msec;task-clock;1234500;100.00
<not supported>;;cpu-clock;0;100.00
;;faults;0;100.00
52332;;max-rss;3;100.00
1.234567890;;wall-time;4;100.00
`

func TestParsePerfStat(t *testing.T) {
	stats, profile, err := ParsePerfStat([]byte(perfOutput), 100)
	if err != nil {
		t.Fatal(err)
	}
	if profile != nil {
		t.Errorf("profile = %+v, want nil", profile)
	}
	want := benchdata.NewStats(
		benchdata.StatPair{Name: "instructions:u", Value: 123456789},
		benchdata.StatPair{Name: "cycles:u", Value: 98765432},
		benchdata.StatPair{Name: "task-clock", Value: 1234.5},
		benchdata.StatPair{Name: "max-rss", Value: 52332},
		benchdata.StatPair{Name: "wall-time", Value: 1.23456789},
	)
	if !stats.Equal(want) {
		t.Errorf("stats = %v, want %v", stats.Pairs(), want.Pairs())
	}
}

func TestParsePerfStatErrors(t *testing.T) {
	for _, test := range []struct {
		name   string
		output string
		check  func(error) bool
	}{
		{"inactive", "100;;instructions:u;10;87.50\n", func(err error) bool {
			var e *InactiveCounterError
			return errors.As(err, &e) && e.Name == "instructions:u"
		}},
		{"inactive with metric", "5003425;;instructions:u;2036447;50.00;1.15;insn per cycle\n", func(err error) bool {
			var e *InactiveCounterError
			return errors.As(err, &e) && e.Name == "instructions:u"
		}},
		{"empty", "", func(err error) bool {
			var e *NoOutputError
			return errors.As(err, &e)
		}},
		{"no stats", "error: could not compile\n<not supported>;;cycles:u;0;100.00\n", func(err error) bool {
			var e *NoOutputError
			return errors.As(err, &e)
		}},
		{"bad number", "12x;;instructions:u;10;100.00\n", func(err error) bool {
			var e *ParseError
			return errors.As(err, &e)
		}},
		{"bad self-profile", "1;;wall-time;4;100.00\n!self-profile-output:{\n", func(err error) bool {
			var e *ParseError
			return errors.As(err, &e)
		}},
	} {
		t.Run(test.name, func(t *testing.T) {
			stats, _, err := ParsePerfStat([]byte(test.output), 100)
			if !test.check(err) {
				t.Errorf("error = %v (%T)", err, err)
			}
			if stats != nil {
				t.Errorf("stats = %v, want nil", stats.Pairs())
			}
		})
	}
}

func TestParsePerfStatErrorClass(t *testing.T) {
	_, _, err := ParsePerfStat(nil, 100)
	if IsFatal(err) {
		t.Errorf("IsFatal(%v) = true for missing output", err)
	}
	_, _, err = ParsePerfStat([]byte("1;;cycles:u;1;99.99\n"), 100)
	if !IsFatal(err) {
		t.Errorf("IsFatal(%v) = false for inactive counter", err)
	}
}

func TestParsePerfStatTolerance(t *testing.T) {
	out := []byte("100;;instructions:u;10;97.50\n200;;cycles:u;10;100.00\n")
	stats, _, err := ParsePerfStat(out, 95)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Len() != 2 {
		t.Errorf("stats = %v, want 2 entries", stats.Pairs())
	}
	if _, _, err := ParsePerfStat(out, 99); err == nil {
		t.Errorf("counter at 97.50%% accepted with minimum 99%%")
	}
}

func TestParsePerfStatSelfProfile(t *testing.T) {
	out := "10;;wall-time;4;100.00\n" +
		`!self-profile-output:{"query_data":[{"label":"typeck","self_time":{"secs":1,"nanos":0},"number_of_cache_hits":0,"invocation_count":2,"blocked_time":{"secs":0,"nanos":0},"incremental_load_time":{"secs":0,"nanos":0}}],"artifact_sizes":[{"label":"object_file","value":4096}]}` + "\n"
	stats, profile, err := ParsePerfStat([]byte(out), 100)
	if err != nil {
		t.Fatal(err)
	}
	if profile == nil || len(profile.QueryData) != 1 || profile.QueryData[0].Label != "typeck" {
		t.Fatalf("profile = %+v", profile)
	}
	addArtifactSizes(stats, profile)
	if v, ok := stats.Get("size:object_file"); !ok || v != 4096 {
		t.Errorf("size:object_file = %v, %v", v, ok)
	}
}
