// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchdata defines the data model shared by the collector,
// the storage layer and the series interpolator: build kinds,
// scenarios, statistics, runs and per-commit results.
package benchdata

import (
	"fmt"
	"strings"
)

// A BenchmarkName identifies a benchmark case. Names compare and
// order by their underlying string.
type BenchmarkName string

// A BuildKind selects the cargo profile a benchmark is built with.
type BuildKind int

const (
	Check BuildKind = iota
	Debug
	Opt
)

// BuildKinds lists every build kind in canonical order.
var BuildKinds = []BuildKind{Check, Debug, Opt}

func (k BuildKind) String() string {
	switch k {
	case Check:
		return "Check"
	case Debug:
		return "Debug"
	case Opt:
		return "Opt"
	}
	return fmt.Sprintf("BuildKind(%d)", int(k))
}

// Profile returns the name under which results for k are stored.
func (k BuildKind) Profile() string {
	return strings.ToLower(k.String())
}

// ParseProfile is the inverse of BuildKind.Profile.
func ParseProfile(s string) (BuildKind, error) {
	for _, k := range BuildKinds {
		if k.Profile() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown profile %q", s)
}

// ParseBuildKinds parses a comma-separated list of build kinds.
// "All" selects every kind. The result is de-duplicated and in
// canonical order.
func ParseBuildKinds(list string) ([]BuildKind, error) {
	var seen [3]bool
	for _, f := range strings.Split(list, ",") {
		switch strings.TrimSpace(f) {
		case "All":
			seen = [3]bool{true, true, true}
		case "Check":
			seen[Check] = true
		case "Debug":
			seen[Debug] = true
		case "Opt":
			seen[Opt] = true
		default:
			return nil, fmt.Errorf("unknown build kind %q", f)
		}
	}
	var kinds []BuildKind
	for _, k := range BuildKinds {
		if seen[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// A Scenario determines whether incremental compilation state is
// reused and whether a source patch is applied before building.
type Scenario int

const (
	// Full is a non-incremental build from scratch.
	Full Scenario = iota
	// IncrFull is an incremental build with an empty cache.
	IncrFull
	// IncrUnchanged rebuilds with the cache left by IncrFull.
	IncrUnchanged
	// IncrPatched rebuilds after applying a source patch.
	IncrPatched
)

// Scenarios lists every scenario in execution order.
var Scenarios = []Scenario{Full, IncrFull, IncrUnchanged, IncrPatched}

func (s Scenario) String() string {
	switch s {
	case Full:
		return "Full"
	case IncrFull:
		return "IncrFull"
	case IncrUnchanged:
		return "IncrUnchanged"
	case IncrPatched:
		return "IncrPatched"
	}
	return fmt.Sprintf("Scenario(%d)", int(s))
}

// Incremental reports whether s builds with incremental compilation.
func (s Scenario) Incremental() bool {
	return s != Full
}

// ParseScenarios parses a comma-separated list of scenarios. Both the
// scenario names and the older run kind names (Clean, BaseIncr,
// CleanIncr, PatchedIncrs) are accepted, as is "All".
func ParseScenarios(list string) ([]Scenario, error) {
	var seen [4]bool
	for _, f := range strings.Split(list, ",") {
		switch strings.TrimSpace(f) {
		case "All":
			seen = [4]bool{true, true, true, true}
		case "Full", "Clean":
			seen[Full] = true
		case "IncrFull", "BaseIncr":
			seen[IncrFull] = true
		case "IncrUnchanged", "CleanIncr":
			seen[IncrUnchanged] = true
		case "IncrPatched", "PatchedIncrs":
			seen[IncrPatched] = true
		default:
			return nil, fmt.Errorf("unknown scenario %q", f)
		}
	}
	var scenarios []Scenario
	for _, s := range Scenarios {
		if seen[s] {
			scenarios = append(scenarios, s)
		}
	}
	return scenarios, nil
}

// A State is a scenario together with the patch it applies, if any.
// States are comparable; use Erase before comparing states captured
// from different patch directories.
type State struct {
	Scenario Scenario
	Patch    Patch // only for IncrPatched
}

// Patched returns the IncrPatched state for p.
func Patched(p Patch) State {
	return State{Scenario: IncrPatched, Patch: p}
}

// Erase returns s with the patch ordering index and path cleared, so
// that only the patch name takes part in comparisons.
func (s State) Erase() State {
	if s.Scenario != IncrPatched {
		return State{Scenario: s.Scenario}
	}
	return State{Scenario: IncrPatched, Patch: s.Patch.Erase()}
}

// ID returns the stable storage identifier of s, such as "full" or
// "incr-patched: println".
func (s State) ID() string {
	switch s.Scenario {
	case Full:
		return "full"
	case IncrFull:
		return "incr-full"
	case IncrUnchanged:
		return "incr-unchanged"
	case IncrPatched:
		return "incr-patched: " + s.Patch.Name
	}
	return s.Scenario.String()
}

func (s State) String() string {
	return s.ID()
}

// ParseState is the inverse of State.ID. The returned patch carries
// only a name.
func ParseState(id string) (State, error) {
	switch id {
	case "full":
		return State{Scenario: Full}, nil
	case "incr-full":
		return State{Scenario: IncrFull}, nil
	case "incr-unchanged":
		return State{Scenario: IncrUnchanged}, nil
	}
	if name := strings.TrimPrefix(id, "incr-patched: "); name != id && name != "" {
		return Patched(Patch{Name: name}), nil
	}
	return State{}, fmt.Errorf("unknown scenario %q", id)
}
