// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package execute

import (
	"fmt"
	"os"

	"github.com/compilerperf/perf/benchdata"
)

// Measure builds b for every build kind in kinds and every scenario
// in scenarios, passing the output of each build to p, and returns
// the Runs p collected.
//
// Each build kind is built once to warm its dependencies, then
// measured for iterations iterations, capped by the benchmark's
// configured runs. At least two iterations run if p asks for a
// second one after the first. The incremental scenarios all depend
// on the cache left by IncrFull, which is therefore always built when
// any of them is requested; its output is only processed if IncrFull
// itself was requested.
func (b *Benchmark) Measure(env *Env, p *Processor, c Compiler, kinds []benchdata.BuildKind, scenarios []benchdata.Scenario, iterations int) ([]*benchdata.Run, error) {
	if b.Config.Disabled {
		return nil, ErrDisabled
	}
	if iterations > b.Config.Runs {
		iterations = b.Config.Runs
	}
	if iterations < 1 {
		iterations = 1
	}
	var want [4]bool
	for _, s := range scenarios {
		want[s] = true
	}

	var runs []*benchdata.Run
	for _, kind := range kinds {
		logf("Running %s: %v + %v", b.Name, kind, scenarios)
		r, err := b.measureKind(env, p, c, kind, want, iterations)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r...)
	}
	return runs, nil
}

func (b *Benchmark) measureKind(env *Env, p *Processor, c Compiler, kind benchdata.BuildKind, want [4]bool, iterations int) ([]*benchdata.Run, error) {
	prep, err := b.makeTempDir(b.Path)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(prep)

	// Build once so dependencies are not rebuilt by every iteration.
	if err := b.cargo(env, c, prep, kind).run(); err != nil {
		return nil, err
	}

	p.StartFirstCollection()
	n := iterations
	if n < 2 {
		n = 2
	}
	for i := 0; i < n; i++ {
		if i == 1 {
			again := p.FinishedFirstCollection()
			if iterations == 1 && !again {
				break
			}
		}
		if Verbose {
			logf("%s %v: iteration %d", b.Name, kind, i+1)
		}
		if err := b.iteration(env, p, c, prep, kind, want); err != nil {
			return nil, err
		}
	}
	return p.FinishBuildKind(kind), nil
}

// iteration runs every requested scenario once in a fresh copy of
// the prepared directory prep.
func (b *Benchmark) iteration(env *Env, p *Processor, c Compiler, prep string, kind benchdata.BuildKind, want [4]bool) error {
	dir, err := b.makeTempDir(prep)
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	base := b.cargo(env, c, dir, kind)

	if want[benchdata.Full] {
		if err := base.scenario(benchdata.State{Scenario: benchdata.Full}, "Full", p).run(); err != nil {
			return err
		}
	}
	if !want[benchdata.IncrFull] && !want[benchdata.IncrUnchanged] && !want[benchdata.IncrPatched] {
		return nil
	}

	proc := p
	if !want[benchdata.IncrFull] {
		proc = nil
	}
	if err := base.scenario(benchdata.State{Scenario: benchdata.IncrFull}, "IncrFull", proc).run(); err != nil {
		return err
	}
	if want[benchdata.IncrUnchanged] {
		if err := base.scenario(benchdata.State{Scenario: benchdata.IncrUnchanged}, "IncrUnchanged", p).run(); err != nil {
			return err
		}
	}
	if want[benchdata.IncrPatched] {
		for i, patch := range b.Patches {
			// Check before patching so an illegal request fails
			// without touching the build directory.
			if err := p.Tool().Check(kind, benchdata.IncrPatched); err != nil {
				return err
			}
			if err := applyPatch(dir, patch); err != nil {
				return err
			}
			label := fmt.Sprintf("IncrPatched%d", i)
			if err := base.scenario(benchdata.Patched(patch), label, p).run(); err != nil {
				return err
			}
		}
	}
	return nil
}
