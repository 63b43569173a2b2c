// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"context"
	"sync"

	"github.com/compilerperf/perf/benchdata"
)

// A Loader loads a commit history.
type Loader interface {
	LoadCommits(ctx context.Context) ([]*benchdata.CommitData, error)
}

// A Dataset holds a commit history and its overlay. It is safe for
// concurrent use: readers see either the old or the new history while
// Reload runs, never a mix.
type Dataset struct {
	opts Options

	mu      sync.RWMutex
	commits []*benchdata.CommitData
	overlay *Overlay
}

// NewDataset returns an empty Dataset that interpolates with opts.
func NewDataset(opts Options) *Dataset {
	return &Dataset{opts: opts, overlay: &Overlay{Interpolations: make(map[string][]Interpolation)}}
}

// Reload replaces the history of d with the one l loads.
func (d *Dataset) Reload(ctx context.Context, l Loader) error {
	commits, err := l.LoadCommits(ctx)
	if err != nil {
		return err
	}
	return d.Set(commits)
}

// Set replaces the history of d with commits, which must be in
// history order. d keeps commits; the caller must not modify them.
func (d *Dataset) Set(commits []*benchdata.CommitData) error {
	o, err := Interpolate(commits, d.opts)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commits, d.overlay = commits, o
	return nil
}

// Commits returns the measured history.
func (d *Dataset) Commits() []*benchdata.CommitData {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.commits
}

// Overlay returns the filled history.
func (d *Dataset) Overlay() *Overlay {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.overlay
}
