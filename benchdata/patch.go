// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchdata

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// A Patch is a source diff applied to a benchmark before an
// IncrPatched build. Patch files are named "<index>-<name>.patch";
// the index orders application and is not part of the identity.
type Patch struct {
	Index int
	Name  string
	Path  string
}

// NewPatch parses the patch file at path.
func NewPatch(path string) (Patch, error) {
	base := filepath.Base(path)
	stem, ok := strings.CutSuffix(base, ".patch")
	if !ok {
		return Patch{}, fmt.Errorf("patch %s: missing .patch suffix", path)
	}
	idx, name, ok := strings.Cut(stem, "-")
	if !ok || name == "" {
		return Patch{}, fmt.Errorf("patch %s: name must have the form <index>-<name>.patch", path)
	}
	index, err := strconv.Atoi(idx)
	if err != nil || index < 0 {
		return Patch{}, fmt.Errorf("patch %s: bad index %q", path, idx)
	}
	return Patch{Index: index, Name: name, Path: path}, nil
}

// Equal reports whether p and q name the same patch.
func (p Patch) Equal(q Patch) bool {
	return p.Name == q.Name
}

// Erase returns p with only its name set.
func (p Patch) Erase() Patch {
	return Patch{Name: p.Name}
}

func (p Patch) String() string {
	return p.Name
}

// SortPatches sorts ps into application order.
func SortPatches(ps []Patch) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Index != ps[j].Index {
			return ps[i].Index < ps[j].Index
		}
		return ps[i].Path < ps[j].Path
	})
}
