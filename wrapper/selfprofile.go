// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wrapper

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// summarizeBinaries are tried in order; older installations only
// provide a versioned name.
var summarizeBinaries = []string{"summarize", "summarize-0.7"}

// summarizeSelfProfile summarizes the self-profile data written by
// the compiler and prints it as a single marker line.
func (s *Shim) summarizeSelfProfile(args []string) error {
	dir, err := s.absDir(selfProfileDir)
	if err != nil {
		return err
	}
	prefix, err := findProfilePrefix(dir, crateName(args))
	if err != nil {
		return err
	}
	path := filepath.Join(dir, prefix)

	var out []byte
	for i, bin := range summarizeBinaries {
		cmd := exec.Command(bin, "summarize", "--json", path)
		cmd.Dir = dir
		out, err = cmd.CombinedOutput()
		var execErr *exec.Error
		if errors.As(err, &execErr) && i+1 < len(summarizeBinaries) {
			continue
		}
		break
	}
	if err != nil {
		return fmt.Errorf("summarize %s: %v\n%s", path, err, out)
	}

	data, err := os.ReadFile(path + ".json")
	if err != nil {
		return err
	}
	var line bytes.Buffer
	line.WriteString(SelfProfileMarker)
	if err := json.Compact(&line, data); err != nil {
		return fmt.Errorf("summarize %s: bad JSON: %w", path, err)
	}
	line.WriteByte('\n')
	_, err = s.Stdout.Write(line.Bytes())
	return err
}

// crateName returns the value of the --crate-name argument.
func crateName(args []string) string {
	for i, a := range args {
		if a == "--crate-name" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// findProfilePrefix returns the common file name prefix of the
// profile data for crate in dir. Exactly one profile must exist.
func findProfilePrefix(dir, crate string) (string, error) {
	if crate == "" {
		return "", fmt.Errorf("no --crate-name argument")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	prefixes := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, crate) {
			continue
		}
		prefixes[strings.TrimSuffix(name, filepath.Ext(name))] = true
	}
	var list []string
	for p := range prefixes {
		list = append(list, p)
	}
	sort.Strings(list)
	if len(list) != 1 {
		return "", fmt.Errorf("found %d self-profile prefixes for %s in %s, want 1: %v", len(list), crate, dir, list)
	}
	return list[0], nil
}
