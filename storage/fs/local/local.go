// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package local implements the fs.FS interface using a directory on
// the local disk. Metadata is written next to each file as
// NAME.meta.json.
package local

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/compilerperf/perf/storage/fs"
	"golang.org/x/net/context"
)

// impl is an fs.FS backed by a directory.
type impl struct {
	root string
}

// NewFS constructs an FS that writes to the provided directory.
func NewFS(root string) fs.FS {
	return &impl{root}
}

// NewWriter creates a temporary file that Close moves into place.
func (l *impl) NewWriter(ctx context.Context, name string, metadata map[string]string) (fs.Writer, error) {
	path := filepath.Join(l.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return nil, err
	}
	f, err := os.Create(path + ".tmp")
	if err != nil {
		return nil, err
	}
	return &wrapper{f, path, metadata}, nil
}

type wrapper struct {
	*os.File
	path     string
	metadata map[string]string
}

// Close closes the file and moves it into place with its metadata.
func (w *wrapper) Close() error {
	if err := w.File.Close(); err != nil {
		os.Remove(w.File.Name())
		return err
	}
	if len(w.metadata) > 0 {
		meta, err := json.Marshal(w.metadata)
		if err != nil {
			return err
		}
		if err := os.WriteFile(w.path+".meta.json", meta, 0666); err != nil {
			return err
		}
	}
	return os.Rename(w.File.Name(), w.path)
}

// CloseWithError closes the file and removes it.
func (w *wrapper) CloseWithError(error) error {
	w.File.Close()
	return os.Remove(w.File.Name())
}
