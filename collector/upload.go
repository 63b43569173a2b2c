// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

import (
	"context"
	"fmt"
	"log"
	"path"
	"sync"

	"github.com/compilerperf/perf/benchdata"
	"github.com/compilerperf/perf/execute"
	"github.com/compilerperf/perf/storage"
	"github.com/compilerperf/perf/storage/fs"
	"golang.org/x/sync/semaphore"
)

// An uploader copies raw self-profile data to a filesystem in the
// background. At most one upload is in flight: upload blocks until
// the previous one has finished, then returns while the new one runs.
type uploader struct {
	fs         fs.FS
	conn       storage.Connection
	artifact   storage.Artifact
	row        int64
	collection string
	metrics    *Metrics

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu  sync.Mutex
	err error
}

func newUploader(fs fs.FS, conn storage.Connection, a storage.Artifact, row int64, collection string, m *Metrics) *uploader {
	return &uploader{
		fs:         fs,
		conn:       conn,
		artifact:   a,
		row:        row,
		collection: collection,
		metrics:    m,
		sem:        semaphore.NewWeighted(1),
	}
}

// uploadPrefix is the directory the raw self-profile of one build is
// stored under.
func uploadPrefix(row int64, bench benchdata.BenchmarkName, id benchdata.RunID) string {
	return fmt.Sprintf("self-profile/%d/%s/%s/%s/", row, bench, id.BuildKind().Profile(), id.State.ID())
}

func (u *uploader) upload(ctx context.Context, bench benchdata.BenchmarkName, id benchdata.RunID, files []execute.RawFile) {
	if err := u.sem.Acquire(ctx, 1); err != nil {
		u.fail(err)
		return
	}
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		defer u.sem.Release(1)
		if err := u.put(ctx, bench, id, files); err != nil {
			log.Printf("warning: uploading self-profile of %s %v: %v", bench, id, err)
			u.fail(err)
			return
		}
		u.metrics.uploads.Inc()
	}()
}

func (u *uploader) put(ctx context.Context, bench benchdata.BenchmarkName, id benchdata.RunID, files []execute.RawFile) error {
	prefix := uploadPrefix(u.row, bench, id)
	meta := map[string]string{
		"artifact":   u.artifact.Name,
		"benchmark":  string(bench),
		"collection": u.collection,
	}
	for _, f := range files {
		w, err := u.fs.NewWriter(ctx, path.Join(prefix, f.Name), meta)
		if err != nil {
			return err
		}
		if _, err := w.Write(f.Data); err != nil {
			w.CloseWithError(err)
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
	}
	return u.conn.RecordRawSelfProfile(ctx, u.artifact, u.collection, bench, id)
}

func (u *uploader) fail(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err == nil {
		u.err = err
	}
}

// wait waits for the upload in flight and returns the first error
// any upload met.
func (u *uploader) wait() error {
	u.wg.Wait()
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}
