// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gcs implements the fs.FS interface using Google Cloud Storage.
package gcs

import (
	"cloud.google.com/go/storage"
	"github.com/compilerperf/perf/storage/fs"
	"golang.org/x/net/context"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// impl is an fs.FS backed by Google Cloud Storage.
type impl struct {
	bucket *storage.BucketHandle
}

// NewFS constructs an FS that writes to the provided bucket, using
// the application default credentials.
func NewFS(ctx context.Context, bucketName string) (fs.FS, error) {
	ts, err := google.DefaultTokenSource(ctx, storage.ScopeReadWrite)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, err
	}
	return &impl{client.Bucket(bucketName)}, nil
}

// NewWriter creates a new object in GCS with the given name and
// metadata. The object is not visible until Close is called.
func (g *impl) NewWriter(ctx context.Context, name string, metadata map[string]string) (fs.Writer, error) {
	ctx, cancel := context.WithCancel(ctx)
	w := g.bucket.Object(name).NewWriter(ctx)
	w.Metadata = metadata
	return &wrapper{w, cancel}, nil
}

// wrapper contains a GCS writer along with a cancel function to
// abort the upload.
type wrapper struct {
	*storage.Writer
	cancel context.CancelFunc
}

// CloseWithError aborts the upload by canceling its context.
func (w *wrapper) CloseWithError(error) error {
	w.cancel()
	return w.Writer.Close()
}

func (w *wrapper) Close() error {
	defer w.cancel()
	return w.Writer.Close()
}
