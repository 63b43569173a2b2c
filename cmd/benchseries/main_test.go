// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/compilerperf/perf/benchdata"
	"github.com/compilerperf/perf/benchseries"
	"github.com/compilerperf/perf/storage"
	"github.com/compilerperf/perf/storage/db/dbtest"
	"github.com/google/go-cmp/cmp"
)

func commit(sha string, day int) storage.Artifact {
	return storage.Commit(benchdata.Commit{Sha: sha, Date: time.Date(2021, 3, day, 0, 0, 0, 0, time.UTC)})
}

// loadHistory records helloworld at aaa and ccc and a failure at bbb,
// and loads the filled history back.
func loadHistory(t *testing.T) *benchseries.Overlay {
	ctx := context.Background()
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	full := benchdata.State{Scenario: benchdata.Full}
	for _, r := range []struct {
		sha   string
		day   int
		value float64
	}{{"aaa", 1, 10}, {"ccc", 3, 30}} {
		run := &benchdata.Run{
			Stats: benchdata.NewStats(benchdata.StatPair{Name: "instructions:u", Value: r.value}),
			Check: true,
			State: full,
		}
		if err := db.RecordRun(ctx, commit(r.sha, r.day), "c1", "helloworld", run); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.RecordError(ctx, commit("bbb", 2), "helloworld", "build failed"); err != nil {
		t.Fatal(err)
	}

	o, err := load(ctx, db, benchseries.DefaultWindow)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestWriteCsv(t *testing.T) {
	o := loadHistory(t)
	out := &output{stat: "instructions:u", csv: true, csvOpts: benchseries.CSV_FILLED}
	var buf bytes.Buffer
	if err := out.write(&buf, o); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"commit", "helloworld check/full", "filled"},
		{"aaa", "10.000000", ""},
		{"bbb", "20.000000", "*"},
		{"ccc", "30.000000", ""},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCharts(t *testing.T) {
	o := loadHistory(t)
	dir := t.TempDir()
	out := &output{stat: "instructions:u", pngDir: dir}
	var buf bytes.Buffer
	if err := out.write(&buf, o); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}
	pngs, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(pngs) != 1 {
		t.Fatalf("wrote %v, want one chart", pngs)
	}
	if fi, err := os.Stat(pngs[0]); err != nil || fi.Size() == 0 {
		t.Errorf("chart %s is empty: %v", pngs[0], err)
	}
}

func TestWriteTable(t *testing.T) {
	o := loadHistory(t)
	out := &output{table: true}
	var buf bytes.Buffer
	if err := out.write(&buf, o); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("helloworld")) {
		t.Errorf("table does not mention helloworld:\n%s", buf.String())
	}
}
