// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Benchseries prints the history of one statistic over the commits
// recorded in a results database.
//
// Benchmarks that failed or were not run at a commit are filled by
// interpolating between the nearest commits where they were measured.
// Filled values are marked in the CSV output with -filled and drawn
// as red crosses in charts.
//
// Usage:
//
//	benchseries [flags]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	_ "github.com/GoogleCloudPlatform/cloudsql-proxy/proxy/dialers/mysql"
	"github.com/compilerperf/perf/benchseries"
	"github.com/compilerperf/perf/config"
	"github.com/compilerperf/perf/storage/db"
	_ "github.com/compilerperf/perf/storage/db/sqlite3"
	_ "github.com/go-sql-driver/mysql"
)

// output selects what is written for an overlay.
type output struct {
	stat     string
	csv      bool
	csvOpts  benchseries.CsvOptions
	table    bool
	pngDir   string
	logScale bool
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fail("%v\n", err)
	}

	var dbSpec = "sqlite3:results.db"
	var window = cfg.InterpolationWindow
	var filled, date, summary bool
	out := &output{stat: "instructions:u", csv: true}

	flag.StringVar(&dbSpec, "db", dbSpec, "results database as driver:dsn")
	flag.StringVar(&out.stat, "stat", out.stat, "statistic to print")
	flag.IntVar(&window, "window", window, "number of recent commits that decide which runs a benchmark should have")

	flag.BoolVar(&out.csv, "csv", out.csv, "Write the series in CSV form")
	flag.BoolVar(&filled, "filled", filled, "Include a column marking interpolated values")
	flag.BoolVar(&date, "date", date, "Include the commit date")
	flag.BoolVar(&summary, "summary", summary, "Append summary rows")
	flag.BoolVar(&out.table, "table", out.table, "Print per-benchmark aggregates of every statistic")

	flag.StringVar(&out.pngDir, "png", out.pngDir, "Directory to write png chart(s) into")
	flag.BoolVar(&out.logScale, "log", out.logScale, "Use a log scale in the chart")

	flag.Parse()

	if filled {
		out.csvOpts |= benchseries.CSV_FILLED
	}
	if date {
		out.csvOpts |= benchseries.CSV_DATE
	}
	if summary {
		out.csvOpts |= benchseries.CSV_SUMMARY
	}

	conn, err := db.Open(dbSpec)
	if err != nil {
		fail("%v\n", err)
	}
	defer conn.Close()

	o, err := load(context.Background(), conn, window)
	if err != nil {
		fail("%v\n", err)
	}
	if err := out.write(os.Stdout, o); err != nil {
		fail("%v\n", err)
	}
}

// load loads the commit history from l and fills its holes.
func load(ctx context.Context, l benchseries.Loader, window int) (*benchseries.Overlay, error) {
	d := benchseries.NewDataset(benchseries.Options{Window: window})
	if err := d.Reload(ctx, l); err != nil {
		return nil, err
	}
	o := d.Overlay()
	for _, b := range o.Unfillable {
		warn("%s never succeeded, not filled\n", b)
	}
	n := 0
	for _, ins := range o.Interpolations {
		n += len(ins)
	}
	if n > 0 {
		warn("%d values interpolated over %d commits\n", n, len(o.Interpolations))
	}
	return o, nil
}

func (out *output) write(w io.Writer, o *benchseries.Overlay) error {
	if out.table {
		if err := o.PrintTable(w); err != nil {
			return err
		}
	}
	if out.csv {
		if err := o.ToCsv(w, out.stat, out.csvOpts); err != nil {
			return err
		}
	}
	if out.pngDir != "" {
		files, err := o.Chart(out.stat, out.pngDir, out.logScale)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			warn("no results for %s, no charts written\n", out.stat)
		}
	}
	return nil
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
func warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}
