// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"io"

	"github.com/aclements/go-gg/ggstat"
	"github.com/aclements/go-gg/table"
)

// Table returns o as a table with one row per statistic per run per
// commit, in history order. The columns are "commit", "benchmark",
// "run", "statistic", "value" and "filled", which is 1 for
// interpolated values and 0 for measured ones.
func (o *Overlay) Table() *table.Table {
	var commits, benches, runs, statNames []string
	var values, filled []float64
	for _, k := range o.Keys() {
		for _, p := range o.Series(k.Benchmark, k.Run, k.Stat) {
			commits = append(commits, p.Commit.Sha)
			benches = append(benches, string(k.Benchmark))
			runs = append(runs, k.Run.String())
			statNames = append(statNames, k.Stat)
			values = append(values, p.Value)
			f := 0.0
			if p.Interpolated {
				f = 1
			}
			filled = append(filled, f)
		}
	}
	return table.NewBuilder(nil).
		Add("commit", commits).
		Add("benchmark", benches).
		Add("run", runs).
		Add("statistic", statNames).
		Add("value", values).
		Add("filled", filled).
		Done()
}

// Aggregate summarizes each series of t, a table returned by
// Overlay.Table, with its mean, minimum and maximum value, its number
// of points and how many of them were filled.
func Aggregate(t *table.Table) table.Grouping {
	return ggstat.Agg("benchmark", "run", "statistic")(
		ggstat.AggMean("value"),
		ggstat.AggMin("value"),
		ggstat.AggMax("value"),
		ggstat.AggSum("filled"),
		ggstat.AggCount("n"),
	).F(t)
}

// PrintTable writes the aggregate of o to w.
func (o *Overlay) PrintTable(w io.Writer) error {
	t := o.Table()
	if t.Len() == 0 {
		return nil
	}
	return table.Fprint(w, Aggregate(t))
}
