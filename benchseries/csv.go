// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"encoding/csv"
	"fmt"
	"io"
)

type CsvOptions int

const (
	CSV_PLAIN  CsvOptions = 0
	CSV_FILLED CsvOptions = 1 // Add a column marking interpolated values
	CSV_DATE   CsvOptions = 2 // Add the commit date after the sha

	CSV_SUMMARY CsvOptions = 4 // Append summary rows after the history
)

// ToCsv writes the series of stat as a table with one row per commit
// and one column per benchmark run. Cells without a value are empty.
func (o *Overlay) ToCsv(out io.Writer, stat string, options CsvOptions) error {
	var keys []Key
	for _, k := range o.Keys() {
		if k.Stat == stat {
			keys = append(keys, k)
		}
	}
	tab := [][]string{o.csvHeader(keys, options)}

	rowOf := make(map[string]int)
	for _, c := range o.Commits {
		if c.Commit.IsTry() {
			continue
		}
		row := []string{c.Commit.Sha}
		if options&CSV_DATE != 0 {
			row = append(row, c.Commit.Date.Format("2006-01-02T15:04:05Z"))
		}
		rowOf[c.Commit.Sha] = len(tab)
		tab = append(tab, row)
	}
	width := len(tab[0])

	col := len(tab[0]) - len(keys)*entriesPer(options)
	summaries := make([]Summary, len(keys))
	for i, k := range keys {
		pts := o.Series(k.Benchmark, k.Run, k.Stat)
		for _, p := range pts {
			r := rowOf[p.Commit.Sha]
			tab[r] = pad(tab[r], width)
			tab[r][col] = strof(p.Value)
			if options&CSV_FILLED != 0 && p.Interpolated {
				tab[r][col+1] = "*"
			}
		}
		summaries[i] = Summarize(Values(pts))
		col += entriesPer(options)
	}
	for i := range tab {
		tab[i] = pad(tab[i], width)
	}

	if options&CSV_SUMMARY != 0 {
		tab = append(tab, o.summaryRows(summaries, options, width)...)
	}

	csvw := csv.NewWriter(out)
	csvw.WriteAll(tab)
	return csvw.Error()
}

func entriesPer(options CsvOptions) int {
	if options&CSV_FILLED != 0 {
		return 2
	}
	return 1
}

func (o *Overlay) csvHeader(keys []Key, options CsvOptions) []string {
	hdr := []string{"commit"}
	if options&CSV_DATE != 0 {
		hdr = append(hdr, "date")
	}
	for _, k := range keys {
		hdr = append(hdr, fmt.Sprintf("%s %v", k.Benchmark, k.Run))
		if options&CSV_FILLED != 0 {
			hdr = append(hdr, "filled")
		}
	}
	return hdr
}

func (o *Overlay) summaryRows(summaries []Summary, options CsvOptions, width int) [][]string {
	fields := []struct {
		name string
		f    func(Summary) float64
	}{
		{"first", func(s Summary) float64 { return s.First }},
		{"last", func(s Summary) float64 { return s.Last }},
		{"min", func(s Summary) float64 { return s.Min }},
		{"max", func(s Summary) float64 { return s.Max }},
		{"mean", func(s Summary) float64 { return s.Mean }},
		{"variance", func(s Summary) float64 { return s.Variance }},
		{"trend %", func(s Summary) float64 { return s.Trend }},
		{"trend_b %", func(s Summary) float64 { return s.TrendB }},
		{"n", func(s Summary) float64 { return float64(s.N) }},
	}
	lead := width - len(summaries)*entriesPer(options)
	var rows [][]string
	for _, fd := range fields {
		row := make([]string, width)
		row[0] = fd.name
		for i, s := range summaries {
			row[lead+i*entriesPer(options)] = strof(fd.f(s))
		}
		rows = append(rows, row)
	}
	return rows
}

func pad(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}

func strof(x float64) string {
	return fmt.Sprintf("%f", x)
}
