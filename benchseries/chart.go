// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchseries

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const pointRad = 3

// Chart draws one PNG chart per benchmark run of stat into pngDir.
// Measured values are drawn as circles and interpolated ones as
// red crosses. It returns the names of the files written.
func (o *Overlay) Chart(stat, pngDir string, logScale bool) ([]string, error) {
	if err := os.MkdirAll(pngDir, 0777); err != nil {
		return nil, err
	}
	var files []string
	for _, k := range o.Keys() {
		if k.Stat != stat {
			continue
		}
		pts := o.Series(k.Benchmark, k.Run, k.Stat)
		if len(pts) == 0 {
			continue
		}
		file := filepath.Join(pngDir, chartName(k)+".png")
		if err := chart(k, pts, file, logScale); err != nil {
			return files, fmt.Errorf("%s: %w", file, err)
		}
		files = append(files, file)
	}
	return files, nil
}

func chartName(k Key) string {
	r := strings.NewReplacer("/", "-", ":", "", " ", "")
	return r.Replace(fmt.Sprintf("%s-%v-%s", k.Benchmark, k.Run, k.Stat))
}

func chart(k Key, pts []Point, file string, logScale bool) error {
	var all, measured, filled plotter.XYs
	var labels []string
	for i, p := range pts {
		xy := plotter.XY{X: float64(i), Y: p.Value}
		all = append(all, xy)
		if p.Interpolated {
			filled = append(filled, xy)
		} else {
			measured = append(measured, xy)
		}
		labels = append(labels, shortSha(p.Commit.Sha))
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("%s %v", k.Benchmark, k.Run)
	pl.Title.TextStyle.Font.Size = 20
	pl.Y.Label.Text = k.Stat
	if logScale && positive(all) {
		pl.Y.Scale = plot.LogScale{}
		pl.Y.Tick.Marker = plot.LogTicks{}
	}
	pl.X.Tick.Marker = shaTicks(labels)
	pl.X.Tick.Label.Rotation = -math.Pi / 8
	pl.X.Tick.Label.YAlign = draw.YTop
	pl.X.Tick.Label.XAlign = draw.XLeft

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	pl.Add(grid)

	line, err := plotter.NewLine(all)
	if err != nil {
		return err
	}
	line.Color = color.Gray{0x80}
	pl.Add(line)

	if len(measured) > 0 {
		s, err := plotter.NewScatter(measured)
		if err != nil {
			return err
		}
		s.GlyphStyle.Radius = pointRad
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Color = color.Black
		pl.Add(s)
	}
	if len(filled) > 0 {
		s, err := plotter.NewScatter(filled)
		if err != nil {
			return err
		}
		s.GlyphStyle.Radius = pointRad
		s.GlyphStyle.Shape = CrossGlyph{}
		s.GlyphStyle.Color = red(0xff)
		pl.Add(s)
	}

	// Heuristic width and height
	width := 1 + 0.5*float64(len(pts))
	if width < 15 {
		width = 15
	}
	height := 10.0
	dpi := 150
	// Scale down dpi to keep the image a reasonable size.
	if initialWidth := float64(dpi) * width / 2.54; initialWidth > 8190 {
		dpi = int(math.Trunc(float64(dpi) * 8190 / initialWidth))
	}

	f, err := os.Create(file)
	if err != nil {
		return err
	}
	can := vgimg.PngCanvas{Canvas: vgimg.NewWith(vgimg.UseWH(vg.Length(width)*vg.Centimeter, vg.Length(height)*vg.Centimeter),
		vgimg.UseDPI(dpi), vgimg.UseBackgroundColor(color.White))}
	pl.Draw(draw.New(can))
	if _, err := can.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func positive(xys plotter.XYs) bool {
	for _, xy := range xys {
		if xy.Y <= 0 {
			return false
		}
	}
	return true
}

func shortSha(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

// shaTicks labels integer x positions with commit shas, thinned so
// that at most about 40 labels are drawn.
type shaTicks []string

func (s shaTicks) Ticks(min, max float64) []plot.Tick {
	step := len(s)/40 + 1
	var ticks []plot.Tick
	for i, label := range s {
		t := plot.Tick{Value: float64(i)}
		if i%step == 0 {
			t.Label = label
		}
		ticks = append(ticks, t)
	}
	return ticks
}

func red(alpha uint8) color.Color {
	return color.NRGBA{0xFF, 0, 0, alpha}
}

const cosπover4 = vg.Length(.707106781202420)

// CrossGlyph is a glyph that draws a big X.
// this version draws a heavier X.
type CrossGlyph struct{}

// DrawGlyph implements the Glyph interface.
func (CrossGlyph) DrawGlyph(c *draw.Canvas, sty draw.GlyphStyle, pt vg.Point) {
	c.SetLineStyle(draw.LineStyle{Color: sty.Color, Width: vg.Points(1)})
	r := sty.Radius * cosπover4
	p := make(vg.Path, 0, 2)
	p.Move(vg.Point{X: pt.X - r, Y: pt.Y - r})
	p.Line(vg.Point{X: pt.X + r, Y: pt.Y + r})
	c.Stroke(p)
	p = p[:0]
	p.Move(vg.Point{X: pt.X - r, Y: pt.Y + r})
	p.Line(vg.Point{X: pt.X + r, Y: pt.Y - r})
	c.Stroke(p)
}
