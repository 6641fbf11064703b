// Package export renders recorded traces into standalone files.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var ErrNoData = errors.New("export: fewer than two finite samples")

// SVGOptions sizes and labels a trace plot. Width and Height are in
// points.
type SVGOptions struct {
	Width   float64
	Height  float64
	Color   color.Color
	Caption string
	YLabel  string
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Width:  800,
		Height: 300,
		Color:  color.RGBA{R: 0x5f, G: 0xd7, B: 0xd7, A: 0xff},
	}
}

// TraceToSVG writes values against times as an SVG line chart. Non-finite
// samples break the line.
func TraceToSVG(w io.Writer, times, values []float64, opts SVGOptions) error {
	if len(times) != len(values) {
		return fmt.Errorf("export: %d times for %d values", len(times), len(values))
	}
	def := DefaultSVGOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.Color == nil {
		opts.Color = def.Color
	}

	segments := Segments(times, values)
	finite := 0
	for _, s := range segments {
		finite += len(s)
	}
	if finite < 2 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = opts.Caption
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = opts.YLabel
	p.Add(plotter.NewGrid())

	for _, s := range segments {
		if len(s) == 1 {
			sc, err := plotter.NewScatter(s)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			sc.GlyphStyle.Color = opts.Color
			p.Add(sc)
			continue
		}
		line, err := plotter.NewLine(s)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		line.LineStyle.Color = opts.Color
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
	}

	wt, err := p.WriterTo(vg.Points(opts.Width), vg.Points(opts.Height), "svg")
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// Segments splits a series into runs of finite samples.
func Segments(times, values []float64) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.IsNaN(times[i]) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: times[i], Y: v})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
