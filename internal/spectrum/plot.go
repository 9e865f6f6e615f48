package spectrum

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotOptions configures Plot.
type PlotOptions struct {
	Title   string
	Windows map[string]Window
	// LogY plots counts on a log axis. Channels with zero counts are dropped.
	LogY bool
	// Format is "png", "svg" or "pdf".
	Format string
}

// FormatFromPath derives a plot format from a file name.
func FormatFromPath(path string) (string, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "png", "svg", "pdf":
		return ext, nil
	default:
		return "", fmt.Errorf("unsupported plot format %q (want png, svg or pdf)", ext)
	}
}

var bandColors = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 60},
	color.RGBA{R: 255, G: 127, B: 14, A: 60},
	color.RGBA{R: 44, G: 160, B: 44, A: 60},
	color.RGBA{R: 214, G: 39, B: 40, A: 60},
	color.RGBA{R: 148, G: 103, B: 189, A: 60},
}

// Plot draws the spectrum with shaded window bands and writes it to w.
func (s Spectrum) Plot(w io.Writer, o PlotOptions) error {
	if len(s) == 0 {
		return ErrNoSpectrum
	}
	format := o.Format
	if format == "" {
		format = "png"
	}

	p := plot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = "Energy (keV)"
	p.Y.Label.Text = "Counts"
	if o.LogY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{}
	}

	pts := make(plotter.XYs, 0, len(s))
	ymax := 0.0
	for _, pt := range s {
		if o.LogY && pt.Counts <= 0 {
			continue
		}
		pts = append(pts, plotter.XY{X: pt.Energy, Y: pt.Counts})
		if pt.Counts > ymax {
			ymax = pt.Counts
		}
	}
	if len(pts) == 0 {
		return fmt.Errorf("%w: nothing to plot", ErrNoSpectrum)
	}

	ymin := 0.0
	if o.LogY {
		ymin = 1
	}
	for i, name := range SortedNames(o.Windows) {
		lo, hi := o.Windows[name].Bounds()
		band, err := plotter.NewPolygon(plotter.XYs{
			{X: lo, Y: ymin}, {X: hi, Y: ymin}, {X: hi, Y: ymax}, {X: lo, Y: ymax},
		})
		if err != nil {
			return fmt.Errorf("window %s: %w", name, err)
		}
		band.Color = bandColors[i%len(bandColors)]
		band.LineStyle.Width = 0
		p.Add(band)
		p.Legend.Add(name, band)
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build spectrum line: %w", err)
	}
	line.Color = color.RGBA{A: 255}
	line.Width = vg.Points(1)
	p.Add(line)

	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("failed to render %s plot: %w", format, err)
	}
	_, err = wt.WriteTo(w)
	return err
}
