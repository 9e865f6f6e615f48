package spectrum

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ChartOptions configures Chart.
type ChartOptions struct {
	Title    string
	Subtitle string
	Windows  map[string]Window
	// AssetsHost overrides where the echarts script is loaded from.
	AssetsHost string
}

// Chart renders an interactive HTML line chart of the spectrum. Window bounds
// are drawn as vertical marker lines.
func (s Spectrum) Chart(w io.Writer, o ChartOptions) error {
	if len(s) == 0 {
		return ErrNoSpectrum
	}

	data := make([]opts.LineData, len(s))
	for i, p := range s {
		data[i] = opts.LineData{Value: []interface{}{p.Energy, p.Counts}}
	}

	initOpts := opts.Initialization{PageTitle: o.Title, Width: "1200px", Height: "600px"}
	if o.AssetsHost != "" {
		initOpts.AssetsHost = o.AssetsHost
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: o.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Energy (keV)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Counts", NameLocation: "middle", NameGap: 50}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}, opts.DataZoom{Type: "slider"}),
	)

	var marks []opts.MarkLineNameXAxisItem
	for _, name := range SortedNames(o.Windows) {
		lo, hi := o.Windows[name].Bounds()
		marks = append(marks,
			opts.MarkLineNameXAxisItem{Name: name, XAxis: lo},
			opts.MarkLineNameXAxisItem{Name: name, XAxis: hi},
		)
	}

	series := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	}
	if len(marks) > 0 {
		series = append(series, charts.WithMarkLineNameXAxisItemOpts(marks...))
	}
	line.AddSeries("counts", data, series...)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
