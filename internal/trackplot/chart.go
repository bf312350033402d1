// Package trackplot renders processed tracks as PNG profiles and HTML charts.
package trackplot

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/track.report/internal/track"
)

// maxChartPoints bounds the points per series in an HTML chart.
const maxChartPoints = 5000

// stride returns the step that keeps n samples within maxChartPoints.
func stride(n int) int {
	if n <= maxChartPoints {
		return 1
	}
	return (n + maxChartPoints - 1) / maxChartPoints
}

// RenderChart writes an HTML page with speed, altitude and lean angle
// against elapsed time.
func RenderChart(w io.Writer, title string, fixes []track.EnrichedFix) error {
	step := stride(len(fixes))
	n := (len(fixes) + step - 1) / step

	x := make([]string, 0, n)
	speed := make([]opts.LineData, 0, n)
	altitude := make([]opts.LineData, 0, n)
	lean := make([]opts.LineData, 0, n)
	for i := 0; i < len(fixes); i += step {
		f := fixes[i]
		x = append(x, fmt.Sprintf("%.1f", f.TotalTime.Minutes()))
		speed = append(speed, opts.LineData{Value: f.Speed})
		altitude = append(altitude, opts.LineData{Value: f.Altitude})
		lean = append(lean, opts.LineData{Value: f.LeanAngle})
	}

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(
		lineChart(title, "Speed (km/h)", x, speed),
		lineChart("", "Altitude (m)", x, altitude),
		lineChart("", "Lean angle (°)", x, lean),
	)
	return page.Render(w)
}

func lineChart(title, series string, x []string, data []opts.LineData) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: series}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "min", NameLocation: "middle", NameGap: 25}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)
	line.SetXAxis(x).AddSeries(series, data,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	return line
}

// ChartSink renders every track it receives to an HTML file.
type ChartSink struct {
	Path  string
	Title string
}

// WriteTrack implements track.Sink.
func (s ChartSink) WriteTrack(_ context.Context, t *track.Track) (err error) {
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := RenderChart(f, s.Title, t.Fixes); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
