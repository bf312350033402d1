package trackplot

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/track.report/internal/track"
)

var (
	measuredColor     = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	interpolatedColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

type profile struct {
	file  string
	title string
	label string
	value func(track.EnrichedFix) float64
}

var profiles = []profile{
	{"speed.png", "Speed", "Speed (km/h)", func(f track.EnrichedFix) float64 { return f.Speed }},
	{"altitude.png", "Altitude", "Altitude (m)", func(f track.EnrichedFix) float64 { return f.Altitude }},
	{"lean.png", "Lean angle", "Lean (°)", func(f track.EnrichedFix) float64 { return float64(f.LeanAngle) }},
}

// WriteProfiles saves speed, altitude and lean angle profiles plus a route
// map as PNG files in dir and returns their paths. Interpolated fixes are
// marked in a separate colour.
func WriteProfiles(dir string, fixes []track.EnrichedFix) ([]string, error) {
	if len(fixes) == 0 {
		return nil, fmt.Errorf("no fixes to plot")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}

	var files []string
	for _, pr := range profiles {
		p := plot.New()
		p.Title.Text = pr.title
		p.X.Label.Text = "Elapsed (min)"
		p.Y.Label.Text = pr.label

		pts := make(plotter.XYs, 0, len(fixes))
		var filled plotter.XYs
		for _, f := range fixes {
			xy := plotter.XY{X: f.TotalTime.Minutes(), Y: pr.value(f)}
			pts = append(pts, xy)
			if f.Interpolated {
				filled = append(filled, xy)
			}
		}
		if err := addSeries(p, pts, filled); err != nil {
			return nil, fmt.Errorf("%s plot: %w", pr.title, err)
		}

		file := filepath.Join(dir, pr.file)
		if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
			return nil, fmt.Errorf("save %s plot: %w", pr.title, err)
		}
		files = append(files, file)
	}

	route, err := writeRoute(dir, fixes)
	if err != nil {
		return nil, err
	}
	return append(files, route), nil
}

func writeRoute(dir string, fixes []track.EnrichedFix) (string, error) {
	p := plot.New()
	p.Title.Text = "Route"
	p.X.Label.Text = "Longitude (°)"
	p.Y.Label.Text = "Latitude (°)"

	pts := make(plotter.XYs, 0, len(fixes))
	var filled plotter.XYs
	for _, f := range fixes {
		xy := plotter.XY{X: f.Longitude, Y: f.Latitude}
		pts = append(pts, xy)
		if f.Interpolated {
			filled = append(filled, xy)
		}
	}
	if err := addSeries(p, pts, filled); err != nil {
		return "", fmt.Errorf("route plot: %w", err)
	}

	file := filepath.Join(dir, "route.png")
	if err := p.Save(8*vg.Inch, 8*vg.Inch, file); err != nil {
		return "", fmt.Errorf("save route plot: %w", err)
	}
	return file, nil
}

func addSeries(p *plot.Plot, pts, filled plotter.XYs) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = measuredColor
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("measured", line)

	if len(filled) > 0 {
		sc, err := plotter.NewScatter(filled)
		if err != nil {
			return err
		}
		sc.Color = interpolatedColor
		sc.Radius = vg.Points(1.5)
		p.Add(sc)
		p.Legend.Add("interpolated", sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return nil
}

// PlotSink writes profile PNGs for every track it receives.
type PlotSink struct {
	Dir string
}

// WriteTrack implements track.Sink.
func (s PlotSink) WriteTrack(_ context.Context, t *track.Track) error {
	_, err := WriteProfiles(s.Dir, t.Fixes)
	return err
}
