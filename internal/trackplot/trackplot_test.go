package trackplot

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/track.report/internal/track"
)

func sampleFixes(n int) []track.EnrichedFix {
	fixes := make([]track.EnrichedFix, n)
	for i := range fixes {
		fixes[i] = track.EnrichedFix{
			Fix: track.Fix{
				Latitude:     45 + float64(i)*1e-4,
				Longitude:    9 + float64(i)*1e-4,
				Speed:        30 + float64(i%20),
				Altitude:     100 + float64(i%7),
				Interpolated: i%10 == 5,
			},
			Derived: track.Derived{
				LeanAngle: i%30 - 15,
				TotalTime: time.Duration(i) * 100 * time.Millisecond,
			},
		}
	}
	return fixes
}

func TestStride(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 1},
		{maxChartPoints, 1},
		{maxChartPoints + 1, 2},
		{3 * maxChartPoints, 3},
		{3*maxChartPoints + 1, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stride(tt.n), "n=%d", tt.n)
	}
}

func TestRenderChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderChart(&buf, "Monza ride", sampleFixes(50)))

	html := buf.String()
	assert.Contains(t, html, "<title>Monza ride</title>")
	assert.Contains(t, html, "Speed (km/h)")
	assert.Contains(t, html, "Altitude (m)")
	assert.GreaterOrEqual(t, strings.Count(html, "echarts.init"), 3)
}

func TestRenderChart_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, RenderChart(&buf, "empty", nil))
}

func TestChartSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ride.html")
	sink := ChartSink{Path: path, Title: "ride"}

	require.NoError(t, sink.WriteTrack(context.Background(), &track.Track{Fixes: sampleFixes(10)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>ride</title>")
}

func TestWriteProfiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")

	files, err := WriteProfiles(dir, sampleFixes(200))
	require.NoError(t, err)

	want := []string{"speed.png", "altitude.png", "lean.png", "route.png"}
	require.Len(t, files, len(want))
	for i, name := range want {
		assert.Equal(t, filepath.Join(dir, name), files[i])
		info, err := os.Stat(files[i])
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestWriteProfiles_Empty(t *testing.T) {
	_, err := WriteProfiles(t.TempDir(), nil)
	assert.Error(t, err)
}

func TestPlotSink(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, PlotSink{Dir: dir}.WriteTrack(context.Background(), &track.Track{Fixes: sampleFixes(20)}))

	_, err := os.Stat(filepath.Join(dir, "route.png"))
	assert.NoError(t, err)
}
