package trackio

import (
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/track.report/internal/track"
)

// FormatElapsed renders d as hours:minutes:seconds without padding. Hours
// are not wrapped at 24.
func FormatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%d:%d:%d", h, m, d/time.Second)
}

// FormatSummary renders the summary block written ahead of the fix rows.
func FormatSummary(s track.Summary) string {
	var b strings.Builder
	line := func(label, format string, args ...any) {
		fmt.Fprintf(&b, "%-20s"+format+"\n", append([]any{label}, args...)...)
	}

	line("Total GPS fixes:", "%d", s.TotalFixes)
	line("Lost GPS fixes:", "%d", s.LostFixes)
	line("Interpolated fixes:", "%d (%d gaps)", s.InterpolatedFixes, s.GapsFilled)
	line("Speed MAX:", "%.1f Km/h", s.MaxSpeed)
	line("Speed MIN:", "%.1f Km/h", s.MinSpeed)
	line("Speed AVG:", "%.1f Km/h", s.AverageSpeed)
	line("Speed P50/P85/P98:", "%.1f/%.1f/%.1f Km/h", s.P50Speed, s.P85Speed, s.P98Speed)
	line("Altitude MAX:", "%.1f meters", s.MaxAltitude)
	line("Altitude MIN:", "%.1f meters", s.MinAltitude)
	line("Lean MAX:", "%d°", s.MaxLeanAngle)
	line("Lean MAX right:", "%d°", s.MaxLeanRight)
	line("Lean MAX left:", "%d°", s.MaxLeanLeft)
	line("Temperature MAX:", "%.1f °C", s.MaxTemperature)
	line("Temperature MIN:", "%.1f °C", s.MinTemperature)
	line("Temperature AVG:", "%.1f °C", s.AverageTemperature)
	line("Heart rate MAX:", "%d bpm", s.MaxHeartRate)
	line("Heart rate MIN:", "%d bpm", s.MinHeartRate)
	line("Heart rate AVG:", "%d bpm", s.AverageHeartRate)
	line("Time total:", "%s", FormatElapsed(s.TotalTime))
	line("Time moving:", "%s", FormatElapsed(s.MovingTime))
	line("Distance:", "%.1f Km", s.DistanceKm)
	return b.String()
}
