package track

import (
	"fmt"
	"time"

	"github.com/banshee-data/track.report/internal/geomath"
	"github.com/banshee-data/track.report/internal/interp"
)

// GapFiller synthesizes the fixes missing between the last fix before a
// signal loss and the first fix after it.
type GapFiller struct {
	before Fix
	after  Fix
	rateHz int
}

// NewGapFiller returns a filler for the gap between before and after.
func NewGapFiller(before, after Fix, rateHz int) *GapFiller {
	return &GapFiller{before: before, after: after, rateHz: rateHz}
}

// Missing returns how many sample ticks lie strictly between the two
// endpoints. It fails with ErrGapUnresolvable when the endpoints are not in
// order or not a whole number of ticks apart.
func (g *GapFiller) Missing() (int, error) {
	tickMs, err := geomath.HertzToPeriodMillis(g.rateHz)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	tick := time.Duration(tickMs) * time.Millisecond

	span := g.after.Time.Sub(g.before.Time)
	if span <= 0 {
		return 0, fmt.Errorf("%w: fix at %s does not follow fix at %s",
			ErrGapUnresolvable, g.after.Time.Format(time.RFC3339Nano), g.before.Time.Format(time.RFC3339Nano))
	}
	if span%tick != 0 {
		return 0, fmt.Errorf("%w: span %s is not a multiple of %s",
			ErrGapUnresolvable, span, tick)
	}
	return int(span/tick) - 1, nil
}

// Generate returns the synthesized fixes followed by the after-fix. Each
// numeric field moves linearly from the before-fix value to the after-fix
// value, heading included: it is interpolated as a plain number, so a gap
// across north sweeps through the intermediate compass values. Synthesized
// fixes carry zero satellites and heart rate, the after-fix temperature, and
// are marked Interpolated.
func (g *GapFiller) Generate() ([]Fix, error) {
	n, err := g.Missing()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []Fix{g.after}, nil
	}

	tickMs, _ := geomath.HertzToPeriodMillis(g.rateHz)
	tick := time.Duration(tickMs) * time.Millisecond

	lat, err := between(g.before.Latitude, g.after.Latitude, n)
	if err != nil {
		return nil, err
	}
	lon, _ := between(g.before.Longitude, g.after.Longitude, n)
	speed, _ := between(g.before.Speed, g.after.Speed, n)
	alt, _ := between(g.before.Altitude, g.after.Altitude, n)
	heading, _ := between(g.before.Heading, g.after.Heading, n)

	out := make([]Fix, 0, n+1)
	for k := 0; k < n; k++ {
		out = append(out, Fix{
			Latitude:     lat[k],
			Longitude:    lon[k],
			Speed:        speed[k],
			Altitude:     alt[k],
			Heading:      heading[k],
			Temperature:  g.after.Temperature,
			Time:         g.before.Time.Add(time.Duration(k+1) * tick),
			Interpolated: true,
		})
	}
	return append(out, g.after), nil
}

// between returns the n values strictly between from and to: the line is
// resampled to n+2 points and both endpoints are dropped, so the first
// synthesized fix never repeats the before-fix.
func between(from, to float64, n int) ([]float64, error) {
	line, err := interp.Linear([]float64{from, to}, n+2)
	if err != nil {
		return nil, err
	}
	return line[1 : n+1], nil
}
