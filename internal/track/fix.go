package track

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MovingThresholdKmh is the speed above which a fix counts as moving.
const MovingThresholdKmh = 1.0

// FieldCount is the number of fields in a data row.
const FieldCount = 15

// InputColumns names the data row fields in order.
var InputColumns = []string{
	"latitude", "longitude", "satellites", "speed", "altitude", "heading",
	"temperature", "bpm", "year", "month", "day", "hours", "minutes",
	"seconds", "centiseconds",
}

// DerivedColumns names the per-fix values appended on output.
var DerivedColumns = []string{"leanangle", "distance", "totaltime", "triptime", "averagespeed"}

// Fix is one GPS sample as logged, or synthesized to fill a gap.
type Fix struct {
	Latitude    float64   `json:"lat"`
	Longitude   float64   `json:"lon"`
	Satellites  int       `json:"satellites"`
	Speed       float64   `json:"speed_kmh"`
	Altitude    float64   `json:"altitude_m"`
	Heading     float64   `json:"heading_deg"`
	Temperature float64   `json:"temperature_c"`
	HeartRate   int       `json:"heart_rate_bpm"`
	Time        time.Time `json:"time"` // UTC, millisecond resolution

	// Interpolated is set on fixes synthesized by a GapFiller.
	Interpolated bool `json:"interpolated,omitempty"`
}

// IsMoving reports whether the fix speed exceeds MovingThresholdKmh.
func (f Fix) IsMoving() bool {
	return f.Speed > MovingThresholdKmh
}

// Derived holds the per-fix values computed by Statistics.
type Derived struct {
	LeanAngle       int           `json:"lean_angle_deg"`
	DistanceKm      float64       `json:"distance_km"`
	TotalTime       time.Duration `json:"total_time_ns"`
	MovingTime      time.Duration `json:"moving_time_ns"`
	AverageSpeedKmh float64       `json:"average_speed_kmh"`
}

// EnrichedFix is a fix together with the values derived for it.
type EnrichedFix struct {
	Fix
	Derived
}

// ParseFix builds a Fix from the fields of one data row. Blank numeric
// fields read as zero. If any date or time field (other than centiseconds)
// is blank the fix keeps a zero Time.
func ParseFix(fields []string) (Fix, error) {
	if len(fields) < FieldCount {
		return Fix{}, &ParseError{
			Field: "row",
			Value: strings.Join(fields, ","),
			Err:   fmt.Errorf("expected %d fields, got %d", FieldCount, len(fields)),
		}
	}

	p := fieldParser{fields: fields}
	fix := Fix{
		Latitude:    p.parseFloat(0),
		Longitude:   p.parseFloat(1),
		Satellites:  p.parseInt(2),
		Speed:       p.parseFloat(3),
		Altitude:    p.parseFloat(4),
		Heading:     p.parseFloat(5),
		Temperature: p.parseFloat(6),
		HeartRate:   p.parseInt(7),
	}
	if p.err != nil {
		return Fix{}, p.err
	}

	if p.blank(8, 9, 10, 11, 12, 13) {
		return fix, nil
	}

	year, month, day := p.parseInt(8), p.parseInt(9), p.parseInt(10)
	hour, minute, second, centis := p.parseInt(11), p.parseInt(12), p.parseInt(13), p.parseInt(14)
	if p.err != nil {
		return Fix{}, p.err
	}

	p.within(9, month, 1, 12)
	p.within(10, day, 1, 31)
	p.within(11, hour, 0, 23)
	p.within(12, minute, 0, 59)
	p.within(13, second, 0, 59)
	p.within(14, centis, 0, 99)
	if p.err != nil {
		return Fix{}, p.err
	}

	fix.Time = time.Date(year, time.Month(month), day, hour, minute, second,
		centis*int(10*time.Millisecond), time.UTC)
	return fix, nil
}

// fieldParser records the first failure and turns later calls into no-ops.
type fieldParser struct {
	fields []string
	err    error
}

func (p *fieldParser) value(i int) string {
	return strings.TrimSpace(p.fields[i])
}

func (p *fieldParser) blank(idx ...int) bool {
	for _, i := range idx {
		if p.value(i) == "" {
			return true
		}
	}
	return false
}

func (p *fieldParser) parseFloat(i int) float64 {
	if p.err != nil || p.value(i) == "" {
		return 0
	}
	v, err := strconv.ParseFloat(p.value(i), 64)
	if err != nil {
		p.err = &ParseError{Field: InputColumns[i], Value: p.value(i), Err: err}
		return 0
	}
	return v
}

func (p *fieldParser) parseInt(i int) int {
	if p.err != nil || p.value(i) == "" {
		return 0
	}
	v, err := strconv.Atoi(p.value(i))
	if err != nil {
		p.err = &ParseError{Field: InputColumns[i], Value: p.value(i), Err: err}
		return 0
	}
	return v
}

func (p *fieldParser) within(i, v, lo, hi int) {
	if p.err != nil || (v >= lo && v <= hi) {
		return
	}
	p.err = &ParseError{
		Field: InputColumns[i],
		Value: p.value(i),
		Err:   fmt.Errorf("out of range [%d, %d]", lo, hi),
	}
}
