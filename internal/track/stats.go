package track

import (
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/track.report/internal/geomath"
)

// Summary is the aggregate report for a processed track.
type Summary struct {
	TotalFixes        int `json:"total_fixes"`
	LostFixes         int `json:"lost_fixes"`
	InterpolatedFixes int `json:"interpolated_fixes"`
	GapsFilled        int `json:"gaps_filled"`

	MaxSpeed     float64 `json:"max_speed_kmh"`
	MinSpeed     float64 `json:"min_speed_kmh"`
	AverageSpeed float64 `json:"average_speed_kmh"`
	P50Speed     float64 `json:"p50_speed_kmh"`
	P85Speed     float64 `json:"p85_speed_kmh"`
	P98Speed     float64 `json:"p98_speed_kmh"`

	MaxAltitude float64 `json:"max_altitude_m"`
	MinAltitude float64 `json:"min_altitude_m"`

	MaxLeanAngle int `json:"max_lean_deg"`
	MaxLeanRight int `json:"max_lean_right_deg"`
	MaxLeanLeft  int `json:"max_lean_left_deg"`

	MaxTemperature     float64 `json:"max_temperature_c"`
	MinTemperature     float64 `json:"min_temperature_c"`
	AverageTemperature float64 `json:"average_temperature_c"`

	MaxHeartRate     int `json:"max_heart_rate_bpm"`
	MinHeartRate     int `json:"min_heart_rate_bpm"`
	AverageHeartRate int `json:"average_heart_rate_bpm"`

	TotalTime  time.Duration `json:"total_time_ns"`
	MovingTime time.Duration `json:"moving_time_ns"`
	DistanceKm float64       `json:"distance_km"`
}

// Statistics folds an ordered stream of fixes into running totals and
// extrema, and derives per-fix values. Statistics is not safe for
// concurrent use.
type Statistics struct {
	rateHz  int
	counter *FixCounter

	seen bool

	maxSpeed, minSpeed       float64
	maxAltitude, minAltitude float64
	haveMinAltitude          bool
	maxTemp, minTemp         float64
	tempSum                  float64
	maxHR, minHR             int
	hrSum, hrCount           int

	maxLean, maxLeanRight, maxLeanLeft int

	totalTime    time.Duration
	movingTime   time.Duration
	distanceKm   float64
	averageSpeed float64

	movingSpeeds []float64
	interpolated int
}

// NewStatistics returns an empty aggregator for a stream sampled at rateHz.
func NewStatistics(rateHz int) (*Statistics, error) {
	if rateHz <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidConfiguration, rateHz)
	}
	return &Statistics{rateHz: rateHz, counter: NewFixCounter(rateHz)}, nil
}

// Update folds fix into the aggregate and returns it with its derived values.
// prev is the fix emitted immediately before, or nil for the first fix.
// Neither fix is modified.
func (s *Statistics) Update(fix Fix, prev *Fix) (EnrichedFix, error) {
	s.observe(fix)
	s.counter.Update(fix)
	if fix.Interpolated {
		s.interpolated++
	}

	out := EnrichedFix{Fix: fix}
	if prev != nil {
		dt := fix.Time.Sub(prev.Time)
		s.totalTime += dt

		if fix.IsMoving() && prev.IsMoving() {
			s.movingTime += dt
			s.distanceKm += geomath.HaversineKm(prev.Latitude, prev.Longitude, fix.Latitude, fix.Longitude)
			s.movingSpeeds = append(s.movingSpeeds, fix.Speed)

			lean, err := geomath.LeanAngleDeg(fix.Heading, prev.Heading, fix.Speed, prev.Speed, s.rateHz)
			if err != nil {
				return EnrichedFix{}, err
			}
			out.LeanAngle = int(lean)
		}

		if s.movingTime > 0 {
			s.averageSpeed = s.distanceKm / s.movingTime.Hours()
		}
	}
	s.observeLean(out.LeanAngle)

	out.DistanceKm = s.distanceKm
	out.TotalTime = s.totalTime
	out.MovingTime = s.movingTime
	if s.movingTime > 0 {
		out.AverageSpeedKmh = s.averageSpeed
	}
	return out, nil
}

func (s *Statistics) observe(fix Fix) {
	if !s.seen {
		s.seen = true
		s.maxSpeed, s.minSpeed = fix.Speed, fix.Speed
		s.maxAltitude = fix.Altitude
		s.maxTemp, s.minTemp = fix.Temperature, fix.Temperature
		s.maxHR, s.minHR = fix.HeartRate, fix.HeartRate
	}

	s.maxSpeed = math.Max(s.maxSpeed, fix.Speed)
	s.minSpeed = math.Min(s.minSpeed, fix.Speed)
	s.maxAltitude = math.Max(s.maxAltitude, fix.Altitude)
	if fix.IsMoving() && fix.Altitude != 0 {
		if !s.haveMinAltitude || fix.Altitude < s.minAltitude {
			s.minAltitude = fix.Altitude
			s.haveMinAltitude = true
		}
	}

	s.maxTemp = math.Max(s.maxTemp, fix.Temperature)
	s.minTemp = math.Min(s.minTemp, fix.Temperature)
	s.tempSum += fix.Temperature

	s.maxHR = max(s.maxHR, fix.HeartRate)
	s.minHR = min(s.minHR, fix.HeartRate)
	if fix.HeartRate > 0 {
		s.hrSum += fix.HeartRate
		s.hrCount++
	}
}

func (s *Statistics) observeLean(lean int) {
	s.maxLeanRight = max(s.maxLeanRight, lean)
	s.maxLeanLeft = min(s.maxLeanLeft, lean)
	if abs := max(lean, -lean); abs > s.maxLean {
		s.maxLean = abs
	}
}

// Summary returns the report for the fixes seen so far.
func (s *Statistics) Summary() Summary {
	sum := Summary{
		TotalFixes:        s.counter.Total(),
		LostFixes:         s.counter.Lost(),
		InterpolatedFixes: s.interpolated,
		MaxSpeed:          s.maxSpeed,
		MinSpeed:          s.minSpeed,
		AverageSpeed:      s.averageSpeed,
		MaxAltitude:       s.maxAltitude,
		MinAltitude:       s.minAltitude,
		MaxLeanAngle:      s.maxLean,
		MaxLeanRight:      s.maxLeanRight,
		MaxLeanLeft:       s.maxLeanLeft,
		MaxTemperature:    s.maxTemp,
		MinTemperature:    s.minTemp,
		MaxHeartRate:      s.maxHR,
		MinHeartRate:      s.minHR,
		TotalTime:         s.totalTime,
		MovingTime:        s.movingTime,
		DistanceKm:        s.distanceKm,
	}
	if n := s.counter.Total(); n > 0 {
		sum.AverageTemperature = s.tempSum / float64(n)
	}
	if s.hrCount > 0 {
		sum.AverageHeartRate = s.hrSum / s.hrCount
	}
	if len(s.movingSpeeds) > 0 {
		sorted := slices.Clone(s.movingSpeeds)
		slices.Sort(sorted)
		sum.P50Speed = stat.Quantile(0.50, stat.Empirical, sorted, nil)
		sum.P85Speed = stat.Quantile(0.85, stat.Empirical, sorted, nil)
		sum.P98Speed = stat.Quantile(0.98, stat.Empirical, sorted, nil)
	}
	return sum
}
