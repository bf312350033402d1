package geomath

import (
	"math"

	"github.com/banshee-data/track.report/internal/units"
)

// LeanAngleDeg estimates the banking angle of a vehicle from two consecutive
// heading/speed samples taken rateHz apart. Headings are compass degrees,
// speeds km/h. The result is signed: positive for a right lean, negative for
// a left lean. Straight-line motion and standstill return 0.
//
// The turn is modelled as a circle: period = 360 / (yaw · dt), radius is the
// average speed times the period over 2π, and lean = atan(v² / (r·g)).
func LeanAngleDeg(headingCurr, headingPrev, speedCurr, speedPrev float64, rateHz int) (float64, error) {
	dt, err := HertzToPeriodSeconds(rateHz)
	if err != nil {
		return 0, err
	}

	yaw := YawDelta(headingCurr, headingPrev)
	if yaw == 0 {
		return 0, nil
	}

	avgSpeed := units.KmhToMps((speedCurr + speedPrev) / 2)
	if avgSpeed == 0 {
		return 0, nil
	}

	period := TurnPeriodSeconds(yaw, dt)
	radius := avgSpeed * period / (2 * math.Pi)

	return ToDegrees(math.Atan(avgSpeed * avgSpeed / (radius * units.StandardGravity))), nil
}

// TurnDirection is positive for a right (clockwise) turn from prev to curr
// and negative for a left turn. Its magnitude is sin of the heading change.
func TurnDirection(headingCurr, headingPrev float64) float64 {
	prev := ToRadians(headingPrev)
	curr := ToRadians(headingCurr)
	return math.Cos(prev)*math.Sin(curr) - math.Sin(prev)*math.Cos(curr)
}

// YawDelta returns the signed heading change in degrees along the shorter
// arc, so 359° -> 1° is +2 and 1° -> 359° is -2.
func YawDelta(headingCurr, headingPrev float64) float64 {
	delta := headingCurr - headingPrev
	if math.Abs(delta) > 180 {
		delta = math.Copysign(360-math.Abs(delta), TurnDirection(headingCurr, headingPrev))
	}
	return delta
}

// TurnPeriodSeconds returns the turning period 360 / (yawDeg · dtSeconds).
// The sign follows yawDeg.
func TurnPeriodSeconds(yawDeg, dtSeconds float64) float64 {
	return 360 / (yawDeg * dtSeconds)
}
