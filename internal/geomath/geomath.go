// Package geomath holds the stateless geometry used to derive track metrics:
// angle and rate conversions, great-circle distance and lean angle estimation.
package geomath

import (
	"errors"
	"math"
)

// EarthRadiusKm is the spherical Earth radius used by HaversineKm.
const EarthRadiusKm = 6372.8

// ErrDivisionByZero is returned when a sample rate of zero is converted to a period.
var ErrDivisionByZero = errors.New("division by zero")

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// ToDegrees converts radians to degrees.
func ToDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// HertzToPeriodSeconds returns the interval between samples at rateHz.
// 10Hz => 0.1s, 5Hz => 0.2s.
func HertzToPeriodSeconds(rateHz int) (float64, error) {
	if rateHz == 0 {
		return 0, ErrDivisionByZero
	}
	return 1.0 / float64(rateHz), nil
}

// HertzToPeriodMillis returns the interval between samples at rateHz in
// whole milliseconds, truncated. 10Hz => 100ms, 3Hz => 333ms.
func HertzToPeriodMillis(rateHz int) (int, error) {
	if rateHz == 0 {
		return 0, ErrDivisionByZero
	}
	return 1000 / rateHz, nil
}

// HaversineKm returns the great-circle distance in km between A and B.
// Altitude is ignored.
func HaversineKm(latA, lonA, latB, lonB float64) float64 {
	dLat := ToRadians(latB - latA)
	dLon := ToRadians(lonB - lonA)
	radLatA := ToRadians(latA)
	radLatB := ToRadians(latB)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(radLatA)*math.Cos(radLatB)
	// Rounding can push a slightly past 1 for antipodal points.
	a = math.Min(1, a)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}
