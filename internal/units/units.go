// Package units provides shared constants and conversions for speed units
package units

// Unit constants
const (
	MPS   = "mps"
	KMPH  = "kmph"
	KNOTS = "knots"
)

// StandardGravity is the standard acceleration of gravity in m/s².
const StandardGravity = 9.80665

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, KMPH, KNOTS}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// KmhToMps converts km/h to m/s.
func KmhToMps(speedKmh float64) float64 {
	return speedKmh / 3.6
}

// MpsToKmh converts m/s to km/h.
func MpsToKmh(speedMPS float64) float64 {
	return speedMPS * 3.6
}

// KnotsToKmh converts knots (NMEA speed over ground) to km/h.
func KnotsToKmh(speedKnots float64) float64 {
	return speedKnots * 1.852
}

// ConvertSpeed converts a speed in km/h to the target units.
// Track fixes carry speeds in km/h.
func ConvertSpeed(speedKmh float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return KmhToMps(speedKmh)
	case KNOTS:
		return speedKmh / 1.852
	default:
		return speedKmh
	}
}
