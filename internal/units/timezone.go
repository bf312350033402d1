package units

import (
	"fmt"
	"time"
)

// LocalTimezone selects the host's local zone for output rows.
const LocalTimezone = "Local"

// IsTimezoneValid checks if the given timezone is valid by attempting to load it from the tz database
// This validates against the actual system tz database rather than a hardcoded list
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// LoadTimezone resolves a timezone name. "Local" and "UTC" never fail.
func LoadTimezone(tz string) (*time.Location, error) {
	switch tz {
	case "", LocalTimezone:
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", tz, err)
	}
	return loc, nil
}
