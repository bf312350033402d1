// Package interp resamples short numeric sequences.
package interp

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for a source shorter than two values or a
// non-positive output length.
var ErrInvalidArgument = errors.New("invalid argument")

// Linear resamples source onto outputLength values. Source breakpoint i lands
// on output index i*(outputLength-1)/(len(source)-1) using integer division,
// and the values between two consecutive breakpoints are filled linearly.
// The truncating index mapping is part of the contract: callers rely on
// reproducible breakpoint positions.
//
// output[0] is always source[0]. For outputLength >= 2 the last output value
// is source[len(source)-1]. Breakpoints that collapse onto the same output
// index keep the earlier value.
func Linear(source []float64, outputLength int) ([]float64, error) {
	if len(source) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 source values, got %d", ErrInvalidArgument, len(source))
	}
	if outputLength < 1 {
		return nil, fmt.Errorf("%w: output length must be positive, got %d", ErrInvalidArgument, outputLength)
	}

	dest := make([]float64, outputLength)
	dest[0] = source[0]

	jPrev := 0
	for i := 1; i < len(source); i++ {
		j := i * (outputLength - 1) / (len(source) - 1)
		fill(dest, jPrev, j, source[i-1], source[i])
		if j > jPrev {
			jPrev = j
		}
	}
	return dest, nil
}

// fill writes dest[from+1..to] on the line from (from, valueFrom) to (to, valueTo).
func fill(dest []float64, from, to int, valueFrom, valueTo float64) {
	span := to - from
	if span <= 0 {
		return
	}
	delta := valueTo - valueFrom
	for k := 1; k <= span; k++ {
		dest[from+k] = valueFrom + delta*float64(k)/float64(span)
	}
}
