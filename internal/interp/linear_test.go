package interp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinear(t *testing.T) {
	approx := cmpopts.EquateApprox(0, 1e-9)

	tests := []struct {
		name   string
		source []float64
		length int
		want   []float64
	}{
		{"two points onto five", []float64{0, 10}, 5, []float64{0, 2.5, 5, 7.5, 10}},
		{"two points onto four", []float64{0, 10}, 4, []float64{0, 10.0 / 3, 20.0 / 3, 10}},
		{"two points onto two", []float64{3, 7}, 2, []float64{3, 7}},
		{"descending", []float64{10, 0}, 3, []float64{10, 5, 0}},
		// 1*3/2 truncates to 1, so the middle breakpoint lands on index 1.
		{"truncated breakpoint", []float64{0, 10, 20}, 4, []float64{0, 10, 15, 20}},
		{"exact breakpoints", []float64{0, 10, 20}, 5, []float64{0, 5, 10, 15, 20}},
		// Breakpoints 0 and 1 collapse onto index 0; the earlier value stays.
		{"downsample", []float64{0, 1, 2, 3, 4}, 3, []float64{0, 2, 4}},
		{"single output keeps first", []float64{4, 9}, 1, []float64{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Linear(tt.source, tt.length)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got, approx); diff != "" {
				t.Errorf("Linear(%v, %d) mismatch (-want +got):\n%s", tt.source, tt.length, diff)
			}
		})
	}
}

func TestLinearEndpoints(t *testing.T) {
	sources := [][]float64{
		{0, 10},
		{-5, 5, -5},
		{1, 2, 4, 8, 16},
		{48.1, 48.2},
	}
	for _, src := range sources {
		for n := 2; n <= 12; n++ {
			got, err := Linear(src, n)
			require.NoError(t, err)
			require.Len(t, got, n)
			assert.Equal(t, src[0], got[0], "source %v length %d", src, n)
			assert.InDelta(t, src[len(src)-1], got[n-1], 1e-12, "source %v length %d", src, n)
		}
	}
}

func TestLinearInvalid(t *testing.T) {
	_, err := Linear([]float64{1}, 5)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Linear(nil, 5)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Linear([]float64{1, 2}, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
