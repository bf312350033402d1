package geomath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAngleConversions(t *testing.T) {
	assert.InDelta(t, math.Pi, ToRadians(180), 1e-12)
	assert.InDelta(t, math.Pi/2, ToRadians(90), 1e-12)
	assert.InDelta(t, 180.0, ToDegrees(math.Pi), 1e-12)
	assert.InDelta(t, 45.0, ToDegrees(ToRadians(45)), 1e-12)
}

func TestHertzToPeriod(t *testing.T) {
	tests := []struct {
		rate    int
		seconds float64
		millis  int
	}{
		{1, 1.0, 1000},
		{5, 0.2, 200},
		{10, 0.1, 100},
		{3, 1.0 / 3.0, 333},
		{20, 0.05, 50},
	}
	for _, tt := range tests {
		s, err := HertzToPeriodSeconds(tt.rate)
		require.NoError(t, err)
		assert.InDelta(t, tt.seconds, s, 1e-12, "rate %d", tt.rate)

		ms, err := HertzToPeriodMillis(tt.rate)
		require.NoError(t, err)
		assert.Equal(t, tt.millis, ms, "rate %d", tt.rate)
	}
}

func TestHertzToPeriodZero(t *testing.T) {
	_, err := HertzToPeriodSeconds(0)
	assert.ErrorIs(t, err, ErrDivisionByZero)
	_, err = HertzToPeriodMillis(0)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestHaversineKm(t *testing.T) {
	t.Run("identical points", func(t *testing.T) {
		assert.Equal(t, 0.0, HaversineKm(45.4642, 9.19, 45.4642, 9.19))
		assert.Equal(t, 0.0, HaversineKm(-33.86, 151.2, -33.86, 151.2))
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		assert.InDelta(t, 111.2263, HaversineKm(0, 0, 1, 0), 1e-3)
	})

	t.Run("antipodal", func(t *testing.T) {
		assert.InDelta(t, math.Pi*EarthRadiusKm, HaversineKm(0, 0, 0, 180), 1e-6)
	})

	t.Run("symmetric", func(t *testing.T) {
		pairs := [][4]float64{
			{45.4642, 9.19, 45.4701, 9.2001},
			{-33.86, 151.2, 51.5, -0.12},
			{0, 179.9, 0, -179.9},
			{89.9, 0, -89.9, 90},
		}
		for _, p := range pairs {
			ab := HaversineKm(p[0], p[1], p[2], p[3])
			ba := HaversineKm(p[2], p[3], p[0], p[1])
			assert.InDelta(t, ab, ba, 1e-9)
		}
	})

	t.Run("monotonic with separation", func(t *testing.T) {
		prev := 0.0
		for lon := 10.0; lon <= 180; lon += 10 {
			d := HaversineKm(0, 0, 0, lon)
			assert.Greater(t, d, prev, "lon %f", lon)
			prev = d
		}
	})
}

func TestYawDelta(t *testing.T) {
	tests := []struct {
		name       string
		curr, prev float64
		expected   float64
	}{
		{"small right turn", 100, 90, 10},
		{"small left turn", 80, 90, -10},
		{"straight", 270, 270, 0},
		{"right across north", 1, 359, 2},
		{"left across north", 359, 1, -2},
		{"right across north wide", 20, 340, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, YawDelta(tt.curr, tt.prev), 1e-9)
		})
	}
}

func TestTurnDirection(t *testing.T) {
	assert.Greater(t, TurnDirection(100, 90), 0.0)
	assert.Less(t, TurnDirection(80, 90), 0.0)
	assert.Greater(t, TurnDirection(1, 359), 0.0)
	assert.Less(t, TurnDirection(359, 1), 0.0)
}

func TestTurnPeriodSeconds(t *testing.T) {
	tests := []struct {
		yaw, dt, want float64
	}{
		{10, 0.1, 360},
		{-10, 0.1, -360},
		{2, 0.2, 900},
		{40, 0.1, 90},
	}
	for _, tt := range tests {
		if got := TurnPeriodSeconds(tt.yaw, tt.dt); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("TurnPeriodSeconds(%v, %v) = %v, want %v", tt.yaw, tt.dt, got, tt.want)
		}
	}
}

func TestLeanAngleDeg(t *testing.T) {
	t.Run("right turn at 10Hz", func(t *testing.T) {
		// period 360/(10·0.1) = 360s, radius 795.8m at 50 km/h
		lean, err := LeanAngleDeg(100, 90, 50, 50, 10)
		require.NoError(t, err)
		assert.InDelta(t, 1.416, lean, 1e-3)
	})

	t.Run("hard turn at 100 km/h", func(t *testing.T) {
		lean, err := LeanAngleDeg(130, 90, 100, 100, 10)
		require.NoError(t, err)
		assert.InDelta(t, 11.186, lean, 1e-3)
	})

	t.Run("left turn mirrors right turn", func(t *testing.T) {
		right, err := LeanAngleDeg(100, 90, 50, 50, 10)
		require.NoError(t, err)
		left, err := LeanAngleDeg(80, 90, 50, 50, 10)
		require.NoError(t, err)
		assert.InDelta(t, -right, left, 1e-9)
	})

	t.Run("wraparound at 5Hz", func(t *testing.T) {
		lean, err := LeanAngleDeg(1, 359, 40, 40, 5)
		require.NoError(t, err)
		assert.InDelta(t, 0.4532, lean, 1e-4)

		lean, err = LeanAngleDeg(359, 1, 40, 40, 5)
		require.NoError(t, err)
		assert.InDelta(t, -0.4532, lean, 1e-4)
	})

	t.Run("unchanged heading is zero for any speed", func(t *testing.T) {
		for _, speeds := range [][2]float64{{10, 50}, {80, 80}, {120, 3}} {
			lean, err := LeanAngleDeg(42, 42, speeds[0], speeds[1], 10)
			require.NoError(t, err)
			assert.Equal(t, 0.0, lean)
			assert.False(t, math.IsNaN(lean))
		}
	})

	t.Run("standstill is zero", func(t *testing.T) {
		lean, err := LeanAngleDeg(120, 90, 0, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, 0.0, lean)
	})

	t.Run("lean grows with speed", func(t *testing.T) {
		slow, _ := LeanAngleDeg(95, 90, 20, 20, 10)
		fast, _ := LeanAngleDeg(95, 90, 60, 60, 10)
		assert.Greater(t, fast, slow)
	})

	t.Run("zero rate fails", func(t *testing.T) {
		_, err := LeanAngleDeg(100, 90, 50, 50, 0)
		assert.ErrorIs(t, err, ErrDivisionByZero)
	})
}
