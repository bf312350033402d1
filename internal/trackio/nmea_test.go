package trackio

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/track.report/internal/monitoring"
	"github.com/banshee-data/track.report/internal/track"
)

func init() {
	monitoring.SetLogger(nil)
}

var nmeaLog = strings.Join([]string{
	"$GPGGA,101542.00,4527.8522,N,00911.3989,E,1,09,0.9,122.5,M,47.0,M,,*63",
	"$GPRMC,101542.00,A,4527.8522,N,00911.3989,E,27.00,271.0,130621,,,A*50",
	"logger boot banner",
	"$GPRMC,101543.00,V,4527.8522,N,00911.3989,E,0.00,0.0,130621,,,N*78",
	"$GPRMC,101544.00,V,4527.8522,N,00911.3989,E,0.00,0.0,130621,,,N*7F",
	"$GPXYZ,garbage*00",
	"$GPGGA,101545.00,4527.8540,N,00911.3970,E,1,07,0.9,124.0,M,47.0,M,,*6B",
	"$GPRMC,101545.00,A,4527.8540,N,00911.3970,E,10.00,273.0,130621,,,A*53",
}, "\r\n")

func TestNMEASource(t *testing.T) {
	src := NewNMEASource(strings.NewReader(nmeaLog))
	assert.Equal(t, track.InputColumns, src.Header())

	rec, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Row)
	require.False(t, rec.GapMarker)

	fix, err := track.ParseFix(rec.Fields)
	require.NoError(t, err)
	assert.InDelta(t, 45+27.8522/60, fix.Latitude, 1e-9)
	assert.InDelta(t, 9+11.3989/60, fix.Longitude, 1e-9)
	assert.Equal(t, 9, fix.Satellites)
	assert.InDelta(t, 27*1.852, fix.Speed, 1e-9)
	assert.Equal(t, 122.5, fix.Altitude)
	assert.Equal(t, 271.0, fix.Heading)
	assert.Zero(t, fix.Temperature)
	assert.Zero(t, fix.HeartRate)
	assert.Equal(t, time.Date(2021, 6, 13, 10, 15, 42, 0, time.UTC), fix.Time)

	rec, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, track.Record{Row: 4, GapMarker: true}, rec)

	// The second void sentence collapses into the first.
	rec, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, 8, rec.Row)
	fix, err = track.ParseFix(rec.Fields)
	require.NoError(t, err)
	assert.Equal(t, 7, fix.Satellites)
	assert.Equal(t, 124.0, fix.Altitude)
	assert.Equal(t, time.Date(2021, 6, 13, 10, 15, 45, 0, time.UTC), fix.Time)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestNMEASource_FillsGapThroughPipeline(t *testing.T) {
	p, err := track.NewPipeline(track.Options{SampleRateHz: 1})
	require.NoError(t, err)

	tr, err := p.Run(t.Context(), NewNMEASource(strings.NewReader(nmeaLog)))
	require.NoError(t, err)

	require.Len(t, tr.Fixes, 4)
	assert.True(t, tr.Fixes[1].Interpolated)
	assert.True(t, tr.Fixes[2].Interpolated)
	assert.Equal(t, 1, tr.Summary.GapsFilled)
}
