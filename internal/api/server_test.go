package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/track.report/internal/db"
	"github.com/banshee-data/track.report/internal/monitoring"
	"github.com/banshee-data/track.report/internal/track"
	"github.com/banshee-data/track.report/internal/trackio"
	"github.com/banshee-data/track.report/internal/units"
)

func init() {
	monitoring.SetLogger(nil)
}

const header = "latitude,longitude,satellites,speed,altitude,heading,temperature,bpm,year,month,day,hours,minutes,seconds,centiseconds"

// rideCSV holds three fixes at 10 Hz with two missing between the last pair.
var rideCSV = strings.Join([]string{
	header,
	"45.10000,9.10000,8,30,100,90,20,120,2021,6,13,10,0,0,0",
	"45.10010,9.10000,8,31,100,90,20,121,2021,6,13,10,0,0,10",
	trackio.DefaultGapMarker,
	"45.10040,9.10000,8,34,101,90,20,122,2021,6,13,10,0,0,40",
}, "\n")

func setupTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "tracks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return NewServer(database, track.Options{SampleRateHz: 10, SkipUnresolvableGaps: true}, trackio.DefaultGapMarker, time.UTC), database
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, h http.Handler) uploadResponse {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/runs?source=ride.csv", rideCSV)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestUploadRun(t *testing.T) {
	server, database := setupTestServer(t)
	mux := server.ServeMux()

	resp := upload(t, mux)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 2, resp.Summary.InterpolatedFixes)
	assert.Equal(t, 1, resp.Summary.GapsFilled)

	run, err := database.Run(t.Context(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, "ride.csv", run.Source)
	assert.Equal(t, 10, run.SampleRateHz)
}

func TestUploadRun_BadInput(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	unresolvable := header + "\n" +
		"45.1,9.1,8,30,100,90,20,120,2021,6,13,10,0,0,0\n" +
		trackio.DefaultGapMarker + "\n" +
		"45.1,9.1,8,30,100,90,20,120,2021,6,13,10,0,0,45\n"

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"empty body", "/api/runs", ""},
		{"bad latitude", "/api/runs", header + "\nabc,9.1,8,30,100,90,20,120,2021,6,13,10,0,0,0\n"},
		{"bad rate", "/api/runs?rate=fast", rideCSV},
		{"zero rate", "/api/runs?rate=0", rideCSV},
		{"bad strict", "/api/runs?strict=maybe", rideCSV},
		{"strict gap", "/api/runs?strict=true", unresolvable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	// Lenient mode keeps going past the same gap.
	rec := do(t, mux, http.MethodPost, "/api/runs", unresolvable)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestListRuns(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	rec := do(t, mux, http.MethodGet, "/api/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	first := upload(t, mux)
	second := upload(t, mux)

	rec = do(t, mux, http.MethodGet, "/api/runs?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []db.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Contains(t, []string{first.RunID, second.RunID}, runs[0].ID)

	rec = do(t, mux, http.MethodGet, "/api/runs?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShowRunAndFixes(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()
	resp := upload(t, mux)

	rec := do(t, mux, http.MethodGet, "/api/runs/"+resp.RunID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var run db.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	assert.Equal(t, resp.RunID, run.ID)

	rec = do(t, mux, http.MethodGet, "/api/runs/"+resp.RunID+"/fixes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got fixesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, units.KMPH, got.Units)
	assert.Equal(t, "UTC", got.Timezone)
	fixes := got.Fixes
	require.Len(t, fixes, 5)
	assert.InDelta(t, 30, fixes[0].Speed, 1e-9)
	assert.True(t, fixes[2].Interpolated)
	assert.True(t, fixes[3].Interpolated)
	assert.False(t, fixes[4].Interpolated)
}

func TestListFixes_UnitsAndTimezone(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()
	resp := upload(t, mux)

	rec := do(t, mux, http.MethodGet, "/api/runs/"+resp.RunID+"/fixes?units=mps&tz=Europe/Rome", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got fixesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, units.MPS, got.Units)
	assert.Equal(t, "Europe/Rome", got.Timezone)
	fixes := got.Fixes
	require.NotEmpty(t, fixes)
	assert.InDelta(t, 30/3.6, fixes[0].Speed, 1e-9)
	_, offset := fixes[0].Time.Zone()
	assert.Equal(t, 2*60*60, offset)
	assert.Equal(t, 12, fixes[0].Time.Hour())

	for _, q := range []string{"units=furlongs", "tz=Nowhere/Special"} {
		rec = do(t, mux, http.MethodGet, "/api/runs/"+resp.RunID+"/fixes?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestConvertFix(t *testing.T) {
	f := track.EnrichedFix{Fix: track.Fix{Speed: 36}, Derived: track.Derived{AverageSpeedKmh: 18}}
	got := convertFix(f, units.MPS, time.UTC)
	assert.InDelta(t, 10, got.Speed, 1e-9)
	assert.InDelta(t, 5, got.AverageSpeed, 1e-9)
	assert.True(t, got.Time.IsZero())
}

func TestListFixes_SpeedKeysCarryNoUnit(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()
	resp := upload(t, mux)

	for _, u := range []string{units.MPS, units.KNOTS} {
		rec := do(t, mux, http.MethodGet, "/api/runs/"+resp.RunID+"/fixes?units="+u, "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.NotContains(t, body, "speed_kmh", u)
		assert.Contains(t, body, `"units":"`+u+`"`)
		assert.Contains(t, body, `"average_speed":`)
	}
}

func TestChartAndCSV(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()
	resp := upload(t, mux)

	rec := do(t, mux, http.MethodGet, "/api/runs/"+resp.RunID+"/chart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Run "+resp.RunID)

	rec = do(t, mux, http.MethodGet, "/api/runs/"+resp.RunID+"/csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), resp.RunID+"_out.csv")
	body := rec.Body.String()
	assert.Contains(t, body, "Interpolated fixes")
	assert.Contains(t, body, "13/06/2021,10:00:00.200")
}

func TestDeleteRun(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()
	resp := upload(t, mux)

	rec := do(t, mux, http.MethodDelete, "/api/runs/"+resp.RunID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, mux, http.MethodDelete, "/api/runs/"+resp.RunID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRun(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	for _, path := range []string{"/api/runs/nope", "/api/runs/nope/fixes", "/api/runs/nope/chart", "/api/runs/nope/csv"} {
		rec := do(t, mux, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server, _ := setupTestServer(t)
	rec := do(t, server.ServeMux(), http.MethodPut, "/api/runs", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestLoggingMiddleware(t *testing.T) {
	var logged []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, format)
	})
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := do(t, h, http.MethodGet, "/api/runs", "")

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Len(t, logged, 1)
}

func TestStatusCodeColor(t *testing.T) {
	assert.Equal(t, colorBoldGreen+"200"+colorReset, statusCodeColor(200))
	assert.Equal(t, colorYellow+"304"+colorReset, statusCodeColor(304))
	assert.Equal(t, colorBoldRed+"404"+colorReset, statusCodeColor(404))
	assert.Equal(t, colorBoldRed+"500"+colorReset, statusCodeColor(500))
	assert.Equal(t, "100", statusCodeColor(100))
}
