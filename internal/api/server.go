package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/track.report/internal/db"
	"github.com/banshee-data/track.report/internal/httputil"
	"github.com/banshee-data/track.report/internal/monitoring"
	"github.com/banshee-data/track.report/internal/track"
	"github.com/banshee-data/track.report/internal/trackio"
	"github.com/banshee-data/track.report/internal/trackplot"
	"github.com/banshee-data/track.report/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

const (
	defaultRunLimit = 100
	maxRunLimit     = 1000
	maxUploadBytes  = 64 << 20
)

// Server exposes stored runs over HTTP and accepts new logs for processing.
type Server struct {
	db     *db.DB
	opts   track.Options
	marker string
	loc    *time.Location
}

// NewServer returns a server backed by database. opts and marker apply to
// uploaded logs unless the request overrides them; loc is the zone used for
// CSV downloads.
func NewServer(database *db.DB, opts track.Options, marker string, loc *time.Location) *Server {
	if loc == nil {
		loc = time.UTC
	}
	return &Server{db: database, opts: opts, marker: marker, loc: loc}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("POST /api/runs", s.uploadRun)
	mux.HandleFunc("GET /api/runs/{id}", s.showRun)
	mux.HandleFunc("DELETE /api/runs/{id}", s.deleteRun)
	mux.HandleFunc("GET /api/runs/{id}/fixes", s.listFixes)
	mux.HandleFunc("GET /api/runs/{id}/chart", s.showChart)
	mux.HandleFunc("GET /api/runs/{id}/csv", s.downloadCSV)
	return mux
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit", defaultRunLimit, maxRunLimit)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	runs, err := s.db.Runs(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to list runs", err)
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	httputil.WriteJSONOK(w, runs)
}

// loadRun writes the error response itself and reports whether to continue.
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (db.Run, bool) {
	run, err := s.db.Run(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, "run not found")
		return run, false
	}
	if err != nil {
		httputil.InternalServerError(w, "failed to load run", err)
		return run, false
	}
	return run, true
}

func (s *Server) loadTrack(w http.ResponseWriter, r *http.Request) (*track.Track, bool) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return nil, false
	}
	fixes, err := s.db.RunFixes(r.Context(), run.ID)
	if err != nil {
		httputil.InternalServerError(w, "failed to load fixes", err)
		return nil, false
	}
	return &track.Track{Fixes: fixes, Summary: run.Summary}, true
}

func (s *Server) showRun(w http.ResponseWriter, r *http.Request) {
	if run, ok := s.loadRun(w, r); ok {
		httputil.WriteJSONOK(w, run)
	}
}

func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request) {
	err := s.db.DeleteRun(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, "run not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, "failed to delete run", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiFix is a fix as served by the fixes endpoint. Speed fields carry no
// unit in their names: the unit is the one reported by fixesResponse.
type apiFix struct {
	Latitude     float64       `json:"lat"`
	Longitude    float64       `json:"lon"`
	Satellites   int           `json:"satellites"`
	Speed        float64       `json:"speed"`
	Altitude     float64       `json:"altitude_m"`
	Heading      float64       `json:"heading_deg"`
	Temperature  float64       `json:"temperature_c"`
	HeartRate    int           `json:"heart_rate_bpm"`
	Time         time.Time     `json:"time"`
	Interpolated bool          `json:"interpolated,omitempty"`
	LeanAngle    int           `json:"lean_angle_deg"`
	DistanceKm   float64       `json:"distance_km"`
	TotalTime    time.Duration `json:"total_time_ns"`
	MovingTime   time.Duration `json:"moving_time_ns"`
	AverageSpeed float64       `json:"average_speed"`
}

type fixesResponse struct {
	Units    string   `json:"units"`
	Timezone string   `json:"timezone"`
	Fixes    []apiFix `json:"fixes"`
}

// convertFix applies the requested speed units and timezone to a fix.
// Speeds are stored in km/h and times in UTC.
func convertFix(f track.EnrichedFix, targetUnits string, loc *time.Location) apiFix {
	ts := f.Time
	if !ts.IsZero() {
		ts = ts.In(loc)
	}
	return apiFix{
		Latitude:     f.Latitude,
		Longitude:    f.Longitude,
		Satellites:   f.Satellites,
		Speed:        units.ConvertSpeed(f.Speed, targetUnits),
		Altitude:     f.Altitude,
		Heading:      f.Heading,
		Temperature:  f.Temperature,
		HeartRate:    f.HeartRate,
		Time:         ts,
		Interpolated: f.Interpolated,
		LeanAngle:    f.LeanAngle,
		DistanceKm:   f.DistanceKm,
		TotalTime:    f.TotalTime,
		MovingTime:   f.MovingTime,
		AverageSpeed: units.ConvertSpeed(f.AverageSpeedKmh, targetUnits),
	}
}

// listFixes returns the fixes of a run. The optional units query parameter
// selects mps, kmph or knots for the speed fields, and tz the zone of the
// timestamps. Both are echoed in the response.
func (s *Server) listFixes(w http.ResponseWriter, r *http.Request) {
	targetUnits := r.URL.Query().Get("units")
	if targetUnits == "" {
		targetUnits = units.KMPH
	}
	if !units.IsValid(targetUnits) {
		httputil.BadRequest(w, fmt.Sprintf("invalid units %q, want one of %v", targetUnits, units.ValidUnits))
		return
	}
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		var err error
		if loc, err = units.LoadTimezone(tz); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}

	t, ok := s.loadTrack(w, r)
	if !ok {
		return
	}
	resp := fixesResponse{
		Units:    targetUnits,
		Timezone: loc.String(),
		Fixes:    make([]apiFix, len(t.Fixes)),
	}
	for i, f := range t.Fixes {
		resp.Fixes[i] = convertFix(f, targetUnits, loc)
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) showChart(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTrack(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := trackplot.RenderChart(w, "Run "+r.PathValue("id"), t.Fixes); err != nil {
		monitoring.Logf("failed to render chart: %v", err)
	}
}

func (s *Server) downloadCSV(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTrack(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", r.PathValue("id")+"_out.csv"))
	if err := trackio.NewCSVWriter(w, s.loc).WriteTrack(r.Context(), t); err != nil {
		monitoring.Logf("failed to stream csv: %v", err)
	}
}

type uploadResponse struct {
	RunID   string        `json:"run_id"`
	Summary track.Summary `json:"summary"`
}

// uploadRun processes a CSV log in the request body and stores it as a new
// run. Query parameters rate, strict and source override the defaults.
func (s *Server) uploadRun(w http.ResponseWriter, r *http.Request) {
	opts := s.opts
	q := r.URL.Query()
	if raw := q.Get("rate"); raw != "" {
		rate, err := strconv.Atoi(raw)
		if err != nil || rate <= 0 {
			httputil.BadRequest(w, fmt.Sprintf("invalid rate %q", raw))
			return
		}
		opts.SampleRateHz = rate
	}
	if raw := q.Get("strict"); raw != "" {
		strict, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid strict %q", raw))
			return
		}
		opts.SkipUnresolvableGaps = !strict
	}
	source := q.Get("source")
	if source == "" {
		source = "upload"
	}

	p, err := track.NewPipeline(opts)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	src, err := trackio.NewCSVSource(http.MaxBytesReader(w, r.Body, maxUploadBytes), s.marker)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	sink := &db.Sink{DB: s.db, Source: source, SampleRateHz: opts.SampleRateHz}
	t, err := p.Run(r.Context(), src, sink)
	switch {
	case errors.Is(err, track.ErrParse), errors.Is(err, track.ErrGapUnresolvable):
		httputil.BadRequest(w, err.Error())
		return
	case err != nil && t == nil:
		httputil.BadRequest(w, err.Error())
		return
	case err != nil:
		httputil.InternalServerError(w, "failed to store run", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, uploadResponse{RunID: sink.RunID, Summary: t.Summary})
}
