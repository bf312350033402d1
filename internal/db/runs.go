package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/track.report/internal/track"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run is a processed track as stored.
type Run struct {
	ID           string        `json:"run_id"`
	Source       string        `json:"source"`
	SampleRateHz int           `json:"sample_rate_hz"`
	CreatedAt    time.Time     `json:"created_at"`
	Summary      track.Summary `json:"summary"`
}

// RecordTrack stores t and all of its fixes as a new run and returns the run
// ID. source names where the track came from, usually the input path.
func (db *DB) RecordTrack(ctx context.Context, source string, sampleRateHz int, t *track.Track) (string, error) {
	summary, err := json.Marshal(t.Summary)
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}

	id := uuid.NewString()
	created := db.clock.Now()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, source, sample_rate_hz, created_unix_ms,
			total_fixes, lost_fixes, distance_km, moving_time_ms, summary_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, source, sampleRateHz, created.UnixMilli(),
		t.Summary.TotalFixes, t.Summary.LostFixes, t.Summary.DistanceKm,
		t.Summary.MovingTime.Milliseconds(), string(summary),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fixes (
			run_id, seq, time_unix_ms, latitude, longitude, satellites, speed_kmh,
			altitude_m, heading_deg, temperature_c, heart_rate_bpm, interpolated,
			lean_angle_deg, distance_km, total_time_ms, moving_time_ms, average_speed_kmh
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, f := range t.Fixes {
		var ts sql.NullInt64
		if !f.Time.IsZero() {
			ts = sql.NullInt64{Int64: f.Time.UnixMilli(), Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			id, i, ts, f.Latitude, f.Longitude, f.Satellites, f.Speed,
			f.Altitude, f.Heading, f.Temperature, f.HeartRate, f.Interpolated,
			f.LeanAngle, f.DistanceKm, f.TotalTime.Milliseconds(), f.MovingTime.Milliseconds(), f.AverageSpeedKmh,
		)
		if err != nil {
			return "", fmt.Errorf("insert fix %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

const runColumns = `run_id, source, sample_rate_hz, created_unix_ms, summary_json`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var (
		r         Run
		createdMs int64
		summary   string
	)
	if err := row.Scan(&r.ID, &r.Source, &r.SampleRateHz, &createdMs, &summary); err != nil {
		return Run{}, err
	}
	r.CreatedAt = time.UnixMilli(createdMs).UTC()
	if err := json.Unmarshal([]byte(summary), &r.Summary); err != nil {
		return Run{}, fmt.Errorf("decode summary of run %s: %w", r.ID, err)
	}
	return r, nil
}

// Runs returns the most recent runs, newest first. limit <= 0 means 100.
func (db *DB) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_unix_ms DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns a single run by ID.
func (db *DB) Run(ctx context.Context, id string) (Run, error) {
	r, err := scanRun(db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// RunFixes returns the fixes of a run in emission order.
func (db *DB) RunFixes(ctx context.Context, id string) ([]track.EnrichedFix, error) {
	if _, err := db.Run(ctx, id); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT time_unix_ms, latitude, longitude, satellites, speed_kmh,
			altitude_m, heading_deg, temperature_c, heart_rate_bpm, interpolated,
			lean_angle_deg, distance_km, total_time_ms, moving_time_ms, average_speed_kmh
		FROM fixes WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fixes := []track.EnrichedFix{}
	for rows.Next() {
		var (
			f                 track.EnrichedFix
			ts                sql.NullInt64
			totalMs, movingMs int64
		)
		if err := rows.Scan(&ts, &f.Latitude, &f.Longitude, &f.Satellites, &f.Speed,
			&f.Altitude, &f.Heading, &f.Temperature, &f.HeartRate, &f.Interpolated,
			&f.LeanAngle, &f.DistanceKm, &totalMs, &movingMs, &f.AverageSpeedKmh); err != nil {
			return nil, err
		}
		if ts.Valid {
			f.Time = time.UnixMilli(ts.Int64).UTC()
		}
		f.TotalTime = time.Duration(totalMs) * time.Millisecond
		f.MovingTime = time.Duration(movingMs) * time.Millisecond
		fixes = append(fixes, f)
	}
	return fixes, rows.Err()
}

// DeleteRun removes a run and its fixes.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Sink stores every track it receives as a new run.
type Sink struct {
	DB           *DB
	Source       string
	SampleRateHz int

	// RunID is set after a successful WriteTrack.
	RunID string
}

// WriteTrack implements track.Sink.
func (s *Sink) WriteTrack(ctx context.Context, t *track.Track) error {
	id, err := s.DB.RecordTrack(ctx, s.Source, s.SampleRateHz, t)
	if err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	s.RunID = id
	return nil
}
