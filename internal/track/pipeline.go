package track

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/track.report/internal/monitoring"
)

// Record is one line of input: a gap marker or the fields of a data row.
type Record struct {
	Row       int // 1-based input line, used in error messages
	GapMarker bool
	Fields    []string
}

// RecordSource yields records in input order. Next returns io.EOF after the
// last record.
type RecordSource interface {
	Header() []string
	Next() (Record, error)
}

// Track is a fully processed stream: the input header, every emitted fix in
// order, and the summary.
type Track struct {
	Header  []string
	Fixes   []EnrichedFix
	Summary Summary
}

// Sink receives the processed track once the input is exhausted.
type Sink interface {
	WriteTrack(ctx context.Context, t *Track) error
}

// Options configures a Pipeline.
type Options struct {
	SampleRateHz int

	// SkipUnresolvableGaps logs a gap whose endpoints do not fall on the
	// sample grid and continues without filling it, instead of failing.
	SkipUnresolvableGaps bool
}

type pipelineState int

const (
	stateNormal pipelineState = iota
	stateAwaitingPostGapFix
)

func (s pipelineState) String() string {
	switch s {
	case stateNormal:
		return "normal"
	case stateAwaitingPostGapFix:
		return "awaiting-post-gap-fix"
	default:
		return fmt.Sprintf("pipelineState(%d)", int(s))
	}
}

// Pipeline turns a record stream into an ordered, gap-filled stream of
// enriched fixes. A Pipeline is single-use and not safe for concurrent use.
type Pipeline struct {
	opts  Options
	stats *Statistics

	state pipelineState
	prev  *Fix
	fixes []EnrichedFix
	gaps  int
}

// NewPipeline returns a pipeline for the given options.
func NewPipeline(opts Options) (*Pipeline, error) {
	stats, err := NewStatistics(opts.SampleRateHz)
	if err != nil {
		return nil, err
	}
	return &Pipeline{opts: opts, stats: stats}, nil
}

// Process consumes one record and returns the fixes it caused to be emitted.
// A gap marker emits nothing; the next data row emits the synthesized fixes
// followed by itself.
func (p *Pipeline) Process(rec Record) ([]EnrichedFix, error) {
	if rec.GapMarker {
		p.state = stateAwaitingPostGapFix
		return nil, nil
	}

	fix, err := ParseFix(rec.Fields)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Row = rec.Row
		}
		return nil, err
	}

	if p.state == stateNormal {
		return p.emit(fix)
	}
	p.state = stateNormal

	if p.prev == nil {
		monitoring.Logf("row %d: signal lost before first fix, nothing to fill", rec.Row)
		return p.emit(fix)
	}

	filled, err := NewGapFiller(*p.prev, fix, p.opts.SampleRateHz).Generate()
	if err != nil {
		if errors.Is(err, ErrGapUnresolvable) && p.opts.SkipUnresolvableGaps {
			monitoring.Logf("row %d: skipping gap: %v", rec.Row, err)
			return p.emit(fix)
		}
		return nil, fmt.Errorf("row %d: %w", rec.Row, err)
	}
	p.gaps++
	monitoring.Debugf("row %d: filled gap with %d fixes", rec.Row, len(filled)-1)
	return p.emit(filled...)
}

func (p *Pipeline) emit(fixes ...Fix) ([]EnrichedFix, error) {
	start := len(p.fixes)
	for _, f := range fixes {
		e, err := p.stats.Update(f, p.prev)
		if err != nil {
			return nil, err
		}
		p.fixes = append(p.fixes, e)
		fix := f
		p.prev = &fix
	}
	return p.fixes[start:], nil
}

// Finish returns the processed track. A gap marker with no following data
// row is ignored.
func (p *Pipeline) Finish(header []string) *Track {
	if p.state == stateAwaitingPostGapFix {
		monitoring.Logf("signal lost at end of input, nothing to fill")
	}
	sum := p.stats.Summary()
	sum.GapsFilled = p.gaps
	return &Track{Header: header, Fixes: p.fixes, Summary: sum}
}

// Run drains src through the pipeline and hands the result to each sink in
// order. The context is checked between records.
func (p *Pipeline) Run(ctx context.Context, src RecordSource, sinks ...Sink) (*Track, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if _, err := p.Process(rec); err != nil {
			return nil, err
		}
	}

	t := p.Finish(src.Header())
	monitoring.Logf("processed %d fixes (%d lost, %d interpolated over %d gaps), %.1f km",
		t.Summary.TotalFixes, t.Summary.LostFixes, t.Summary.InterpolatedFixes, t.Summary.GapsFilled, t.Summary.DistanceKm)

	for _, s := range sinks {
		if err := s.WriteTrack(ctx, t); err != nil {
			return t, err
		}
	}
	return t, nil
}
