// Package trackio reads logger records from files, serial links and NMEA
// logs, and writes processed tracks back out as CSV.
package trackio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/track.report/internal/track"
)

// DefaultGapMarker is the token the logger writes when it loses the fix.
const DefaultGapMarker = "****FIX_LOST****"

// Separator splits the fields of a logger row.
const Separator = ","

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// ErrEmptyInput is returned when the input has no header line.
var ErrEmptyInput = errors.New("empty input")

// CSVSource reads the logger's comma separated export: a header line, then
// data rows, with gap marker lines wherever the receiver lost the fix.
type CSVSource struct {
	sc     *bufio.Scanner
	marker string
	header []string
	line   int
}

// NewCSVSource reads the header from r. An empty marker selects
// DefaultGapMarker.
func NewCSVSource(r io.Reader, marker string) (*CSVSource, error) {
	if marker == "" {
		marker = DefaultGapMarker
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	s := &CSVSource{sc: sc, marker: marker}
	for s.sc.Scan() {
		s.line++
		text := strings.TrimSpace(s.sc.Text())
		if text == "" {
			continue
		}
		s.header = strings.Split(text, Separator)
		return s, nil
	}
	if err := s.sc.Err(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	return nil, ErrEmptyInput
}

// Header returns the input column names.
func (s *CSVSource) Header() []string { return s.header }

// Next returns the next record, skipping blank lines.
func (s *CSVSource) Next() (track.Record, error) {
	for s.sc.Scan() {
		s.line++
		text := strings.TrimSpace(s.sc.Text())
		if text == "" {
			continue
		}
		if strings.Contains(text, s.marker) {
			return track.Record{Row: s.line, GapMarker: true}, nil
		}
		return track.Record{Row: s.line, Fields: strings.Split(text, Separator)}, nil
	}
	if err := s.sc.Err(); err != nil {
		return track.Record{}, fmt.Errorf("line %d: %w", s.line+1, err)
	}
	return track.Record{}, io.EOF
}
