package trackio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/track.report/internal/track"
)

const (
	dateLayout = "02/01/2006"
	timeLayout = "15:04:05.000"
)

// OutputPath returns <dir>/<name>_out<ext> for an input file path.
func OutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_out" + ext
}

// OutputHeader returns the column names of an output row. The input's date
// and time columns collapse into a single date and a single time column.
func OutputHeader(input []string) []string {
	const leading = 8
	if len(input) < leading {
		input = track.InputColumns
	}
	out := make([]string, 0, leading+2+len(track.DerivedColumns))
	out = append(out, input[:leading]...)
	out = append(out, "date", "time")
	return append(out, track.DerivedColumns...)
}

// CSVWriter writes a processed track as the summary block, a header line and
// one row per fix. Timestamps are rendered in the writer's location.
type CSVWriter struct {
	w   io.Writer
	loc *time.Location
}

// NewCSVWriter returns a writer to w. A nil loc means time.Local.
func NewCSVWriter(w io.Writer, loc *time.Location) *CSVWriter {
	if loc == nil {
		loc = time.Local
	}
	return &CSVWriter{w: w, loc: loc}
}

// WriteTrack implements track.Sink.
func (cw *CSVWriter) WriteTrack(ctx context.Context, t *track.Track) error {
	bw := bufio.NewWriter(cw.w)
	if _, err := bw.WriteString(FormatSummary(t.Summary)); err != nil {
		return err
	}
	if _, err := bw.WriteString(strings.Join(OutputHeader(t.Header), Separator) + "\n"); err != nil {
		return err
	}

	buf := make([]byte, 0, 256)
	for i, f := range t.Fixes {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		buf = cw.appendRow(buf[:0], f)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (cw *CSVWriter) appendRow(b []byte, f track.EnrichedFix) []byte {
	b = strconv.AppendFloat(b, f.Latitude, 'f', 7, 64)
	b = append(b, ',')
	b = strconv.AppendFloat(b, f.Longitude, 'f', 7, 64)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(f.Satellites), 10)
	b = append(b, ',')
	b = strconv.AppendFloat(b, f.Speed, 'f', 2, 64)
	b = append(b, ',')
	b = strconv.AppendFloat(b, f.Altitude, 'f', 1, 64)
	b = append(b, ',')
	b = strconv.AppendFloat(b, f.Heading, 'f', 0, 64)
	b = append(b, ',')
	b = strconv.AppendFloat(b, f.Temperature, 'f', 1, 64)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(f.HeartRate), 10)
	b = append(b, ',')
	if !f.Time.IsZero() {
		local := f.Time.In(cw.loc)
		b = local.AppendFormat(b, dateLayout)
		b = append(b, ',')
		b = local.AppendFormat(b, timeLayout)
	} else {
		b = append(b, ',')
	}
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(f.LeanAngle), 10)
	b = append(b, ',')
	b = strconv.AppendFloat(b, f.DistanceKm, 'f', 1, 64)
	b = append(b, ',')
	b = append(b, FormatElapsed(f.TotalTime)...)
	b = append(b, ',')
	b = append(b, FormatElapsed(f.MovingTime)...)
	b = append(b, ',')
	b = strconv.AppendFloat(b, f.AverageSpeedKmh, 'f', 2, 64)
	return append(b, '\n')
}

// FileSink writes the track to a file, replacing any existing one.
type FileSink struct {
	Path     string
	Location *time.Location
}

// WriteTrack implements track.Sink.
func (s FileSink) WriteTrack(ctx context.Context, t *track.Track) (err error) {
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := NewCSVWriter(f, s.Location).WriteTrack(ctx, t); err != nil {
		return fmt.Errorf("write %s: %w", s.Path, err)
	}
	return nil
}
