package trackio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/banshee-data/track.report/internal/monitoring"
	"github.com/banshee-data/track.report/internal/track"
	"github.com/banshee-data/track.report/internal/units"
)

var nmeaLogf = monitoring.Prefixed("nmea: ")

// NMEASource turns a raw NMEA 0183 log into logger records. Each valid RMC
// sentence becomes a data row, taking satellites and altitude from the most
// recent GGA. A void RMC stands for a lost fix and yields a gap marker.
// Temperature and heart rate are not part of NMEA and read as zero.
type NMEASource struct {
	sc   *bufio.Scanner
	line int

	satellites int64
	altitude   float64
	void       bool
	skipped    int
}

// NewNMEASource returns a source reading sentences from r.
func NewNMEASource(r io.Reader) *NMEASource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4*1024), maxLineBytes)
	return &NMEASource{sc: sc}
}

// Header returns track.InputColumns since NMEA logs carry no header.
func (s *NMEASource) Header() []string { return track.InputColumns }

// Next returns the next record. Sentences other than RMC and GGA, and lines
// that fail to parse, are skipped.
func (s *NMEASource) Next() (track.Record, error) {
	for s.sc.Scan() {
		s.line++
		text := strings.TrimSpace(s.sc.Text())
		if !strings.HasPrefix(text, "$") {
			continue
		}

		sentence, err := nmea.Parse(text)
		if err != nil {
			s.skipped++
			continue
		}

		switch m := sentence.(type) {
		case nmea.GGA:
			s.satellites = m.NumSatellites
			s.altitude = m.Altitude
		case nmea.RMC:
			if m.Validity != nmea.ValidRMC {
				if s.void {
					continue
				}
				s.void = true
				return track.Record{Row: s.line, GapMarker: true}, nil
			}
			s.void = false
			return track.Record{Row: s.line, Fields: s.fields(m)}, nil
		}
	}
	if err := s.sc.Err(); err != nil {
		return track.Record{}, fmt.Errorf("line %d: %w", s.line+1, err)
	}
	if s.skipped > 0 {
		nmeaLogf("skipped %d unparsable sentences", s.skipped)
		s.skipped = 0
	}
	return track.Record{}, io.EOF
}

func (s *NMEASource) fields(m nmea.RMC) []string {
	out := make([]string, track.FieldCount)
	out[0] = formatFloat(m.Latitude)
	out[1] = formatFloat(m.Longitude)
	out[2] = strconv.FormatInt(s.satellites, 10)
	out[3] = formatFloat(units.KnotsToKmh(m.Speed))
	out[4] = formatFloat(s.altitude)
	out[5] = formatFloat(m.Course)
	out[6], out[7] = "", ""
	if m.Date.Valid && m.Time.Valid {
		out[8] = strconv.Itoa(2000 + m.Date.YY)
		out[9] = strconv.Itoa(m.Date.MM)
		out[10] = strconv.Itoa(m.Date.DD)
		out[11] = strconv.Itoa(m.Time.Hour)
		out[12] = strconv.Itoa(m.Time.Minute)
		out[13] = strconv.Itoa(m.Time.Second)
		out[14] = strconv.Itoa(m.Time.Millisecond / 10)
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
