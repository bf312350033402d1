package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/track.report/internal/units"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/track.defaults.json"

// Input formats accepted by InputFormat.
const (
	FormatCSV  = "csv"
	FormatNMEA = "nmea"
)

// TrackConfig is the run configuration for trackparser. Every field is
// optional; the Get* accessors supply the default for an unset field.
type TrackConfig struct {
	SampleRateHz *int    `json:"sample_rate_hz,omitempty"`
	GapMarker    *string `json:"gap_marker,omitempty"`
	Timezone     *string `json:"timezone,omitempty"`
	StrictGaps   *bool   `json:"strict_gaps,omitempty"`
	InputFormat  *string `json:"input_format,omitempty"`

	// Outputs beyond the CSV file; empty disables each one.
	DBPath    *string `json:"db_path,omitempty"`
	PlotDir   *string `json:"plot_dir,omitempty"`
	ChartPath *string `json:"chart_path,omitempty"`

	MQTTBroker   *string `json:"mqtt_broker,omitempty"`
	MQTTTopic    *string `json:"mqtt_topic,omitempty"`
	MQTTClientID *string `json:"mqtt_client_id,omitempty"`

	SerialBaudRate    *int    `json:"serial_baud_rate,omitempty"`
	SerialIdleTimeout *string `json:"serial_idle_timeout,omitempty"` // duration string like "2s"
}

func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyTrackConfig returns a TrackConfig with all fields unset.
func EmptyTrackConfig() *TrackConfig {
	return &TrackConfig{}
}

// DefaultTrackConfig returns a TrackConfig with every field set to its
// default.
func DefaultTrackConfig() *TrackConfig {
	c := EmptyTrackConfig()
	return &TrackConfig{
		SampleRateHz:      ptrInt(c.GetSampleRateHz()),
		GapMarker:         ptrString(c.GetGapMarker()),
		Timezone:          ptrString(c.GetTimezone()),
		StrictGaps:        ptrBool(c.GetStrictGaps()),
		InputFormat:       ptrString(c.GetInputFormat()),
		DBPath:            ptrString(""),
		PlotDir:           ptrString(""),
		ChartPath:         ptrString(""),
		MQTTBroker:        ptrString(""),
		MQTTTopic:         ptrString(c.GetMQTTTopic()),
		MQTTClientID:      ptrString(c.GetMQTTClientID()),
		SerialBaudRate:    ptrInt(c.GetSerialBaudRate()),
		SerialIdleTimeout: ptrString(c.GetSerialIdleTimeout().String()),
	}
}

// LoadTrackConfig loads a TrackConfig from a JSON file. The file must have a
// .json extension and be at most 1 MB. Omitted fields keep their defaults.
func LoadTrackConfig(path string) (*TrackConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTrackConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or one of its parents. It panics if the file cannot be loaded and is meant
// for test setup.
func MustLoadDefaultConfig() *TrackConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTrackConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *TrackConfig) Validate() error {
	if c.SampleRateHz != nil && *c.SampleRateHz <= 0 {
		return fmt.Errorf("sample_rate_hz must be positive, got %d", *c.SampleRateHz)
	}
	if c.GapMarker != nil && *c.GapMarker == "" {
		return fmt.Errorf("gap_marker must not be empty")
	}
	if c.Timezone != nil && !units.IsTimezoneValid(*c.Timezone) {
		return fmt.Errorf("invalid timezone %q", *c.Timezone)
	}
	if c.InputFormat != nil {
		switch *c.InputFormat {
		case FormatCSV, FormatNMEA:
		default:
			return fmt.Errorf("input_format must be %q or %q, got %q", FormatCSV, FormatNMEA, *c.InputFormat)
		}
	}
	if c.SerialBaudRate != nil && *c.SerialBaudRate <= 0 {
		return fmt.Errorf("serial_baud_rate must be positive, got %d", *c.SerialBaudRate)
	}
	if c.SerialIdleTimeout != nil && *c.SerialIdleTimeout != "" {
		d, err := time.ParseDuration(*c.SerialIdleTimeout)
		if err != nil {
			return fmt.Errorf("invalid serial_idle_timeout '%s': %w", *c.SerialIdleTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("serial_idle_timeout must be positive, got %s", d)
		}
	}
	return nil
}

// GetSampleRateHz returns the logger sample rate or the default.
func (c *TrackConfig) GetSampleRateHz() int {
	if c.SampleRateHz == nil {
		return 10
	}
	return *c.SampleRateHz
}

// GetGapMarker returns the signal-loss marker token or the default.
func (c *TrackConfig) GetGapMarker() string {
	if c.GapMarker == nil || *c.GapMarker == "" {
		return "****FIX_LOST****"
	}
	return *c.GapMarker
}

// GetTimezone returns the output timezone or the default.
func (c *TrackConfig) GetTimezone() string {
	if c.Timezone == nil || *c.Timezone == "" {
		return units.LocalTimezone
	}
	return *c.Timezone
}

// GetStrictGaps reports whether an unresolvable gap aborts the run.
func (c *TrackConfig) GetStrictGaps() bool {
	if c.StrictGaps == nil {
		return true
	}
	return *c.StrictGaps
}

// GetInputFormat returns the input format or the default.
func (c *TrackConfig) GetInputFormat() string {
	if c.InputFormat == nil || *c.InputFormat == "" {
		return FormatCSV
	}
	return *c.InputFormat
}

func (c *TrackConfig) GetDBPath() string    { return stringOr(c.DBPath, "") }
func (c *TrackConfig) GetPlotDir() string   { return stringOr(c.PlotDir, "") }
func (c *TrackConfig) GetChartPath() string { return stringOr(c.ChartPath, "") }

func (c *TrackConfig) GetMQTTBroker() string   { return stringOr(c.MQTTBroker, "") }
func (c *TrackConfig) GetMQTTTopic() string    { return stringOr(c.MQTTTopic, "track") }
func (c *TrackConfig) GetMQTTClientID() string { return stringOr(c.MQTTClientID, "track-report") }

// GetSerialBaudRate returns the serial download baud rate or the default.
func (c *TrackConfig) GetSerialBaudRate() int {
	if c.SerialBaudRate == nil {
		return 115200
	}
	return *c.SerialBaudRate
}

// GetSerialIdleTimeout parses and returns SerialIdleTimeout.
func (c *TrackConfig) GetSerialIdleTimeout() time.Duration {
	if c.SerialIdleTimeout == nil || *c.SerialIdleTimeout == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(*c.SerialIdleTimeout)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

func stringOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}
