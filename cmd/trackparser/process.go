package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/track.report/internal/config"
	"github.com/banshee-data/track.report/internal/db"
	"github.com/banshee-data/track.report/internal/mqttpub"
	"github.com/banshee-data/track.report/internal/track"
	"github.com/banshee-data/track.report/internal/trackio"
	"github.com/banshee-data/track.report/internal/trackplot"
	"github.com/banshee-data/track.report/internal/units"
)

// serialInputName stands in for the input path when reading a live port.
const serialInputName = "serial.csv"

// runProcess reconstructs the track in input, or on the -serial port when
// input is empty, and hands it to every configured sink.
func runProcess(ctx context.Context, cfg *config.TrackConfig, input string) error {
	loc, err := units.LoadTimezone(cfg.GetTimezone())
	if err != nil {
		return err
	}

	r, source, err := openInput(ctx, cfg, input)
	if err != nil {
		return err
	}
	defer r.Close()

	src, err := newSource(cfg, r)
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}

	out := *outPath
	if out == "" {
		name := input
		if name == "" {
			name = serialInputName
		}
		out = trackio.OutputPath(name)
	}

	sinks, closeSinks, err := buildSinks(cfg, out, source, loc)
	if err != nil {
		return err
	}
	defer closeSinks()

	p, err := track.NewPipeline(track.Options{
		SampleRateHz:         cfg.GetSampleRateHz(),
		SkipUnresolvableGaps: !cfg.GetStrictGaps(),
	})
	if err != nil {
		return err
	}

	// A live port is drained until idle; the signal context only closes it.
	runCtx := ctx
	if input == "" {
		runCtx = context.WithoutCancel(ctx)
	}
	t, err := p.Run(runCtx, src, sinks...)
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}

	fmt.Print(trackio.FormatSummary(t.Summary))
	log.Printf("wrote %s", out)
	return nil
}

func openInput(ctx context.Context, cfg *config.TrackConfig, input string) (io.ReadCloser, string, error) {
	if input != "" {
		f, err := os.Open(input)
		if err != nil {
			return nil, "", fmt.Errorf("open input: %w", err)
		}
		return f, filepath.Base(input), nil
	}

	port, err := trackio.OpenSerial(*serialPath, trackio.PortOptions{
		BaudRate:    cfg.GetSerialBaudRate(),
		IdleTimeout: cfg.GetSerialIdleTimeout(),
	})
	if err != nil {
		return nil, "", err
	}
	log.Printf("reading NMEA from %s, press Ctrl-C to stop", *serialPath)
	return newStopReader(ctx, port), *serialPath, nil
}

func newSource(cfg *config.TrackConfig, r io.Reader) (track.RecordSource, error) {
	switch strings.ToLower(cfg.GetInputFormat()) {
	case config.FormatNMEA:
		return trackio.NewNMEASource(r), nil
	default:
		src, err := trackio.NewCSVSource(r, cfg.GetGapMarker())
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

// buildSinks returns the output CSV sink followed by every optional sink the
// config enables, plus a func that releases their resources.
func buildSinks(cfg *config.TrackConfig, out, source string, loc *time.Location) ([]track.Sink, func(), error) {
	sinks := []track.Sink{trackio.FileSink{Path: out, Location: loc}}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if path := cfg.GetDBPath(); path != "" {
		database, err := db.NewDB(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		closers = append(closers, func() { database.Close() })
		sinks = append(sinks, &db.Sink{DB: database, Source: source, SampleRateHz: cfg.GetSampleRateHz()})
	}
	if dir := cfg.GetPlotDir(); dir != "" {
		sinks = append(sinks, trackplot.PlotSink{Dir: dir})
	}
	if path := cfg.GetChartPath(); path != "" {
		sinks = append(sinks, trackplot.ChartSink{Path: path, Title: source})
	}
	if broker := cfg.GetMQTTBroker(); broker != "" {
		pub, err := mqttpub.Dial(mqttpub.Options{
			Broker:   broker,
			ClientID: cfg.GetMQTTClientID(),
			Topic:    cfg.GetMQTTTopic(),
			QoS:      1,
		})
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, pub.Close)
		sinks = append(sinks, pub)
	}
	return sinks, closeAll, nil
}

// stopReader turns a read error after ctx is done into io.EOF, so closing a
// live port on Ctrl-C ends the input instead of failing it.
type stopReader struct {
	rc   io.ReadCloser
	done <-chan struct{}
}

func newStopReader(ctx context.Context, rc io.ReadCloser) *stopReader {
	s := &stopReader{rc: rc, done: ctx.Done()}
	go func() {
		<-ctx.Done()
		rc.Close()
	}()
	return s
}

func (s *stopReader) Read(p []byte) (int, error) {
	n, err := s.rc.Read(p)
	if err != nil {
		select {
		case <-s.done:
			return n, io.EOF
		default:
		}
	}
	return n, err
}

func (s *stopReader) Close() error { return s.rc.Close() }
