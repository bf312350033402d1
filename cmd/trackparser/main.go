// Command trackparser reconstructs GPS tracks from logger output: it fills
// the gaps left by lost fixes, derives lean angle, distance and timing for
// every fix, and writes the enriched track with a summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/track.report/internal/config"
	"github.com/banshee-data/track.report/internal/db"
	"github.com/banshee-data/track.report/internal/monitoring"
	"github.com/banshee-data/track.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "JSON config file; built-in defaults apply when empty")
	rate        = flag.Int("rate", 0, "GPS sample rate in Hz (overrides config)")
	marker      = flag.String("marker", "", "line that marks a lost fix (overrides config)")
	tz          = flag.String("tz", "", "timezone for output dates, e.g. Europe/Rome (overrides config)")
	format      = flag.String("format", "", "input format: csv or nmea (overrides config)")
	lenient     = flag.Bool("lenient", false, "skip gaps that do not span a whole number of sample periods")
	serialPath  = flag.String("serial", "", "read live NMEA from this serial port instead of a file")
	outPath     = flag.String("out", "", "output CSV path (default <input>_out<ext>)")
	dbPath      = flag.String("db", "", "also store the run in this SQLite database")
	plotDir     = flag.String("plots", "", "also write PNG profiles to this directory")
	chartPath   = flag.String("chart", "", "also write an HTML chart to this file")
	mqttBroker  = flag.String("mqtt", "", "also publish to this MQTT broker, e.g. tcp://localhost:1883")
	listen      = flag.String("listen", ":8080", "listen address for serve")
	verbose     = flag.Bool("v", false, "log every filled gap")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	monitoring.SetVerbose(*verbose)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command, args := "", flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		if cfg.GetDBPath() == "" {
			log.Fatal("serve requires -db or db_path in the config")
		}
		if err := runServe(ctx, cfg, *listen); err != nil {
			log.Fatalf("serve: %v", err)
		}
	case "migrate":
		if cfg.GetDBPath() == "" {
			log.Fatal("migrate requires -db or db_path in the config")
		}
		if err := db.RunMigrateCommand(args, cfg.GetDBPath(), os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	case "version":
		fmt.Println(version.String())
	case "help":
		printUsage()
	case "process":
		if len(args) != 1 && *serialPath == "" {
			printUsage()
			os.Exit(2)
		}
		input := ""
		if len(args) == 1 {
			input = args[0]
		}
		if err := runProcess(ctx, cfg, input); err != nil {
			log.Fatalf("process: %v", err)
		}
	default:
		// A bare path is shorthand for process.
		if command == "" && *serialPath == "" {
			printUsage()
			os.Exit(2)
		}
		if err := runProcess(ctx, cfg, command); err != nil {
			log.Fatalf("process: %v", err)
		}
	}
}

// loadConfig reads -config and lays explicit flags over it.
func loadConfig() (*config.TrackConfig, error) {
	cfg := config.EmptyTrackConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadTrackConfig(*configPath); err != nil {
			return nil, err
		}
	}
	applyFlags(cfg, flagOverrides{
		rate:       *rate,
		marker:     *marker,
		tz:         *tz,
		format:     *format,
		lenient:    *lenient,
		dbPath:     *dbPath,
		plotDir:    *plotDir,
		chartPath:  *chartPath,
		mqttBroker: *mqttBroker,
	})
	if *serialPath != "" && cfg.InputFormat == nil {
		nmea := config.FormatNMEA
		cfg.InputFormat = &nmea
	}
	return cfg, cfg.Validate()
}

// flagOverrides holds the command-line values that replace config fields.
// Zero values leave the config untouched.
type flagOverrides struct {
	rate                       int
	marker, tz, format         string
	lenient                    bool
	dbPath, plotDir, chartPath string
	mqttBroker                 string
}

func applyFlags(cfg *config.TrackConfig, f flagOverrides) {
	set := func(dst **string, v string) {
		if v != "" {
			*dst = &v
		}
	}
	if f.rate != 0 {
		cfg.SampleRateHz = &f.rate
	}
	set(&cfg.GapMarker, f.marker)
	set(&cfg.Timezone, f.tz)
	set(&cfg.InputFormat, f.format)
	set(&cfg.DBPath, f.dbPath)
	set(&cfg.PlotDir, f.plotDir)
	set(&cfg.ChartPath, f.chartPath)
	set(&cfg.MQTTBroker, f.mqttBroker)
	if f.lenient {
		strict := false
		cfg.StrictGaps = &strict
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `trackparser - GPS track reconstruction

Usage:
  trackparser [flags] <input>            process a logger CSV or NMEA file
  trackparser [flags] -serial <port>     process live NMEA until idle or interrupted
  trackparser [flags] serve              serve stored runs over HTTP (needs -db)
  trackparser [flags] migrate <action>   manage the run database schema (needs -db)
  trackparser version

Flags:`)
	flag.PrintDefaults()
}
