package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/track.report/internal/api"
	"github.com/banshee-data/track.report/internal/config"
	"github.com/banshee-data/track.report/internal/db"
	"github.com/banshee-data/track.report/internal/track"
	"github.com/banshee-data/track.report/internal/units"
)

// runServe serves the run API and admin routes until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.TrackConfig, addr string) error {
	loc, err := units.LoadTimezone(cfg.GetTimezone())
	if err != nil {
		return err
	}

	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		return err
	}
	defer database.Close()

	mux := api.NewServer(database, track.Options{
		SampleRateHz:         cfg.GetSampleRateHz(),
		SkipUnresolvableGaps: !cfg.GetStrictGaps(),
	}, cfg.GetGapMarker(), loc).ServeMux()
	if err := database.AttachAdminRoutes(mux); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("HTTP server stopped")
	return nil
}
