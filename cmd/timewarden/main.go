package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guildops/timewarden/internal/api"
	"github.com/guildops/timewarden/internal/attendance"
	"github.com/guildops/timewarden/internal/clock"
	"github.com/guildops/timewarden/internal/config"
	"github.com/guildops/timewarden/internal/events"
	"github.com/guildops/timewarden/internal/logger"
	"github.com/guildops/timewarden/internal/roles"
	"github.com/guildops/timewarden/internal/scheduler"
	"github.com/guildops/timewarden/internal/store/jsonfile"
	"github.com/guildops/timewarden/internal/tracker"
)

func main() {
	log := logger.New("timewarden")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("time_zone", cfg.TimeZone).
		Int("http_port", cfg.HTTPPort).
		Msg("Timewarden starting…")

	clk, err := clock.NewSystem(cfg.TimeZone)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid time zone")
	}

	st, err := jsonfile.Open(cfg.DataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Snapshot store unavailable")
	}

	bus := events.NewBus(cfg.EventBufferSize)
	engine := tracker.New(st, clk, bus, log)
	ledger := attendance.New(st, clk, log)
	resolver := roles.NewStatic(cfg.UnlimitedIDs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Notification intents are consumed here as structured log lines. A
	// delivery integration subscribes to the same bus.
	go func() {
		for intent := range bus.Subscribe() {
			log.Info().
				Str("kind", string(intent.Kind)).
				Str("entity", intent.EntityID).
				Str("display_name", intent.DisplayName).
				Int("hours", intent.Hours).
				Float64("total_seconds", intent.TotalSeconds).
				Msg("notification intent")
		}
	}()

	milestone := scheduler.NewMilestone(engine, resolver, clk, bus, scheduler.MilestoneConfig{
		Interval:     cfg.MilestoneInterval,
		Concurrency:  cfg.MilestoneConcurrency,
		CheckTimeout: cfg.MilestoneCheckTimeout,
	}, log)
	go func() {
		if err := milestone.Run(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("milestone scheduler stopped")
		}
	}()

	lifecycle := scheduler.NewLifecycle(engine, clk, scheduler.LifecycleConfig{
		StartHour:   cfg.AutoStartHour,
		StartMinute: cfg.AutoStartMinute,
		StopHour:    cfg.AutoStopHour,
		StopMinute:  cfg.AutoStopMinute,
	}, log)
	go func() {
		if err := lifecycle.Run(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("lifecycle scheduler stopped")
		}
	}()

	router := api.NewRouter(api.Deps{
		Engine: engine,
		Ledger: ledger,
		Roles:  resolver,
		Log:    log,
	})
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server…")
	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}
