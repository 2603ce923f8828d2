package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mcdev12/gametimer/go/internal/config"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.NewConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg.LogLevel)

	defs, err := loadTimerDefinitions(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load timer definitions")
	}

	services, err := setupServices(cfg, defs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup services")
	}
	defer services.Close()

	server := setupServer(cfg, services)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				log.Error().Err(err).Str("component", name).Msg("component failed")
			}
		}()
	}

	run("scheduler", services.Scheduler.Run)
	run("feed", services.Feed.Run)
	run("gateway", services.Gateway.Start)
	if services.AlertPublisher != nil {
		run("alert publisher", services.AlertPublisher.Run)
	}
	if services.PushSource != nil {
		run("push source", services.PushSource.Start)
	}

	if cfg.AutoConnect {
		services.Feed.Connect()
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("gsi_mode", cfg.GSIMode).
			Int("timers", len(defs)).
			Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	wg.Wait()

	log.Info().Msg("game timer shutdown complete")
}
