package main

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/gametimer/go/internal/alerts"
	"github.com/mcdev12/gametimer/go/internal/clocksync"
	"github.com/mcdev12/gametimer/go/internal/config"
	"github.com/mcdev12/gametimer/go/internal/gateway"
	"github.com/mcdev12/gametimer/go/internal/gsi"
	"github.com/mcdev12/gametimer/go/internal/metrics"
	"github.com/mcdev12/gametimer/go/internal/models"
	"github.com/mcdev12/gametimer/go/internal/timers"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Registry   *timers.Registry
	Scheduler  *timers.Scheduler
	Feed       *gsi.Feed
	Reconciler *clocksync.Reconciler
	Gateway    *gateway.Service
	Metrics    *metrics.Metrics

	// Optional, present only when NATS_URL is set.
	PushSource     *gsi.NATSSource
	AlertPublisher *alerts.JetStreamPublisher
}

func setupServices(cfg config.Config, defs []models.TimerDefinition) (*Services, error) {
	clock := clockwork.NewRealClock()
	met := metrics.New()

	// Game clock feed: poll the local integration server, or read what the
	// host process pushes to us.
	var transport gsi.Transport
	var push *gsi.PushTransport
	switch cfg.GSIMode {
	case config.ModePush:
		push = gsi.NewPushTransport(cfg.PushMaxAge, clock)
		transport = push
	default:
		transport = gsi.NewHTTPTransport(cfg.GSIURL, cfg.PollTimeout)
	}

	feedCfg := gsi.DefaultFeedConfig()
	feedCfg.PollTimeout = cfg.PollTimeout
	feed := gsi.NewFeed(transport, feedCfg, clock)
	feed.SetMetrics(met)

	reconciler := clocksync.NewReconciler(feed, clock)

	registry, err := timers.NewRegistry(defs, clock)
	if err != nil {
		return nil, fmt.Errorf("failed to create timer registry: %w", err)
	}

	services := &Services{
		Registry:   registry,
		Feed:       feed,
		Reconciler: reconciler,
		Metrics:    met,
	}

	if cfg.NATSURL != "" {
		if err := services.setupNATS(cfg, push); err != nil {
			services.Close()
			return nil, err
		}
	}

	var pusher gateway.Pusher
	if push != nil {
		pusher = push
	}
	services.Gateway = gateway.NewService(gateway.DefaultConfig(), registry, feed, reconciler, pusher, clock)

	sinks := alerts.MultiSink{alerts.LogSink{}, met, services.Gateway}
	if services.AlertPublisher != nil {
		sinks = append(sinks, services.AlertPublisher)
	}
	services.Scheduler = timers.NewScheduler(registry, sinks, clock)

	return services, nil
}

func (s *Services) setupNATS(cfg config.Config, push *gsi.PushTransport) error {
	pubCfg := alerts.DefaultJetStreamConfig()
	pubCfg.URL = cfg.NATSURL
	pubCfg.StreamName = cfg.AlertStream
	publisher, err := alerts.NewJetStreamPublisher(pubCfg)
	if err != nil {
		return fmt.Errorf("failed to create alert publisher: %w", err)
	}
	s.AlertPublisher = publisher

	if push == nil {
		log.Info().Msg("GSI_MODE is poll, not subscribing to pushed game state")
		return nil
	}

	srcCfg := gsi.DefaultNATSSourceConfig()
	srcCfg.URL = cfg.NATSURL
	srcCfg.Subject = cfg.PushSubject
	source, err := gsi.NewNATSSource(srcCfg, push)
	if err != nil {
		return fmt.Errorf("failed to create push source: %w", err)
	}
	s.PushSource = source
	return nil
}

// Close releases the NATS connections.
func (s *Services) Close() {
	if s.PushSource != nil {
		if err := s.PushSource.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close push source")
		}
	}
	if s.AlertPublisher != nil {
		if err := s.AlertPublisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close alert publisher")
		}
	}
}
