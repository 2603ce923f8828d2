package gsi

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Pusher accepts raw pushed payloads.
type Pusher interface {
	Push(raw []byte)
}

// NATSSourceConfig holds configuration for the host-process push subscription.
type NATSSourceConfig struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSSourceConfig returns default push subscription configuration.
func DefaultNATSSourceConfig() NATSSourceConfig {
	return NATSSourceConfig{
		URL:           nats.DefaultURL,
		Subject:       "gsi.state",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSSource forwards game state pushed by a supervising host process over
// NATS into a Pusher.
type NATSSource struct {
	nc     *nats.Conn
	config NATSSourceConfig
	target Pusher
}

// NewNATSSource connects to NATS. The subscription starts with Start.
func NewNATSSource(config NATSSourceConfig, target Pusher) (*NATSSource, error) {
	opts := []nats.Option{
		nats.Name("gametimer-gsi-source"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSSource{nc: nc, config: config, target: target}, nil
}

// Start subscribes to the push subject and blocks until ctx is done.
func (s *NATSSource) Start(ctx context.Context) error {
	sub, err := s.nc.Subscribe(s.config.Subject, func(msg *nats.Msg) {
		log.Debug().
			Str("subject", msg.Subject).
			Int("bytes", len(msg.Data)).
			Msg("received pushed game state")
		s.target.Push(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.config.Subject, err)
	}

	log.Info().Str("subject", s.config.Subject).Msg("listening for pushed game state")

	<-ctx.Done()

	if err := sub.Unsubscribe(); err != nil {
		log.Error().Err(err).Msg("failed to unsubscribe push source")
	}
	log.Info().Msg("push source shutting down")
	return nil
}

// Close gracefully shuts down the NATS connection.
func (s *NATSSource) Close() error {
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}
