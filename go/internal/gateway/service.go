package gateway

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/gametimer/go/internal/gsi"
	"github.com/mcdev12/gametimer/go/internal/models"
	"github.com/mcdev12/gametimer/go/internal/timers"
	"github.com/rs/zerolog/log"
)

// FeedSource is a feed the gateway can relay to clients.
type FeedSource interface {
	FeedControl
	Subscribe() (<-chan gsi.FeedSnapshot, func())
}

// Service is the UI gateway: the control API plus websocket fan-out of
// alerts, feed state and per-tick timer snapshots.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	handler           *Handler
	feed              FeedSource
	clock             clockwork.Clock
}

type Config struct {
	ConnectionConfig ConnectionConfig
}

func DefaultConfig() Config {
	return Config{ConnectionConfig: DefaultConnectionConfig()}
}

func NewService(config Config, t TimerControl, feed FeedSource, s Syncer, p Pusher, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	cm := NewConnectionManager(config.ConnectionConfig)
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
		handler:           NewHandler(t, feed, s, p, clock),
		feed:              feed,
		clock:             clock,
	}
}

// Start runs the connection manager, relays feed snapshots and broadcasts
// timer snapshots every tick until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting timer gateway service")

	go s.connectionManager.Start(ctx)

	updates, cancel := s.feed.Subscribe()
	defer cancel()

	ticker := s.clock.NewTicker(timers.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("timer gateway service stopped")
			return nil
		case snap, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			s.broadcast(EventTypeFeedState, snap)
		case <-ticker.Chan():
			if s.connectionManager.ConnectionCount() == 0 {
				continue
			}
			view := s.handler.timersView()
			active := make([]models.TimerInstance, 0, len(view.Timers))
			for _, tv := range view.Timers {
				if tv.Instance != nil {
					active = append(active, *tv.Instance)
				}
			}
			s.broadcast(EventTypeTimerTick, TimerTickPayload{
				GlobalPaused:      view.GlobalPaused,
				Timers:            active,
				EstimatedGameTime: view.EstimatedGameTime,
				TickedAt:          s.clock.Now(),
			})
		}
	}
}

// Notify relays a timer alert to every websocket client.
func (s *Service) Notify(alert models.Alert) {
	s.broadcast(EventTypeTimerAlert, alert)
}

func (s *Service) broadcast(eventType EventType, payload any) {
	event, err := NewEvent(eventType, payload, s.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build gateway event")
		return
	}
	s.connectionManager.Broadcast(event)
}

// RegisterRoutes registers the control API and websocket routes.
func (s *Service) RegisterRoutes(r chi.Router) {
	s.handler.Routes(r)
	r.Get("/ws/alerts", s.wsHandler.HandleAlerts)
	r.Get("/ws/stats", s.wsHandler.HandleConnectionStats)
	log.Info().Msg("timer gateway routes registered")
}

// ConnectionCount returns the number of websocket clients.
func (s *Service) ConnectionCount() int {
	return s.connectionManager.ConnectionCount()
}
