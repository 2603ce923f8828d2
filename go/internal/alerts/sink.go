// Package alerts fans timer threshold crossings out to the collaborators that
// show or sound them: the log, websocket clients, the message bus and metrics.
package alerts

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/gametimer/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Sink receives alerts. Notify must not block the caller for long.
type Sink interface {
	Notify(alert models.Alert)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(alert models.Alert)

func (f SinkFunc) Notify(alert models.Alert) { f(alert) }

// MultiSink notifies every sink in order.
type MultiSink []Sink

func (m MultiSink) Notify(alert models.Alert) {
	for _, s := range m {
		if s != nil {
			s.Notify(alert)
		}
	}
}

// NoOpSink drops alerts.
type NoOpSink struct{}

func (NoOpSink) Notify(models.Alert) {}

// LogSink writes each alert as a structured log line.
type LogSink struct{}

func (LogSink) Notify(alert models.Alert) {
	log.Info().
		Str("alert_id", alert.ID.String()).
		Str("timer_id", alert.TimerID).
		Str("timer_name", alert.TimerName).
		Str("kind", string(alert.Kind)).
		Bool("audio", alert.HasAudioAlert).
		Time("fired_at", alert.FiredAt).
		Msg("timer alert")
}

// New builds an alert for a definition crossing a threshold at firedAt.
func New(def models.TimerDefinition, kind models.AlertKind, firedAt time.Time) models.Alert {
	return models.Alert{
		ID:            uuid.New(),
		TimerID:       def.ID,
		TimerName:     def.Name,
		Kind:          kind,
		Category:      def.Category,
		HasAudioAlert: def.HasAudioAlert,
		FiredAt:       firedAt,
	}
}
