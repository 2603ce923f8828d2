package timers

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/gametimer/go/internal/alerts"
	"github.com/mcdev12/gametimer/go/internal/models"
	"github.com/rs/zerolog/log"
)

// TickInterval is the cadence at which remaining time is recomputed.
const TickInterval = time.Second

// Scheduler drives a Registry at a fixed cadence and reports crossings to a sink.
type Scheduler struct {
	registry *Registry
	sink     alerts.Sink
	clock    clockwork.Clock
}

func NewScheduler(registry *Registry, sink alerts.Sink, clock clockwork.Clock) *Scheduler {
	if sink == nil {
		sink = alerts.NoOpSink{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		registry: registry,
		sink:     sink,
		clock:    clock,
	}
}

// Tick recomputes every running timer once and returns the alerts it fired.
// The sink is notified after the registry lock is released.
func (s *Scheduler) Tick() []models.Alert {
	now := s.clock.Now()
	crossed := s.registry.advance(now)
	if len(crossed) == 0 {
		return nil
	}

	fired := make([]models.Alert, 0, len(crossed))
	for _, c := range crossed {
		alert := alerts.New(c.def, c.kind, now)
		fired = append(fired, alert)
		s.sink.Notify(alert)
	}
	return fired
}

// Run ticks until ctx is done. Ticks never overlap because each runs to
// completion on this goroutine before the next is read.
func (s *Scheduler) Run(ctx context.Context) error {
	s.registry.setTickPhase(s.clock.Now())
	ticker := s.clock.NewTicker(TickInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", TickInterval).Msg("timer scheduler started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("timer scheduler stopped")
			return nil
		case <-ticker.Chan():
			s.Tick()
		}
	}
}
