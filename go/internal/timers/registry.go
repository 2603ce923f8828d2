package timers

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/gametimer/go/internal/models"
	"github.com/rs/zerolog/log"
)

// entry is a running instance plus its pause bookkeeping. frozenSince is set
// while the instance is individually paused or the registry is globally
// paused, and StartedAt is shifted forward by the frozen interval on resume.
type entry struct {
	inst        models.TimerInstance
	frozenSince *time.Time
}

// crossing is a threshold an instance passed during advance.
type crossing struct {
	def  models.TimerDefinition
	kind models.AlertKind
}

// Registry owns the timer definitions and at most one running instance per
// definition. It is safe for concurrent use.
//
// Starts and pause edges that land between ticks are anchored to the most
// recent tick, so a D-second timer completes on the D-th tick after it starts
// no matter where in the tick interval the start happened.
type Registry struct {
	clock clockwork.Clock

	defs  []models.TimerDefinition
	byID  map[string]models.TimerDefinition
	index map[string]int

	mu           sync.Mutex
	instances    map[string]*entry
	globalPaused bool
	lastTick     time.Time
}

// NewRegistry validates defs and returns an empty registry.
func NewRegistry(defs []models.TimerDefinition, clock clockwork.Clock) (*Registry, error) {
	valid, err := ValidateDefinitions(defs)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	r := &Registry{
		clock:     clock,
		defs:      valid,
		byID:      make(map[string]models.TimerDefinition, len(valid)),
		index:     make(map[string]int, len(valid)),
		instances: make(map[string]*entry),
	}
	for i, def := range valid {
		r.byID[def.ID] = def
		r.index[def.ID] = i
	}
	return r, nil
}

// Definitions returns the configured definitions in order.
func (r *Registry) Definitions() []models.TimerDefinition {
	out := make([]models.TimerDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Start creates a fresh instance for id, replacing any running one.
func (r *Registry) Start(id string) (models.TimerInstance, error) {
	def, ok := r.byID[id]
	if !ok {
		return models.TimerInstance{}, fmt.Errorf("%w: %q", ErrUnknownTimer, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.anchorLocked(r.clock.Now())
	_, restarted := r.instances[id]
	e := &entry{
		inst: models.TimerInstance{
			ID:               uuid.New(),
			DefinitionID:     id,
			StartedAt:        now,
			RemainingSeconds: def.DurationSeconds,
		},
	}
	r.instances[id] = e
	r.refreezeLocked(e, now)

	log.Info().
		Str("timer_id", id).
		Int("duration_seconds", def.DurationSeconds).
		Bool("restarted", restarted).
		Msg("timer started")

	return snapshot(e), nil
}

// Stop removes the instance for id. It reports whether one was running.
func (r *Registry) Stop(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[id]; !ok {
		return false
	}
	delete(r.instances, id)
	log.Info().Str("timer_id", id).Msg("timer stopped")
	return true
}

// TogglePause flips the individual pause flag of the instance for id.
func (r *Registry) TogglePause(id string) (models.TimerInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.instances[id]
	if !ok {
		return models.TimerInstance{}, false
	}

	now := r.clock.Now()
	if e.inst.IsPaused {
		e.inst.IsPaused = false
		e.inst.PausedAt = nil
	} else {
		at := now
		e.inst.IsPaused = true
		e.inst.PausedAt = &at
	}
	r.refreezeLocked(e, r.anchorLocked(now))

	log.Info().
		Str("timer_id", id).
		Bool("paused", e.inst.IsPaused).
		Int("remaining_seconds", e.inst.RemainingSeconds).
		Msg("timer pause toggled")

	return snapshot(e), true
}

// SetGlobalPause freezes or unfreezes every instance without touching their
// individual pause flags.
func (r *Registry) SetGlobalPause(paused bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setGlobalPauseLocked(paused)
}

// ToggleGlobalPause flips the global pause flag and returns the new value.
func (r *Registry) ToggleGlobalPause() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setGlobalPauseLocked(!r.globalPaused)
	return r.globalPaused
}

func (r *Registry) setGlobalPauseLocked(paused bool) {
	if r.globalPaused == paused {
		return
	}
	r.globalPaused = paused

	now := r.anchorLocked(r.clock.Now())
	for _, e := range r.instances {
		r.refreezeLocked(e, now)
	}
	log.Info().Bool("paused", paused).Int("active", len(r.instances)).Msg("global pause changed")
}

func (r *Registry) GlobalPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.globalPaused
}

// ResetAll drops every instance and clears the global pause flag.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cleared := len(r.instances)
	r.instances = make(map[string]*entry)
	r.globalPaused = false
	log.Info().Int("cleared", cleared).Msg("all timers reset")
}

// Get returns the instance for id as of the last tick.
func (r *Registry) Get(id string) (models.TimerInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.instances[id]
	if !ok {
		return models.TimerInstance{}, false
	}
	return snapshot(e), true
}

// Active returns the running instances in definition order.
func (r *Registry) Active() []models.TimerInstance {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.TimerInstance, 0, len(r.instances))
	for _, def := range r.defs {
		if e, ok := r.instances[def.ID]; ok {
			out = append(out, snapshot(e))
		}
	}
	return out
}

// advance recomputes every unfrozen instance against now and returns the
// thresholds crossed since the previous call. Completed instances are removed.
func (r *Registry) advance(now time.Time) []crossing {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastTick = now
	if r.globalPaused {
		return nil
	}

	var crossed []crossing
	for _, def := range r.defs {
		e, ok := r.instances[def.ID]
		if !ok || e.frozenSince != nil {
			continue
		}

		elapsed := int(now.Sub(e.inst.StartedAt) / time.Second)
		if elapsed < 0 {
			elapsed = 0
		}
		remaining := def.DurationSeconds - elapsed
		if remaining < 0 {
			remaining = 0
		}

		prevElapsed := e.inst.ElapsedSeconds
		prevRemaining := e.inst.RemainingSeconds
		e.inst.ElapsedSeconds = elapsed
		e.inst.RemainingSeconds = remaining

		if def.IsWindow() && !e.inst.WindowOpen &&
			prevElapsed < def.MinWindowSeconds && elapsed >= def.MinWindowSeconds {
			e.inst.WindowOpen = true
			crossed = append(crossed, crossing{def: def, kind: models.AlertWindowOpen})
		}

		if prevRemaining > 0 && remaining == 0 {
			crossed = append(crossed, crossing{def: def, kind: models.AlertCompleted})
			delete(r.instances, def.ID)
		}
	}
	return crossed
}

// anchorLocked maps now onto the tick grid set by the last tick: the latest
// grid point at or before now. Without a tick yet, now is its own anchor.
func (r *Registry) anchorLocked(now time.Time) time.Time {
	if r.lastTick.IsZero() || now.Before(r.lastTick) {
		return now
	}
	steps := now.Sub(r.lastTick) / TickInterval
	return r.lastTick.Add(steps * TickInterval)
}

// setTickPhase records the instant the tick grid starts from.
func (r *Registry) setTickPhase(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastTick = at
}

// refreezeLocked reconciles frozenSince with the instance's individual pause
// flag and the global pause flag.
func (r *Registry) refreezeLocked(e *entry, now time.Time) {
	frozen := e.inst.IsPaused || r.globalPaused
	switch {
	case frozen && e.frozenSince == nil:
		at := now
		e.frozenSince = &at
	case !frozen && e.frozenSince != nil:
		e.inst.StartedAt = e.inst.StartedAt.Add(now.Sub(*e.frozenSince))
		e.frozenSince = nil
	}
}

func snapshot(e *entry) models.TimerInstance {
	inst := e.inst
	if inst.PausedAt != nil {
		at := *inst.PausedAt
		inst.PausedAt = &at
	}
	return inst
}
