package gsi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/gametimer/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Poll outcomes reported to Metrics.
const (
	OutcomeSuccess        = "success"
	OutcomeNoMatch        = "no_match"
	OutcomeUnusable       = "unusable"
	OutcomeTransportError = "transport_error"
)

// FeedConfig holds the cadence and retry settings of a Feed.
type FeedConfig struct {
	// PollTimeout bounds a single poll. Polls run one at a time on the Run
	// loop, so a slow poll delays the next one instead of overlapping it.
	PollTimeout       time.Duration
	ConnectedInterval time.Duration
	RetryInterval     time.Duration
	MaxAttempts       int
	ErrorCooldown     time.Duration
}

// DefaultFeedConfig returns the stock cadence: 1 Hz while connected,
// every 2 s while connecting, give up after 3 failures.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		PollTimeout:       2500 * time.Millisecond,
		ConnectedInterval: 1 * time.Second,
		RetryInterval:     2 * time.Second,
		MaxAttempts:       3,
		ErrorCooldown:     10 * time.Second,
	}
}

// Metrics receives feed activity.
type Metrics interface {
	RecordPoll(outcome string)
	SetConnectionState(state models.ConnectionState)
}

// NoOpMetrics is used when metrics aren't needed.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordPoll(outcome string)                       {}
func (NoOpMetrics) SetConnectionState(state models.ConnectionState) {}

// FeedSnapshot is a copy of the feed's observable state.
type FeedSnapshot struct {
	State          models.ConnectionState `json:"state"`
	GameState      *models.GameState      `json:"game_state,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Attempts       int                    `json:"attempts"`
	GameInProgress bool                   `json:"game_in_progress"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// Feed tracks the live game clock through a connection state machine:
// disconnected -> connecting -> connected <-> error, error -> disconnected after a cooldown.
//
// A connected feed tolerates up to MaxAttempts-1 consecutive failed polls and
// keeps serving its last state; the MaxAttempts-th failure moves it to error.
type Feed struct {
	transport Transport
	clock     clockwork.Clock
	config    FeedConfig
	metrics   Metrics

	mu         sync.Mutex
	state      models.ConnectionState
	gameState  *models.GameState
	attempts   int
	lastErr    string
	updatedAt  time.Time
	generation uint64
	sessions   uint64
	polling    bool
	pollCancel context.CancelFunc
	cooldown   clockwork.Timer

	wake chan struct{}

	subMu       sync.Mutex
	subscribers map[int]chan FeedSnapshot
	nextSubID   int
}

// NewFeed creates a disconnected feed. A nil clock uses the real clock.
func NewFeed(transport Transport, config FeedConfig, clock clockwork.Clock) *Feed {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	defaults := DefaultFeedConfig()
	if config.PollTimeout <= 0 {
		config.PollTimeout = defaults.PollTimeout
	}
	if config.ConnectedInterval <= 0 {
		config.ConnectedInterval = defaults.ConnectedInterval
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = defaults.RetryInterval
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.ErrorCooldown <= 0 {
		config.ErrorCooldown = defaults.ErrorCooldown
	}

	return &Feed{
		transport:   transport,
		clock:       clock,
		config:      config,
		metrics:     NoOpMetrics{},
		state:       models.ConnectionDisconnected,
		updatedAt:   clock.Now(),
		wake:        make(chan struct{}, 1),
		subscribers: make(map[int]chan FeedSnapshot),
	}
}

// SetMetrics installs a metrics collector.
func (f *Feed) SetMetrics(m Metrics) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m == nil {
		m = NoOpMetrics{}
	}
	f.metrics = m
	f.metrics.SetConnectionState(f.state)
}

// Connect starts connecting and requests an immediate poll.
// It is a no-op while already connecting.
func (f *Feed) Connect() {
	f.mu.Lock()
	if f.state == models.ConnectionConnecting {
		f.mu.Unlock()
		log.Debug().Msg("connect ignored - feed already connecting")
		return
	}

	f.invalidateLocked()
	f.attempts = 0
	f.lastErr = ""
	f.setStateLocked(models.ConnectionConnecting)
	snap := f.snapshotLocked()
	f.mu.Unlock()

	log.Info().Msg("game clock feed connecting")
	f.publish(snap)
	f.requestPoll()
}

// Disconnect cancels any in-flight poll, stops polling and clears all state.
// Calling it repeatedly is harmless.
func (f *Feed) Disconnect() {
	f.mu.Lock()
	wasDisconnected := f.state == models.ConnectionDisconnected &&
		f.gameState == nil && f.lastErr == "" && f.attempts == 0
	f.invalidateLocked()
	f.gameState = nil
	f.lastErr = ""
	f.attempts = 0
	f.setStateLocked(models.ConnectionDisconnected)
	snap := f.snapshotLocked()
	f.mu.Unlock()

	if wasDisconnected {
		return
	}
	log.Info().Msg("game clock feed disconnected")
	f.publish(snap)
	f.requestPoll()
}

// invalidateLocked drops any in-flight poll and pending cooldown.
func (f *Feed) invalidateLocked() {
	f.generation++
	if f.pollCancel != nil {
		f.pollCancel()
		f.pollCancel = nil
	}
	f.polling = false
	if f.cooldown != nil {
		f.cooldown.Stop()
		f.cooldown = nil
	}
}

// requestPoll wakes the run loop without blocking.
func (f *Feed) requestPoll() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// PollOnce performs a single bounded poll when the feed is connecting or connected.
// Overlapping calls are dropped, and results that arrive after a disconnect are ignored.
func (f *Feed) PollOnce(ctx context.Context) {
	f.mu.Lock()
	if f.state != models.ConnectionConnecting && f.state != models.ConnectionConnected {
		f.mu.Unlock()
		return
	}
	if f.polling {
		f.mu.Unlock()
		log.Debug().Msg("poll skipped - previous poll still in flight")
		return
	}
	gen := f.generation
	pollCtx, cancel := context.WithTimeout(ctx, f.config.PollTimeout)
	f.pollCancel = cancel
	f.polling = true
	f.mu.Unlock()

	body, err := f.transport.Fetch(pollCtx)
	cancel()

	var state *models.GameState
	if err == nil {
		state, err = decodeState(body)
	}

	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		log.Debug().Msg("discarding poll result from a previous connection")
		return
	}
	f.polling = false
	f.pollCancel = nil
	f.metrics.RecordPoll(outcomeFor(err))
	f.applyLocked(state, err)
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.publish(snap)
}

// applyLocked moves the state machine for one poll result.
func (f *Feed) applyLocked(state *models.GameState, err error) {
	if err == nil {
		if f.state != models.ConnectionConnected {
			log.Info().
				Float64("game_time", state.GameTime).
				Str("phase", string(state.Phase)).
				Msg("game clock feed connected")
		}
		f.gameState = state
		f.attempts = 0
		f.lastErr = ""
		f.setStateLocked(models.ConnectionConnected)
		return
	}

	f.attempts++
	event := log.Debug()
	if !errors.Is(err, ErrEmptyPayload) {
		event = log.Warn()
	}
	event.Err(err).
		Str("state", string(f.state)).
		Int("attempts", f.attempts).
		Msg("game state poll failed")

	if f.attempts >= f.config.MaxAttempts {
		f.enterErrorLocked(err)
	}
}

func (f *Feed) enterErrorLocked(cause error) {
	f.gameState = nil
	f.lastErr = fmt.Sprintf("%s (last failure: %v)", connectionFailedMessage, cause)
	f.setStateLocked(models.ConnectionError)

	gen := f.generation
	f.cooldown = f.clock.AfterFunc(f.config.ErrorCooldown, func() {
		f.expireCooldown(gen)
	})

	log.Error().
		Err(cause).
		Int("attempts", f.attempts).
		Dur("cooldown", f.config.ErrorCooldown).
		Msg("game clock feed failed")
}

// expireCooldown returns an errored feed to disconnected so it can be reconnected.
func (f *Feed) expireCooldown(gen uint64) {
	f.mu.Lock()
	if gen != f.generation || f.state != models.ConnectionError {
		f.mu.Unlock()
		return
	}
	f.cooldown = nil
	f.attempts = 0
	f.setStateLocked(models.ConnectionDisconnected)
	snap := f.snapshotLocked()
	f.mu.Unlock()

	log.Info().Msg("game clock feed cooldown elapsed")
	f.publish(snap)
}

func (f *Feed) setStateLocked(state models.ConnectionState) {
	if state == models.ConnectionDisconnected && f.state != state {
		f.sessions++
	}
	f.state = state
	f.updatedAt = f.clock.Now()
	f.metrics.SetConnectionState(state)
}

// Run drives polling until ctx is done: immediately after Connect, every
// RetryInterval while connecting and every ConnectedInterval while connected.
// Polls run on this goroutine only, so they never overlap.
func (f *Feed) Run(ctx context.Context) error {
	log.Info().Msg("game clock feed loop started")
	defer log.Info().Msg("game clock feed loop stopped")

	for {
		var timer clockwork.Timer
		var tick <-chan time.Time
		if interval, active := f.nextInterval(); active {
			timer = f.clock.NewTimer(interval)
			tick = timer.Chan()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				stopAndDrainTimer(timer)
			}
			f.Disconnect()
			return nil
		case <-f.wake:
			if timer != nil {
				stopAndDrainTimer(timer)
			}
			f.PollOnce(ctx)
		case <-tick:
			f.PollOnce(ctx)
		}
	}
}

func (f *Feed) nextInterval() (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case models.ConnectionConnecting:
		return f.config.RetryInterval, true
	case models.ConnectionConnected:
		return f.config.ConnectedInterval, true
	default:
		return 0, false
	}
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

// State returns the current connection state.
func (f *Feed) State() models.ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Disconnects counts transitions into disconnected, by Disconnect or by the
// error cooldown. A value that changed means the game clock seen before it is gone.
func (f *Feed) Disconnects() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions
}

// GameState returns a copy of the last validated state, or nil.
func (f *Feed) GameState() *models.GameState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gameState == nil {
		return nil
	}
	gs := *f.gameState
	return &gs
}

// LastError returns the message of the last failure that moved the feed to error.
func (f *Feed) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Attempts returns the number of consecutive failed polls.
func (f *Feed) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

// IsGameInProgress reports whether the last stored state is in the game-in-progress phase.
func (f *Feed) IsGameInProgress() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inProgressLocked()
}

func (f *Feed) inProgressLocked() bool {
	if f.state == models.ConnectionDisconnected || f.gameState == nil {
		return false
	}
	return f.gameState.Phase == models.PhaseGameInProgress
}

// Snapshot returns a copy of the observable feed state.
func (f *Feed) Snapshot() FeedSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Feed) snapshotLocked() FeedSnapshot {
	snap := FeedSnapshot{
		State:          f.state,
		Error:          f.lastErr,
		Attempts:       f.attempts,
		GameInProgress: f.inProgressLocked(),
		UpdatedAt:      f.updatedAt,
	}
	if f.gameState != nil {
		gs := *f.gameState
		snap.GameState = &gs
	}
	return snap
}

// Subscribe returns a channel of snapshots published on every change and a
// cancel func. Slow subscribers miss snapshots rather than block the feed.
func (f *Feed) Subscribe() (<-chan FeedSnapshot, func()) {
	f.subMu.Lock()
	defer f.subMu.Unlock()

	id := f.nextSubID
	f.nextSubID++
	ch := make(chan FeedSnapshot, 16)
	f.subscribers[id] = ch

	return ch, func() {
		f.subMu.Lock()
		defer f.subMu.Unlock()
		if sub, ok := f.subscribers[id]; ok {
			delete(f.subscribers, id)
			close(sub)
		}
	}
}

func (f *Feed) publish(snap FeedSnapshot) {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	for id, ch := range f.subscribers {
		select {
		case ch <- snap:
		default:
			log.Warn().Int("subscriber", id).Msg("feed subscriber full, dropping snapshot")
		}
	}
}

func decodeState(body []byte) (*models.GameState, error) {
	state := SanitizeJSON(body)
	if state == nil {
		return nil, ErrEmptyPayload
	}
	if !state.HasTime {
		return nil, ErrUnusableState
	}
	return state, nil
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrEmptyPayload):
		return OutcomeNoMatch
	case errors.Is(err, ErrUnusableState):
		return OutcomeUnusable
	default:
		return OutcomeTransportError
	}
}
