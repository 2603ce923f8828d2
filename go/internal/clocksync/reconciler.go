// Package clocksync relates wall-clock instants to the live game clock.
//
// A sync captures offset = wallNowMs - gameTime*1000 from the feed's last
// validated state. The offset is a display time base only; running timers are
// never touched by a sync. An offset taken before the feed last returned to
// disconnected is dropped on the next read.
package clocksync

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/gametimer/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrSyncFailed is what callers surface when Sync has nothing to sync to.
var ErrSyncFailed = errors.New("sync failed: no live game clock, connect to game state integration first")

// GameSource is the slice of the feed the reconciler reads.
type GameSource interface {
	State() models.ConnectionState
	GameState() *models.GameState
	Disconnects() uint64
}

type Reconciler struct {
	source GameSource
	clock  clockwork.Clock

	mu       sync.Mutex
	offsetMs int64
	syncedAt time.Time
	session  uint64
	synced   bool
}

func NewReconciler(source GameSource, clock clockwork.Clock) *Reconciler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Reconciler{source: source, clock: clock}
}

// Sync records a new offset from the feed's current game time and returns
// that game time. ok is false unless the feed is connected with a state.
func (r *Reconciler) Sync() (gameTime float64, ok bool) {
	// Read before the state so a disconnect in between invalidates this sync.
	session := r.source.Disconnects()
	if r.source.State() != models.ConnectionConnected {
		log.Warn().Str("state", string(r.source.State())).Msg("sync requested without a connected feed")
		return 0, false
	}
	gs := r.source.GameState()
	if gs == nil {
		log.Warn().Msg("sync requested before any game state arrived")
		return 0, false
	}

	now := r.clock.Now()
	offset := now.UnixMilli() - int64(math.Round(gs.GameTime*1000))

	r.mu.Lock()
	r.offsetMs = offset
	r.syncedAt = now
	r.session = session
	r.synced = true
	r.mu.Unlock()

	log.Info().
		Float64("game_time", gs.GameTime).
		Int64("offset_ms", offset).
		Msg("synced to game clock")

	return gs.GameTime, true
}

// Offset returns the last recorded offset in milliseconds.
func (r *Reconciler) Offset() (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.currentLocked() {
		return 0, false
	}
	return r.offsetMs, true
}

// EstimatedGameTime projects the game clock at wall-clock instant at.
func (r *Reconciler) EstimatedGameTime(at time.Time) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.currentLocked() {
		return 0, false
	}
	return float64(at.UnixMilli()-r.offsetMs) / 1000, true
}

func (r *Reconciler) LastSyncedAt() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.currentLocked() {
		return time.Time{}, false
	}
	return r.syncedAt, true
}

// Clear forgets the offset.
func (r *Reconciler) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
}

// currentLocked reports whether an offset is recorded and still belongs to
// the feed's current session, clearing it otherwise.
func (r *Reconciler) currentLocked() bool {
	if !r.synced {
		return false
	}
	if r.source.Disconnects() != r.session {
		log.Info().Int64("offset_ms", r.offsetMs).Msg("game clock feed disconnected since sync, dropping offset")
		r.clearLocked()
		return false
	}
	return true
}

func (r *Reconciler) clearLocked() {
	r.offsetMs = 0
	r.syncedAt = time.Time{}
	r.session = 0
	r.synced = false
}
