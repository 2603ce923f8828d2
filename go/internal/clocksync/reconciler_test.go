package clocksync

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/gametimer/go/internal/models"
)

type stubSource struct {
	state       models.ConnectionState
	game        *models.GameState
	disconnects uint64
}

func (s *stubSource) State() models.ConnectionState { return s.state }
func (s *stubSource) GameState() *models.GameState  { return s.game }
func (s *stubSource) Disconnects() uint64           { return s.disconnects }

func TestSync_fails_without_connected_feed(t *testing.T) {
	tests := []struct {
		name string
		src  *stubSource
	}{
		{"disconnected", &stubSource{state: models.ConnectionDisconnected}},
		{"connecting", &stubSource{state: models.ConnectionConnecting, game: &models.GameState{GameTime: 10, HasTime: true}}},
		{"error", &stubSource{state: models.ConnectionError}},
		{"connected without state", &stubSource{state: models.ConnectionConnected}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconciler(tt.src, clockwork.NewFakeClock())
			if _, ok := r.Sync(); ok {
				t.Fatal("expected sync to fail")
			}
			if _, ok := r.Offset(); ok {
				t.Error("failed sync must not record an offset")
			}
		})
	}
}

func TestSync_records_offset(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	fc := clockwork.NewFakeClockAt(start)
	src := &stubSource{
		state: models.ConnectionConnected,
		game:  &models.GameState{GameTime: 754.25, HasTime: true},
	}
	r := NewReconciler(src, fc)

	got, ok := r.Sync()
	if !ok || got != 754.25 {
		t.Fatalf("expected 754.25, got %v ok=%v", got, ok)
	}

	offset, ok := r.Offset()
	if want := start.UnixMilli() - 754250; !ok || offset != want {
		t.Errorf("expected offset %d, got %d", want, offset)
	}
	if at, ok := r.LastSyncedAt(); !ok || !at.Equal(start) {
		t.Errorf("expected synced at %v, got %v", start, at)
	}

	fc.Advance(90 * time.Second)
	est, ok := r.EstimatedGameTime(fc.Now())
	if !ok || est != 844.25 {
		t.Errorf("expected estimated game time 844.25, got %v", est)
	}
}

func TestSync_overwrites_previous_offset(t *testing.T) {
	fc := clockwork.NewFakeClock()
	src := &stubSource{state: models.ConnectionConnected, game: &models.GameState{GameTime: 100, HasTime: true}}
	r := NewReconciler(src, fc)
	r.Sync()
	first, _ := r.Offset()

	fc.Advance(10 * time.Second)
	src.game = &models.GameState{GameTime: 100, HasTime: true}
	r.Sync()
	second, _ := r.Offset()

	if second-first != 10000 {
		t.Errorf("expected offset to move by 10000ms, got %d", second-first)
	}
}

func TestClear(t *testing.T) {
	src := &stubSource{state: models.ConnectionConnected, game: &models.GameState{GameTime: -30, HasTime: true}}
	r := NewReconciler(src, clockwork.NewFakeClock())
	if _, ok := r.Sync(); !ok {
		t.Fatal("expected sync to succeed with pre-game time")
	}

	r.Clear()
	if _, ok := r.Offset(); ok {
		t.Error("expected no offset after clear")
	}
	if _, ok := r.EstimatedGameTime(time.Now()); ok {
		t.Error("expected no estimate after clear")
	}
}

func TestOffset_dropped_after_feed_disconnects(t *testing.T) {
	fc := clockwork.NewFakeClock()
	src := &stubSource{state: models.ConnectionConnected, game: &models.GameState{GameTime: 300, HasTime: true}}
	r := NewReconciler(src, fc)
	if _, ok := r.Sync(); !ok {
		t.Fatal("expected sync to succeed")
	}

	// The feed dropped and came back without the reconciler seeing a
	// disconnected snapshot.
	src.disconnects++
	if _, ok := r.Offset(); ok {
		t.Error("offset from a previous session must not survive")
	}
	if _, ok := r.EstimatedGameTime(fc.Now()); ok {
		t.Error("expected no estimate after the feed disconnected")
	}
	if _, ok := r.LastSyncedAt(); ok {
		t.Error("expected no sync time after the feed disconnected")
	}

	if _, ok := r.Sync(); !ok {
		t.Fatal("expected resync to succeed")
	}
	if _, ok := r.Offset(); !ok {
		t.Error("expected the new offset to stick")
	}
}
