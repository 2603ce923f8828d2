package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/gametimer/go/internal/clocksync"
	"github.com/mcdev12/gametimer/go/internal/gsi"
	"github.com/mcdev12/gametimer/go/internal/models"
	"github.com/mcdev12/gametimer/go/internal/timers"
)

const liveBody = `{"map":{"clock_time":600,"game_time":630.5,"paused":false,"game_state":"DOTA_GAMERULES_STATE_GAME_IN_PROGRESS","winner":0}}`

type fixture struct {
	clock    *clockwork.FakeClock
	registry *timers.Registry
	feed     *gsi.Feed
	push     *gsi.PushTransport
	router   chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fc := clockwork.NewFakeClock()
	reg, err := timers.NewRegistry(timers.DefaultDefinitions(), fc)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	push := gsi.NewPushTransport(gsi.DefaultPushMaxAge, fc)
	feed := gsi.NewFeed(push, gsi.DefaultFeedConfig(), fc)
	rec := clocksync.NewReconciler(feed, fc)

	r := chi.NewRouter()
	NewHandler(reg, feed, rec, push, fc).Routes(r)

	return &fixture{clock: fc, registry: reg, feed: feed, push: push, router: r}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// connectLive pushes a live state and runs one poll so the feed is connected.
func (f *fixture) connectLive(t *testing.T) {
	t.Helper()
	if rec := f.do(t, http.MethodPost, "/gsi", liveBody); rec.Code != http.StatusNoContent {
		t.Fatalf("push: expected 204, got %d", rec.Code)
	}
	f.feed.Connect()
	f.feed.PollOnce(context.Background())
	if got := f.feed.State(); got != models.ConnectionConnected {
		t.Fatalf("expected connected feed, got %s", got)
	}
}

func TestListTimers(t *testing.T) {
	f := newFixture(t)
	if _, err := f.registry.Start("roshan"); err != nil {
		t.Fatal(err)
	}

	rec := f.do(t, http.MethodGet, "/api/timers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[TimersResponse](t, rec)

	if len(resp.Timers) != len(timers.DefaultDefinitions()) {
		t.Fatalf("expected every definition listed, got %d", len(resp.Timers))
	}
	if resp.Timers[0].Definition.ID != "roshan" || resp.Timers[0].Instance == nil {
		t.Errorf("expected running roshan first, got %+v", resp.Timers[0])
	}
	if resp.Timers[1].Instance != nil {
		t.Errorf("expected idle %s, got an instance", resp.Timers[1].Definition.ID)
	}
	if resp.EstimatedGameTime != nil {
		t.Error("no estimate before the first sync")
	}
}

func TestStartTimer(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/timers/aegis/start", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	inst := decode[models.TimerInstance](t, rec)
	if inst.DefinitionID != "aegis" || inst.RemainingSeconds != 300 {
		t.Errorf("unexpected instance %+v", inst)
	}

	if rec := f.do(t, http.MethodPost, "/api/timers/nope/start", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown timer, got %d", rec.Code)
	}
}

func TestStopAndPause_are_noops_for_idle_timers(t *testing.T) {
	f := newFixture(t)

	stop := decode[StopResponse](t, f.do(t, http.MethodPost, "/api/timers/roshan/stop", ""))
	if stop.Stopped {
		t.Error("stopping an idle timer should report stopped=false")
	}
	pause := decode[PauseResponse](t, f.do(t, http.MethodPost, "/api/timers/nope/pause", ""))
	if pause.Changed || pause.Instance != nil {
		t.Errorf("pausing an unknown timer should be a no-op, got %+v", pause)
	}
}

func TestPauseTimer(t *testing.T) {
	f := newFixture(t)
	f.registry.Start("tormentor")

	resp := decode[PauseResponse](t, f.do(t, http.MethodPost, "/api/timers/tormentor/pause", ""))
	if !resp.Changed || resp.Instance == nil || !resp.Instance.IsPaused {
		t.Errorf("expected paused instance, got %+v", resp)
	}

	stop := decode[StopResponse](t, f.do(t, http.MethodPost, "/api/timers/tormentor/stop", ""))
	if !stop.Stopped {
		t.Error("expected paused timer to stop")
	}
}

func TestGlobalPauseAndReset(t *testing.T) {
	f := newFixture(t)
	f.registry.Start("roshan")

	resp := decode[GlobalPauseResponse](t, f.do(t, http.MethodPost, "/api/timers/pause", ""))
	if !resp.GlobalPaused {
		t.Fatal("expected global pause on")
	}

	reset := decode[TimersResponse](t, f.do(t, http.MethodPost, "/api/timers/reset", ""))
	if reset.GlobalPaused {
		t.Error("reset should clear global pause")
	}
	for _, tv := range reset.Timers {
		if tv.Instance != nil {
			t.Errorf("%s still running after reset", tv.Definition.ID)
		}
	}
}

func TestSync(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/sync", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while disconnected, got %d", rec.Code)
	}
	if msg := decode[errorResponse](t, rec).Error; !strings.HasPrefix(msg, "sync failed") {
		t.Errorf("expected a sync failed message, got %q", msg)
	}

	f.connectLive(t)
	f.registry.Start("roshan")
	before, _ := f.registry.Get("roshan")

	rec = f.do(t, http.MethodPost, "/api/sync", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[SyncResponse](t, rec)
	if resp.GameTime != 630.5 {
		t.Errorf("expected game time 630.5, got %v", resp.GameTime)
	}
	if want := f.clock.Now().UnixMilli() - 630500; resp.OffsetMs != want {
		t.Errorf("expected offset %d, got %d", want, resp.OffsetMs)
	}

	after, _ := f.registry.Get("roshan")
	if before != after {
		t.Error("sync must not touch running timers")
	}

	f.clock.Advance(10 * time.Second)
	list := decode[TimersResponse](t, f.do(t, http.MethodGet, "/api/timers", ""))
	if list.EstimatedGameTime == nil || *list.EstimatedGameTime != 640.5 {
		t.Errorf("expected estimated game time 640.5, got %v", list.EstimatedGameTime)
	}
}

func TestSync_estimate_dropped_after_disconnect(t *testing.T) {
	f := newFixture(t)
	f.connectLive(t)
	if rec := f.do(t, http.MethodPost, "/api/sync", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	f.do(t, http.MethodPost, "/api/gsi/disconnect", "")
	f.connectLive(t)

	list := decode[TimersResponse](t, f.do(t, http.MethodGet, "/api/timers", ""))
	if list.EstimatedGameTime != nil {
		t.Errorf("estimate from the previous connection leaked: %v", *list.EstimatedGameTime)
	}
}

func TestClearSync(t *testing.T) {
	f := newFixture(t)
	f.connectLive(t)
	f.do(t, http.MethodPost, "/api/sync", "")

	if rec := f.do(t, http.MethodDelete, "/api/sync", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	list := decode[TimersResponse](t, f.do(t, http.MethodGet, "/api/timers", ""))
	if list.EstimatedGameTime != nil {
		t.Error("expected no estimate after clearing the sync")
	}
}

func TestFeedRoutes(t *testing.T) {
	f := newFixture(t)

	snap := decode[gsi.FeedSnapshot](t, f.do(t, http.MethodGet, "/api/gsi", ""))
	if snap.State != models.ConnectionDisconnected {
		t.Errorf("expected disconnected, got %s", snap.State)
	}

	rec := f.do(t, http.MethodPost, "/api/gsi/connect", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if snap := decode[gsi.FeedSnapshot](t, rec); snap.State != models.ConnectionConnecting {
		t.Errorf("expected connecting, got %s", snap.State)
	}

	snap = decode[gsi.FeedSnapshot](t, f.do(t, http.MethodPost, "/api/gsi/disconnect", ""))
	if snap.State != models.ConnectionDisconnected {
		t.Errorf("expected disconnected, got %s", snap.State)
	}
}

func TestPushGameState(t *testing.T) {
	f := newFixture(t)
	f.connectLive(t)

	gs := f.feed.GameState()
	if gs == nil || !f.feed.IsGameInProgress() {
		t.Fatalf("expected a live game, got %+v", gs)
	}

	big := `{"pad":"` + strings.Repeat("x", maxPushBytes) + `"}`
	if rec := f.do(t, http.MethodPost, "/gsi", big); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 for an oversized push, got %d", rec.Code)
	}
}

func TestPushRoute_absent_in_poll_mode(t *testing.T) {
	fc := clockwork.NewFakeClock()
	reg, _ := timers.NewRegistry(timers.DefaultDefinitions(), fc)
	feed := gsi.NewFeed(gsi.TransportFunc(func(ctx context.Context) ([]byte, error) {
		return nil, errors.New("unreachable")
	}), gsi.DefaultFeedConfig(), fc)

	r := chi.NewRouter()
	NewHandler(reg, feed, clocksync.NewReconciler(feed, fc), nil, fc).Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/gsi", strings.NewReader(liveBody)))
	if rec.Code == http.StatusNoContent {
		t.Error("push endpoint should not be mounted without a pusher")
	}
}
