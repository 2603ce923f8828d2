package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/gametimer/go/internal/clocksync"
	"github.com/mcdev12/gametimer/go/internal/gsi"
	"github.com/mcdev12/gametimer/go/internal/models"
	"github.com/mcdev12/gametimer/go/internal/timers"
	"github.com/rs/zerolog/log"
)

// maxPushBytes bounds a pushed game state body.
const maxPushBytes = 1 << 20

// TimerControl is the registry surface the control API drives.
type TimerControl interface {
	Start(id string) (models.TimerInstance, error)
	Stop(id string) bool
	TogglePause(id string) (models.TimerInstance, bool)
	ToggleGlobalPause() bool
	GlobalPaused() bool
	ResetAll()
	Active() []models.TimerInstance
	Definitions() []models.TimerDefinition
}

// FeedControl is the game clock feed surface the control API drives.
type FeedControl interface {
	Connect()
	Disconnect()
	Snapshot() gsi.FeedSnapshot
}

// Syncer records and projects the game clock offset.
type Syncer interface {
	Sync() (float64, bool)
	Offset() (int64, bool)
	EstimatedGameTime(at time.Time) (float64, bool)
	Clear()
}

// Pusher accepts raw pushed game state.
type Pusher interface {
	Push(raw []byte)
}

// Handler exposes the timer control API using go-chi.
type Handler struct {
	timers TimerControl
	feed   FeedControl
	syncer Syncer
	pusher Pusher
	clock  clockwork.Clock
}

// NewHandler wires the control API. pusher may be nil when game state is polled.
func NewHandler(t TimerControl, f FeedControl, s Syncer, p Pusher, clock clockwork.Clock) *Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Handler{timers: t, feed: f, syncer: s, pusher: p, clock: clock}
}

// TimerView pairs a definition with its running instance, if any.
type TimerView struct {
	Definition models.TimerDefinition `json:"definition"`
	Instance   *models.TimerInstance  `json:"instance,omitempty"`
}

type TimersResponse struct {
	GlobalPaused      bool        `json:"global_paused"`
	Timers            []TimerView `json:"timers"`
	EstimatedGameTime *float64    `json:"estimated_game_time,omitempty"`
}

type StopResponse struct {
	TimerID string `json:"timer_id"`
	Stopped bool   `json:"stopped"`
}

type PauseResponse struct {
	TimerID  string                `json:"timer_id"`
	Changed  bool                  `json:"changed"`
	Instance *models.TimerInstance `json:"instance,omitempty"`
}

type GlobalPauseResponse struct {
	GlobalPaused bool `json:"global_paused"`
}

type SyncResponse struct {
	GameTime float64 `json:"game_time"`
	OffsetMs int64   `json:"offset_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Routes registers the control API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/timers", h.ListTimers)
		r.Post("/timers/reset", h.ResetTimers)
		r.Post("/timers/pause", h.ToggleGlobalPause)
		r.Post("/timers/{id}/start", h.StartTimer)
		r.Post("/timers/{id}/stop", h.StopTimer)
		r.Post("/timers/{id}/pause", h.PauseTimer)

		r.Post("/sync", h.Sync)
		r.Delete("/sync", h.ClearSync)

		r.Get("/gsi", h.FeedStatus)
		r.Post("/gsi/connect", h.ConnectFeed)
		r.Post("/gsi/disconnect", h.DisconnectFeed)
	})

	if h.pusher != nil {
		r.Post("/gsi", h.PushGameState)
	}
}

// ListTimers handles GET /api/timers.
func (h *Handler) ListTimers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.timersView())
}

func (h *Handler) timersView() TimersResponse {
	active := make(map[string]models.TimerInstance)
	for _, inst := range h.timers.Active() {
		active[inst.DefinitionID] = inst
	}

	defs := h.timers.Definitions()
	resp := TimersResponse{
		GlobalPaused: h.timers.GlobalPaused(),
		Timers:       make([]TimerView, 0, len(defs)),
	}
	for _, def := range defs {
		view := TimerView{Definition: def}
		if inst, ok := active[def.ID]; ok {
			view.Instance = &inst
		}
		resp.Timers = append(resp.Timers, view)
	}
	if gt, ok := h.syncer.EstimatedGameTime(h.clock.Now()); ok {
		resp.EstimatedGameTime = &gt
	}
	return resp
}

// StartTimer handles POST /api/timers/{id}/start.
func (h *Handler) StartTimer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	inst, err := h.timers.Start(id)
	if err != nil {
		if errors.Is(err, timers.ErrUnknownTimer) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		log.Error().Err(err).Str("timer_id", id).Msg("start timer failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// StopTimer handles POST /api/timers/{id}/stop. Stopping an idle timer is not an error.
func (h *Handler) StopTimer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, StopResponse{TimerID: id, Stopped: h.timers.Stop(id)})
}

// PauseTimer handles POST /api/timers/{id}/pause.
func (h *Handler) PauseTimer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	resp := PauseResponse{TimerID: id}
	if inst, ok := h.timers.TogglePause(id); ok {
		resp.Changed = true
		resp.Instance = &inst
	}
	writeJSON(w, http.StatusOK, resp)
}

// ToggleGlobalPause handles POST /api/timers/pause.
func (h *Handler) ToggleGlobalPause(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GlobalPauseResponse{GlobalPaused: h.timers.ToggleGlobalPause()})
}

// ResetTimers handles POST /api/timers/reset.
func (h *Handler) ResetTimers(w http.ResponseWriter, r *http.Request) {
	h.timers.ResetAll()
	writeJSON(w, http.StatusOK, h.timersView())
}

// Sync handles POST /api/sync.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	gameTime, ok := h.syncer.Sync()
	if !ok {
		writeJSON(w, http.StatusConflict, errorResponse{Error: clocksync.ErrSyncFailed.Error()})
		return
	}
	offset, _ := h.syncer.Offset()
	writeJSON(w, http.StatusOK, SyncResponse{GameTime: gameTime, OffsetMs: offset})
}

// ClearSync handles DELETE /api/sync.
func (h *Handler) ClearSync(w http.ResponseWriter, r *http.Request) {
	h.syncer.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// FeedStatus handles GET /api/gsi.
func (h *Handler) FeedStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.feed.Snapshot())
}

// ConnectFeed handles POST /api/gsi/connect.
func (h *Handler) ConnectFeed(w http.ResponseWriter, r *http.Request) {
	h.feed.Connect()
	writeJSON(w, http.StatusAccepted, h.feed.Snapshot())
}

// DisconnectFeed handles POST /api/gsi/disconnect.
func (h *Handler) DisconnectFeed(w http.ResponseWriter, r *http.Request) {
	h.feed.Disconnect()
	writeJSON(w, http.StatusOK, h.feed.Snapshot())
}

// PushGameState handles POST /gsi, the endpoint the game's GSI config posts to.
// The body is buffered as is; validation happens when the feed reads it.
func (h *Handler) PushGameState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPushBytes+1))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if len(body) > maxPushBytes {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}
	h.pusher.Push(body)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
