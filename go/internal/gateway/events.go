package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/gametimer/go/internal/models"
)

// GatewayEvent is the envelope for everything pushed to websocket clients.
type GatewayEvent struct {
	ID        string          `json:"id"`        // Event UUID
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of gateway event
type EventType string

const (
	EventTypeTimerAlert EventType = "TimerAlert"
	EventTypeFeedState  EventType = "FeedState"
	EventTypeTimerTick  EventType = "TimerTick"
)

// TimerTickPayload carries the running timers once per tick.
type TimerTickPayload struct {
	GlobalPaused      bool                   `json:"global_paused"`
	Timers            []models.TimerInstance `json:"timers"`
	EstimatedGameTime *float64               `json:"estimated_game_time,omitempty"`
	TickedAt          time.Time              `json:"ticked_at"`
}

// NewEvent wraps payload in an envelope stamped at now.
func NewEvent(eventType EventType, payload any, now time.Time) (*GatewayEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &GatewayEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: now,
		Data:      data,
	}, nil
}
