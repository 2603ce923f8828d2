package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertKind distinguishes the two threshold crossings a timer can report.
type AlertKind string

const (
	// AlertWindowOpen means the event may now occur.
	AlertWindowOpen AlertKind = "window-open"
	// AlertCompleted means the event has definitely occurred by now.
	AlertCompleted AlertKind = "completed"
)

// Alert is emitted once per threshold crossing of a timer instance.
type Alert struct {
	ID            uuid.UUID     `json:"id"`
	TimerID       string        `json:"timer_id"`
	TimerName     string        `json:"timer_name"`
	Kind          AlertKind     `json:"kind"`
	Category      TimerCategory `json:"category"`
	HasAudioAlert bool          `json:"has_audio_alert"`
	FiredAt       time.Time     `json:"fired_at"`
}
