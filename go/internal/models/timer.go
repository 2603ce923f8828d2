package models

import (
	"time"

	"github.com/google/uuid"
)

// TimerCategory groups timers by the kind of in-game event they track.
type TimerCategory string

const (
	TimerCategoryBoss             TimerCategory = "boss"
	TimerCategoryPeriodicResource TimerCategory = "periodic-resource"
	TimerCategoryBuff             TimerCategory = "buff"
	TimerCategoryCustom           TimerCategory = "custom"
)

// Valid reports whether c is one of the known categories.
func (c TimerCategory) Valid() bool {
	switch c {
	case TimerCategoryBoss, TimerCategoryPeriodicResource, TimerCategoryBuff, TimerCategoryCustom:
		return true
	}
	return false
}

// TimerDefinition is the immutable configuration of a named timer.
type TimerDefinition struct {
	ID               string        `json:"id" yaml:"id"`
	Name             string        `json:"name" yaml:"name"`
	DurationSeconds  int           `json:"duration_seconds" yaml:"duration_seconds"`
	MinWindowSeconds int           `json:"min_window_seconds,omitempty" yaml:"min_window_seconds,omitempty"`
	MaxWindowSeconds int           `json:"max_window_seconds,omitempty" yaml:"max_window_seconds,omitempty"`
	Category         TimerCategory `json:"category" yaml:"category"`
	HasAudioAlert    bool          `json:"has_audio_alert" yaml:"has_audio_alert"`
}

// IsWindow reports whether the definition has an earliest-possible bound
// in addition to its deadline.
func (d TimerDefinition) IsWindow() bool {
	return d.MinWindowSeconds > 0
}

// TimerInstance is a running countdown for one definition.
type TimerInstance struct {
	ID               uuid.UUID  `json:"id"`
	DefinitionID     string     `json:"definition_id"`
	StartedAt        time.Time  `json:"started_at"`
	IsPaused         bool       `json:"is_paused"`
	PausedAt         *time.Time `json:"paused_at,omitempty"`
	ElapsedSeconds   int        `json:"elapsed_seconds"`
	RemainingSeconds int        `json:"remaining_seconds"`
	WindowOpen       bool       `json:"window_open"`
}
