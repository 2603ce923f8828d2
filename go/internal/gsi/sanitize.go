package gsi

import (
	"encoding/json"
	"math"

	"github.com/mcdev12/gametimer/go/internal/models"
)

// Bounds applied to untrusted numeric fields.
const (
	MinTimeSeconds = -300.0
	MaxTimeSeconds = 7200.0
	MinWinner      = 0
	MaxWinner      = 3
)

// Recognized payload keys, looked up under "map" first and then at the top level.
const (
	fieldClockTime = "clock_time"
	fieldGameTime  = "game_time"
	fieldPaused    = "paused"
	fieldGameState = "game_state"
	fieldWinner    = "winner"
	fieldMap       = "map"
)

// SanitizeJSON decodes data and runs it through SanitizeGameState.
// Undecodable input yields nil.
func SanitizeJSON(data []byte) *models.GameState {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	return SanitizeGameState(raw)
}

// SanitizeGameState turns an untrusted decoded payload into a bounded GameState.
// It returns nil when raw is not an object or carries none of the recognized
// fields. Unknown keys are never read, so nothing outside the known field set
// reaches the result.
func SanitizeGameState(raw any) *models.GameState {
	var obj map[string]any
	switch v := raw.(type) {
	case map[string]any:
		obj = v
	case models.GameState:
		obj = v.Raw()
	case *models.GameState:
		if v == nil {
			return nil
		}
		obj = v.Raw()
	default:
		return nil
	}

	nested, _ := obj[fieldMap].(map[string]any)
	lookup := func(key string) (any, bool) {
		if nested != nil {
			if v, ok := nested[key]; ok {
				return v, true
			}
		}
		v, ok := obj[key]
		return v, ok
	}

	state := &models.GameState{Phase: models.PhaseInit}
	recognized := false

	clockRaw, hasClock := lookup(fieldClockTime)
	clock, clockOK := 0.0, false
	if hasClock {
		recognized = true
		clock, clockOK = finiteNumber(clockRaw)
		clock = clamp(clock, MinTimeSeconds, MaxTimeSeconds)
	}

	gameRaw, hasGame := lookup(fieldGameTime)
	game, gameOK := 0.0, false
	if hasGame {
		recognized = true
		game, gameOK = finiteNumber(gameRaw)
		game = clamp(game, MinTimeSeconds, MaxTimeSeconds)
	}

	state.ClockTime = clock
	switch {
	case gameOK:
		state.GameTime = game
	case clockOK:
		state.GameTime = clock
	}
	state.HasTime = gameOK || clockOK

	if v, ok := lookup(fieldPaused); ok {
		recognized = true
		if b, isBool := v.(bool); isBool {
			state.Paused = b
		}
	}

	if v, ok := lookup(fieldGameState); ok {
		recognized = true
		if s, isString := v.(string); isString && models.Phase(s).Known() {
			state.Phase = models.Phase(s)
		}
	}

	if v, ok := lookup(fieldWinner); ok {
		recognized = true
		if n, isNum := finiteNumber(v); isNum {
			state.Winner = int(clamp(math.Trunc(n), MinWinner, MaxWinner))
		}
	}

	if !recognized {
		return nil
	}
	return state
}

// finiteNumber extracts a finite float from a decoded JSON value.
func finiteNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
