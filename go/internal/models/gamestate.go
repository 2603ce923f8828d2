package models

// Phase is a game phase identifier as reported by game state integration.
type Phase string

const (
	PhaseInit             Phase = "DOTA_GAMERULES_STATE_INIT"
	PhaseWaitForPlayers   Phase = "DOTA_GAMERULES_STATE_WAIT_FOR_PLAYERS_TO_LOAD"
	PhaseHeroSelection    Phase = "DOTA_GAMERULES_STATE_HERO_SELECTION"
	PhaseStrategyTime     Phase = "DOTA_GAMERULES_STATE_STRATEGY_TIME"
	PhasePreGame          Phase = "DOTA_GAMERULES_STATE_PRE_GAME"
	PhaseGameInProgress   Phase = "DOTA_GAMERULES_STATE_GAME_IN_PROGRESS"
	PhasePostGame         Phase = "DOTA_GAMERULES_STATE_POST_GAME"
	PhaseDisconnect       Phase = "DOTA_GAMERULES_STATE_DISCONNECT"
	PhaseTeamShowcase     Phase = "DOTA_GAMERULES_STATE_TEAM_SHOWCASE"
	PhaseCustomGameSetup  Phase = "DOTA_GAMERULES_STATE_CUSTOM_GAME_SETUP"
	PhaseWaitForMapToLoad Phase = "DOTA_GAMERULES_STATE_WAIT_FOR_MAP_TO_LOAD"
	PhasePlayerDraft      Phase = "DOTA_GAMERULES_STATE_PLAYER_DRAFT"
	PhaseLast             Phase = "DOTA_GAMERULES_STATE_LAST"
)

var knownPhases = map[Phase]struct{}{
	PhaseInit:             {},
	PhaseWaitForPlayers:   {},
	PhaseHeroSelection:    {},
	PhaseStrategyTime:     {},
	PhasePreGame:          {},
	PhaseGameInProgress:   {},
	PhasePostGame:         {},
	PhaseDisconnect:       {},
	PhaseTeamShowcase:     {},
	PhaseCustomGameSetup:  {},
	PhaseWaitForMapToLoad: {},
	PhasePlayerDraft:      {},
	PhaseLast:             {},
}

// Known reports whether p belongs to the closed set of phase identifiers.
func (p Phase) Known() bool {
	_, ok := knownPhases[p]
	return ok
}

// GameState is a fully validated snapshot of the live match clock.
type GameState struct {
	ClockTime float64 `json:"clock_time"`
	GameTime  float64 `json:"game_time"`
	Paused    bool    `json:"paused"`
	Phase     Phase   `json:"game_state"`
	Winner    int     `json:"winner"`

	// HasTime is set when the payload carried a usable clock or game time.
	HasTime bool `json:"has_time"`
}

// Raw renders the state back into the top-level GSI payload shape.
// Time fields are only emitted when the state carried one.
func (s GameState) Raw() map[string]any {
	raw := map[string]any{
		"paused":     s.Paused,
		"game_state": string(s.Phase),
		"winner":     float64(s.Winner),
	}
	if s.HasTime {
		raw["clock_time"] = s.ClockTime
		raw["game_time"] = s.GameTime
	}
	return raw
}

// ConnectionState is the state of the game clock feed.
type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionError        ConnectionState = "error"
)
