package gsi

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mcdev12/gametimer/go/internal/models"
)

func TestSanitizeGameState_rejects_non_objects(t *testing.T) {
	inputs := map[string]any{
		"nil":    nil,
		"string": "hello",
		"number": 42.0,
		"array":  []any{map[string]any{"game_time": 10.0}},
		"bool":   true,
	}
	for name, in := range inputs {
		if got := SanitizeGameState(in); got != nil {
			t.Errorf("%s: expected nil, got %+v", name, got)
		}
	}
}

func TestSanitizeGameState_empty_object_is_nil(t *testing.T) {
	if got := SanitizeGameState(map[string]any{}); got != nil {
		t.Errorf("expected nil for {}, got %+v", got)
	}
	if got := SanitizeGameState(map[string]any{"map": map[string]any{}}); got != nil {
		t.Errorf("expected nil for {map:{}}, got %+v", got)
	}
	if got := SanitizeGameState(map[string]any{"hero": map[string]any{"name": "npc_dota_hero_axe"}}); got != nil {
		t.Errorf("expected nil when no recognized field is present, got %+v", got)
	}
}

func TestSanitizeGameState_game_time_defaults_from_clock_time(t *testing.T) {
	got := SanitizeGameState(map[string]any{"map": map[string]any{"clock_time": 90.0}})
	if got == nil {
		t.Fatal("expected a state")
	}
	want := &models.GameState{ClockTime: 90, GameTime: 90, Phase: models.PhaseInit, HasTime: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitizeGameState_map_takes_precedence(t *testing.T) {
	raw := map[string]any{
		"game_time":  10.0,
		"clock_time": 5.0,
		"paused":     true,
		"map": map[string]any{
			"game_time":  600.0,
			"game_state": string(models.PhaseGameInProgress),
		},
	}
	got := SanitizeGameState(raw)
	want := &models.GameState{
		ClockTime: 5,
		GameTime:  600,
		Paused:    true,
		Phase:     models.PhaseGameInProgress,
		HasTime:   true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitizeGameState_clamps_numbers(t *testing.T) {
	got := SanitizeGameState(map[string]any{
		"clock_time": -10000.0,
		"game_time":  1e9,
		"winner":     17.9,
	})
	if got == nil {
		t.Fatal("expected a state")
	}
	if got.ClockTime != MinTimeSeconds {
		t.Errorf("clock_time: expected %v, got %v", MinTimeSeconds, got.ClockTime)
	}
	if got.GameTime != MaxTimeSeconds {
		t.Errorf("game_time: expected %v, got %v", MaxTimeSeconds, got.GameTime)
	}
	if got.Winner != MaxWinner {
		t.Errorf("winner: expected %d, got %d", MaxWinner, got.Winner)
	}

	got = SanitizeGameState(map[string]any{"winner": -2.0})
	if got == nil || got.Winner != 0 {
		t.Errorf("negative winner should clamp to 0, got %+v", got)
	}
}

func TestSanitizeGameState_non_finite_falls_back(t *testing.T) {
	got := SanitizeGameState(map[string]any{
		"clock_time": math.NaN(),
		"game_time":  math.Inf(1),
		"winner":     "two",
		"paused":     "yes",
	})
	if got == nil {
		t.Fatal("recognized fields with bad values should still produce a state")
	}
	want := &models.GameState{Phase: models.PhaseInit}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if got.HasTime {
		t.Error("non-finite times must not count as usable")
	}
}

func TestSanitizeGameState_unknown_phase_normalizes(t *testing.T) {
	got := SanitizeGameState(map[string]any{"game_state": "DROP TABLE"})
	if got == nil {
		t.Fatal("expected a state")
	}
	if got.Phase != models.PhaseInit {
		t.Errorf("expected %s, got %s", models.PhaseInit, got.Phase)
	}
}

func TestSanitizeGameState_ignores_prototype_keys(t *testing.T) {
	raw := SanitizeJSON([]byte(`{"__proto__":{"game_time":5},"constructor":{"prototype":{"x":1}},"game_time":42}`))
	if raw == nil {
		t.Fatal("expected a state")
	}
	if raw.GameTime != 42 {
		t.Errorf("expected game_time 42, got %v", raw.GameTime)
	}
}

func TestSanitizeGameState_self_referencing_map(t *testing.T) {
	cyclic := map[string]any{"clock_time": 12.0}
	cyclic["map"] = cyclic
	cyclic["self"] = cyclic

	got := SanitizeGameState(cyclic)
	if got == nil || got.ClockTime != 12 {
		t.Errorf("expected clock_time 12, got %+v", got)
	}
}

func TestSanitizeGameState_idempotent(t *testing.T) {
	inputs := []string{
		`{"map":{"clock_time":90}}`,
		`{"map":{"clock_time":-45.5,"game_time":12.25,"paused":true,"game_state":"DOTA_GAMERULES_STATE_PRE_GAME","winner":2}}`,
		`{"game_time":"abc"}`,
		`{"clock_time":"x","game_time":5}`,
		`{"game_state":"DROP TABLE","winner":99}`,
		`{"paused":false}`,
		`{"clock_time":99999,"game_time":-99999}`,
	}
	for _, in := range inputs {
		once := SanitizeJSON([]byte(in))
		if once == nil {
			t.Fatalf("%s: expected a state", in)
		}
		twice := SanitizeGameState(*once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("%s: sanitize is not idempotent (-once +twice):\n%s", in, diff)
		}

		// the raw form survives a JSON round trip as well
		b, err := json.Marshal(once.Raw())
		if err != nil {
			t.Fatalf("marshal raw: %v", err)
		}
		if diff := cmp.Diff(once, SanitizeJSON(b)); diff != "" {
			t.Errorf("%s: JSON round trip changed state (-once +again):\n%s", in, diff)
		}
	}
}

func TestSanitizeGameState_nil_pointer(t *testing.T) {
	var s *models.GameState
	if got := SanitizeGameState(s); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestSanitizeJSON_rejects_garbage(t *testing.T) {
	for _, in := range []string{"", "not json", "[1,2,3]", "null", `"str"`} {
		if got := SanitizeJSON([]byte(in)); got != nil {
			t.Errorf("%q: expected nil, got %+v", in, got)
		}
	}
}

func TestSanitizeGameState_json_number(t *testing.T) {
	got := SanitizeGameState(map[string]any{"game_time": json.Number("321.5")})
	if got == nil || got.GameTime != 321.5 {
		t.Errorf("expected 321.5, got %+v", got)
	}
}
