package timers

import (
	"fmt"
	"os"

	"github.com/mcdev12/gametimer/go/internal/models"
	"gopkg.in/yaml.v3"
)

// DefinitionsFile is the on-disk shape of the timer configuration.
type DefinitionsFile struct {
	Timers []models.TimerDefinition `yaml:"timers"`
}

// DefaultDefinitions returns the built-in timer set.
func DefaultDefinitions() []models.TimerDefinition {
	return []models.TimerDefinition{
		{
			ID:               "roshan",
			Name:             "Roshan",
			DurationSeconds:  660,
			MinWindowSeconds: 480,
			MaxWindowSeconds: 660,
			Category:         models.TimerCategoryBoss,
			HasAudioAlert:    true,
		},
		{
			ID:              "aegis",
			Name:            "Aegis Expiry",
			DurationSeconds: 300,
			Category:        models.TimerCategoryBuff,
			HasAudioAlert:   true,
		},
		{
			ID:              "bounty-rune",
			Name:            "Bounty Runes",
			DurationSeconds: 180,
			Category:        models.TimerCategoryPeriodicResource,
			HasAudioAlert:   true,
		},
		{
			ID:              "power-rune",
			Name:            "Power Rune",
			DurationSeconds: 120,
			Category:        models.TimerCategoryPeriodicResource,
		},
		{
			ID:              "wisdom-rune",
			Name:            "Wisdom Runes",
			DurationSeconds: 420,
			Category:        models.TimerCategoryPeriodicResource,
			HasAudioAlert:   true,
		},
		{
			ID:              "tormentor",
			Name:            "Tormentor",
			DurationSeconds: 600,
			Category:        models.TimerCategoryBoss,
		},
	}
}

// LoadDefinitions reads and validates a YAML timer configuration.
func LoadDefinitions(path string) ([]models.TimerDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timers file: %w", err)
	}

	var file DefinitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse timers file: %w", err)
	}

	return ValidateDefinitions(file.Timers)
}

// ValidateDefinitions checks every definition and returns normalized copies.
// A window timer without a max bound gets max = duration, and an empty
// category becomes custom.
func ValidateDefinitions(defs []models.TimerDefinition) ([]models.TimerDefinition, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no timers configured", ErrInvalidDefinition)
	}

	seen := make(map[string]bool, len(defs))
	out := make([]models.TimerDefinition, 0, len(defs))
	for i, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("%w: timer #%d has no id", ErrInvalidDefinition, i)
		}
		if seen[def.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidDefinition, def.ID)
		}
		seen[def.ID] = true

		if def.Name == "" {
			def.Name = def.ID
		}
		if def.Category == "" {
			def.Category = models.TimerCategoryCustom
		}
		if !def.Category.Valid() {
			return nil, fmt.Errorf("%w: %q has unknown category %q", ErrInvalidDefinition, def.ID, def.Category)
		}
		if def.DurationSeconds <= 0 {
			return nil, fmt.Errorf("%w: %q duration must be positive", ErrInvalidDefinition, def.ID)
		}

		if def.MinWindowSeconds < 0 || def.MaxWindowSeconds < 0 {
			return nil, fmt.Errorf("%w: %q window bounds must not be negative", ErrInvalidDefinition, def.ID)
		}
		if def.MinWindowSeconds == 0 && def.MaxWindowSeconds > 0 {
			return nil, fmt.Errorf("%w: %q has a max window without a min window", ErrInvalidDefinition, def.ID)
		}
		if def.MinWindowSeconds > 0 {
			if def.MaxWindowSeconds == 0 {
				def.MaxWindowSeconds = def.DurationSeconds
			}
			if def.MinWindowSeconds > def.MaxWindowSeconds || def.MaxWindowSeconds > def.DurationSeconds {
				return nil, fmt.Errorf("%w: %q needs 0 < min <= max <= duration, got min=%d max=%d duration=%d",
					ErrInvalidDefinition, def.ID, def.MinWindowSeconds, def.MaxWindowSeconds, def.DurationSeconds)
			}
		}

		out = append(out, def)
	}

	return out, nil
}
