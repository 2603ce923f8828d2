package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// GSI transport modes.
const (
	ModePoll = "poll"
	ModePush = "push"
)

// Config holds process settings read from the environment.
type Config struct {
	Port           string
	GSIMode        string
	GSIURL         string
	PollTimeout    time.Duration
	TimersConfig   string
	NATSURL        string
	PushSubject    string
	AlertStream    string
	LogLevel       zerolog.Level
	AutoConnect    bool
	PushMaxAge     time.Duration
	AllowedOrigins []string
}

// Load reads .env if present; a missing file is not an error.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	if err := godotenv.Load(paths...); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// NewConfigFromEnv reads the environment (with defaults) and validates it.
func NewConfigFromEnv() (Config, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg := Config{
		Port:           getEnv("GATEWAY_PORT", "8081"),
		GSIMode:        strings.ToLower(getEnv("GSI_MODE", ModePoll)),
		GSIURL:         getEnv("GSI_URL", "http://localhost:3000"),
		PollTimeout:    getEnvAsDuration("GSI_POLL_TIMEOUT", 2500*time.Millisecond),
		TimersConfig:   getEnv("TIMERS_CONFIG", ""),
		NATSURL:        getEnv("NATS_URL", ""),
		PushSubject:    getEnv("GSI_PUSH_SUBJECT", "gsi.state"),
		AlertStream:    getEnv("ALERT_STREAM", "TIMER_ALERTS"),
		LogLevel:       level,
		AutoConnect:    getEnvAsBool("AUTO_CONNECT", false),
		PushMaxAge:     getEnvAsDuration("GSI_PUSH_MAX_AGE", 5*time.Second),
		AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if cfg.GSIMode != ModePoll && cfg.GSIMode != ModePush {
		return Config{}, fmt.Errorf("invalid GSI_MODE %q: want %q or %q", cfg.GSIMode, ModePoll, ModePush)
	}
	if cfg.PollTimeout <= 0 {
		return Config{}, fmt.Errorf("GSI_POLL_TIMEOUT must be positive, got %s", cfg.PollTimeout)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
