// Package config loads the sommelier runtime configuration from the
// environment. Malformed optional values fall back to their defaults; only
// a missing API key is a hard error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AlxManAi/literary-sommelier/pkg/gemini"
)

type Config struct {
	APIKey  string
	BaseURL string
	LiveURL string

	TextModel  string
	ImageModel string
	TTSModel   string
	LiveModel  string
	Voice      string

	// Decoded bytes; uploads above this never reach the API.
	MaxImageBytes int

	// Per-turn ceiling covering text generation, image and narration.
	TurnTimeout time.Duration

	Muted bool
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		APIKey:        envOr("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY")),
		BaseURL:       envOr("SOMMELIER_BASE_URL", gemini.DefaultBaseURL),
		LiveURL:       envOr("SOMMELIER_LIVE_URL", gemini.DefaultLiveURL),
		TextModel:     envOr("SOMMELIER_TEXT_MODEL", gemini.DefaultTextModel),
		ImageModel:    envOr("SOMMELIER_IMAGE_MODEL", gemini.DefaultImageModel),
		TTSModel:      envOr("SOMMELIER_TTS_MODEL", gemini.DefaultTTSModel),
		LiveModel:     envOr("SOMMELIER_LIVE_MODEL", gemini.DefaultLiveModel),
		Voice:         envOr("SOMMELIER_VOICE", gemini.DefaultVoice),
		MaxImageBytes: envIntOr("SOMMELIER_MAX_IMAGE_BYTES", 4<<20),
		TurnTimeout:   envDurationOr("SOMMELIER_TURN_TIMEOUT", 90*time.Second),
		Muted:         envBoolOr("SOMMELIER_MUTED", false),
	}

	if strings.TrimSpace(cfg.APIKey) == "" {
		return Config{}, fmt.Errorf("GEMINI_API_KEY (or GOOGLE_API_KEY) is required")
	}
	if cfg.MaxImageBytes <= 0 {
		return Config{}, fmt.Errorf("SOMMELIER_MAX_IMAGE_BYTES must be > 0")
	}
	if cfg.TurnTimeout <= 0 {
		return Config{}, fmt.Errorf("SOMMELIER_TURN_TIMEOUT must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
