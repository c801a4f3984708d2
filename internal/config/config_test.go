package config

import (
	"testing"
	"time"

	"github.com/AlxManAi/literary-sommelier/pkg/gemini"
)

var envKeys = []string{
	"GEMINI_API_KEY",
	"GOOGLE_API_KEY",
	"SOMMELIER_BASE_URL",
	"SOMMELIER_LIVE_URL",
	"SOMMELIER_TEXT_MODEL",
	"SOMMELIER_IMAGE_MODEL",
	"SOMMELIER_TTS_MODEL",
	"SOMMELIER_LIVE_MODEL",
	"SOMMELIER_VOICE",
	"SOMMELIER_MAX_IMAGE_BYTES",
	"SOMMELIER_TURN_TIMEOUT",
	"SOMMELIER_MUTED",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.APIKey != "test-key" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.BaseURL != gemini.DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.TextModel != gemini.DefaultTextModel || cfg.LiveModel != gemini.DefaultLiveModel {
		t.Errorf("models = %q / %q", cfg.TextModel, cfg.LiveModel)
	}
	if cfg.Voice != gemini.DefaultVoice {
		t.Errorf("Voice = %q", cfg.Voice)
	}
	if cfg.MaxImageBytes != 4<<20 {
		t.Errorf("MaxImageBytes = %d", cfg.MaxImageBytes)
	}
	if cfg.TurnTimeout != 90*time.Second {
		t.Errorf("TurnTimeout = %v", cfg.TurnTimeout)
	}
	if cfg.Muted {
		t.Error("Muted should default to false")
	}
}

func TestLoadFromEnv_GoogleKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "fallback-key")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.APIKey != "fallback-key" {
		t.Errorf("APIKey = %q, want GOOGLE_API_KEY fallback", cfg.APIKey)
	}
}

func TestLoadFromEnv_GeminiKeyWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "primary")
	t.Setenv("GOOGLE_API_KEY", "secondary")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.APIKey != "primary" {
		t.Errorf("APIKey = %q, want GEMINI_API_KEY to take precedence", cfg.APIKey)
	}
}

func TestLoadFromEnv_MissingKey(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error without an API key")
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("SOMMELIER_TEXT_MODEL", "gemini-custom")
	t.Setenv("SOMMELIER_VOICE", "Puck")
	t.Setenv("SOMMELIER_MAX_IMAGE_BYTES", "1024")
	t.Setenv("SOMMELIER_TURN_TIMEOUT", "15s")
	t.Setenv("SOMMELIER_MUTED", "true")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.TextModel != "gemini-custom" || cfg.Voice != "Puck" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.MaxImageBytes != 1024 || cfg.TurnTimeout != 15*time.Second || !cfg.Muted {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadFromEnv_MalformedOptionalFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("SOMMELIER_MAX_IMAGE_BYTES", "not-a-number")
	t.Setenv("SOMMELIER_TURN_TIMEOUT", "soon")
	t.Setenv("SOMMELIER_MUTED", "maybe")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.MaxImageBytes != 4<<20 || cfg.TurnTimeout != 90*time.Second || cfg.Muted {
		t.Errorf("malformed values must fall back to defaults: %+v", cfg)
	}
}

func TestLoadFromEnv_RejectsNonPositiveBounds(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("SOMMELIER_MAX_IMAGE_BYTES", "-1")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for non-positive image cap")
	}
}
