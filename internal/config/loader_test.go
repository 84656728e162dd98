package config

import (
	"strings"
	"testing"
)

const validYAML = `
log:
  level: debug
metrics:
  listen_addr: ":9090"
synthesis:
  primary:
    name: gemini
    api_key: key-1
  fallbacks:
    - name: openai
      api_key: key-2
playback:
  voice: Puck
  speed: 1.25
  prefetch: 3
  chunk_timeout_seconds: 20
live:
  model: gemini-2.5-flash-native-audio-preview-09-2025
  voice: Zephyr
tutor:
  model: gemini-2.5-flash
  grade_level: class 8
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Log.Level != LogDebug {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
	if cfg.Synthesis.Primary.Name != "gemini" {
		t.Errorf("synthesis.primary.name = %q", cfg.Synthesis.Primary.Name)
	}
	if len(cfg.Synthesis.Fallbacks) != 1 || cfg.Synthesis.Fallbacks[0].Name != "openai" {
		t.Errorf("synthesis.fallbacks = %+v", cfg.Synthesis.Fallbacks)
	}
	if cfg.Playback.Speed != 1.25 {
		t.Errorf("playback.speed = %v", cfg.Playback.Speed)
	}
	if cfg.Live.Voice != "Zephyr" {
		t.Errorf("live.voice = %q", cfg.Live.Voice)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	yaml := `
synthesis:
  primary:
    name: gemini
    api_key: k
    shoe_size: 44
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Log: LogConfig{Level: "verbose"},
		Synthesis: SynthesisConfig{
			Primary: ProviderEntry{Name: "espeak", APIKey: "k"},
		},
		Playback: PlaybackConfig{Speed: 3.0, Prefetch: -1},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"log.level", "synthesis.primary.name", "playback.speed", "playback.prefetch"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestValidate_RequiresPrimary(t *testing.T) {
	t.Parallel()

	err := Validate(&Config{})
	if err == nil || !strings.Contains(err.Error(), "synthesis.primary.name is required") {
		t.Errorf("err = %v; want missing primary error", err)
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Synthesis: SynthesisConfig{Primary: ProviderEntry{Name: "gemini"}},
	}
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "api_key is required") {
		t.Errorf("err = %v; want api_key error", err)
	}
}

func TestDerivedGetters_Defaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Synthesis: SynthesisConfig{Primary: ProviderEntry{Name: "gemini", APIKey: "pk"}},
	}
	if got := cfg.PlaybackSpeed(); got != 1.0 {
		t.Errorf("PlaybackSpeed = %v; want 1.0", got)
	}
	if got := cfg.PlaybackPrefetch(); got != 2 {
		t.Errorf("PlaybackPrefetch = %v; want 2", got)
	}
	if got := cfg.LiveAPIKey(); got != "pk" {
		t.Errorf("LiveAPIKey = %q; want primary key", got)
	}
	if got := cfg.TutorAPIKey(); got != "pk" {
		t.Errorf("TutorAPIKey = %q; want primary key", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load("/nonexistent/guruvoice.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
