package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidSynthesisBackends lists the recognised synthesis backend names.
var ValidSynthesisBackends = []string{"gemini", "openai"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	if cfg.Synthesis.Primary.Name == "" {
		errs = append(errs, errors.New("synthesis.primary.name is required"))
	} else if err := validateBackend("synthesis.primary", cfg.Synthesis.Primary); err != nil {
		errs = append(errs, err)
	}
	for i, fb := range cfg.Synthesis.Fallbacks {
		if err := validateBackend(fmt.Sprintf("synthesis.fallbacks[%d]", i), fb); err != nil {
			errs = append(errs, err)
		}
	}

	if cfg.Playback.Speed != 0 {
		if cfg.Playback.Speed < 0.5 || cfg.Playback.Speed > 2.0 {
			errs = append(errs, fmt.Errorf("playback.speed %.2f is out of range [0.5, 2.0]", cfg.Playback.Speed))
		}
	}
	if cfg.Playback.Prefetch < 0 {
		errs = append(errs, fmt.Errorf("playback.prefetch %d must not be negative", cfg.Playback.Prefetch))
	}
	if cfg.Playback.ChunkTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("playback.chunk_timeout_seconds %d must not be negative", cfg.Playback.ChunkTimeoutSeconds))
	}

	return errors.Join(errs...)
}

// validateBackend checks one synthesis backend entry.
func validateBackend(prefix string, entry ProviderEntry) error {
	var errs []error
	if entry.Name != "" && !slices.Contains(ValidSynthesisBackends, entry.Name) {
		errs = append(errs, fmt.Errorf("%s.name %q is unknown; valid values: gemini, openai", prefix, entry.Name))
	}
	if entry.Name != "" && entry.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s.api_key is required", prefix))
	}
	return errors.Join(errs...)
}

// ── Derived getters ───────────────────────────────────────────────────────────

// PlaybackSpeed returns the configured playback rate, defaulting to 1.0.
func (c *Config) PlaybackSpeed() float64 {
	if c.Playback.Speed == 0 {
		return 1.0
	}
	return c.Playback.Speed
}

// PlaybackPrefetch returns the configured prefetch depth, defaulting to 2.
func (c *Config) PlaybackPrefetch() int {
	if c.Playback.Prefetch == 0 {
		return 2
	}
	return c.Playback.Prefetch
}

// LiveAPIKey returns the live session key, falling back to the primary
// synthesis key.
func (c *Config) LiveAPIKey() string {
	if c.Live.APIKey != "" {
		return c.Live.APIKey
	}
	return c.Synthesis.Primary.APIKey
}

// TutorAPIKey returns the tutoring key, falling back to the primary
// synthesis key.
func (c *Config) TutorAPIKey() string {
	if c.Tutor.APIKey != "" {
		return c.Tutor.APIKey
	}
	return c.Synthesis.Primary.APIKey
}
