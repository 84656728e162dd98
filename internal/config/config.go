// Package config provides the configuration schema and loader for the
// GuruVoice tutoring client.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for GuruVoice.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Live      LiveConfig      `yaml:"live"`
	Tutor     TutorConfig     `yaml:"tutor"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level controls verbosity. Default: info.
	Level LogLevel `yaml:"level"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// ListenAddr is the TCP address the metrics endpoint listens on
	// (e.g., ":9090"). Empty disables the endpoint.
	ListenAddr string `yaml:"listen_addr"`
}

// SynthesisConfig declares the speech-synthesis backend chain. The primary
// backend is tried first; fallbacks take over when it fails or its circuit
// breaker is open.
type SynthesisConfig struct {
	Primary   ProviderEntry   `yaml:"primary"`
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// ProviderEntry is the common configuration block shared by all backend
// kinds.
type ProviderEntry struct {
	// Name selects the backend implementation ("gemini" or "openai").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the backend's API.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default API endpoint.
	// Leave empty to use the built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the backend
	// (e.g., "gemini-2.5-flash-preview-tts").
	Model string `yaml:"model"`
}

// PlaybackConfig tunes the speech playback pipeline.
type PlaybackConfig struct {
	// Voice is the backend-specific voice identifier used for read-aloud.
	Voice string `yaml:"voice"`

	// Speed is the playback rate in the range [0.5, 2.0]. 0 means 1.0.
	Speed float64 `yaml:"speed"`

	// Prefetch is how many chunks beyond the one currently awaited may be
	// fetched concurrently. 0 means 2.
	Prefetch int `yaml:"prefetch"`

	// ChunkTimeoutSeconds bounds each per-chunk synthesis request. 0 means 30.
	ChunkTimeoutSeconds int `yaml:"chunk_timeout_seconds"`
}

// LiveConfig configures the duplex voice session.
type LiveConfig struct {
	// APIKey authenticates against the live API. Falls back to the primary
	// synthesis key when empty.
	APIKey string `yaml:"api_key"`

	// Model is the live conversation model.
	Model string `yaml:"model"`

	// Voice is the spoken response voice (e.g., "Zephyr").
	Voice string `yaml:"voice"`
}

// TutorConfig configures the text tutoring backend.
type TutorConfig struct {
	// APIKey authenticates against the tutoring API. Falls back to the
	// primary synthesis key when empty.
	APIKey string `yaml:"api_key"`

	// Model is the chat model used for answers.
	Model string `yaml:"model"`

	// ImageModel is the model used for generated illustrations.
	ImageModel string `yaml:"image_model"`

	// GradeLevel tailors explanations to the student (e.g., "class 8").
	GradeLevel string `yaml:"grade_level"`
}
