// Package openai implements the tts.Provider interface using OpenAI's
// speech endpoint. It requests raw PCM output so clips can be handed to the
// playback scheduler without transcoding.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/eklavya-ai/guruvoice/pkg/audio"
	"github.com/eklavya-ai/guruvoice/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultModel   = "gpt-4o-mini-tts"
	defaultVoice   = "alloy"
	defaultTimeout = 30 * time.Second
)

type config struct {
	model   string
	baseURL string
	timeout time.Duration
}

// Option is a functional option for configuring a Provider.
type Option func(*config)

// WithModel sets the speech model.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Provider implements tts.Provider backed by the OpenAI API.
type Provider struct {
	client openai.Client
	model  string
}

// New creates an OpenAI TTS Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai: apiKey must not be empty")
	}
	cfg := config{model: defaultModel, timeout: defaultTimeout}
	for _, o := range opts {
		o(&cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(cfg.timeout),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Provider{
		client: openai.NewClient(reqOpts...),
		model:  cfg.model,
	}, nil
}

// Synthesize implements tts.Provider. It returns raw PCM16 @ 24 kHz mono.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	voiceName := voice.ID
	if voiceName == "" {
		voiceName = defaultVoice
	}

	resp, err := p.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(p.model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voiceName),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: synthesize: %w", err)
	}
	defer resp.Body.Close()

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	return pcm, nil
}

// Format implements tts.Provider. OpenAI's PCM response format is 24 kHz mono.
func (p *Provider) Format() tts.Format {
	return tts.Format{SampleRate: audio.PlaybackRate, Channels: 1}
}

// ListVoices implements tts.Provider. The voice catalogue is static.
func (p *Provider) ListVoices(_ context.Context) ([]tts.VoiceProfile, error) {
	return []tts.VoiceProfile{
		{ID: "alloy", Name: "Alloy", Provider: "openai"},
		{ID: "ash", Name: "Ash", Provider: "openai"},
		{ID: "ballad", Name: "Ballad", Provider: "openai"},
		{ID: "coral", Name: "Coral", Provider: "openai"},
		{ID: "echo", Name: "Echo", Provider: "openai"},
		{ID: "sage", Name: "Sage", Provider: "openai"},
		{ID: "shimmer", Name: "Shimmer", Provider: "openai"},
	}, nil
}
