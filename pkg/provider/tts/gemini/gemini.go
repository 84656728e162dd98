// Package gemini implements the tts.Provider interface using Google's
// Gemini speech-generation models via the generateContent REST endpoint.
//
// Each Synthesize call issues one JSON request with the audio response
// modality and a prebuilt voice; the response carries the synthesised clip
// as base64-encoded PCM16 (24 kHz mono) in an inlineData part.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eklavya-ai/guruvoice/pkg/audio"
	"github.com/eklavya-ai/guruvoice/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultModel   = "gemini-2.5-flash-preview-tts"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultVoice   = "Puck"
	defaultTimeout = 30 * time.Second
)

// ErrNoAudio is returned when the model responds without an audio part.
var ErrNoAudio = errors.New("gemini: response contains no audio")

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the Gemini speech model.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL overrides the API base URL. Primarily used in tests to point
// at a local mock server.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// Provider implements tts.Provider backed by the Gemini API.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// New creates a Gemini TTS Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ── Protocol message types ─────────────────────────────────────────────────

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type generateResponse struct {
	Candidates []candidate  `json:"candidates"`
	Error      *geminiError `json:"error,omitempty"`
}

type candidate struct {
	Content content `json:"content"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// ── Provider methods ───────────────────────────────────────────────────────

// Synthesize implements tts.Provider. It returns raw PCM16 @ 24 kHz mono.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	voiceName := voice.ID
	if voiceName == "" {
		voiceName = defaultVoice
	}

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: text}}}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"audio"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voiceName},
				},
			},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: synthesize: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini: read response: %w", err)
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if gr.Error != nil && gr.Error.Message != "" {
			return nil, fmt.Errorf("gemini: synthesize: %s (status %d)", gr.Error.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("gemini: synthesize: unexpected status %d", resp.StatusCode)
	}

	for _, cand := range gr.Candidates {
		for _, pt := range cand.Content.Parts {
			if pt.InlineData == nil || pt.InlineData.Data == "" {
				continue
			}
			pcm, err := audio.DecodeBase64(pt.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("gemini: %w", err)
			}
			return pcm, nil
		}
	}
	return nil, ErrNoAudio
}

// Format implements tts.Provider.
func (p *Provider) Format() tts.Format {
	return tts.Format{SampleRate: audio.PlaybackRate, Channels: 1}
}

// ListVoices implements tts.Provider. The prebuilt voice catalogue is static.
func (p *Provider) ListVoices(_ context.Context) ([]tts.VoiceProfile, error) {
	return []tts.VoiceProfile{
		{ID: "Aoede", Name: "Aoede", Provider: "gemini"},
		{ID: "Charon", Name: "Charon", Provider: "gemini"},
		{ID: "Fenrir", Name: "Fenrir", Provider: "gemini"},
		{ID: "Kore", Name: "Kore", Provider: "gemini"},
		{ID: "Puck", Name: "Puck", Provider: "gemini"},
		{ID: "Zephyr", Name: "Zephyr", Provider: "gemini"},
	}, nil
}
