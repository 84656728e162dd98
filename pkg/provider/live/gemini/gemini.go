// Package gemini implements the live.Provider interface for Google's Gemini
// Live API.
//
// It establishes a bidirectional WebSocket connection to the Gemini Live
// endpoint and exchanges JSON messages according to the BidiGenerateContent
// protocol. Microphone audio travels up as base64-encoded PCM chunks; the
// model's response audio, transcriptions and turn boundaries come back as an
// ordered event stream.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/eklavya-ai/guruvoice/pkg/audio"
	"github.com/eklavya-ai/guruvoice/pkg/provider/live"
)

// Compile-time assertions that Provider and session satisfy the live interfaces.
var _ live.Provider = (*Provider)(nil)
var _ live.SessionHandle = (*session)(nil)

const (
	defaultModel   = "gemini-2.5-flash-native-audio-preview-09-2025"
	defaultBaseURL = "wss://generativelanguage.googleapis.com/ws"

	keepaliveInterval = 20 * time.Second
	keepaliveTimeout  = 5 * time.Second
)

// ── Options ────────────────────────────────────────────────────────────────────

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the Gemini model used for sessions.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL overrides the base WebSocket URL. Primarily used in tests to
// point at a local mock server.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// ── Provider ───────────────────────────────────────────────────────────────────

// Provider implements live.Provider for Google's Gemini Live API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
}

// New creates a new Gemini Live Provider with the given API key and options.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Connect establishes a new Gemini Live session with the given configuration.
// The returned SessionHandle is ready to accept audio immediately after the
// setup message is sent.
func (p *Provider) Connect(ctx context.Context, cfg live.SessionConfig) (live.SessionHandle, error) {
	wsURL := fmt.Sprintf(
		"%s/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent?key=%s",
		p.baseURL, p.apiKey,
	)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Content-Type": []string{"application/json"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: dial: %w", err)
	}

	sessCtx, sessCancel := context.WithCancel(context.Background())
	sess := &session{
		conn:   conn,
		events: make(chan live.ServerEvent, 64),
		done:   make(chan struct{}),
		ctx:    sessCtx,
		cancel: sessCancel,
	}

	if err := sess.sendSetup(p.model, cfg); err != nil {
		sessCancel()
		conn.Close(websocket.StatusInternalError, "setup failed")
		return nil, fmt.Errorf("gemini: setup: %w", err)
	}

	go sess.receiveLoop()
	go sess.keepaliveLoop()

	return sess, nil
}

// ── Protocol message types (outgoing) ─────────────────────────────────────────

type setupMessage struct {
	Setup setupConfig `json:"setup"`
}

type setupConfig struct {
	Model                    string             `json:"model"`
	GenerationConfig         generationConfig   `json:"generationConfig"`
	SystemInstruction        *systemInstruction `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *struct{}          `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}          `json:"outputAudioTranscription,omitempty"`
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

type systemInstruction struct {
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

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []mediaChunk `json:"mediaChunks"`
}

type mediaChunk struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded
}

// ── Protocol message types (incoming) ─────────────────────────────────────────

type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete,omitempty"`
	ServerContent *serverContent   `json:"serverContent,omitempty"`
	Error         *geminiError     `json:"error,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

type serverContent struct {
	ModelTurn           *modelTurn     `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type modelTurn struct {
	Parts []part `json:"parts"`
}

type transcription struct {
	Text string `json:"text"`
}

// ── session ────────────────────────────────────────────────────────────────────

type session struct {
	conn   *websocket.Conn
	events chan live.ServerEvent

	mu     sync.Mutex
	done   chan struct{}
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
}

// sendSetup sends the initial BidiGenerateContent setup message. Input and
// output transcription are always requested; the engine needs both streams to
// assemble turn records.
func (s *session) sendSetup(model string, cfg live.SessionConfig) error {
	msg := setupMessage{
		Setup: setupConfig{
			Model: fmt.Sprintf("models/%s", model),
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"audio"},
			},
			InputAudioTranscription:  &struct{}{},
			OutputAudioTranscription: &struct{}{},
		},
	}

	if cfg.Instructions != "" {
		msg.Setup.SystemInstruction = &systemInstruction{
			Parts: []part{{Text: cfg.Instructions}},
		}
	}

	if cfg.Voice.ID != "" {
		msg.Setup.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: cfg.Voice.ID},
			},
		}
	}

	return s.writeJSON(msg)
}

// writeJSON marshals v and writes it as a text WebSocket message.
func (s *session) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("gemini: marshal: %w", err)
	}
	return s.conn.Write(s.ctx, websocket.MessageText, data)
}

// receiveLoop reads messages from the WebSocket and translates them into
// ServerEvents. It owns the events channel: it emits the final EventClosed
// and closes the channel when it exits.
func (s *session) receiveLoop() {
	var readErr error
	defer func() {
		s.emit(live.ServerEvent{Kind: live.EventClosed, Err: readErr})
		close(s.events)
	}()

	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			// If the session context was cancelled, exit cleanly.
			if s.ctx.Err() == nil {
				readErr = err
			}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue // skip malformed frames
		}

		s.handleServerMessage(&msg)
	}
}

func (s *session) handleServerMessage(msg *serverMessage) {
	if msg.Error != nil {
		text := "unknown error"
		if msg.Error.Message != "" {
			text = msg.Error.Message
		}
		s.emit(live.ServerEvent{Kind: live.EventError, Err: fmt.Errorf("gemini: %s", text)})
	}
	if msg.ServerContent != nil {
		s.handleServerContent(msg.ServerContent)
	}
}

// handleServerContent emits events in the order the payload carries them.
// A single frame can hold transcription fragments, audio parts and a turn
// boundary; the relative order must survive into the event stream.
func (s *session) handleServerContent(sc *serverContent) {
	if sc.Interrupted {
		s.emit(live.ServerEvent{Kind: live.EventInterrupted})
	}

	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		s.emit(live.ServerEvent{Kind: live.EventInputTranscription, Text: sc.InputTranscription.Text})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		s.emit(live.ServerEvent{Kind: live.EventOutputTranscription, Text: sc.OutputTranscription.Text})
	}

	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			pcm, err := audio.DecodeBase64(p.InlineData.Data)
			if err != nil || len(pcm) == 0 {
				continue
			}
			s.emit(live.ServerEvent{Kind: live.EventAudio, Audio: pcm})
		}
	}

	if sc.TurnComplete {
		s.emit(live.ServerEvent{Kind: live.EventTurnComplete})
	}
}

// emit delivers an event unless the session context has been cancelled.
func (s *session) emit(ev live.ServerEvent) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
		if ev.Kind == live.EventClosed {
			// The final event must not be dropped; the consumer may still be
			// draining the channel during teardown.
			select {
			case s.events <- ev:
			default:
			}
		}
	}
}

// keepaliveLoop sends WebSocket pings to keep the Gemini Live connection alive.
func (s *session) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(s.ctx, keepaliveTimeout)
			_ = s.conn.Ping(pingCtx)
			cancel()
		}
	}
}

// ── SessionHandle methods ──────────────────────────────────────────────────────

// SendAudio delivers one captured microphone chunk to the model.
func (s *session) SendAudio(blob audio.Blob) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("gemini: session closed")
	}
	s.mu.Unlock()

	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			MediaChunks: []mediaChunk{
				{MIMEType: blob.MIMEType, Data: blob.Data},
			},
		},
	}
	return s.writeJSON(msg)
}

// Events returns the ordered server event stream.
func (s *session) Events() <-chan live.ServerEvent { return s.events }

// Close terminates the session and releases all resources. Idempotent.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()    // unblocks receiveLoop and keepaliveLoop
	close(s.done) // signals keepaliveLoop via done channel
	s.conn.Close(websocket.StatusNormalClosure, "session closed")
	return nil
}
