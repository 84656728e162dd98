// Package live defines the provider abstraction for bidirectional voice
// sessions: microphone audio streams up, synthesised speech and incremental
// transcriptions stream back as an ordered event sequence.
package live

import (
	"context"

	"github.com/eklavya-ai/guruvoice/pkg/audio"
	"github.com/eklavya-ai/guruvoice/pkg/provider/tts"
)

// EventKind identifies the type of a ServerEvent.
type EventKind int

const (
	// EventAudio carries a chunk of synthesised response audio (raw PCM16).
	EventAudio EventKind = iota
	// EventInputTranscription carries an incremental transcription fragment
	// of the user's speech.
	EventInputTranscription
	// EventOutputTranscription carries an incremental transcription fragment
	// of the model's spoken response.
	EventOutputTranscription
	// EventTurnComplete marks the end of a model response turn. All audio and
	// transcription fragments for the turn precede it.
	EventTurnComplete
	// EventInterrupted signals that the user barged in and the model abandoned
	// its current response. Already-delivered audio for that response should
	// be flushed.
	EventInterrupted
	// EventError carries a non-fatal error reported by the provider. The
	// session remains usable.
	EventError
	// EventClosed is the final event on the stream. The provider closed the
	// session, either on request or because the connection dropped.
	EventClosed
)

// ServerEvent is a single ordered event from the provider. Exactly one of
// the payload fields is populated, according to Kind.
type ServerEvent struct {
	Kind EventKind

	// Audio is the raw PCM16 payload for EventAudio.
	Audio []byte

	// Text is the transcription fragment for EventInputTranscription and
	// EventOutputTranscription.
	Text string

	// Err is the error payload for EventError and, when the session ended
	// abnormally, EventClosed.
	Err error
}

// SessionConfig describes a live session to be established.
type SessionConfig struct {
	// Voice selects the synthesised response voice.
	Voice tts.VoiceProfile
	// Instructions is the system instruction installed for the session.
	Instructions string
}

// SessionHandle is an open live session.
//
// Events are delivered on a single channel in the order the provider emitted
// them, so consumers observe audio, transcription fragments and turn
// boundaries in their true relative order. The channel is closed after
// EventClosed.
type SessionHandle interface {
	// SendAudio delivers one captured microphone chunk to the provider.
	SendAudio(blob audio.Blob) error
	// Events returns the ordered server event stream.
	Events() <-chan ServerEvent
	// Close terminates the session. Idempotent; safe from any goroutine.
	Close() error
}

// Provider establishes live sessions.
type Provider interface {
	Connect(ctx context.Context, cfg SessionConfig) (SessionHandle, error)
}
