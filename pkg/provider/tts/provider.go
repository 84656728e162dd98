// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service and presents a uniform
// request/response interface: one bounded block of speakable text in, one
// raw PCM clip out. The playback engine overlaps several Synthesize calls
// with playback of earlier clips, so implementations must be safe for
// concurrent use.
package tts

import "context"

// VoiceProfile identifies a synthesised voice on a specific provider.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider is the provider name the voice belongs to.
	Provider string
}

// Format describes the PCM layout a provider returns.
type Format struct {
	// SampleRate in Hz.
	SampleRate int

	// Channels is the interleaved channel count.
	Channels int
}

// Provider is the abstraction over any request/response TTS backend.
//
// Implementations must be safe for concurrent use; the playback pipeline
// issues overlapping Synthesize calls to hide network latency.
type Provider interface {
	// Synthesize renders text as raw little-endian signed 16-bit PCM in the
	// layout reported by Format. A response without usable audio is an
	// error; callers treat any error as "skip this chunk" and continue.
	//
	// Synthesize respects ctx cancellation and deadlines.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error)

	// Format returns the PCM layout of audio returned by Synthesize.
	Format() Format

	// ListVoices returns the voice profiles available from this provider.
	ListVoices(ctx context.Context) ([]VoiceProfile, error)
}
