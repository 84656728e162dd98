package resilience

import (
	"context"

	"github.com/eklavya-ai/guruvoice/pkg/provider/tts"
)

// SynthesisFallback implements [tts.Provider] with automatic failover across
// multiple synthesis backends. Each backend has its own circuit breaker.
//
// All registered backends must produce the same audio format; Format reports
// the primary's.
type SynthesisFallback struct {
	group *FallbackGroup[tts.Provider]
}

// Compile-time interface assertion.
var _ tts.Provider = (*SynthesisFallback)(nil)

// NewSynthesisFallback creates a [SynthesisFallback] with primary as the
// preferred backend.
func NewSynthesisFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *SynthesisFallback {
	return &SynthesisFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional synthesis backend.
func (f *SynthesisFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Synthesize fetches audio for text from the first healthy backend.
func (f *SynthesisFallback) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) ([]byte, error) {
		return p.Synthesize(ctx, text, voice)
	})
}

// Format reports the primary backend's audio format.
func (f *SynthesisFallback) Format() tts.Format {
	return f.group.Primary().Format()
}

// ListVoices returns available voices from the first healthy backend.
func (f *SynthesisFallback) ListVoices(ctx context.Context) ([]tts.VoiceProfile, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) ([]tts.VoiceProfile, error) {
		return p.ListVoices(ctx)
	})
}
