// Package audio provides the binary audio primitives shared by the playback
// and live-session engines: base64 and PCM16 codecs, the immutable decoded
// [Buffer] type, linear-interpolation resampling, and the output-clock
// [Scheduler] that chains decoded buffers gaplessly onto a playback [Sink].
//
// This package lives under pkg/ because sink and capture implementations
// (speaker adapters, test fakes) are expected to implement its interfaces.
package audio

import "time"

// Buffer holds decoded, normalised audio samples. A Buffer is immutable once
// produced: producers hand it off and never mutate it afterwards, so it may
// be shared freely between goroutines.
type Buffer struct {
	data       [][]float32 // one slice per channel, equal lengths
	sampleRate int
}

// NewBuffer wraps de-interleaved channel data at the given sample rate.
// The caller must not modify data after the call.
func NewBuffer(data [][]float32, sampleRate int) *Buffer {
	return &Buffer{data: data, sampleRate: sampleRate}
}

// SampleRate returns the buffer's sample rate in Hz.
func (b *Buffer) SampleRate() int { return b.sampleRate }

// Channels returns the number of audio channels.
func (b *Buffer) Channels() int { return len(b.data) }

// Frames returns the number of sample frames per channel.
func (b *Buffer) Frames() int {
	if len(b.data) == 0 {
		return 0
	}
	return len(b.data[0])
}

// Samples returns the sample data for channel ch. The returned slice must be
// treated as read-only.
func (b *Buffer) Samples(ch int) []float32 { return b.data[ch] }

// Duration returns the playable duration of the buffer at its native rate.
func (b *Buffer) Duration() time.Duration {
	if b.sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.sampleRate) * float64(time.Second))
}
