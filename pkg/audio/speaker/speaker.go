// Package speaker provides an [audio.Sink] backed by the system's audio
// output device via oto.
//
// The underlying oto context is process-wide and created once: the hardware
// layer does not support repeated context teardown. Closing a [Device]
// therefore stops all of its sources and detaches from the context but keeps
// the context itself alive for the next Open.
package speaker

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/eklavya-ai/guruvoice/pkg/audio"
)

// Compile-time interface assertions.
var _ audio.Sink = (*Device)(nil)
var _ audio.Source = (*source)(nil)

var (
	ctxOnce sync.Once
	ctx     *oto.Context
	ctxRate int
	ctxErr  error
)

// Device is a speaker-backed [audio.Sink]. All sources play mono at the
// device sample rate; playback-rate adjustment is applied by resampling
// before the samples reach the hardware.
type Device struct {
	mu      sync.Mutex
	sources map[*source]struct{}
	closed  bool
}

// Open prepares the speaker for mono output at sampleRate. Subsequent Opens
// must use the same rate — the process-wide hardware context is created only
// once.
func Open(sampleRate int) (*Device, error) {
	ctxOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		ctx, ready, ctxErr = oto.NewContext(op)
		if ctxErr == nil {
			<-ready
			ctxRate = sampleRate
		}
	})
	if ctxErr != nil {
		return nil, fmt.Errorf("speaker: open output device: %w", ctxErr)
	}
	if sampleRate != ctxRate {
		return nil, fmt.Errorf("speaker: device already open at %d Hz, requested %d Hz", ctxRate, sampleRate)
	}
	return &Device{sources: make(map[*source]struct{})}, nil
}

// SampleRate implements [audio.Sink].
func (d *Device) SampleRate() int { return ctxRate }

// Start implements [audio.Sink]. Multi-channel buffers are mixed down to
// mono before playback.
func (d *Device) Start(buf *audio.Buffer, rate float64) (audio.Source, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New("speaker: device is closed")
	}

	samples := monoMix(buf)
	samples = audio.Stretch(samples, rate)
	pcm := audio.EncodePCM16(samples)

	player := ctx.NewPlayer(bytes.NewReader(pcm))
	s := &source{
		device: d,
		player: player,
		done:   make(chan struct{}),
	}
	d.sources[s] = struct{}{}
	player.Play()
	go s.wait()
	return s, nil
}

// Close implements [audio.Sink]. It stops every in-flight source.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	srcs := make([]*source, 0, len(d.sources))
	for s := range d.sources {
		srcs = append(srcs, s)
	}
	d.sources = map[*source]struct{}{}
	d.mu.Unlock()

	for _, s := range srcs {
		s.Stop()
	}
	return nil
}

func (d *Device) detach(s *source) {
	d.mu.Lock()
	delete(d.sources, s)
	d.mu.Unlock()
}

type source struct {
	device *Device
	player *oto.Player

	mu       sync.Mutex
	finished bool
	done     chan struct{}
}

// wait polls the player until its buffer drains, then finishes the source.
func (s *source) wait() {
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for range tick.C {
		if !s.player.IsPlaying() {
			s.finish()
			return
		}
		select {
		case <-s.done:
			return
		default:
		}
	}
}

func (s *source) finish() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	close(s.done)
	s.mu.Unlock()

	_ = s.player.Close()
	s.device.detach(s)
}

// Stop implements [audio.Source].
func (s *source) Stop() { s.finish() }

// Done implements [audio.Source].
func (s *source) Done() <-chan struct{} { return s.done }

// monoMix averages a buffer's channels into one mono sample slice.
func monoMix(buf *audio.Buffer) []float32 {
	if buf.Channels() == 1 {
		return buf.Samples(0)
	}
	frames := buf.Frames()
	out := make([]float32, frames)
	for ch := 0; ch < buf.Channels(); ch++ {
		data := buf.Samples(ch)
		for i := 0; i < frames; i++ {
			out[i] += data[i]
		}
	}
	n := float32(buf.Channels())
	for i := range out {
		out[i] /= n
	}
	return out
}
