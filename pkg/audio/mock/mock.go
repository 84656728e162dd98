// Package mock provides in-memory fakes for the audio sink and capture
// interfaces, used by engine tests and by offline (no hardware) runs.
package mock

import (
	"errors"
	"sync"
	"time"

	"github.com/eklavya-ai/guruvoice/pkg/audio"
)

// Compile-time interface assertions.
var _ audio.Sink = (*Sink)(nil)
var _ audio.Source = (*Source)(nil)
var _ audio.CaptureSource = (*Capture)(nil)

// StartRecord captures the arguments of one [Sink.Start] call.
type StartRecord struct {
	Buf  *audio.Buffer
	Rate float64
	At   time.Time
}

// Sink is a fake [audio.Sink] that records every Start call.
//
// By default sources complete instantly (Done is closed on Start), which
// keeps pipeline tests fast. Set Hold to true to keep sources "playing"
// until the test stops them or calls [Source.Finish].
type Sink struct {
	// Hold keeps started sources open until explicitly finished or stopped.
	Hold bool

	// FailStart makes every Start call return an error.
	FailStart bool

	mu      sync.Mutex
	rate    int
	starts  []StartRecord
	sources []*Source
	closed  bool
}

// NewSink creates a fake sink reporting the given device sample rate.
func NewSink(sampleRate int) *Sink {
	return &Sink{rate: sampleRate}
}

// Start implements [audio.Sink].
func (s *Sink) Start(buf *audio.Buffer, rate float64) (audio.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("mock: sink is closed")
	}
	if s.FailStart {
		return nil, errors.New("mock: start failed")
	}
	s.starts = append(s.starts, StartRecord{Buf: buf, Rate: rate, At: time.Now()})
	src := &Source{done: make(chan struct{})}
	if !s.Hold {
		close(src.done)
		src.finished = true
	}
	s.sources = append(s.sources, src)
	return src, nil
}

// SampleRate implements [audio.Sink].
func (s *Sink) SampleRate() int { return s.rate }

// Close implements [audio.Sink].
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, src := range s.sources {
		src.Stop()
	}
	return nil
}

// Starts returns a snapshot of all recorded Start calls.
func (s *Sink) Starts() []StartRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StartRecord, len(s.starts))
	copy(out, s.starts)
	return out
}

// Sources returns a snapshot of all sources handed out so far.
func (s *Sink) Sources() []*Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Source, len(s.sources))
	copy(out, s.sources)
	return out
}

// Closed reports whether Close has been called.
func (s *Sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Source is the fake source type handed out by [Sink].
type Source struct {
	mu       sync.Mutex
	done     chan struct{}
	finished bool
	stopped  bool
}

// Stop implements [audio.Source].
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if !s.finished {
		s.finished = true
		close(s.done)
	}
}

// Finish marks a held source as played to completion.
func (s *Source) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		s.finished = true
		close(s.done)
	}
}

// Done implements [audio.Source].
func (s *Source) Done() <-chan struct{} { return s.done }

// Stopped reports whether the source was cut short by Stop.
func (s *Source) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Capture is a fake [audio.CaptureSource] fed by the test.
type Capture struct {
	frames    chan []float32
	closeOnce sync.Once
}

// NewCapture creates a fake capture source with a small frame buffer.
func NewCapture() *Capture {
	return &Capture{frames: make(chan []float32, 16)}
}

// Push delivers one capture frame to the consumer.
func (c *Capture) Push(frame []float32) { c.frames <- frame }

// Frames implements [audio.CaptureSource].
func (c *Capture) Frames() <-chan []float32 { return c.frames }

// Close implements [audio.CaptureSource].
func (c *Capture) Close() error {
	c.closeOnce.Do(func() { close(c.frames) })
	return nil
}
