package audio

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrSchedulerClosed is returned by [Scheduler.Schedule] after [Scheduler.Close].
var ErrSchedulerClosed = errors.New("audio: scheduler is closed")

// SchedulerOption configures a [Scheduler] during construction.
type SchedulerOption func(*Scheduler)

// WithClock overrides the scheduler's time source. Used in tests to make
// start-time arithmetic deterministic.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler chains decoded buffers gaplessly, in order, onto one [Sink].
//
// It keeps an output clock: each buffer is scheduled to start at
// max(nextStart, now) and nextStart advances by the buffer's playable
// duration at its playback rate. If fetches outrun playback, buffers queue
// at future start times; if playback outruns fetches, a short gap is
// accepted rather than reordering.
//
// All methods are safe for concurrent use.
type Scheduler struct {
	sink Sink
	now  func() time.Time

	mu        sync.Mutex
	nextStart time.Time // zero value means "start immediately"
	pending   map[*pendingSource]struct{}
	closed    bool
}

// pendingSource tracks one scheduled buffer from Schedule until its end
// callback (or flush) removes it.
type pendingSource struct {
	timer *time.Timer
	src   Source // nil until the start timer fires
}

// NewScheduler creates a Scheduler that plays onto sink. The sink is not
// owned: closing the scheduler stops scheduled sources but leaves the sink
// open for its owner to close.
func NewScheduler(sink Sink, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		sink:    sink,
		now:     time.Now,
		pending: make(map[*pendingSource]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Schedule queues buf to start at the output clock's next free slot at the
// given playback-rate multiplier. onEnded, if non-nil, fires exactly once
// when the source finishes playing or fails to start — but never after
// [Scheduler.Flush] or [Scheduler.Close] has discarded the source.
func (s *Scheduler) Schedule(buf *Buffer, rate float64, onEnded func()) error {
	if rate <= 0 {
		rate = 1
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}

	now := s.now()
	start := s.nextStart
	if start.Before(now) {
		start = now
	}
	playDur := time.Duration(float64(buf.Duration()) / rate)
	s.nextStart = start.Add(playDur)

	p := &pendingSource{}
	s.pending[p] = struct{}{}
	p.timer = time.AfterFunc(start.Sub(now), func() {
		s.fire(p, buf, rate, onEnded)
	})
	s.mu.Unlock()

	return nil
}

// fire starts playback of one scheduled buffer when its start time arrives.
func (s *Scheduler) fire(p *pendingSource, buf *Buffer, rate float64, onEnded func()) {
	s.mu.Lock()
	if _, live := s.pending[p]; !live {
		// Flushed between timer expiry and now.
		s.mu.Unlock()
		return
	}
	src, err := s.sink.Start(buf, rate)
	if err != nil {
		delete(s.pending, p)
		s.mu.Unlock()
		slog.Warn("audio: source start failed, skipping buffer", "err", err)
		if onEnded != nil {
			onEnded()
		}
		return
	}
	p.src = src
	s.mu.Unlock()

	<-src.Done()

	// Only report the end if the source is still tracked: a source stopped by
	// Flush or Close must not invoke stale completion callbacks.
	if s.remove(p) && onEnded != nil {
		onEnded()
	}
}

// remove reports whether p was still tracked, untracking it.
func (s *Scheduler) remove(p *pendingSource) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, live := s.pending[p]
	delete(s.pending, p)
	return live
}

// Flush stops every scheduled and playing source, clears the live-source
// set, and resets the output clock to zero so the next buffer starts
// immediately. Used for remote barge-in and for hard stops.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	for p := range s.pending {
		p.timer.Stop()
		if p.src != nil {
			p.src.Stop()
		}
		delete(s.pending, p)
	}
	s.nextStart = time.Time{}
	s.mu.Unlock()
}

// Pending returns the number of sources scheduled or playing.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close flushes all sources and rejects further scheduling. Idempotent.
func (s *Scheduler) Close() {
	s.Flush()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
