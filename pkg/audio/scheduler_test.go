package audio

// The fakes here mirror pkg/audio/mock, which cannot be imported from this
// package without a cycle.

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSource struct {
	mu       sync.Mutex
	done     chan struct{}
	stopped  bool
	finished bool
}

func (s *fakeSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if !s.finished {
		s.finished = true
		close(s.done)
	}
}

func (s *fakeSource) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		s.finished = true
		close(s.done)
	}
}

func (s *fakeSource) Done() <-chan struct{} { return s.done }

func (s *fakeSource) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type startRecord struct {
	buf  *Buffer
	rate float64
	at   time.Time
}

type fakeSink struct {
	hold      bool
	failStart bool

	mu      sync.Mutex
	starts  []startRecord
	sources []*fakeSource
}

func (s *fakeSink) Start(buf *Buffer, rate float64) (Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failStart {
		return nil, errors.New("device gone")
	}
	s.starts = append(s.starts, startRecord{buf: buf, rate: rate, at: time.Now()})
	src := &fakeSource{done: make(chan struct{})}
	if !s.hold {
		src.finished = true
		close(src.done)
	}
	s.sources = append(s.sources, src)
	return src, nil
}

func (s *fakeSink) SampleRate() int { return PlaybackRate }
func (s *fakeSink) Close() error    { return nil }

func (s *fakeSink) snapshotStarts() []startRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]startRecord(nil), s.starts...)
}

func (s *fakeSink) snapshotSources() []*fakeSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeSource(nil), s.sources...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

// shortBuf returns a buffer lasting frames/24000 seconds.
func shortBuf(frames int) *Buffer {
	return NewBuffer([][]float32{make([]float32, frames)}, PlaybackRate)
}

func TestSchedulerPlaysInOrderWithoutGaps(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	s := NewScheduler(sink)
	defer s.Close()

	// 2 ms buffers with distinguishable lengths.
	for _, frames := range []int{48, 96, 144} {
		if err := s.Schedule(shortBuf(frames), 1.0, nil); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
	}

	waitFor(t, "all buffers started", func() bool { return len(sink.snapshotStarts()) == 3 })

	starts := sink.snapshotStarts()
	for i, wantFrames := range []int{48, 96, 144} {
		if got := starts[i].buf.Frames(); got != wantFrames {
			t.Errorf("start %d: %d frames; want %d", i, got, wantFrames)
		}
	}
	for i := 1; i < len(starts); i++ {
		if starts[i].at.Before(starts[i-1].at) {
			t.Errorf("start %d began before start %d", i, i-1)
		}
	}
}

func TestSchedulerOnEndedFiresOncePerBuffer(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	s := NewScheduler(sink)
	defer s.Close()

	var ended atomic.Int32
	for i := 0; i < 3; i++ {
		if err := s.Schedule(shortBuf(48), 1.0, func() { ended.Add(1) }); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
	}

	waitFor(t, "all callbacks", func() bool { return ended.Load() == 3 })
	time.Sleep(20 * time.Millisecond)
	if got := ended.Load(); got != 3 {
		t.Errorf("onEnded fired %d times; want 3", got)
	}
}

func TestSchedulerStartFailureStillReportsEnd(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{failStart: true}
	s := NewScheduler(sink)
	defer s.Close()

	ended := make(chan struct{})
	if err := s.Schedule(shortBuf(48), 1.0, func() { close(ended) }); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	select {
	case <-ended:
	case <-time.After(3 * time.Second):
		t.Fatal("onEnded never fired for a failed start")
	}
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending() = %d; want 0", got)
	}
}

func TestSchedulerFlushDropsEverything(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{hold: true}
	s := NewScheduler(sink)
	defer s.Close()

	var ended atomic.Int32
	onEnded := func() { ended.Add(1) }
	// First starts and is held; the rest queue a second apart.
	for i := 0; i < 3; i++ {
		if err := s.Schedule(shortBuf(PlaybackRate), 1.0, onEnded); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
	}
	waitFor(t, "first source playing", func() bool { return len(sink.snapshotStarts()) == 1 })

	s.Flush()

	if got := s.Pending(); got != 0 {
		t.Errorf("Pending() after Flush = %d; want 0", got)
	}
	if !sink.snapshotSources()[0].Stopped() {
		t.Error("playing source should be stopped by Flush")
	}
	// Stale completion callbacks must not surface.
	time.Sleep(20 * time.Millisecond)
	if got := ended.Load(); got != 0 {
		t.Errorf("onEnded fired %d times after Flush; want 0", got)
	}
	if got := len(sink.snapshotStarts()); got != 1 {
		t.Errorf("queued buffers started after Flush: %d starts", got)
	}
}

func TestSchedulerFlushResetsClock(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{hold: true}
	s := NewScheduler(sink)
	defer s.Close()

	// Push the clock ten seconds out, then flush.
	if err := s.Schedule(shortBuf(10*PlaybackRate), 1.0, nil); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	s.Flush()

	// The next buffer must start now, not in ten seconds.
	if err := s.Schedule(shortBuf(48), 1.0, nil); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	waitFor(t, "fresh start after flush", func() bool {
		starts := sink.snapshotStarts()
		return len(starts) >= 1 && starts[len(starts)-1].buf.Frames() == 48
	})
}

func TestSchedulerRateShortensSlot(t *testing.T) {
	t.Parallel()

	base, _ := time.Parse(time.RFC3339, "2026-01-02T15:04:05Z")
	s := NewScheduler(&fakeSink{}, WithClock(func() time.Time { return base }))
	defer s.Close()

	// One second of audio at 2x occupies half a second of the output clock,
	// so the following buffer lands at +500ms rather than +1s.
	if err := s.Schedule(shortBuf(PlaybackRate), 2.0, nil); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	s.mu.Lock()
	next := s.nextStart
	s.mu.Unlock()
	if want := base.Add(500 * time.Millisecond); !next.Equal(want) {
		t.Errorf("nextStart = %v; want %v", next, want)
	}
}

func TestSchedulerCloseRejectsFurtherScheduling(t *testing.T) {
	t.Parallel()

	s := NewScheduler(&fakeSink{})
	s.Close()
	s.Close() // idempotent

	if err := s.Schedule(shortBuf(48), 1.0, nil); !errors.Is(err, ErrSchedulerClosed) {
		t.Errorf("Schedule after Close = %v; want ErrSchedulerClosed", err)
	}
}
