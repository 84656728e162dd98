// Package playback implements the read-aloud pipeline: tutor response text
// is split into speakable blocks, synthesised with bounded lookahead, and
// chained gaplessly onto an output device.
//
// At most one utterance is active at a time. Starting a new one always tears
// the previous one down first, including its output device, so no residual
// buffered audio can play after a switch or stop.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eklavya-ai/guruvoice/internal/observe"
	"github.com/eklavya-ai/guruvoice/pkg/audio"
	"github.com/eklavya-ai/guruvoice/pkg/provider/tts"
	"github.com/eklavya-ai/guruvoice/pkg/speech"
)

const (
	defaultPrefetch     = 2
	defaultChunkTimeout = 30 * time.Second
)

// SinkFactory opens an output device at the given sample rate. The engine
// opens a fresh sink per utterance and closes it on stop, so hardware is
// never held while idle.
type SinkFactory func(sampleRate int) (audio.Sink, error)

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithPrefetch sets how many blocks beyond the one currently awaited may be
// fetched concurrently. Values below 1 are ignored.
func WithPrefetch(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.prefetch = n
		}
	}
}

// WithChunkTimeout bounds each per-block synthesis request. A block that
// exceeds the timeout is skipped like any other failed fetch.
func WithChunkTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.chunkTimeout = d
		}
	}
}

// WithVoice sets the synthesis voice.
func WithVoice(v tts.VoiceProfile) Option {
	return func(e *Engine) { e.voice = v }
}

// WithSpeed sets the initial playback-rate multiplier.
func WithSpeed(rate float64) Option {
	return func(e *Engine) {
		if rate > 0 {
			e.speed = rate
		}
	}
}

// WithMetrics overrides the metrics instance (tests pass one backed by a
// manual reader).
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine speaks one message at a time through a synthesis provider.
// All methods are safe for concurrent use.
type Engine struct {
	provider     tts.Provider
	newSink      SinkFactory
	metrics      *observe.Metrics
	voice        tts.VoiceProfile
	prefetch     int
	chunkTimeout time.Duration

	// transition serializes Speak/Stop changeovers so two concurrent Speak
	// calls cannot both pass teardown and then race over the current slot.
	transition sync.Mutex

	mu      sync.Mutex
	speed   float64
	current *utterance
}

// New creates an Engine that synthesises with provider and plays through
// sinks opened by newSink.
func New(provider tts.Provider, newSink SinkFactory, opts ...Option) *Engine {
	e := &Engine{
		provider:     provider,
		newSink:      newSink,
		prefetch:     defaultPrefetch,
		chunkTimeout: defaultChunkTimeout,
		speed:        1.0,
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// utterance is the state of one in-flight speak request.
type utterance struct {
	messageID string
	cancel    context.CancelFunc
	sched     *audio.Scheduler
	sink      audio.Sink
	done      chan struct{} // closed when the collector exits

	mu       sync.Mutex
	played   int
	total    int // -1 until the collector has scheduled every block
	onEnd    func()
	endFired bool
}

// chunkEnded records one block finishing playback.
func (u *utterance) chunkEnded() {
	u.mu.Lock()
	u.played++
	u.maybeFinishLocked()
	u.mu.Unlock()
}

// setTotal records the final scheduled-block count once dispatch is done.
func (u *utterance) setTotal(n int) {
	u.mu.Lock()
	u.total = n
	u.maybeFinishLocked()
	u.mu.Unlock()
}

// maybeFinishLocked fires onEnd exactly once, when every scheduled block has
// ended playback. A torn-down utterance never reaches here with matching
// counts because flushed sources do not report their end.
func (u *utterance) maybeFinishLocked() {
	if u.endFired || u.total < 0 || u.played < u.total {
		return
	}
	u.endFired = true
	if u.onEnd != nil {
		// Release the lock around the callback; it may call back into the
		// engine.
		cb := u.onEnd
		u.mu.Unlock()
		cb()
		u.mu.Lock()
	}
}

// fetchResult carries one synthesis outcome from a fetch goroutine to the
// collector.
type fetchResult struct {
	pcm []byte
	err error
}

// Speak reads text aloud. Any current utterance is torn down first,
// including its output device. messageID identifies the utterance so a
// superseded one can never fire callbacks meant for its successor.
//
// onEnd, if non-nil, fires exactly once when every block has either played
// to the end or been skipped after a failed fetch. A stopped or superseded
// utterance fires no callback at all.
func (e *Engine) Speak(ctx context.Context, messageID, text string, onEnd func()) error {
	blocks := speech.Blocks(text)
	if len(blocks) == 0 {
		e.Stop()
		// Outside the transition guard: onEnd may call back into the engine.
		if onEnd != nil {
			onEnd()
		}
		return nil
	}

	e.transition.Lock()
	defer e.transition.Unlock()
	e.stopCurrent()

	format := e.provider.Format()
	sink, err := e.newSink(format.SampleRate)
	if err != nil {
		return fmt.Errorf("playback: open sink: %w", err)
	}

	utCtx, cancel := context.WithCancel(ctx)
	u := &utterance{
		messageID: messageID,
		cancel:    cancel,
		sched:     audio.NewScheduler(sink),
		sink:      sink,
		done:      make(chan struct{}),
		total:     -1,
		onEnd:     onEnd,
	}

	e.mu.Lock()
	e.current = u
	e.mu.Unlock()

	slog.Info("speaking message", "message_id", messageID, "blocks", len(blocks))

	// Bounded-lookahead ordered fetch: the dispatcher hands the collector one
	// result channel per block, in block order, and launches the fetch behind
	// it. The results buffer bounds how far fetches may run ahead of the
	// block currently awaited; the collector restores strict order no matter
	// how fetch completions interleave.
	results := make(chan chan fetchResult, e.prefetch)
	go e.dispatch(utCtx, blocks, results)
	go e.collect(utCtx, u, results, format)

	return nil
}

// dispatch launches one fetch goroutine per block, in order, blocking when
// the lookahead window is full.
func (e *Engine) dispatch(ctx context.Context, blocks []string, results chan<- chan fetchResult) {
	defer close(results)
	for i, block := range blocks {
		ch := make(chan fetchResult, 1)
		select {
		case results <- ch:
		case <-ctx.Done():
			return
		}
		go func(index int, text string) {
			fctx, cancel := context.WithTimeout(ctx, e.chunkTimeout)
			defer cancel()

			start := time.Now()
			pcm, err := e.provider.Synthesize(fctx, text, e.voice)
			status := "ok"
			if err != nil {
				status = "error"
			}
			e.metrics.RecordChunkFetch(ctx, e.voice.Provider, status, time.Since(start).Seconds())
			if err != nil && ctx.Err() == nil {
				slog.Warn("synthesis fetch failed, skipping block",
					"block", index, "error", err)
			}
			ch <- fetchResult{pcm: pcm, err: err}
		}(i, block)
	}
}

// collect drains fetch results in block order and schedules each decoded
// buffer onto the output clock. Failed fetches are skipped; the utterance
// continues.
func (e *Engine) collect(ctx context.Context, u *utterance, results <-chan chan fetchResult, format tts.Format) {
	defer close(u.done)

	scheduled := 0
	for ch := range results {
		var res fetchResult
		select {
		case res = <-ch:
		case <-ctx.Done():
			return
		}
		if ctx.Err() != nil {
			return
		}
		if res.err != nil || len(res.pcm) == 0 {
			e.metrics.ChunksSkipped.Add(ctx, 1)
			continue
		}

		buf := audio.DecodePCM16(res.pcm, format.SampleRate, format.Channels)
		if buf.Frames() == 0 {
			e.metrics.ChunksSkipped.Add(ctx, 1)
			continue
		}

		if err := u.sched.Schedule(buf, e.Speed(), u.chunkEnded); err != nil {
			// Scheduler closed by Stop; the utterance is already superseded.
			return
		}
		scheduled++
		e.metrics.ChunksPlayed.Add(ctx, 1)
	}
	u.setTotal(scheduled)
}

// Stop tears down the current utterance: the fetch pipeline is cancelled,
// every scheduled and playing source is stopped, and the output device is
// closed. No onEnd callback fires. Safe to call when idle.
func (e *Engine) Stop() {
	e.transition.Lock()
	defer e.transition.Unlock()
	e.stopCurrent()
}

// stopCurrent is Stop without the transition guard. Callers hold
// e.transition.
func (e *Engine) stopCurrent() {
	e.mu.Lock()
	u := e.current
	e.current = nil
	e.mu.Unlock()

	if u == nil {
		return
	}

	u.cancel()
	u.sched.Close()
	if err := u.sink.Close(); err != nil {
		slog.Warn("closing output device", "error", err)
	}
	slog.Debug("stopped utterance", "message_id", u.messageID)
}

// SpeakingMessageID returns the identity of the current utterance, or ""
// when idle.
func (e *Engine) SpeakingMessageID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return ""
	}
	return e.current.messageID
}

// SetSpeed changes the playback-rate multiplier for blocks not yet
// scheduled. Already-scheduled buffers keep their original rate.
// Non-positive rates are ignored.
func (e *Engine) SetSpeed(rate float64) {
	if rate <= 0 {
		return
	}
	e.mu.Lock()
	e.speed = rate
	e.mu.Unlock()
}

// Speed returns the current playback-rate multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}
