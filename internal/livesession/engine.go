// Package livesession implements the duplex voice conversation: microphone
// audio streams up to the live provider while synthesised responses,
// transcriptions and turn boundaries stream back and are scheduled onto the
// output device.
//
// At most one session is active per Engine. Teardown is idempotent and safe
// from any state; whatever conversation was mid-flight is finalised into the
// returned transcript rather than dropped.
package livesession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/eklavya-ai/guruvoice/internal/observe"
	"github.com/eklavya-ai/guruvoice/pkg/audio"
	"github.com/eklavya-ai/guruvoice/pkg/provider/live"
)

// partialPlaceholder stands in for the empty side of a half-finished turn
// when the session is closed mid-exchange.
const partialPlaceholder = "..."

// ErrPermission indicates the microphone could not be opened. A session
// never starts without capture.
var ErrPermission = errors.New("livesession: microphone unavailable")

// Role identifies the speaker of a finalized turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// TurnRecord is one finalized utterance in a live conversation. Records are
// appended only at turn completion, never mid-turn.
type TurnRecord struct {
	Role    Role
	Content string
}

// CaptureFactory opens the microphone. Called once per session; the engine
// closes the returned source on teardown.
type CaptureFactory func() (audio.CaptureSource, error)

// SinkFactory opens the output device at the given sample rate.
type SinkFactory func(sampleRate int) (audio.Sink, error)

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithConfig sets the session configuration passed to the provider.
func WithConfig(cfg live.SessionConfig) Option {
	return func(e *Engine) { e.sessionCfg = cfg }
}

// WithMetrics overrides the metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithErrorHandler registers a callback for non-fatal provider errors. The
// session stays open; the handler decides whether to close it.
func WithErrorHandler(fn func(error)) Option {
	return func(e *Engine) { e.onError = fn }
}

// Engine runs one duplex voice session at a time.
// All methods are safe for concurrent use.
type Engine struct {
	provider    live.Provider
	openCapture CaptureFactory
	newSink     SinkFactory
	metrics     *observe.Metrics
	sessionCfg  live.SessionConfig
	onError     func(error)

	mu       sync.Mutex
	current  *session
	starting bool
}

// New creates an Engine. openCapture and newSink supply the hardware
// endpoints; tests pass fakes.
func New(provider live.Provider, openCapture CaptureFactory, newSink SinkFactory, opts ...Option) *Engine {
	e := &Engine{
		provider:    provider,
		openCapture: openCapture,
		newSink:     newSink,
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// session is the state of one open live conversation.
type session struct {
	handle  live.SessionHandle
	capture audio.CaptureSource
	sink    audio.Sink
	sched   *audio.Scheduler
	cancel  context.CancelFunc
	group   *errgroup.Group

	mu        sync.Mutex
	inputBuf  strings.Builder
	outputBuf strings.Builder
	history   []TurnRecord
}

// Start opens the microphone, connects to the live provider and begins
// pumping audio both ways. The microphone is opened first: if the user
// denies access there is nothing to connect, and the error says so.
func (e *Engine) Start(ctx context.Context) error {
	// The slot is claimed before the slow open phase so a concurrent Start
	// cannot pass the check and overwrite a session mid-creation.
	e.mu.Lock()
	if e.current != nil || e.starting {
		e.mu.Unlock()
		return fmt.Errorf("livesession: session already active")
	}
	e.starting = true
	e.mu.Unlock()

	capture, err := e.openCapture()
	if err != nil {
		e.abortStart()
		return fmt.Errorf("%w: %w", ErrPermission, err)
	}

	sink, err := e.newSink(audio.PlaybackRate)
	if err != nil {
		capture.Close()
		e.abortStart()
		return fmt.Errorf("livesession: open output device: %w", err)
	}

	handle, err := e.provider.Connect(ctx, e.sessionCfg)
	if err != nil {
		capture.Close()
		sink.Close()
		e.abortStart()
		return fmt.Errorf("livesession: connect: %w", err)
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(sessCtx)
	s := &session{
		handle:  handle,
		capture: capture,
		sink:    sink,
		sched:   audio.NewScheduler(sink),
		cancel:  cancel,
		group:   group,
	}

	e.mu.Lock()
	e.current = s
	e.starting = false
	e.mu.Unlock()

	e.metrics.ActiveSessions.Add(ctx, 1)
	slog.Info("live session started", "voice", e.sessionCfg.Voice.ID)

	group.Go(func() error { return e.pump(groupCtx, s) })
	group.Go(func() error { return e.dispatch(groupCtx, s) })

	return nil
}

// abortStart releases the start claim after a failed open phase.
func (e *Engine) abortStart() {
	e.mu.Lock()
	e.starting = false
	e.mu.Unlock()
}

// pump forwards captured microphone frames to the provider until the
// capture stream or the session ends.
func (e *Engine) pump(ctx context.Context, s *session) error {
	for {
		select {
		case frame, ok := <-s.capture.Frames():
			if !ok {
				return nil
			}
			if err := s.handle.SendAudio(audio.NewCaptureBlob(frame)); err != nil {
				// The session is closing; stop pumping without failing the
				// group.
				slog.Debug("dropping capture frame", "error", err)
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// dispatch consumes the provider's ordered event stream. Because events are
// handled strictly in arrival order, a transcription fragment that arrives
// after a turn boundary can only ever land in the next turn's buffers.
func (e *Engine) dispatch(ctx context.Context, s *session) error {
	for {
		select {
		case ev, ok := <-s.handle.Events():
			if !ok {
				return nil
			}
			e.handleEvent(ctx, s, ev)
			if ev.Kind == live.EventClosed {
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (e *Engine) handleEvent(ctx context.Context, s *session, ev live.ServerEvent) {
	switch ev.Kind {
	case live.EventInputTranscription:
		e.metrics.RecordLiveEvent(ctx, "input_transcription")
		s.mu.Lock()
		s.inputBuf.WriteString(ev.Text)
		s.mu.Unlock()

	case live.EventOutputTranscription:
		e.metrics.RecordLiveEvent(ctx, "output_transcription")
		s.mu.Lock()
		s.outputBuf.WriteString(ev.Text)
		s.mu.Unlock()

	case live.EventTurnComplete:
		e.metrics.RecordLiveEvent(ctx, "turn_complete")
		s.mu.Lock()
		s.history = append(s.history,
			TurnRecord{Role: RoleUser, Content: s.inputBuf.String()},
			TurnRecord{Role: RoleModel, Content: s.outputBuf.String()},
		)
		s.inputBuf.Reset()
		s.outputBuf.Reset()
		s.mu.Unlock()

	case live.EventAudio:
		e.metrics.RecordLiveEvent(ctx, "audio")
		buf := audio.DecodePCM16(ev.Audio, audio.PlaybackRate, 1)
		if buf.Frames() == 0 {
			return
		}
		if err := s.sched.Schedule(buf, 1.0, nil); err != nil {
			slog.Debug("dropping response audio", "error", err)
		}

	case live.EventInterrupted:
		// Remote barge-in: every queued and playing response buffer vanishes
		// and the output clock resets so post-interruption audio starts
		// fresh.
		e.metrics.RecordLiveEvent(ctx, "interrupted")
		s.sched.Flush()

	case live.EventError:
		e.metrics.RecordLiveEvent(ctx, "error")
		slog.Warn("live session error", "error", ev.Err)
		if e.onError != nil {
			e.onError(ev.Err)
		}

	case live.EventClosed:
		e.metrics.RecordLiveEvent(ctx, "closed")
		if ev.Err != nil {
			slog.Warn("live session closed abnormally", "error", ev.Err)
			if e.onError != nil {
				e.onError(ev.Err)
			}
		}
	}
}

// Transcript returns a snapshot of the turns finalized so far in the active
// session, or nil when no session is open. The in-flight turn is not
// included until its boundary arrives.
func (e *Engine) Transcript() []TurnRecord {
	e.mu.Lock()
	s := e.current
	e.mu.Unlock()
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TurnRecord(nil), s.history...)
}

// Active reports whether a session is open.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Close tears the session down: the remote connection, microphone, scheduled
// output sources and both hardware endpoints are released, in that order.
// Idempotent and safe from any state, including when no session is open.
//
// The returned transcript contains every finalized turn. A turn that was
// mid-flight at close time is finalized from whatever partial text had
// accumulated, with a placeholder standing in for an empty side.
func (e *Engine) Close() ([]TurnRecord, error) {
	e.mu.Lock()
	s := e.current
	e.current = nil
	e.mu.Unlock()

	if s == nil {
		return nil, nil
	}

	if err := s.handle.Close(); err != nil {
		slog.Warn("closing live connection", "error", err)
	}
	if err := s.capture.Close(); err != nil {
		slog.Warn("closing microphone", "error", err)
	}
	s.cancel()
	_ = s.group.Wait()

	s.sched.Close()
	if err := s.sink.Close(); err != nil {
		slog.Warn("closing output device", "error", err)
	}

	// Finalize a half-finished turn rather than dropping it.
	s.mu.Lock()
	in, out := s.inputBuf.String(), s.outputBuf.String()
	if in != "" || out != "" {
		if in == "" {
			in = partialPlaceholder
		}
		if out == "" {
			out = partialPlaceholder
		}
		s.history = append(s.history,
			TurnRecord{Role: RoleUser, Content: in},
			TurnRecord{Role: RoleModel, Content: out},
		)
	}
	history := append([]TurnRecord(nil), s.history...)
	s.mu.Unlock()

	e.metrics.ActiveSessions.Add(context.Background(), -1)
	slog.Info("live session closed", "turns", len(history))
	return history, nil
}
