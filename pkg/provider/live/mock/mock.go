// Package mock provides in-memory fakes for the live provider interfaces,
// used by engine tests.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/eklavya-ai/guruvoice/pkg/audio"
	"github.com/eklavya-ai/guruvoice/pkg/provider/live"
)

var _ live.Provider = (*Provider)(nil)
var _ live.SessionHandle = (*Session)(nil)

// Provider is a fake live.Provider that hands out a pre-built Session.
type Provider struct {
	// ConnectErr, when set, is returned by Connect instead of a session.
	ConnectErr error

	mu       sync.Mutex
	sessions []*Session
	lastCfg  live.SessionConfig
}

// Connect returns a new fake session, or ConnectErr if set.
func (p *Provider) Connect(_ context.Context, cfg live.SessionConfig) (live.SessionHandle, error) {
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s := NewSession()
	p.sessions = append(p.sessions, s)
	p.lastCfg = cfg
	return s, nil
}

// Sessions returns every session handed out so far.
func (p *Provider) Sessions() []*Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Session(nil), p.sessions...)
}

// LastConfig returns the configuration passed to the most recent Connect.
func (p *Provider) LastConfig() live.SessionConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCfg
}

// Session is a scriptable fake live session. Tests push events with Emit and
// inspect uploaded audio with Sent.
type Session struct {
	events chan live.ServerEvent

	mu       sync.Mutex
	sent     []audio.Blob
	closed   bool
	emitDone bool
}

// NewSession creates an open fake session.
func NewSession() *Session {
	return &Session{events: make(chan live.ServerEvent, 64)}
}

// SendAudio records the blob. Returns an error once the session is closed.
func (s *Session) SendAudio(blob audio.Blob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("mock: session closed")
	}
	s.sent = append(s.sent, blob)
	return nil
}

// Events returns the scripted event stream.
func (s *Session) Events() <-chan live.ServerEvent { return s.events }

// Close marks the session closed and, if the stream is still open, terminates
// it with a final EventClosed. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.emitDone {
		s.emitDone = true
		s.events <- live.ServerEvent{Kind: live.EventClosed}
		close(s.events)
	}
	return nil
}

// Emit pushes one scripted event to the consumer.
func (s *Session) Emit(ev live.ServerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emitDone {
		return
	}
	s.events <- ev
	if ev.Kind == live.EventClosed {
		s.emitDone = true
		close(s.events)
	}
}

// Sent returns every blob uploaded so far.
func (s *Session) Sent() []audio.Blob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audio.Blob(nil), s.sent...)
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
