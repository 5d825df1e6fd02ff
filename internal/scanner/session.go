// Package scanner runs decoder devices in cancellable sessions and turns
// their output into de-duplicated scan events.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"librarydesk/internal/identifier"
)

// ErrRunning is returned by Start on a session that is already running.
var ErrRunning = errors.New("scan session already running")

// Event is one decoded value, or the error that ended the session.
type Event struct {
	Code string
	At   time.Time
	Err  error
}

// Session owns one Source and the goroutine that drives it. Sessions are
// independent of each other and may be restarted after Stop.
type Session struct {
	mu        sync.Mutex
	source    Source
	window    time.Duration
	debouncer *Debouncer
	log       *slog.Logger
	now       func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Session)

// WithDebounce suppresses repeats of the same identifier within window.
func WithDebounce(window time.Duration) Option {
	return func(s *Session) { s.window = window }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithClock overrides the clock used for event timestamps and debouncing.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func NewSession(src Source, opts ...Option) *Session {
	s := &Session{source: src, now: time.Now, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	if s.window > 0 {
		s.debouncer = NewDebouncer(s.window, s.now)
	}
	return s
}

// Start launches the decoder loop. The returned channel is closed when the
// loop ends, whether by Stop, ctx, or a device error.
func (s *Session) Start(ctx context.Context) (<-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		if !s.finishedLocked() {
			return nil, ErrRunning
		}
		// The previous loop ended on its own; release it before restarting.
		if err := s.stopLocked(); err != nil {
			s.log.Warn("closing finished scan source", "error", err)
		}
	}
	if s.source == nil {
		return nil, errors.New("scan session has no source")
	}

	ctx, cancel := context.WithCancel(ctx)
	events := make(chan Event)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.loop(ctx, s.source, events, done)
	return events, nil
}

func (s *Session) loop(ctx context.Context, src Source, events chan<- Event, done chan<- struct{}) {
	defer close(events)
	defer close(done)

	send := func(ev Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	err := src.Run(ctx, func(code string) {
		if !s.debouncer.Allow(identifier.Key(code)) {
			s.log.Debug("duplicate scan suppressed", "code", code)
			return
		}
		send(Event{Code: code, At: s.now()})
	})
	if err != nil && ctx.Err() == nil {
		s.log.Warn("scan source failed", "error", err)
		send(Event{Err: fmt.Errorf("scan source: %w", err), At: s.now()})
	}
}

// Stop cancels the loop, closes the source and waits for the loop to exit.
// It is safe to call more than once and on a session that never started.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Session) stopLocked() error {
	if s.done == nil {
		return nil
	}
	s.cancel()
	// Close first so a source blocked in a read can observe cancellation.
	closeErr := s.source.Close()
	<-s.done
	s.cancel, s.done = nil, nil
	return closeErr
}

// Switch stops the current source, if running, and starts src in its place.
func (s *Session) Switch(ctx context.Context, src Source) (<-chan Event, error) {
	s.mu.Lock()
	if err := s.stopLocked(); err != nil {
		s.log.Warn("closing previous scan source", "error", err)
	}
	s.source = src
	s.mu.Unlock()
	return s.Start(ctx)
}

// Running reports whether the decoder loop is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil && !s.finishedLocked()
}

func (s *Session) finishedLocked() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
