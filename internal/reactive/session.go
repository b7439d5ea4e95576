package reactive

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type sessionCtxKey struct{}

// Session is the per-connection scope. A fresh session is created when a
// connection opens and closed when it disconnects; session stores hang their
// per-session slots off it so everything is released together.
type Session struct {
	id string

	mu       sync.Mutex
	closed   bool
	cleanups []func()
}

func NewSession() *Session {
	return &Session{id: uuid.NewString()}
}

func (s *Session) ID() string { return s.id }

// Bind returns a context carrying this session. All frame processing for a
// connection, including recomputes it spawns, runs under such a context so
// session stores resolve to the right slot.
func (s *Session) Bind(ctx context.Context) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFrom extracts the session bound to ctx, if any.
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionCtxKey{}).(*Session)
	return s, ok
}

// onClose registers fn to run when the session closes. If the session is
// already closed fn runs immediately.
func (s *Session) onClose(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
	s.mu.Unlock()
}

// Close releases everything owned by the session. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cleanups := s.cleanups
	s.cleanups = nil
	s.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
