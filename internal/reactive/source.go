package reactive

import (
	"context"
	"sync"
	"sync/atomic"
)

// Scope says whether a source is shared across all sessions or split into
// per-session slots.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeSession
)

func (s Scope) String() string {
	if s == ScopeSession {
		return "session"
	}
	return "global"
}

// Source is anything a derived computation can depend on. Changes registers
// fn to run after every change of the source; stores do not replay their
// current value through this path (Watch does that). For session-scoped
// sources the context must carry a session.
type Source interface {
	Scope() Scope
	Changes(ctx context.Context, fn func()) (*Handle, error)
}

// Handle cancels one subscription. Cancel is idempotent; after it returns no
// new callback fires for this subscription (one already in flight may
// complete).
type Handle struct {
	once   sync.Once
	cancel func()
}

func newHandle(cancel func()) *Handle {
	return &Handle{cancel: cancel}
}

func (h *Handle) Cancel() {
	h.once.Do(h.cancel)
}

type subscriber struct {
	fn       func(any)
	canceled atomic.Bool
}

// subscriberList is an ordered fan-out list. Fan-out iterates a snapshot so
// callbacks may subscribe or cancel without deadlocking; a subscriber added
// during a fan-out sees the next event, a canceled one is tombstoned and
// skipped.
type subscriberList struct {
	mu      sync.Mutex
	subs    []*subscriber
	onFirst func()
	onLast  func()
}

func (l *subscriberList) add(fn func(any)) *Handle {
	l.mu.Lock()
	sub := &subscriber{fn: fn}
	l.subs = append(l.subs, sub)
	first := len(l.subs) == 1
	onFirst := l.onFirst
	l.mu.Unlock()

	if first && onFirst != nil {
		onFirst()
	}
	return newHandle(func() { l.remove(sub) })
}

func (l *subscriberList) remove(sub *subscriber) {
	sub.canceled.Store(true)

	l.mu.Lock()
	for i, s := range l.subs {
		if s == sub {
			l.subs = append(l.subs[:i:i], l.subs[i+1:]...)
			break
		}
	}
	last := len(l.subs) == 0
	onLast := l.onLast
	l.mu.Unlock()

	if last && onLast != nil {
		onLast()
	}
}

func (l *subscriberList) fanout(v any) {
	l.mu.Lock()
	snapshot := append([]*subscriber(nil), l.subs...)
	l.mu.Unlock()

	for _, sub := range snapshot {
		if sub.canceled.Load() {
			continue
		}
		sub.fn(v)
	}
}

func (l *subscriberList) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}
