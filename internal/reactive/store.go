package reactive

import (
	"context"
	"sync"
)

// Store holds a single value shared across all sessions. Writes fan out to
// every current subscriber synchronously, in subscription order, with no
// equality suppression: Set(x) twice fires twice.
type Store struct {
	mu    sync.Mutex
	value any
	subs  subscriberList
}

func NewStore(initial any) *Store {
	return &Store{value: initial}
}

func (s *Store) Scope() Scope { return ScopeGlobal }

func (s *Store) Get() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func (s *Store) Set(v any) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
	s.subs.fanout(v)
}

// Mutate replaces the value with fn(previous) and fans out the result.
func (s *Store) Mutate(fn func(prev any) any) {
	s.mu.Lock()
	s.value = fn(s.value)
	v := s.value
	s.mu.Unlock()
	s.subs.fanout(v)
}

// Watch subscribes fn to value changes and delivers the current value first.
// Registration and the initial delivery happen atomically with respect to
// writers, so a racing Set cannot land a newer value ahead of the initial
// one. fn must not call back into the store during the initial delivery.
func (s *Store) Watch(fn func(v any)) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.subs.add(fn)
	fn(s.value)
	return h
}

// Changes subscribes fn to changes without replaying the current value. This
// is the path derived computations use.
func (s *Store) Changes(_ context.Context, fn func()) (*Handle, error) {
	return s.subs.add(func(any) { fn() }), nil
}

// SessionStore is a family of stores indexed by session id. All accessors
// resolve the slot for the session carried by ctx; outside a session they
// fail with ErrNoSession. Slots are created lazily on first access and
// dropped when the session closes, so fan-out never crosses sessions.
type SessionStore struct {
	initial any

	mu    sync.Mutex
	slots map[string]*Store
}

func NewSessionStore(initial any) *SessionStore {
	return &SessionStore{initial: initial, slots: make(map[string]*Store)}
}

func (ss *SessionStore) Scope() Scope { return ScopeSession }

func (ss *SessionStore) slot(ctx context.Context) (*Store, error) {
	sess, ok := SessionFrom(ctx)
	if !ok {
		return nil, ErrNoSession
	}

	ss.mu.Lock()
	st, ok := ss.slots[sess.ID()]
	if !ok {
		st = NewStore(ss.initial)
		ss.slots[sess.ID()] = st
	}
	ss.mu.Unlock()

	if !ok {
		id := sess.ID()
		sess.onClose(func() {
			ss.mu.Lock()
			delete(ss.slots, id)
			ss.mu.Unlock()
		})
	}
	return st, nil
}

func (ss *SessionStore) Get(ctx context.Context) (any, error) {
	st, err := ss.slot(ctx)
	if err != nil {
		return nil, err
	}
	return st.Get(), nil
}

func (ss *SessionStore) Set(ctx context.Context, v any) error {
	st, err := ss.slot(ctx)
	if err != nil {
		return err
	}
	st.Set(v)
	return nil
}

func (ss *SessionStore) Mutate(ctx context.Context, fn func(prev any) any) error {
	st, err := ss.slot(ctx)
	if err != nil {
		return err
	}
	st.Mutate(fn)
	return nil
}

func (ss *SessionStore) Watch(ctx context.Context, fn func(v any)) (*Handle, error) {
	st, err := ss.slot(ctx)
	if err != nil {
		return nil, err
	}
	return st.Watch(fn), nil
}

func (ss *SessionStore) Changes(ctx context.Context, fn func()) (*Handle, error) {
	st, err := ss.slot(ctx)
	if err != nil {
		return nil, err
	}
	return st.Changes(ctx, fn)
}
