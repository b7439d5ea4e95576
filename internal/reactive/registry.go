package reactive

import (
	"sync"
)

// Entry is one active computation shared by every subscriber with the same
// (session, action, params fingerprint) key.
type Entry struct {
	Key     string
	Name    string
	Session string

	comp *Computed
	subs map[string]*Handle // subId -> subscription handle
}

func (e *Entry) Computation() *Computed { return e.comp }

// Registry is the server-wide map of active subscriptions. Exactly one
// computation exists per live key; concurrent subscribes share it.
type Registry struct {
	mu   sync.Mutex
	data map[string]*Entry
}

func NewRegistry() *Registry {
	return &Registry{data: make(map[string]*Entry)}
}

// Attach subscribes fn under (key, subID), creating the entry with build()
// if the key is not yet active. A subId already attached under the key is
// replaced.
func (r *Registry) Attach(key, name, session, subID string, build func() *Computed, fn func(v any, err error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.data[key]
	if !ok {
		e = &Entry{
			Key:     key,
			Name:    name,
			Session: session,
			comp:    build(),
			subs:    make(map[string]*Handle),
		}
		r.data[key] = e
	}

	if prev, ok := e.subs[subID]; ok {
		prev.Cancel()
	}
	h, err := e.comp.Subscribe(fn)
	if err != nil {
		if len(e.subs) == 0 {
			delete(r.data, key)
		}
		return err
	}
	e.subs[subID] = h
	return nil
}

// Detach cancels the subscriber under (key, subID). When the entry's last
// subscriber leaves, the entry is dropped, which releases the computation's
// dependency subscriptions.
func (r *Registry) Detach(key, subID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.data[key]
	if !ok {
		return
	}
	h, ok := e.subs[subID]
	if !ok {
		return
	}
	h.Cancel()
	delete(e.subs, subID)
	if len(e.subs) == 0 {
		delete(r.data, key)
	}
}

// DropSession detaches every subscriber of every entry owned by the session
// and drops the entries. Used on disconnect.
func (r *Registry) DropSession(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, e := range r.data {
		if e.Session != session {
			continue
		}
		for _, h := range e.subs {
			h.Cancel()
		}
		delete(r.data, key)
	}
}

func (r *Registry) Get(key string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.data[key]
	return e, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// SnapshotView renders the active entries for the debug endpoint.
func (r *Registry) SnapshotView() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]map[string]any, 0, len(r.data))
	for _, e := range r.data {
		out = append(out, map[string]any{
			"key":         e.Key,
			"name":        e.Name,
			"session":     e.Session,
			"subscribers": len(e.subs),
			"scope":       e.comp.Scope().String(),
			"cached":      e.comp.Cached(),
		})
	}
	return out
}
