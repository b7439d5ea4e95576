package reactive

import (
	"context"
	"sync"
)

// Notifier signals "something changed" without carrying a value. Subscribing
// delivers no initial event.
type Notifier struct {
	subs subscriberList
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

// NewLazyNotifier returns a notifier that calls onFirst when the subscriber
// count goes from zero to one and onLast when it drops back to zero. External
// adapters use the hooks to start and stop their underlying listeners.
func NewLazyNotifier(onFirst, onLast func()) *Notifier {
	n := &Notifier{}
	n.subs.onFirst = onFirst
	n.subs.onLast = onLast
	return n
}

func (n *Notifier) Scope() Scope { return ScopeGlobal }

// Notify fans out to all current subscribers. Safe to call from an adapter's
// I/O callback: fan-out holds no notifier lock while running callbacks.
func (n *Notifier) Notify() {
	n.subs.fanout(nil)
}

func (n *Notifier) Changes(_ context.Context, fn func()) (*Handle, error) {
	return n.subs.add(func(any) { fn() }), nil
}

// Subscribers reports the current subscriber count.
func (n *Notifier) Subscribers() int {
	return n.subs.len()
}

// DerivedNotifier fires once whenever any of its inputs fires. Its scope is
// session if any input is session-scoped, else global. Input subscriptions
// are held only while it has subscribers of its own.
type DerivedNotifier struct {
	inputs []Source
	scope  Scope

	mu      sync.Mutex
	subs    subscriberList
	handles []*Handle
}

func NewDerivedNotifier(inputs ...Source) *DerivedNotifier {
	scope := ScopeGlobal
	for _, in := range inputs {
		if in.Scope() == ScopeSession {
			scope = ScopeSession
			break
		}
	}
	return &DerivedNotifier{inputs: inputs, scope: scope}
}

func (d *DerivedNotifier) Scope() Scope { return d.scope }

func (d *DerivedNotifier) Changes(ctx context.Context, fn func()) (*Handle, error) {
	d.mu.Lock()
	if d.subs.len() == 0 {
		for _, in := range d.inputs {
			h, err := in.Changes(ctx, d.emit)
			if err != nil {
				for _, held := range d.handles {
					held.Cancel()
				}
				d.handles = nil
				d.mu.Unlock()
				return nil, err
			}
			d.handles = append(d.handles, h)
		}
	}
	inner := d.subs.add(func(any) { fn() })
	d.mu.Unlock()

	return newHandle(func() {
		inner.Cancel()
		d.mu.Lock()
		if d.subs.len() == 0 {
			for _, h := range d.handles {
				h.Cancel()
			}
			d.handles = nil
		}
		d.mu.Unlock()
	}), nil
}

func (d *DerivedNotifier) emit() {
	d.subs.fanout(nil)
}
