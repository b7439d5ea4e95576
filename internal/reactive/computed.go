package reactive

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// CacheMode controls whether a computation keeps its last value.
type CacheMode int

const (
	// CacheNone keeps nothing; every new first subscriber forces a run.
	CacheNone CacheMode = iota
	// CacheTTL keeps the last value until TTL elapses.
	CacheTTL
	// CacheForever keeps the last value until the computation is dropped.
	CacheForever
)

// ComputedConfig tunes a derived computation.
type ComputedConfig struct {
	Cache    CacheMode
	TTL      time.Duration // used with CacheTTL
	Debounce time.Duration // 0 disables debouncing
}

type compSub struct {
	fn       func(v any, err error)
	canceled atomic.Bool
}

// Computed re-runs fn whenever any dependency fires and fans the result out
// to its subscribers in registration order. At most one run is in flight;
// any number of fires during a run coalesce into exactly one follow-up.
// Dependency subscriptions are acquired when the first subscriber arrives
// and released when the last one leaves.
//
// The context given at construction is the computation's ambient context: it
// carries the session for session-scoped dependencies and is passed to every
// run of fn.
type Computed struct {
	deps  []Source
	fn    func(ctx context.Context) (any, error)
	cfg   ComputedConfig
	ctx   context.Context
	scope Scope

	mu      sync.Mutex
	subs    []*compSub
	handles []*Handle
	running bool
	pending bool
	timer   *time.Timer // debounce
	expire  *time.Timer // cache TTL
	last    any
	hasLast bool
}

func NewComputed(ctx context.Context, deps []Source, fn func(ctx context.Context) (any, error), cfg ComputedConfig) *Computed {
	scope := ScopeGlobal
	for _, d := range deps {
		if d.Scope() == ScopeSession {
			scope = ScopeSession
			break
		}
	}
	return &Computed{deps: deps, fn: fn, cfg: cfg, ctx: ctx, scope: scope}
}

func (c *Computed) Scope() Scope { return c.scope }

// Subscribe registers fn for every produced value or error. If a cached
// value is present it is delivered immediately without a recompute;
// otherwise a run is forced.
func (c *Computed) Subscribe(fn func(v any, err error)) (*Handle, error) {
	sub := &compSub{fn: fn}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	if len(c.subs) == 1 {
		for _, dep := range c.deps {
			h, err := dep.Changes(c.ctx, c.Invalidate)
			if err != nil {
				c.subs = c.subs[:0]
				held := c.handles
				c.handles = nil
				c.mu.Unlock()
				for _, hh := range held {
					hh.Cancel()
				}
				return nil, err
			}
			c.handles = append(c.handles, h)
		}
	}
	deliver := c.hasLast
	last := c.last
	need := !c.hasLast && !c.running && c.timer == nil
	c.mu.Unlock()

	if deliver {
		fn(last, nil)
	} else if need {
		c.Invalidate()
	}
	return newHandle(func() { c.unsubscribe(sub) }), nil
}

func (c *Computed) unsubscribe(sub *compSub) {
	sub.canceled.Store(true)

	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			break
		}
	}
	var held []*Handle
	if len(c.subs) == 0 {
		held = c.handles
		c.handles = nil
		c.pending = false
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
	}
	c.mu.Unlock()

	for _, h := range held {
		h.Cancel()
	}
}

// Subscribers reports the current subscriber count.
func (c *Computed) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Cached reports whether a cached value is currently held.
func (c *Computed) Cached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasLast
}

// Invalidate requests a recompute, exactly as a dependency fire does. With
// debouncing configured each call restarts the timer; otherwise the run
// starts now, or is marked pending if one is already in flight.
func (c *Computed) Invalidate() {
	if c.cfg.Debounce > 0 {
		c.mu.Lock()
		if c.timer != nil {
			c.timer.Stop()
		}
		c.timer = time.AfterFunc(c.cfg.Debounce, c.timerFired)
		c.mu.Unlock()
		return
	}
	c.start()
}

func (c *Computed) timerFired() {
	c.mu.Lock()
	c.timer = nil
	c.mu.Unlock()
	c.start()
}

func (c *Computed) start() {
	c.mu.Lock()
	if len(c.subs) == 0 {
		c.mu.Unlock()
		return
	}
	if c.running {
		c.pending = true
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()
	go c.run()
}

func (c *Computed) run() {
	for {
		v, err := c.fn(c.ctx)

		c.mu.Lock()
		if err == nil && c.cfg.Cache != CacheNone {
			c.last, c.hasLast = v, true
			if c.cfg.Cache == CacheTTL && c.cfg.TTL > 0 {
				if c.expire != nil {
					c.expire.Stop()
				}
				c.expire = time.AfterFunc(c.cfg.TTL, c.expireNow)
			}
		}
		subs := append([]*compSub(nil), c.subs...)
		rerun := c.pending && len(c.subs) > 0
		c.pending = false
		if !rerun {
			c.running = false
		}
		c.mu.Unlock()

		for _, s := range subs {
			if s.canceled.Load() {
				continue
			}
			s.fn(v, err)
		}
		if !rerun {
			return
		}
	}
}

func (c *Computed) expireNow() {
	c.mu.Lock()
	c.last, c.hasLast = nil, false
	c.mu.Unlock()
}
