package reactive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Validator normalizes raw JSON params or fails. Its output replaces the raw
// params everywhere downstream, including fingerprinting.
type Validator interface {
	Validate(raw json.RawMessage) (any, error)
}

// Action is a named server operation: either a Query (subscribable) or a
// Mutation (one-shot).
type Action interface {
	kind() string
}

// Query re-executes Fn whenever any of Deps fires and pushes results to
// subscribers. A query with no deps is non-reactive: invoking it yields a
// single immediate value.
type Query struct {
	Validator Validator
	Deps      []Source
	Cache     CacheMode
	TTL       time.Duration
	Debounce  time.Duration
	Fn        func(ctx context.Context, params any) (any, error)
}

func (Query) kind() string { return "query" }

// Mutation validates its argument, runs Fn once and returns the result. No
// reactive machinery is attached.
type Mutation struct {
	Validator Validator
	Fn        func(ctx context.Context, params any) (any, error)
}

func (Mutation) kind() string { return "mutation" }

// Actions is the action map one connection dispatches against.
type Actions map[string]Action

// ActionFactory builds the action map. It is invoked once per connection,
// under that connection's session context, so session stores created inside
// it bind to that connection.
type ActionFactory func() Actions

// Live is the subscribable result of invoking a query with params.
type Live struct {
	comp *Computed
}

func (l *Live) Subscribe(fn func(v any, err error)) (*Handle, error) {
	return l.comp.Subscribe(fn)
}

func (l *Live) Computation() *Computed { return l.comp }

func decodeParams(v Validator, raw json.RawMessage) (any, error) {
	if v != nil {
		out, err := v.Validate(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return out, nil
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return out, nil
}

// Params validates and decodes raw params for this query.
func (q Query) Params(raw json.RawMessage) (any, error) {
	return decodeParams(q.Validator, raw)
}

// Build constructs the derived computation for one (params) invocation. The
// multiplexer may discard it in favor of an already active computation under
// the same key; an unsubscribed computation holds no resources.
func (q Query) Build(ctx context.Context, params any) *Computed {
	fn := func(ctx context.Context) (any, error) {
		return q.Fn(ctx, params)
	}
	return NewComputed(ctx, q.Deps, fn, ComputedConfig{
		Cache:    q.Cache,
		TTL:      q.TTL,
		Debounce: q.Debounce,
	})
}

// Immediate reports whether invoking this query yields a plain value rather
// than a live result.
func (q Query) Immediate() bool {
	return len(q.Deps) == 0
}

// Execute validates params and runs the mutation.
func (m Mutation) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := decodeParams(m.Validator, raw)
	if err != nil {
		return nil, err
	}
	return m.Fn(ctx, params)
}
