package reactive

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upperValidator struct{}

func (upperValidator) Validate(raw json.RawMessage) (any, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	if s == "" {
		return nil, errors.New("empty")
	}
	return s, nil
}

func TestQueryParamsDefaultDecode(t *testing.T) {
	q := Query{}

	got, err := q.Params(json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, got)

	got, err = q.Params(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = q.Params(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = q.Params(json.RawMessage(`{not json`))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestQueryParamsValidatorRejection(t *testing.T) {
	q := Query{Validator: upperValidator{}}

	got, err := q.Params(json.RawMessage(`"hello"`))
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = q.Params(json.RawMessage(`""`))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestQueryImmediate(t *testing.T) {
	assert.True(t, Query{}.Immediate())
	assert.False(t, Query{Deps: []Source{NewNotifier()}}.Immediate())
}

func TestQueryBuildCarriesConfig(t *testing.T) {
	n := NewNotifier()
	q := Query{
		Deps:     []Source{n},
		Cache:    CacheForever,
		Debounce: 10 * time.Millisecond,
		Fn: func(ctx context.Context, params any) (any, error) {
			return params, nil
		},
	}

	c := q.Build(context.Background(), "p1")
	vals := make(chan any, 4)
	h, err := c.Subscribe(func(v any, err error) {
		require.NoError(t, err)
		vals <- v
	})
	require.NoError(t, err)
	defer h.Cancel()

	assert.Equal(t, "p1", recvValue(t, vals), "params are closed over per invocation")
	assert.True(t, c.Cached())
}

func TestMutationExecute(t *testing.T) {
	m := Mutation{
		Validator: upperValidator{},
		Fn: func(_ context.Context, params any) (any, error) {
			return "got:" + params.(string), nil
		},
	}

	out, err := m.Execute(context.Background(), json.RawMessage(`"x"`))
	require.NoError(t, err)
	assert.Equal(t, "got:x", out)

	_, err = m.Execute(context.Background(), json.RawMessage(`""`))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMutationFnErrorIsNotInvalidInput(t *testing.T) {
	failed := errors.New("storage down")
	m := Mutation{
		Fn: func(context.Context, any) (any, error) { return nil, failed },
	}

	_, err := m.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, failed)
	assert.NotErrorIs(t, err, ErrInvalidInput)
}
