package reactive

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreFanoutOrder(t *testing.T) {
	s := NewStore(0)

	var got []string
	s.Watch(func(v any) { got = append(got, fmt.Sprintf("a=%v", v)) })
	s.Watch(func(v any) { got = append(got, fmt.Sprintf("b=%v", v)) })

	s.Set(1)
	assert.Equal(t, []string{"a=0", "b=0", "a=1", "b=1"}, got)
}

func TestStoreNoEqualitySuppression(t *testing.T) {
	s := NewStore("x")
	count := 0
	s.Changes(context.Background(), func() { count++ })

	s.Set("x")
	s.Set("x")
	assert.Equal(t, 2, count)
}

func TestStoreMutate(t *testing.T) {
	s := NewStore(10)
	var got any
	s.Changes(context.Background(), func() { got = s.Get() })

	s.Mutate(func(prev any) any { return prev.(int) + 5 })
	assert.Equal(t, 15, got)
	assert.Equal(t, 15, s.Get())
}

func TestStoreCancelIdempotent(t *testing.T) {
	s := NewStore(nil)
	count := 0
	h, err := s.Changes(context.Background(), func() { count++ })
	require.NoError(t, err)

	s.Set(1)
	h.Cancel()
	h.Cancel()
	s.Set(2)
	assert.Equal(t, 1, count)
}

func TestStoreSubscriberAddedDuringFanout(t *testing.T) {
	s := NewStore(0)
	lateCount := 0

	s.Watch(func(v any) {
		if v == 1 {
			s.Changes(context.Background(), func() { lateCount++ })
		}
	})

	s.Set(1)
	assert.Equal(t, 0, lateCount, "subscriber added during fan-out must not see that event")
	s.Set(2)
	assert.Equal(t, 1, lateCount)
}

func TestStoreWatchInitialOrderedWithWrites(t *testing.T) {
	// The initial delivery must not trail a concurrently fanned-out newer
	// value: with a single writer every subscriber sees a non-decreasing
	// sequence, whenever registration happens.
	for i := 0; i < 100; i++ {
		s := NewStore(0)
		done := make(chan struct{})
		go func() {
			for v := 1; v <= 10; v++ {
				s.Set(v)
			}
			close(done)
		}()

		var mu sync.Mutex
		var got []int
		s.Watch(func(v any) {
			mu.Lock()
			got = append(got, v.(int))
			mu.Unlock()
		})
		<-done

		mu.Lock()
		for j := 1; j < len(got); j++ {
			if got[j] < got[j-1] {
				t.Fatalf("out-of-order delivery: %v", got)
			}
		}
		mu.Unlock()
	}
}

func TestSessionStoreIsolation(t *testing.T) {
	sessA := NewSession()
	sessB := NewSession()
	ctxA := sessA.Bind(context.Background())
	ctxB := sessB.Bind(context.Background())

	u := NewSessionStore(nil)
	require.NoError(t, u.Set(ctxA, "alice"))

	gotB, err := u.Get(ctxB)
	require.NoError(t, err)
	assert.Nil(t, gotB, "session B sees its own initial value")

	firedB := 0
	_, err = u.Changes(ctxB, func() { firedB++ })
	require.NoError(t, err)

	require.NoError(t, u.Set(ctxA, "alice2"))
	assert.Equal(t, 0, firedB, "writes under A must not fan out to B")

	gotA, err := u.Get(ctxA)
	require.NoError(t, err)
	assert.Equal(t, "alice2", gotA)
}

func TestSessionStoreNoSessionContext(t *testing.T) {
	u := NewSessionStore(nil)

	_, err := u.Get(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, u.Set(context.Background(), 1), ErrNoSession)
}

func TestSessionStoreSlotReleasedOnClose(t *testing.T) {
	sess := NewSession()
	ctx := sess.Bind(context.Background())

	u := NewSessionStore("initial")
	require.NoError(t, u.Set(ctx, "changed"))

	sess.Close()

	// The slot is gone; access under the closed session sees a fresh slot.
	got, err := u.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "initial", got)
}

func TestSessionStoreWatchDeliversInitial(t *testing.T) {
	sess := NewSession()
	ctx := sess.Bind(context.Background())

	u := NewSessionStore(42)
	var got []any
	_, err := u.Watch(ctx, func(v any) { got = append(got, v) })
	require.NoError(t, err)
	assert.Equal(t, []any{42}, got)
}
