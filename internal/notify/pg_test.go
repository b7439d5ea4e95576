package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoravur/liveq/pkg/fixgres"
)

// The listener tests need a real Postgres; they spin up the shared
// testcontainers instance and are skipped under -short.

func TestPGListenerDeliversNotifications(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	fixgres.BootOnce(t)
	sbx := fixgres.NewSandbox(t)

	l := NewPGListener(fixgres.DSN())
	n := l.NotifierFor("public.widgets")

	fired := make(chan struct{}, 16)
	h, err := n.Changes(context.Background(), func() { fired <- struct{}{} })
	require.NoError(t, err)
	defer h.Cancel()

	// The LISTEN connection comes up asynchronously; keep sending until the
	// subscription observes one.
	deadline := time.After(15 * time.Second)
	for {
		_, err := sbx.DB.Exec("SELECT pg_notify('liveq_public_widgets', 'INSERT')")
		require.NoError(t, err)
		select {
		case <-fired:
			return
		case <-deadline:
			t.Fatal("notification never arrived")
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func TestPGListenerStopsAfterLastSubscriber(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	fixgres.BootOnce(t)

	l := NewPGListener(fixgres.DSN())
	n := l.NotifierFor("public.gadgets")

	h, err := n.Changes(context.Background(), func() {})
	require.NoError(t, err)

	l.mu.Lock()
	_, wanted := l.wanted["liveq_public_gadgets"]
	l.mu.Unlock()
	assert.True(t, wanted)

	h.Cancel()

	l.mu.Lock()
	_, wanted = l.wanted["liveq_public_gadgets"]
	running := l.cancel != nil
	l.mu.Unlock()
	assert.False(t, wanted)
	assert.False(t, running, "loop torn down when nothing is wanted")
}

func TestPGListenerSharedNotifier(t *testing.T) {
	l := NewPGListener("postgres://unused")
	assert.Same(t, l.NotifierFor("items"), l.NotifierFor("public.items"))
}

func TestNotifiersForQuery(t *testing.T) {
	l := NewPGListener("postgres://unused")
	deps, err := l.NotifiersForQuery("SELECT o.id FROM orders o JOIN customers c ON c.id = o.customer_id")
	require.NoError(t, err)
	assert.Len(t, deps, 2)

	_, err = l.NotifiersForQuery("UPDATE orders SET id = 1")
	assert.Error(t, err)
}
