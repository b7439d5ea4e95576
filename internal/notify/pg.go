// Package notify provides the external notifier adapters: Postgres
// LISTEN/NOTIFY channels and filesystem paths, both surfaced as lazy
// global-scope reactive notifiers.
package notify

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/zoravur/liveq/internal/reactive"
)

// reconnectDelay paces the listener's reconnect loop after a connection
// failure.
const reconnectDelay = time.Second

// PGListener multiplexes LISTEN/NOTIFY channels over a single connection.
// One notifier exists per table and is shared by all its subscribers; the
// LISTEN starts when the notifier gains its first subscriber and stops when
// the last one leaves. The connection itself lives only while at least one
// channel is wanted.
type PGListener struct {
	dsn string
	log *zap.Logger

	mu       sync.Mutex
	channels map[string]*reactive.Notifier // channel name -> shared notifier
	wanted   map[string]struct{}
	cancel   context.CancelFunc
}

func NewPGListener(dsn string) *PGListener {
	return &PGListener{
		dsn:      dsn,
		log:      zap.L().Named("pgnotify"),
		channels: make(map[string]*reactive.Notifier),
		wanted:   make(map[string]struct{}),
	}
}

// Channel maps a table name to its notify channel. Tables without a schema
// qualify as public; the demo migrations install triggers that pg_notify
// the same name.
func Channel(table string) string {
	if !strings.Contains(table, ".") {
		table = "public." + table
	}
	return "liveq_" + strings.ReplaceAll(table, ".", "_")
}

// NotifierFor returns the shared notifier for one table.
func (l *PGListener) NotifierFor(table string) *reactive.Notifier {
	ch := Channel(table)

	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.channels[ch]
	if !ok {
		n = reactive.NewLazyNotifier(
			func() { l.listen(ch) },
			func() { l.unlisten(ch) },
		)
		l.channels[ch] = n
	}
	return n
}

// NotifiersForQuery parses a SELECT and returns one notifier per base table
// it reads, so SQL-backed queries can declare their deps automatically.
func (l *PGListener) NotifiersForQuery(sql string) ([]reactive.Source, error) {
	tables, err := Tables(sql)
	if err != nil {
		return nil, err
	}
	deps := make([]reactive.Source, 0, len(tables))
	for _, t := range tables {
		deps = append(deps, l.NotifierFor(t))
	}
	return deps, nil
}

func (l *PGListener) listen(ch string) {
	l.mu.Lock()
	l.wanted[ch] = struct{}{}
	l.restartLocked()
	l.mu.Unlock()
}

func (l *PGListener) unlisten(ch string) {
	l.mu.Lock()
	delete(l.wanted, ch)
	l.restartLocked()
	l.mu.Unlock()
}

// restartLocked tears down the current listen loop and, if any channel is
// still wanted, starts a fresh one with the full channel set. WaitForNotification
// holds the connection, so changing the LISTEN set means replacing the loop.
func (l *PGListener) restartLocked() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if len(l.wanted) == 0 {
		return
	}

	chans := make([]string, 0, len(l.wanted))
	for ch := range l.wanted {
		chans = append(chans, ch)
	}
	sort.Strings(chans)

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	go l.loop(ctx, chans)
}

func (l *PGListener) loop(ctx context.Context, chans []string) {
	for {
		if err := l.listenOnce(ctx, chans); err != nil && ctx.Err() == nil {
			l.log.Warn("listen connection lost, reconnecting", zap.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *PGListener) listenOnce(ctx context.Context, chans []string) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		conn.Close(closeCtx)
	}()

	for _, ch := range chans {
		if _, err := conn.Exec(ctx, "listen "+pgx.Identifier{ch}.Sanitize()); err != nil {
			return err
		}
	}
	l.log.Info("listening", zap.Strings("channels", chans))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.dispatch(n.Channel)
	}
}

func (l *PGListener) dispatch(ch string) {
	l.mu.Lock()
	n := l.channels[ch]
	l.mu.Unlock()
	if n != nil {
		n.Notify()
	}
}
