package main

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/zoravur/liveq/internal/app"
	"github.com/zoravur/liveq/internal/notify"
	"github.com/zoravur/liveq/internal/reactive"
	"github.com/zoravur/liveq/internal/validate"
)

func main() {
	srv, err := app.NewServer(app.ConfigFromEnv(), demoActions)
	if err != nil {
		zap.L().Fatal("server init failed", zap.Error(err))
	}
	if err := srv.Run(); err != nil {
		zap.L().Fatal("server exited", zap.Error(err))
	}
}

type addItemParams struct {
	Name string `json:"name" validate:"required"`
}

type loginParams struct {
	Username string `json:"username" validate:"required"`
}

// demoActions builds the demo action map: a live items list driven by the
// table's notify trigger, a validated insert, and a session-scoped login.
func demoActions(db *sql.DB, ln *notify.PGListener) (reactive.ActionFactory, error) {
	const itemsSQL = "SELECT id, name FROM items ORDER BY id"

	itemsDeps, err := ln.NotifiersForQuery(itemsSQL)
	if err != nil {
		return nil, err
	}

	return func() reactive.Actions {
		user := reactive.NewSessionStore(nil)

		return reactive.Actions{
			"itemsList": reactive.Query{
				Deps:     itemsDeps,
				Debounce: 25 * time.Millisecond,
				Fn: func(ctx context.Context, _ any) (any, error) {
					return queryRows(ctx, db, itemsSQL)
				},
			},

			"addItem": reactive.Mutation{
				Validator: validate.Struct[addItemParams](),
				Fn: func(ctx context.Context, params any) (any, error) {
					p := params.(addItemParams)
					var id int64
					err := db.QueryRowContext(ctx,
						"INSERT INTO items (name) VALUES ($1) RETURNING id", p.Name).Scan(&id)
					if err != nil {
						return nil, err
					}
					return map[string]any{"id": id, "name": p.Name}, nil
				},
			},

			"login": reactive.Mutation{
				Validator: validate.Struct[loginParams](),
				Fn: func(ctx context.Context, params any) (any, error) {
					p := params.(loginParams)
					u := map[string]any{"username": p.Username}
					if err := user.Set(ctx, u); err != nil {
						return nil, err
					}
					return u, nil
				},
			},

			"sessionUser": reactive.Query{
				Deps: []reactive.Source{user},
				Fn: func(ctx context.Context, _ any) (any, error) {
					return user.Get(ctx)
				},
			},

			// No deps: resolved once per subscribe, no live subscription.
			"serverTime": reactive.Query{
				Fn: func(context.Context, any) (any, error) {
					return time.Now().UTC().Format(time.RFC3339Nano), nil
				},
			},
		}
	}, nil
}

// queryRows runs a SELECT and renders rows as JSON-ready maps. Byte slices
// become strings so text columns don't serialize as base64.
func queryRows(ctx context.Context, db *sql.DB, query string) ([]map[string]any, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, 8)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = deref(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func deref(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return t
	}
}
