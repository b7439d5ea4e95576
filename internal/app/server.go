package app

import (
	"context"
	"database/sql"
	"embed"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/zoravur/liveq/internal/api"
	"github.com/zoravur/liveq/internal/notify"
	"github.com/zoravur/liveq/internal/reactive"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Server struct {
	httpServer *http.Server
	Registry   *reactive.Registry
	Listener   *notify.PGListener
	DB         *sql.DB
}

// BuildActions wires the demo storage and listener into the per-connection
// action factory.
type BuildActions func(db *sql.DB, ln *notify.PGListener) (reactive.ActionFactory, error)

func NewServer(cfg Config, build BuildActions) (*Server, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		return nil, err
	}

	reg := reactive.NewRegistry()
	ln := notify.NewPGListener(cfg.DatabaseURL)

	factory, err := build(db, ln)
	if err != nil {
		return nil, err
	}

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.Addr,
			Handler: api.SetupRoutes(reg, factory),
		},
		Registry: reg,
		Listener: ln,
		DB:       db,
	}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

func (s *Server) Run() error {
	go func() {
		zap.L().Info("listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
