// Package server initializes and runs the vault server: it opens the
// database, runs migrations, loads the master key into the crypto engine,
// wires the services and starts the HTTP API with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stackdeck/credvault/internal/cryptox"
	"github.com/stackdeck/credvault/internal/logging"
	"github.com/stackdeck/credvault/internal/server/config"
	"github.com/stackdeck/credvault/internal/server/httpapi"
	"github.com/stackdeck/credvault/internal/server/repositories/repomanager"
	"github.com/stackdeck/credvault/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	api    *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	masterKey, err := cryptox.ParseMasterKey(cfg.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("master key error: %w", err)
	}
	engine, err := cryptox.NewEngine(masterKey)
	if err != nil {
		return nil, fmt.Errorf("crypto init error: %w", err)
	}

	items := services.NewItemService(db, repos, engine, logger)
	reveal := services.NewRevealService(db, repos, engine, logger)
	share := services.NewShareService(db, repos, logger)
	settings := services.NewSettingsService(db, repos, logger)
	audit := services.NewAuditService(db, repos, logger)

	api := httpapi.NewServer(items, reveal, share, settings, audit, []byte(cfg.SecretKey), logger)

	return &App{config: cfg, logger: logger, db: db, api: api}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.api.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return app.db.Close()
}
