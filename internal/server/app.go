// Package server initializes and runs the vault server. It opens the
// database, applies migrations, selects the blob storage backend, wires
// the services onto the HTTP API and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/avolkov-dev/filevault/internal/logging"
	"github.com/avolkov-dev/filevault/internal/server/blobstore"
	"github.com/avolkov-dev/filevault/internal/server/config"
	"github.com/avolkov-dev/filevault/internal/server/httpapi"
	"github.com/avolkov-dev/filevault/internal/server/repositories/repomanager"
	"github.com/avolkov-dev/filevault/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *http.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	audit := services.NewAuditService(db, rm, logger)
	users := services.NewUserService(db, rm, cfg)
	files := services.NewFileService(db, rm, blobs, audit, logger)
	shares := services.NewShareService(db, rm, audit, logger)

	handler := httpapi.NewHandler(users, files, shares, audit, logger)

	srv := &http.Server{
		Addr:    cfg.EndpointAddr,
		Handler: handler.Router(),
	}

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config, db *sql.DB) (blobstore.Store, error) {
	switch cfg.BlobStore {
	case "db":
		return blobstore.NewDBStore(db), nil
	case "s3":
		return blobstore.NewS3Store(ctx, blobstore.S3Options{
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.S3Bucket,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown blob store: %q", cfg.BlobStore)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	app.logger.Info(ctx, "listening", "addr", app.config.EndpointAddr)
	if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, err.Error())
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(shutdownCtx, err.Error())
	}

	wg.Wait()

	app.logger.Info(shutdownCtx, "app stopped")
}
