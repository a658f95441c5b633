package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/digitalvishon/taskpay/internal/auth"
	"github.com/digitalvishon/taskpay/internal/config"
	"github.com/digitalvishon/taskpay/internal/notify"
	"github.com/digitalvishon/taskpay/internal/review"
	"github.com/digitalvishon/taskpay/internal/wallet"
	"github.com/digitalvishon/taskpay/pkg/accesslog"
	"github.com/digitalvishon/taskpay/pkg/logger"
	"github.com/digitalvishon/taskpay/pkg/unzip"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	trmcontext "github.com/avito-tech/go-transaction-manager/trm/v2/context"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nanmu42/gzip"
	"github.com/pressly/goose/v3"
	sqldblogger "github.com/simukti/sqldb-logger"
)

// Version indicates the current version of the application.
var Version = "1.0.0"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Server run context.
	serverCtx, serverStopCtx := context.WithCancel(context.Background())
	defer serverStopCtx()

	// Load application configurations.
	cfg := config.MustLoad()

	// Create root logger tagged with server version.
	logger := logger.New(cfg).With(serverCtx, "version", Version)

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open the database: %w", err)
	}

	// Log every query to the database.
	db = sqldblogger.OpenDriver(cfg.DSN, db.Driver(), logger)

	// Check connectivity and DSN correctness.
	if err = db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to the database: %w", err)
	}

	// Close connection.
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error(err)
		}
		_ = logger.Sync()
	}()

	// Apply pending schema migrations.
	if err = migrate(serverCtx, db); err != nil {
		return fmt.Errorf("failed to migrate the database: %w", err)
	}

	// Create default transaction manager for database/sql package.
	trManager := manager.Must(
		trmsql.NewDefaultFactory(db),
		manager.WithCtxManager(trmcontext.DefaultManager),
	)

	// Init the admin notification bot. Without a token notifications
	// are silently dropped.
	var notifier wallet.Notifier = notify.Noop{}
	if cfg.Telegram.BotToken != "" {
		notifier, err = notify.NewTelegram(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to init telegram notifier: %w", err)
		}
	}

	// Init repository for wallet service.
	walletRepo, err := wallet.NewRepository(db, trmsql.DefaultCtxGetter, logger)
	if err != nil {
		return fmt.Errorf("failed to init wallet repository: %w", err)
	}

	// Init wallet service.
	walletService, err := wallet.NewService(walletRepo, trManager, notifier, logger, cfg)
	if err != nil {
		return fmt.Errorf("failed to init wallet service: %w", err)
	}

	// Init repository for review service.
	reviewRepo, err := review.NewRepository(db, trmsql.DefaultCtxGetter, logger)
	if err != nil {
		return fmt.Errorf("failed to init review repository: %w", err)
	}

	// Init review service.
	reviewService, err := review.NewService(reviewRepo, trManager, logger, cfg)
	if err != nil {
		return fmt.Errorf("failed to init review service: %w", err)
	}

	// Create root router.
	router := initRootRouter(logger)

	adminGate := auth.Middleware(cfg, logger)

	// Init and group handlers for wallet routes.
	wallet.HandlerWithOptions(walletService, wallet.ChiServerOptions{
		BaseURL:          "/api",
		BaseRouter:       router,
		AdminMiddlewares: []wallet.MiddlewareFunc{adminGate},
		ErrorHandlerFunc: wallet.ErrorHandlerFunc,
	})

	// Init handlers for review routes.
	review.HandlerWithOptions(reviewService, review.ChiServerOptions{
		BaseURL:          "/api",
		BaseRouter:       router,
		AdminMiddlewares: []review.MiddlewareFunc{adminGate},
		ErrorHandlerFunc: review.ErrorHandlerFunc,
	})

	// Build HTTP server.
	hs := &http.Server{
		Addr:              cfg.HTTPServer.Address,
		ReadHeaderTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:       cfg.HTTPServer.IdleTimeout,
		Handler:           router,
	}

	// Graceful shutdown.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT,
			syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)

		signal := <-sig

		logger.With(serverCtx, "signal", signal.String()).
			Infof("Shutting down server with %s timeout",
				cfg.HTTPServer.ShutdownTimeout)

		if err = hs.Shutdown(serverCtx); err != nil {
			logger.Errorf("graceful shutdown failed: %s", err)
		}
		serverStopCtx()
	}()

	// Start the HTTP server with graceful shutdown.
	logger.Infof("Server %v is running at %v", Version, cfg.HTTPServer.Address)
	if err = hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("run server failed: %w", err)
	}

	// Wait for server context to be stopped or force exit if timeout exceeded.
	select {
	case <-serverCtx.Done():
	case <-time.After(cfg.HTTPServer.ShutdownTimeout):
		return errors.New("graceful shutdown timed out.. forcing exit")
	}

	return nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS("migrations"))
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	if _, err = provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

func initRootRouter(logger logger.Logger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(accesslog.Handler(logger))
	router.Use(middleware.Recoverer)
	router.Use(gzip.DefaultHandler().WrapHandler)
	router.Use(unzip.Middleware(logger))

	return router
}
