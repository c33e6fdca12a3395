// Package server wires and runs the campus server: PostgreSQL storage, the
// snapshot hub, the gRPC endpoint, NATS publishing and the metrics endpoint.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/insubria-survive/survive/internal/logging"
	"github.com/insubria-survive/survive/internal/metrics"
	"github.com/insubria-survive/survive/internal/server/config"
	"github.com/insubria-survive/survive/internal/server/hub"
	"github.com/insubria-survive/survive/internal/server/repositories/repomanager"
	"github.com/insubria-survive/survive/internal/server/services"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	gs "github.com/insubria-survive/survive/internal/server/grpc"
)

// TokenPurgeInterval is how often expired refresh tokens are dropped.
const TokenPurgeInterval = time.Hour

type tokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	nats      *nats.Conn
	registry  *prometheus.Registry
	metrics   *metrics.Server
	users     *services.UserService
	documents *services.DocumentService
	hub       *hub.Hub
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(slog.LevelInfo)

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	app := &App{
		config:    c,
		logger:    logger,
		db:        db,
		registry:  prometheus.NewRegistry(),
		users:     services.NewUserService(db, rm, c),
		documents: services.NewDocumentService(db, rm),
	}
	app.metrics = metrics.NewServer(app.registry)

	if c.AccountsFile != "" {
		accounts, err := services.LoadAccounts(c.AccountsFile)
		if err != nil {
			app.Close()
			return nil, err
		}
		if err := app.users.Provision(ctx, accounts...); err != nil {
			app.Close()
			return nil, err
		}
		logger.Info(ctx, "Accounts provisioned", "count", len(accounts))
	}

	var publishers []hub.Publisher
	if c.NatsURL != "" {
		nc, err := hub.ConnectNats(c.NatsURL)
		if err != nil {
			logger.Warn(ctx, "NATS publishing disabled", "error", err)
		} else {
			app.nats = nc
			publishers = append(publishers, hub.NewNatsPublisher(nc))
		}
	}

	app.hub = hub.New(app.documents, logger, app.metrics, publishers...)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.users, app.documents, app.hub, app.metrics, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHub(ctx context.Context, cancelFunc context.CancelFunc) {

	l, err := hub.ListenPostgres(ctx, app.config.DatabaseDSN, hub.Channel)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}
	defer func() { _ = l.Close(context.Background()) }()

	if err := app.hub.Run(ctx, l); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// serveMetrics exposes the registry on /metrics until ctx is done.
func serveMetrics(ctx context.Context, lis net.Listener, g prometheus.Gatherer, l logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	l.Info(ctx, "Starting metrics server", "address", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) startMetricsServer(ctx context.Context) {
	if app.config.MetricsAddr == "" {
		return
	}
	lis, err := net.Listen("tcp", app.config.MetricsAddr)
	if err != nil {
		app.logger.Error(ctx, "metrics endpoint disabled", "error", err)
		return
	}
	if err := serveMetrics(ctx, lis, app.registry, app.logger); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}

// purgeTokens drops expired refresh tokens every interval until ctx is done.
func purgeTokens(ctx context.Context, p tokenPurger, interval time.Duration, l logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpiredTokens(ctx)
			if err != nil {
				l.Warn(ctx, "token purge failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info(ctx, "expired refresh tokens purged", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(4)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHub(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startMetricsServer(ctx)
	}()
	go func() {
		defer wg.Done()
		purgeTokens(ctx, app.users, TokenPurgeInterval, app.logger)
	}()

	wg.Wait()

	app.Close()
	app.logger.Info(context.Background(), "Stopped")
}

// Close releases the database and NATS connections.
func (app *App) Close() {
	if app.nats != nil {
		app.nats.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
