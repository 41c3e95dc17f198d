package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/aarluxe/pos-cart/api/routes"
	"github.com/aarluxe/pos-cart/internal/checkout"
	"github.com/aarluxe/pos-cart/internal/customers"
	"github.com/aarluxe/pos-cart/internal/notifications"
	"github.com/aarluxe/pos-cart/internal/orders"
	"github.com/aarluxe/pos-cart/internal/pricing"
	"github.com/aarluxe/pos-cart/internal/reconcile"
	"github.com/aarluxe/pos-cart/internal/snapshot"
	"github.com/aarluxe/pos-cart/pkg/config"
	"github.com/aarluxe/pos-cart/pkg/db"
	"github.com/aarluxe/pos-cart/pkg/logger"
	"github.com/aarluxe/pos-cart/pkg/metrics"
	"github.com/aarluxe/pos-cart/pkg/migrate"
	"github.com/aarluxe/pos-cart/pkg/posapi"
	"github.com/aarluxe/pos-cart/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

// Service owns the long-lived pieces of one terminal bridge.
type Service struct {
	cfg    *config.Config
	logg   *logger.Logger
	db     *db.Client
	redis  *redis.Client
	engine *reconcile.Engine
	server *http.Server
}

// NewService connects the configured backends, restores the last cart
// snapshot and builds the HTTP server.
func NewService(ctx context.Context, cfg *config.Config, logg *logger.Logger) (_ *Service, err error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	s := &Service{cfg: cfg, logg: logg}
	defer func() {
		if err != nil {
			err = multierr.Append(err, s.Close())
		}
	}()

	if cfg.Redis.Configured() {
		if s.redis, err = redis.New(ctx, cfg.Redis, logg); err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
	}
	if usesDatabase(cfg.Snapshot) {
		if s.db, err = db.New(ctx, cfg.DB, logg); err != nil {
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
	}

	store, err := snapshotStore(ctx, cfg.Snapshot, cfg.DB.AutoMigrate, s.redis, s.db)
	if err != nil {
		return nil, err
	}

	api, err := posapi.NewFromConfig(cfg.POSAPI)
	if err != nil {
		return nil, fmt.Errorf("build pos api client: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cartMetrics := metrics.NewCartMetrics(reg)

	notifier := notifications.NewService(cfg.Notifications.DefaultDuration)
	selection := customers.NewSelection()

	s.engine, err = reconcile.New(reconcile.Options{
		Quoter:     pricing.NewClient(api, cfg.POSAPI.QuotePath),
		Notifier:   notifier,
		Store:      store,
		TerminalID: cfg.Snapshot.TerminalID,
		Metrics:    cartMetrics,
		Logger:     logg,
		Debounce:   cfg.Quote.Debounce,
		AutoQuote:  cfg.Quote.AutoQuote,
	})
	if err != nil {
		return nil, err
	}
	if err = s.engine.Restore(ctx); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "cart snapshot not restored")
		err = nil
	}
	s.engine.Follow(selection)

	checkoutService, err := checkout.NewService(s.engine, orders.NewClient(api, cfg.POSAPI.SubmitPath), notifier, cartMetrics, logg)
	if err != nil {
		return nil, err
	}

	var dbPinger interface {
		Ping(context.Context) error
	}
	if s.db != nil {
		dbPinger = s.db
	}

	s.server = &http.Server{
		Addr: listenAddr(cfg.App),
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbPinger,
			s.redis,
			promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			s.engine,
			selection,
			checkoutService,
			notifier,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Run serves HTTP and drives background quotes until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	quotesDone := make(chan error, 1)
	go func() {
		quotesDone <- s.engine.Run(runCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logCtx := s.logg.WithFields(runCtx, map[string]any{
			"env":  s.cfg.App.Env,
			"addr": s.server.Addr,
		})
		s.logg.Info(logCtx, "starting pos bridge")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	err = multierr.Append(err, s.server.Shutdown(shutdownCtx))
	if quoteErr := <-quotesDone; quoteErr != nil && !errors.Is(quoteErr, context.Canceled) {
		err = multierr.Append(err, quoteErr)
	}
	return err
}

// Close releases backend connections.
func (s *Service) Close() error {
	var err error
	if s.redis != nil {
		err = multierr.Append(err, s.redis.Close())
	}
	if s.db != nil {
		err = multierr.Append(err, s.db.Close())
	}
	return err
}

func usesDatabase(cfg config.SnapshotConfig) bool {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case config.SnapshotDriverSQLite, config.SnapshotDriverPostgres:
		return true
	}
	return false
}

func snapshotStore(ctx context.Context, cfg config.SnapshotConfig, autoMigrate bool, redisClient *redis.Client, dbClient *db.Client) (snapshot.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", config.SnapshotDriverNone:
		return snapshot.NopStore{}, nil
	case config.SnapshotDriverRedis:
		if redisClient == nil {
			return nil, errors.New("redis snapshot driver requires a redis connection")
		}
		return snapshot.NewRedisStore(redisClient, cfg.TTL), nil
	case config.SnapshotDriverSQLite, config.SnapshotDriverPostgres:
		if dbClient == nil {
			return nil, fmt.Errorf("%s snapshot driver requires a database connection", cfg.Driver)
		}
		if autoMigrate {
			sqlDB, err := dbClient.DB().DB()
			if err != nil {
				return nil, fmt.Errorf("extracting sql.DB: %w", err)
			}
			if err := migrate.Up(ctx, sqlDB, strings.ToLower(strings.TrimSpace(cfg.Driver))); err != nil {
				return nil, fmt.Errorf("migrate cart snapshots: %w", err)
			}
		}
		return snapshot.NewGormStore(dbClient, cfg.TTL), nil
	}
	return nil, fmt.Errorf("unsupported snapshot driver %q", cfg.Driver)
}

func listenAddr(app config.AppConfig) string {
	port := os.Getenv("PORT")
	if port == "" {
		port = app.Port
	}
	return ":" + port
}
