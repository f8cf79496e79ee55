package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/attnlab/dopamind/internal/api"
	"github.com/attnlab/dopamind/internal/app/analytics"
	"github.com/attnlab/dopamind/internal/app/gamification"
	"github.com/attnlab/dopamind/internal/app/ranking"
	"github.com/attnlab/dopamind/internal/domain"
	"github.com/attnlab/dopamind/internal/health"
	"github.com/attnlab/dopamind/internal/infra/eventbus"
	"github.com/attnlab/dopamind/internal/infra/memstore"
	"github.com/attnlab/dopamind/internal/infra/metrics"
	"github.com/attnlab/dopamind/internal/infra/postgres"
	"github.com/attnlab/dopamind/internal/infra/redis"
	"github.com/attnlab/dopamind/internal/infra/sqlite"
)

// Daemon is the dopamind runtime. It is the single place where the engine
// is constructed and its subscribers are wired.
type Daemon struct {
	Config  Config
	Logger  *slog.Logger
	DB      *sqlite.DB
	Store   domain.KVStore
	Bus     *eventbus.Bus
	Engine  *gamification.Engine
	Tracker *analytics.Tracker
	Ranking domain.RankingProvider
	Hub     *api.EventHub
	Health  *health.Checker
	Server  *api.Server

	redis       *redis.Client
	postgres    *postgres.Store
	forgetScore func(context.Context) error
	unsubs      []func()
	cancel      context.CancelFunc
	closeOnce   sync.Once
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	return newDaemon(cfg, dopamindHome(), NewLogger(cfg.Logging))
}

func newDaemon(cfg Config, home string, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Daemon{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	// SQLite always backs analytics; it is also the default progress store.
	db, err := sqlite.Open(home)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	d.DB = db

	if err := d.openStore(); err != nil {
		return nil, err
	}

	d.Bus = eventbus.New(logger.With("component", "bus"))

	if err := d.attach(metrics.Attach(d.Bus)); err != nil {
		return nil, err
	}

	if cfg.Analytics.Enabled {
		d.Tracker = analytics.NewTracker(d.DB, cfg.Analytics.MaxEvents, logger)
		if err := d.attach(d.Tracker.Attach(d.Bus)); err != nil {
			return nil, err
		}
	}

	if err := d.openRanking(); err != nil {
		return nil, err
	}

	d.Hub = api.NewEventHub()
	if err := d.attach(d.Hub.Attach(d.Bus)); err != nil {
		return nil, err
	}

	d.Engine = gamification.New(d.Store, d.Bus,
		gamification.WithLogger(logger),
		gamification.WithRequiredPages(cfg.Engine.RequiredPages),
		gamification.WithLegacySync(cfg.Engine.LegacySync),
		gamification.WithResetHook(d.onReset),
	)
	if perr := d.Engine.PersistenceErr(); perr != nil {
		logger.Warn("starting from a fresh state", "error", perr)
	}

	checks := []health.Check{
		health.StoreCheck("sqlite", d.DB),
		health.PersistenceCheck(d.Engine),
		health.DataDirCheck(home),
	}
	switch {
	case d.redis != nil:
		checks = append(checks, health.StoreCheck("redis", d.redis))
	case d.postgres != nil:
		checks = append(checks, health.StoreCheck("postgres", d.postgres))
	}
	d.Health = health.NewChecker(parseDuration(cfg.Health.Interval, health.DefaultInterval), checks...)

	srv := api.NewServer(d.Engine, "")
	srv.SetLogger(logger)
	srv.SetCORSOrigins(cfg.API.CORSOrigins)
	srv.SetRanking(d.Ranking, cfg.Ranking.Limit)
	srv.SetHealth(d.Health)
	srv.SetEventHub(d.Hub)
	if d.Tracker != nil {
		srv.SetAnalytics(d.Tracker)
	}
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	d.Server = srv

	ok = true
	return d, nil
}

// onReset clears the user's row on a shared leaderboard.
func (d *Daemon) onReset() {
	if d.forgetScore == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.forgetScore(ctx); err != nil {
		d.Logger.Warn("leaderboard reset failed", "error", err)
	}
}

// openStore selects the progress store backend.
func (d *Daemon) openStore() error {
	switch d.Config.Store.Backend {
	case BackendSQLite:
		d.Store = d.DB
	case BackendMemory:
		d.Store = memstore.New()
	case BackendRedis:
		c, err := d.openRedis()
		if err != nil {
			return err
		}
		d.Store = redis.NewStore(c)
	case BackendPostgres:
		pgCfg := postgres.DefaultConfig()
		pgCfg.DSN = d.Config.Postgres.DSN
		if d.Config.Postgres.MaxConns > 0 {
			pgCfg.MaxConns = d.Config.Postgres.MaxConns
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pg, err := postgres.Open(ctx, pgCfg)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		d.postgres = pg
		d.Store = pg
	default:
		return fmt.Errorf("%w: store %q", domain.ErrUnknownBackend, d.Config.Store.Backend)
	}
	d.Logger.Info("progress store ready", "backend", d.Config.Store.Backend)
	return nil
}

// openRanking selects the leaderboard provider.
func (d *Daemon) openRanking() error {
	rc := d.Config.Ranking
	switch rc.Backend {
	case RankingStatic:
		d.Ranking = ranking.NewStatic(rc.Roster, rc.UserName)
	case RankingRedis:
		c, err := d.openRedis()
		if err != nil {
			return err
		}
		p := ranking.NewRedis(redis.NewLeaderboard(c, rc.Board), rc.Member, rc.UserName)
		if err := d.attach(ranking.AttachRecorder(d.Bus, p, d.Logger.With("component", "ranking"))); err != nil {
			return err
		}
		d.forgetScore = p.ForgetScore
		d.Ranking = p
	default:
		return fmt.Errorf("%w: ranking %q", domain.ErrUnknownBackend, rc.Backend)
	}
	return nil
}

// openRedis connects once; the store and the leaderboard share the client.
func (d *Daemon) openRedis() (*redis.Client, error) {
	if d.redis != nil {
		return d.redis, nil
	}
	rc := redis.DefaultConfig()
	rc.Addr = d.Config.Redis.Addr
	rc.Password = d.Config.Redis.Password
	rc.DB = d.Config.Redis.DB
	if d.Config.Redis.Prefix != "" {
		rc.Prefix = d.Config.Redis.Prefix
	}
	c, err := redis.Open(rc)
	if err != nil {
		return nil, fmt.Errorf("open redis: %w", err)
	}
	d.redis = c
	return c, nil
}

func (d *Daemon) attach(unsub func(), err error) error {
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	d.unsubs = append(d.unsubs, unsub)
	return nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     d.Server.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 2 * time.Minute,
		// No WriteTimeout: the event feed is a long-lived stream. Request
		// contexts derive from ctx so open streams end on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("dopamind serving on http://%s\n", addr)
	fmt.Printf("  Store:   %s\n", d.Config.Store.Backend)
	fmt.Printf("  Ranking: %s\n", d.Config.Ranking.Backend)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	d.Logger.Info("server stopped")
	return nil
}

// SetVersion sets the version reported by /api/status.
func (d *Daemon) SetVersion(version string) { d.Server.SetVersion(version) }

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	d.closeOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		for _, unsub := range d.unsubs {
			unsub()
		}
		if d.Bus != nil {
			_ = d.Bus.Close()
		}
		if d.redis != nil {
			_ = d.redis.Close()
		}
		if d.postgres != nil {
			_ = d.postgres.Close()
		}
		if d.DB != nil {
			_ = d.DB.Close()
		}
	})
}
