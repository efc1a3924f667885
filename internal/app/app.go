// Package app assembles the portal from a resolved configuration: it opens
// the KV substrate, runs migrations for SQL backends and wires the record
// store, authentication and portal services together.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"maptss.ao/internal/audit"
	"maptss.ao/internal/auth"
	"maptss.ao/internal/config"
	"maptss.ao/internal/ids"
	"maptss.ao/internal/kv"
	"maptss.ao/internal/migrate"
	"maptss.ao/internal/notify"
	"maptss.ao/internal/obs"
	"maptss.ao/internal/portal"
	"maptss.ao/internal/repo"
	"maptss.ao/internal/store"
)

// App is a fully wired portal instance.
type App struct {
	Config  config.Config
	KV      kv.Store
	Repos   *repo.Repos
	Auth    *auth.Service
	Portal  *portal.Service
	Hub     *notify.Hub
	Logger  *slog.Logger
	closers []io.Closer
}

// Option tweaks wiring; used by tests to pin time and ids.
type Option func(*options)

type options struct {
	substrate kv.Store
	now       func() time.Time
	gen       ids.Generator
}

// WithSubstrate skips opening storage from config and uses s instead.
func WithSubstrate(s kv.Store) Option {
	return func(o *options) { o.substrate = s }
}

// WithClock sets the clock shared by every service.
func WithClock(fn func() time.Time) Option {
	return func(o *options) { o.now = fn }
}

// WithIDGenerator sets the id source shared by every service.
func WithIDGenerator(gen ids.Generator) Option {
	return func(o *options) { o.gen = gen }
}

// New opens storage for cfg and wires the services. Logging goes through
// obs.Logger; callers must Close the returned App.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{now: time.Now, gen: ids.New}
	for _, opt := range opts {
		opt(&o)
	}

	logger := obs.Logger()
	a := &App{Config: cfg, Logger: logger, Hub: notify.NewHub()}

	substrate := o.substrate
	if substrate == nil {
		var err error
		substrate, err = a.openSubstrate(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	a.KV = substrate

	repos, err := repo.Open(ctx, substrate, cfg.Storage.ActivityCap,
		store.WithClock(o.now),
		store.WithLogger(logger),
		store.WithPrefix(cfg.Storage.Prefix),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open record store: %w", err)
	}
	a.Repos = repos

	recorder, err := audit.NewRecorder(repos.Activities, audit.WithClock(o.now), audit.WithIDGenerator(o.gen))
	if err != nil {
		a.Close()
		return nil, err
	}

	authOpts := []auth.ServiceOption{
		auth.WithClock(o.now),
		auth.WithIDGenerator(o.gen),
		auth.WithRecorder(recorder),
		auth.WithLogger(logger),
		auth.WithSessionTTL(cfg.Auth.SessionTTL),
		auth.WithSecret(cfg.Auth.Secret),
		auth.WithLoginLimit(cfg.Auth.LoginInterval, cfg.Auth.LoginBurst),
	}
	a.Auth, err = auth.NewService(ctx, substrate, authOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("auth service: %w", err)
	}

	a.Portal, err = portal.New(repos,
		portal.WithClock(o.now),
		portal.WithIDGenerator(o.gen),
		portal.WithRecorder(recorder),
		portal.WithHub(a.Hub),
		portal.WithLogger(logger),
		portal.WithNearbyRadius(cfg.Portal.NearbyRadiusKm),
		portal.WithEnrichConcurrency(cfg.Portal.EnrichConcurrency),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("portal service: %w", err)
	}

	logger.Info("portal ready", "storage", cfg.Storage.Type, "collections", len(repos.DB.Collections()))
	return a, nil
}

func (a *App) openSubstrate(ctx context.Context) (kv.Store, error) {
	s := a.Config.Storage
	switch s.Type {
	case config.StorageMemory:
		return kv.NewMemory(), nil
	case config.StorageBadger:
		b, err := kv.OpenBadger(kv.BadgerConfig{Path: s.BadgerPath, Logger: a.Logger})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, b)
		return b, nil
	case config.StorageRedis:
		r, err := kv.OpenRedis(ctx, s.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r)
		return r, nil
	case config.StoragePostgres, config.StorageSQLite:
		dialect := kv.Postgres
		if s.Type == config.StorageSQLite {
			dialect = kv.SQLite
		}
		db, err := kv.OpenSQL(dialect, s.DSN)
		if err != nil {
			return nil, err
		}
		sqlStore := kv.NewSQL(db, dialect)
		a.closers = append(a.closers, sqlStore)
		if err := pingSQL(ctx, db); err != nil {
			return nil, err
		}
		if s.Migrate {
			applied, err := migrate.NewManager(db, dialect).Up(ctx)
			if err != nil {
				return nil, fmt.Errorf("migrate %s: %w", dialect.Name, err)
			}
			if len(applied) > 0 {
				a.Logger.Info("migrations applied", "dialect", dialect.Name, "names", applied)
			}
		}
		return sqlStore, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", s.Type)
	}
}

func pingSQL(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close releases storage handles in reverse opening order.
func (a *App) Close() error {
	var errsList []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errsList = append(errsList, err)
		}
	}
	a.closers = nil
	return errors.Join(errsList...)
}

// Seed loads the demo users and catalogue when storage is empty.
func (a *App) Seed(ctx context.Context) (users int, catalogue bool, err error) {
	users, err = a.Auth.SeedDefaultUsers(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("seed users: %w", err)
	}
	catalogue, err = a.Portal.Seed(ctx)
	if err != nil {
		return users, false, fmt.Errorf("seed catalogue: %w", err)
	}
	return users, catalogue, nil
}
