package appbuilder

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/game-finalizer/internal/config"
	"github.com/park285/game-finalizer/internal/finalizer"
	"github.com/park285/game-finalizer/internal/msgcat"
	"github.com/park285/game-finalizer/internal/notify"
	"github.com/park285/game-finalizer/internal/service/games"
	"github.com/park285/game-finalizer/internal/store"
)

type Deps struct {
	Store     finalizer.Store
	Sender    notify.Sender
	Notifier  *notify.Notifier
	Catalog   *msgcat.Catalog
	Finalizer *finalizer.Finalizer
	Scheduler *finalizer.Scheduler
	Games     *games.Service

	closers []func() error
}

// New wires the store, notifier and finalizer described by cfg.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("init messages: %w", err)
	}
	d.Catalog = cat

	if err := d.openStore(ctx, cfg); err != nil {
		_ = d.Close()
		return nil, err
	}

	sender, err := notify.NewSender(cfg.NotifyMode, notify.Endpoints{
		BaseURL: cfg.NotifyBaseURL,
		WSURL:   cfg.NotifyWSURL,
		APIKey:  cfg.NotifyAPIKey,
		Timeout: cfg.NotifyTimeout,
	}, logger)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("init notifier: %w", err)
	}
	if c, ok := sender.(interface{ Close() error }); ok {
		d.closers = append(d.closers, c.Close)
	}
	if p, ok := sender.(interface{ Ping(context.Context) error }); ok {
		// gateway may come up later; sends report their own errors
		if err := p.Ping(ctx); err != nil {
			logger.Warn("notify_ping_failed", zap.Error(err))
		}
	}
	d.Sender = sender
	d.Notifier = notify.NewNotifier(sender, notify.WithRenderer(cat), notify.WithLogger(logger))

	d.Finalizer = finalizer.New(d.Store, d.Notifier,
		finalizer.WithLogger(logger),
		finalizer.WithStaleDays(cfg.FinalizeStaleDays),
	)
	d.Scheduler, err = finalizer.NewScheduler(d.Finalizer, cfg.FinalizeSchedule, logger)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	d.Games, err = games.NewService(d.Store, cat, logger)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	logger.Info("deps_ready",
		zap.String("store", cfg.StoreBackend),
		zap.String("notify", cfg.NotifyMode),
		zap.String("schedule", cfg.FinalizeSchedule),
		zap.Int("stale_days", cfg.FinalizeStaleDays),
	)
	return d, nil
}

func (d *Deps) openStore(ctx context.Context, cfg *config.AppConfig) error {
	switch cfg.StoreBackend {
	case config.BackendMemory, "":
		d.Store = store.NewMemoryStore()
	case config.BackendPostgres:
		pg, err := store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		d.Store = pg
	case config.BackendRedis:
		rs, err := store.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, rs.Close)
		d.Store = rs
	default:
		return fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	return nil
}

// Close releases connections in reverse order of opening.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
