package finalizer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/game-finalizer/internal/domain"
)

// DefaultStaleDays is the elapsed whole-day count at which a game is closed.
const DefaultStaleDays = 7

// Store supplies games and makes them durable.
type Store interface {
	ListInProgress(ctx context.Context) ([]*domain.Game, error)
	ListFinalized(ctx context.Context) ([]*domain.Game, error)
	Persist(ctx context.Context, g *domain.Game) error
	Update(ctx context.Context, g *domain.Game) error
}

// Notifier tells a winner about their game.
type Notifier interface {
	NotifyWinner(ctx context.Context, winner domain.Participant, description string) error
}

// Finalizer closes stale in-progress games.
type Finalizer struct {
	store     Store
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
	staleDays int

	// at most one sweep in flight
	mu sync.Mutex
}

type Option func(*Finalizer)

func WithClock(now func() time.Time) Option {
	return func(f *Finalizer) { f.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Finalizer) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithStaleDays overrides DefaultStaleDays; non-positive values are ignored.
func WithStaleDays(n int) Option {
	return func(f *Finalizer) {
		if n > 0 {
			f.staleDays = n
		}
	}
}

func New(store Store, notifier Notifier, opts ...Option) *Finalizer {
	f := &Finalizer{
		store:     store,
		notifier:  notifier,
		logger:    zap.NewNop(),
		now:       time.Now,
		staleDays: DefaultStaleDays,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FinalizeStaleGames finalizes, persists and announces every in-progress game
// at least staleDays old. Persist always completes before the winner is
// notified. The first collaborator error stops the sweep and is returned as is,
// along with the number of games fully processed before it.
func (f *Finalizer) FinalizeStaleGames(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	games, err := f.store.ListInProgress(ctx)
	if err != nil {
		f.logger.Error("finalize_list_failed", zap.Error(err))
		return 0, err
	}

	now := f.now()
	total := 0
	for _, g := range games {
		elapsed := ElapsedDays(g.Date(), now)
		if elapsed < f.staleDays {
			continue
		}

		g.Finalize()
		if err := f.store.Persist(ctx, g); err != nil {
			f.logger.Error("finalize_persist_failed", zap.Int64("game_id", g.ID()), zap.Error(err))
			return total, err
		}

		if winner, ok := Winner(g); ok {
			if err := f.notifier.NotifyWinner(ctx, winner, g.Description()); err != nil {
				f.logger.Error("finalize_notify_failed",
					zap.Int64("game_id", g.ID()),
					zap.Int64("winner_id", winner.ID),
					zap.Error(err),
				)
				return total, err
			}
		}

		total++
		f.logger.Info("game_finalized",
			zap.Int64("game_id", g.ID()),
			zap.String("description", g.Description()),
			zap.Int("elapsed_days", elapsed),
			zap.Int("results", len(g.Results())),
		)
	}
	return total, nil
}

// Winner returns the participant of the first result holding the maximum
// metric. ok is false when the game has no results.
func Winner(g *domain.Game) (winner domain.Participant, ok bool) {
	results := g.Results()
	if len(results) == 0 {
		return domain.Participant{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Metric > best.Metric {
			best = r
		}
	}
	return best.Participant, true
}
