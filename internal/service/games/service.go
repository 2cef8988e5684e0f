package games

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/game-finalizer/internal/domain"
	"github.com/park285/game-finalizer/internal/finalizer"
	"github.com/park285/game-finalizer/internal/gamebuilder"
	"github.com/park285/game-finalizer/internal/judge"
)

var ErrGameNotFound = domain.ErrGameNotFound

// getter is implemented by stores that can load a single game by id.
type getter interface {
	Get(ctx context.Context, id int64) (*domain.Game, error)
}

// SummaryKey is the catalog key used by Judge.
const SummaryKey = "judge.summary"

// Renderer renders catalog templates; *msgcat.Catalog satisfies it.
type Renderer interface {
	Render(key string, data any) (string, error)
}

// Service covers the day-to-day operations on games: creating them, recording
// results, listing, judging and renaming.
type Service struct {
	store    finalizer.Store
	renderer Renderer
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store finalizer.Store, renderer Renderer, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("nil store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, renderer: renderer, logger: logger, now: time.Now}, nil
}

// Create persists a new in-progress game dated now.
func (s *Service) Create(ctx context.Context, description string) (*domain.Game, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, gamebuilder.ErrMissingDescription
	}
	g, err := gamebuilder.New().For(description).On(s.now()).Build()
	if err != nil {
		return nil, err
	}
	if err := s.store.Persist(ctx, g); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	s.logger.Info("game_create", zap.Int64("game_id", g.ID()), zap.String("description", g.Description()))
	return g, nil
}

// Record applies the recording policy to a stored game and persists it. It
// reports whether the result was kept.
func (s *Service) Record(ctx context.Context, id int64, p domain.Participant, metric float64) (bool, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	before := len(g.Results())
	g.Record(domain.NewResult(p, metric))
	if len(g.Results()) == before {
		s.logger.Debug("game_result_dropped", zap.Int64("game_id", id), zap.String("participant", p.Name))
		return false, nil
	}
	if err := s.store.Persist(ctx, g); err != nil {
		return false, fmt.Errorf("record result: %w", err)
	}
	return true, nil
}

// List returns in-progress games followed by finalized ones.
func (s *Service) List(ctx context.Context) ([]*domain.Game, error) {
	open, err := s.store.ListInProgress(ctx)
	if err != nil {
		return nil, err
	}
	done, err := s.store.ListFinalized(ctx)
	if err != nil {
		return nil, err
	}
	return append(open, done...), nil
}

// Get loads one game. Stores without a direct lookup are scanned.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Game, error) {
	if gs, ok := s.store.(getter); ok {
		return gs.Get(ctx, id)
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range all {
		if g.ID() == id {
			return g, nil
		}
	}
	return nil, fmt.Errorf("game %d: %w", id, ErrGameNotFound)
}

// Judge evaluates a stored game and renders the ranking summary.
func (s *Service) Judge(ctx context.Context, id int64) (judge.Ranking, string, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return judge.Ranking{}, "", err
	}
	r, err := judge.New().Evaluate(g)
	if err != nil {
		return judge.Ranking{}, "", fmt.Errorf("judge game %d: %w", id, err)
	}
	first := strconv.FormatFloat(r.First, 'f', -1, 64)
	last := strconv.FormatFloat(r.Last, 'f', -1, 64)
	summary := fmt.Sprintf("%s: highest %s, lowest %s", g.Description(), first, last)
	if s.renderer != nil {
		text, err := s.renderer.Render(SummaryKey, map[string]any{"Game": g.Description(), "First": first, "Last": last})
		if err == nil {
			summary = text
		} else {
			s.logger.Warn("judge_render_failed", zap.Error(err))
		}
	}
	return r, summary, nil
}

// Rename changes the description of a stored game.
func (s *Service) Rename(ctx context.Context, id int64, description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return gamebuilder.ErrMissingDescription
	}
	g, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	b := gamebuilder.New().For(description).WithID(id).On(g.Date())
	if g.IsFinalized() {
		b.Finalized()
	}
	renamed, err := b.Build()
	if err != nil {
		return err
	}
	if err := s.store.Update(ctx, renamed); err != nil {
		return fmt.Errorf("rename game %d: %w", id, err)
	}
	s.logger.Info("game_rename", zap.Int64("game_id", id), zap.String("description", description))
	return nil
}
