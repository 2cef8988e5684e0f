package gamebuilder

import (
	"errors"
	"time"

	"github.com/park285/game-finalizer/internal/domain"
)

// ErrMissingDescription is returned by Build when For was never called.
var ErrMissingDescription = errors.New("gamebuilder: description is required")

// Builder assembles a domain.Game step by step. It stays mutable until Build
// and every Build returns a new, independent Game.
type Builder struct {
	description string
	hasDesc     bool
	id          int64
	date        time.Time
	finalized   bool
	results     []domain.Result
}

func New() *Builder { return &Builder{} }

func (b *Builder) For(description string) *Builder {
	b.description = description
	b.hasDesc = true
	return b
}

func (b *Builder) WithID(id int64) *Builder {
	b.id = id
	return b
}

func (b *Builder) On(date time.Time) *Builder {
	b.date = date
	return b
}

// Result queues a result. Queued results go through Game.Record at build time,
// so the recording policy applies exactly as it does on a live game.
func (b *Builder) Result(p domain.Participant, metric float64) *Builder {
	b.results = append(b.results, domain.NewResult(p, metric))
	return b
}

func (b *Builder) Finalized() *Builder {
	b.finalized = true
	return b
}

func (b *Builder) ID() int64         { return b.id }
func (b *Builder) IsFinalized() bool { return b.finalized }

func (b *Builder) Build() (*domain.Game, error) {
	if !b.hasDesc {
		return nil, ErrMissingDescription
	}
	g := domain.NewGameAt(b.description, b.date)
	g.SetID(b.id)
	for _, r := range b.results {
		g.Record(r)
	}
	if b.finalized {
		g.Finalize()
	}
	return g, nil
}

// MustBuild is Build for fixtures; it panics when the description is missing.
func (b *Builder) MustBuild() *domain.Game {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
