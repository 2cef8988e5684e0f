package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/park285/game-finalizer/internal/domain"
)

// MemoryStore keeps games in process memory. Games are stored and handed out
// as clones, so callers never share state with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	games  map[int64]*domain.Game
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[int64]*domain.Game)}
}

// Persist inserts g, assigning an id when it has none, or replaces the stored
// copy with the same id.
func (m *MemoryStore) Persist(ctx context.Context, g *domain.Game) error {
	if g == nil {
		return fmt.Errorf("nil game payload")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if g.ID() == 0 {
		m.nextID++
		g.SetID(m.nextID)
	} else if g.ID() > m.nextID {
		m.nextID = g.ID()
	}
	m.games[g.ID()] = g.Clone()
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, g *domain.Game) error {
	if g == nil {
		return fmt.Errorf("nil game payload")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.games[g.ID()]
	if !ok {
		return fmt.Errorf("update game %d: %w", g.ID(), ErrGameNotFound)
	}
	// field write-back only; stored results are kept
	next := toRecord(cur)
	next.Description = g.Description()
	next.setDate(g.Date())
	next.Finalized = g.IsFinalized()
	m.games[g.ID()] = next.toGame()
	return nil
}

func (m *MemoryStore) ListInProgress(ctx context.Context) ([]*domain.Game, error) {
	return m.list(false), nil
}

func (m *MemoryStore) ListFinalized(ctx context.Context) ([]*domain.Game, error) {
	return m.list(true), nil
}

// Get returns a copy of the game with id.
func (m *MemoryStore) Get(ctx context.Context, id int64) (*domain.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, fmt.Errorf("get game %d: %w", id, ErrGameNotFound)
	}
	return g.Clone(), nil
}

func (m *MemoryStore) list(finalized bool) []*domain.Game {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Game, 0, len(m.games))
	for _, g := range m.games {
		if g.IsFinalized() == finalized {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
