package store

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/game-finalizer/internal/domain"
)

func TestMemoryStoreKeepsExplicitIDsAhead(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	explicit := domain.NewGame("importado")
	explicit.SetID(10)
	if err := m.Persist(ctx, explicit); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	next := domain.NewGame("novo")
	if err := m.Persist(ctx, next); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if next.ID() != 11 {
		t.Fatalf("expected id 11 after explicit 10, got %d", next.ID())
	}
}

func TestMemoryStoreGet(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	g := domain.NewGame("Jogo")
	if err := m.Persist(ctx, g); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, err := m.Get(ctx, g.ID())
	if err != nil || got == nil {
		t.Fatalf("Get: %v %v", got, err)
	}
	got.Finalize()
	again, _ := m.Get(ctx, g.ID())
	if again.IsFinalized() {
		t.Fatalf("Get must return a copy")
	}
	if missing, err := m.Get(ctx, 404); missing != nil || !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v %v", missing, err)
	}
}

func TestMemoryStoreRejectsNil(t *testing.T) {
	m := NewMemoryStore()
	if err := m.Persist(context.Background(), nil); err == nil {
		t.Fatalf("expected error")
	}
	if err := m.Update(context.Background(), nil); err == nil {
		t.Fatalf("expected error")
	}
}
