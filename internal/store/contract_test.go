package store

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/game-finalizer/internal/domain"
	"github.com/park285/game-finalizer/internal/finalizer"
	"github.com/park285/game-finalizer/internal/gamebuilder"
)

type storeUnderTest interface {
	finalizer.Store
	Get(ctx context.Context, id int64) (*domain.Game, error)
}

func newRedisTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

// runContract exercises the behaviour every Store backend must share.
func runContract(t *testing.T, newStore func(t *testing.T) storeUnderTest) {
	ctx := context.Background()
	date := time.Date(2025, time.January, 15, 9, 30, 0, 0, time.UTC)

	t.Run("persist assigns ids and lists in progress", func(t *testing.T) {
		s := newStore(t)
		a := domain.NewGame("Basquete")
		b := domain.NewGame("Volei")
		require.NoError(t, s.Persist(ctx, a))
		require.NoError(t, s.Persist(ctx, b))
		assert.NotZero(t, a.ID())
		assert.NotEqual(t, a.ID(), b.ID())

		games, err := s.ListInProgress(ctx)
		require.NoError(t, err)
		require.Len(t, games, 2)
		assert.Equal(t, "Basquete", games[0].Description())
		assert.Equal(t, "Volei", games[1].Description())

		done, err := s.ListFinalized(ctx)
		require.NoError(t, err)
		assert.Empty(t, done)
	})

	t.Run("persist keeps results and date", func(t *testing.T) {
		s := newStore(t)
		p1 := domain.NewParticipantWithID(1, "Jogador 1")
		p2 := domain.NewParticipantWithID(2, "")
		g := gamebuilder.New().For("Com Resultados").On(date).Result(p1, 95.5).Result(p2, 80).MustBuild()
		require.NoError(t, s.Persist(ctx, g))

		games, err := s.ListInProgress(ctx)
		require.NoError(t, err)
		require.Len(t, games, 1)
		got := games[0]
		assert.True(t, got.Date().Equal(date), "date %v", got.Date())
		rs := got.Results()
		require.Len(t, rs, 2)
		assert.True(t, rs[0].Participant.Equal(p1))
		assert.Equal(t, 95.5, rs[0].Metric)
		assert.True(t, rs[1].Participant.Equal(p2))
	})

	t.Run("persist again moves finalized game", func(t *testing.T) {
		s := newStore(t)
		g := domain.NewGame("Jogo Teste")
		require.NoError(t, s.Persist(ctx, g))
		id := g.ID()
		g.Finalize()
		require.NoError(t, s.Persist(ctx, g))
		assert.Equal(t, id, g.ID())

		inProgress, err := s.ListInProgress(ctx)
		require.NoError(t, err)
		assert.Empty(t, inProgress)
		done, err := s.ListFinalized(ctx)
		require.NoError(t, err)
		require.Len(t, done, 1)
		assert.Equal(t, id, done[0].ID())
		assert.True(t, done[0].IsFinalized())
	})

	t.Run("stored games are snapshots", func(t *testing.T) {
		s := newStore(t)
		g := domain.NewGame("snapshot")
		require.NoError(t, s.Persist(ctx, g))
		g.Finalize()
		g.Record(domain.NewResult(domain.NewParticipant("late"), 1))

		games, err := s.ListInProgress(ctx)
		require.NoError(t, err)
		require.Len(t, games, 1)
		assert.Empty(t, games[0].Results())
	})

	t.Run("update writes fields and keeps results", func(t *testing.T) {
		s := newStore(t)
		g := gamebuilder.New().For("antes").On(date).Result(domain.NewParticipant("A"), 1).MustBuild()
		require.NoError(t, s.Persist(ctx, g))

		changed := gamebuilder.New().For("Jogo Atualizado").WithID(g.ID()).On(date).Finalized().MustBuild()
		require.NoError(t, s.Update(ctx, changed))

		done, err := s.ListFinalized(ctx)
		require.NoError(t, err)
		require.Len(t, done, 1)
		assert.Equal(t, "Jogo Atualizado", done[0].Description())
		assert.Len(t, done[0].Results(), 1)
	})

	t.Run("update of unknown game", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(ctx, gamebuilder.New().For("ghost").WithID(99).MustBuild())
		assert.True(t, errors.Is(err, ErrGameNotFound), "got %v", err)
	})

	t.Run("get by id", func(t *testing.T) {
		s := newStore(t)
		g := gamebuilder.New().For("Jogo").On(date).Result(domain.NewParticipantWithID(1, "A"), 3).MustBuild()
		require.NoError(t, s.Persist(ctx, g))

		got, err := s.Get(ctx, g.ID())
		require.NoError(t, err)
		assert.Equal(t, "Jogo", got.Description())
		assert.Len(t, got.Results(), 1)

		_, err = s.Get(ctx, g.ID()+100)
		assert.True(t, errors.Is(err, ErrGameNotFound), "got %v", err)
	})

	t.Run("stored date keeps its zone across DST", func(t *testing.T) {
		ny, err := time.LoadLocation("America/New_York")
		if err != nil {
			t.Skipf("tzdata unavailable: %v", err)
		}
		s := newStore(t)
		// 2025-03-09 springs forward: a calendar week of 167 hours
		played := time.Date(2025, time.March, 5, 12, 0, 0, 0, ny)
		now := time.Date(2025, time.March, 12, 12, 0, 0, 0, ny)
		g := gamebuilder.New().For("dst").On(played).Result(domain.NewParticipantWithID(1, "A"), 1).MustBuild()
		require.NoError(t, s.Persist(ctx, g))

		got, err := s.Get(ctx, g.ID())
		require.NoError(t, err)
		assert.Equal(t, "America/New_York", got.Date().Location().String())
		assert.Equal(t, 7, finalizer.ElapsedDays(got.Date(), now))

		f := finalizer.New(s, &recordingNotifier{}, finalizer.WithClock(func() time.Time { return now }))
		count, err := f.FinalizeStaleGames(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("update keeps the new zone", func(t *testing.T) {
		ny, err := time.LoadLocation("America/New_York")
		if err != nil {
			t.Skipf("tzdata unavailable: %v", err)
		}
		s := newStore(t)
		g := gamebuilder.New().For("zona").On(date).MustBuild()
		require.NoError(t, s.Persist(ctx, g))

		moved := gamebuilder.New().For("zona").WithID(g.ID()).On(date.In(ny)).MustBuild()
		require.NoError(t, s.Update(ctx, moved))
		got, err := s.Get(ctx, g.ID())
		require.NoError(t, err)
		assert.Equal(t, "America/New_York", got.Date().Location().String())
	})

	t.Run("finalizer sweep against store", func(t *testing.T) {
		s := newStore(t)
		now := time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC)
		old := gamebuilder.New().For("old").On(now.AddDate(0, 0, -8)).
			Result(domain.NewParticipantWithID(1, "A"), 2).
			Result(domain.NewParticipantWithID(2, "B"), 7).MustBuild()
		fresh := gamebuilder.New().For("fresh").On(now.AddDate(0, 0, -1)).MustBuild()
		require.NoError(t, s.Persist(ctx, old))
		require.NoError(t, s.Persist(ctx, fresh))

		n := &recordingNotifier{}
		f := finalizer.New(s, n, finalizer.WithClock(func() time.Time { return now }))
		count, err := f.FinalizeStaleGames(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, []string{"B:old"}, n.sent)

		done, err := s.ListFinalized(ctx)
		require.NoError(t, err)
		require.Len(t, done, 1)
		assert.Equal(t, "old", done[0].Description())
		inProgress, err := s.ListInProgress(ctx)
		require.NoError(t, err)
		require.Len(t, inProgress, 1)
		assert.Equal(t, "fresh", inProgress[0].Description())
	})
}

type recordingNotifier struct{ sent []string }

func (r *recordingNotifier) NotifyWinner(ctx context.Context, w domain.Participant, description string) error {
	r.sent = append(r.sent, w.Name+":"+description)
	return nil
}

func TestMemoryStoreContract(t *testing.T) {
	runContract(t, func(t *testing.T) storeUnderTest { return NewMemoryStore() })
}

func TestRedisStoreContract(t *testing.T) {
	runContract(t, func(t *testing.T) storeUnderTest {
		s, _ := newRedisTestStore(t)
		return s
	})
}
