package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/park285/game-finalizer/internal/domain"
)

const (
	keySeq        = "games:seq"
	keyInProgress = "games:in_progress"
	keyFinalized  = "games:finalized"
)

// RedisStore keeps each game as a JSON document under game:<id> and indexes
// ids in one sorted set per state.
type RedisStore struct{ rdb *redis.Client }

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStore(rdb), nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// raiseSeq lifts games:seq to at least ARGV[1], so ids handed out later never
// collide with explicitly assigned ones.
var raiseSeq = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local id = tonumber(ARGV[1])
if id > cur then
	redis.call('SET', KEYS[1], ARGV[1])
end
return 0`)

func keyGame(id int64) string { return "game:" + strconv.FormatInt(id, 10) }

func (s *RedisStore) Persist(ctx context.Context, g *domain.Game) error {
	if g == nil {
		return fmt.Errorf("nil game payload")
	}
	id := g.ID()
	if id == 0 {
		n, err := s.rdb.Incr(ctx, keySeq).Result()
		if err != nil {
			return fmt.Errorf("allocate game id: %w", err)
		}
		id = n
	}
	rec := toRecord(g)
	rec.ID = id
	if err := s.write(ctx, rec); err != nil {
		return err
	}
	g.SetID(id)
	return nil
}

// Update rewrites description, date and finalized flag of a stored game.
func (s *RedisStore) Update(ctx context.Context, g *domain.Game) error {
	if g == nil {
		return fmt.Errorf("nil game payload")
	}
	rec, err := s.load(ctx, g.ID())
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("update game %d: %w", g.ID(), ErrGameNotFound)
	}
	rec.Description = g.Description()
	rec.setDate(g.Date())
	rec.Finalized = g.IsFinalized()
	return s.write(ctx, *rec)
}

func (s *RedisStore) Get(ctx context.Context, id int64) (*domain.Game, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("get game %d: %w", id, ErrGameNotFound)
	}
	return rec.toGame(), nil
}

func (s *RedisStore) ListInProgress(ctx context.Context) ([]*domain.Game, error) {
	return s.list(ctx, keyInProgress)
}

func (s *RedisStore) ListFinalized(ctx context.Context) ([]*domain.Game, error) {
	return s.list(ctx, keyFinalized)
}

func (s *RedisStore) write(ctx context.Context, rec gameRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal game %d: %w", rec.ID, err)
	}
	add, rem := keyInProgress, keyFinalized
	if rec.Finalized {
		add, rem = keyFinalized, keyInProgress
	}
	member := strconv.FormatInt(rec.ID, 10)
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, keyGame(rec.ID), raw, 0)
		p.ZAdd(ctx, add, redis.Z{Score: float64(rec.ID), Member: member})
		p.ZRem(ctx, rem, member)
		raiseSeq.Eval(ctx, p, []string{keySeq}, rec.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write game %d: %w", rec.ID, err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, id int64) (*gameRecord, error) {
	raw, err := s.rdb.Get(ctx, keyGame(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load game %d: %w", id, err)
	}
	var rec gameRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode game %d: %w", id, err)
	}
	return &rec, nil
}

func (s *RedisStore) list(ctx context.Context, index string) ([]*domain.Game, error) {
	members, err := s.rdb.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", index, err)
	}
	games := make([]*domain.Game, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad member %q in %s: %w", m, index, err)
		}
		rec, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		games = append(games, rec.toGame())
	}
	return games, nil
}
