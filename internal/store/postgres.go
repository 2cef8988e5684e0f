package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/game-finalizer/internal/domain"
)

// Schema creates the tables PostgresStore needs.
const Schema = `
CREATE TABLE IF NOT EXISTS games (
	id          BIGSERIAL PRIMARY KEY,
	description TEXT        NOT NULL,
	played_at   TIMESTAMPTZ NOT NULL,
	zone        TEXT        NOT NULL DEFAULT '',
	finalized   BOOLEAN     NOT NULL DEFAULT FALSE
);
ALTER TABLE games ADD COLUMN IF NOT EXISTS zone TEXT NOT NULL DEFAULT '';
CREATE INDEX IF NOT EXISTS games_finalized_idx ON games (finalized, id);
CREATE TABLE IF NOT EXISTS game_results (
	game_id          BIGINT           NOT NULL REFERENCES games (id) ON DELETE CASCADE,
	position         INTEGER          NOT NULL,
	participant_id   BIGINT           NOT NULL,
	participant_name TEXT,
	metric           DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (game_id, position)
);`

const raiseSerial = `
	SELECT setval(pg_get_serial_sequence('games', 'id'),
		GREATEST($1, (SELECT COALESCE(MAX(id), 1) FROM games)))`

// PostgresStore keeps games in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects with the lib/pq driver and pings the server.
func OpenPostgres(databaseURL string) (*PostgresStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Persist writes the whole game, results included, in one transaction. A game
// without an id is inserted and receives the generated id.
func (s *PostgresStore) Persist(ctx context.Context, g *domain.Game) error {
	if g == nil {
		return fmt.Errorf("nil game payload")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin persist: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec := toRecord(g)
	id := rec.ID
	if id == 0 {
		const insert = `
			INSERT INTO games (description, played_at, zone, finalized)
			VALUES ($1, $2, $3, $4)
			RETURNING id`
		if err := tx.QueryRowContext(ctx, insert, rec.Description, rec.PlayedAt, rec.Zone, rec.Finalized).Scan(&id); err != nil {
			return fmt.Errorf("insert game: %w", err)
		}
	} else {
		const upsert = `
			INSERT INTO games (id, description, played_at, zone, finalized)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				description = EXCLUDED.description,
				played_at = EXCLUDED.played_at,
				zone = EXCLUDED.zone,
				finalized = EXCLUDED.finalized`
		if _, err := tx.ExecContext(ctx, upsert, id, rec.Description, rec.PlayedAt, rec.Zone, rec.Finalized); err != nil {
			return fmt.Errorf("upsert game %d: %w", id, err)
		}
		// explicit ids bypass the sequence; move it past them
		if _, err := tx.ExecContext(ctx, raiseSerial, id); err != nil {
			return fmt.Errorf("advance game id sequence: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM game_results WHERE game_id = $1`, id); err != nil {
		return fmt.Errorf("clear results of game %d: %w", id, err)
	}
	const insertResult = `
		INSERT INTO game_results (game_id, position, participant_id, participant_name, metric)
		VALUES ($1, $2, $3, $4, $5)`
	for i, r := range rec.Results {
		if _, err := tx.ExecContext(ctx, insertResult, id, i, r.ParticipantID, nullString(r.ParticipantName), r.Metric); err != nil {
			return fmt.Errorf("insert result %d of game %d: %w", i, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit persist: %w", err)
	}
	g.SetID(id)
	return nil
}

// Update writes description, date and finalized flag of an existing game.
func (s *PostgresStore) Update(ctx context.Context, g *domain.Game) error {
	if g == nil {
		return fmt.Errorf("nil game payload")
	}
	rec := toRecord(g)
	const query = `UPDATE games SET description = $1, played_at = $2, zone = $3, finalized = $4 WHERE id = $5`
	res, err := s.db.ExecContext(ctx, query, rec.Description, rec.PlayedAt, rec.Zone, rec.Finalized, rec.ID)
	if err != nil {
		return fmt.Errorf("update game %d: %w", g.ID(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update game %d: %w", g.ID(), err)
	}
	if n == 0 {
		return fmt.Errorf("update game %d: %w", g.ID(), ErrGameNotFound)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*domain.Game, error) {
	const query = `
		SELECT id, description, played_at, zone, finalized
		FROM games
		WHERE id = $1`
	var rec gameRecord
	err := s.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.Description, &rec.PlayedAt, &rec.Zone, &rec.Finalized)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get game %d: %w", id, ErrGameNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get game %d: %w", id, err)
	}
	if rec.Results, err = s.results(ctx, id); err != nil {
		return nil, err
	}
	return rec.toGame(), nil
}

func (s *PostgresStore) ListInProgress(ctx context.Context) ([]*domain.Game, error) {
	return s.list(ctx, false)
}

func (s *PostgresStore) ListFinalized(ctx context.Context) ([]*domain.Game, error) {
	return s.list(ctx, true)
}

func (s *PostgresStore) list(ctx context.Context, finalized bool) ([]*domain.Game, error) {
	const query = `
		SELECT id, description, played_at, zone, finalized
		FROM games
		WHERE finalized = $1
		ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, finalized)
	if err != nil {
		return nil, fmt.Errorf("select games: %w", err)
	}
	var recs []gameRecord
	for rows.Next() {
		var rec gameRecord
		if err := rows.Scan(&rec.ID, &rec.Description, &rec.PlayedAt, &rec.Zone, &rec.Finalized); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan game: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("select games: %w", err)
	}
	rows.Close()

	games := make([]*domain.Game, 0, len(recs))
	for _, rec := range recs {
		results, err := s.results(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		rec.Results = results
		games = append(games, rec.toGame())
	}
	return games, nil
}

func (s *PostgresStore) results(ctx context.Context, gameID int64) ([]resultRecord, error) {
	const query = `
		SELECT participant_id, participant_name, metric
		FROM game_results
		WHERE game_id = $1
		ORDER BY position`
	rows, err := s.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("select results of game %d: %w", gameID, err)
	}
	defer rows.Close()

	var out []resultRecord
	for rows.Next() {
		var (
			r    resultRecord
			name sql.NullString
		)
		if err := rows.Scan(&r.ParticipantID, &name, &r.Metric); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.ParticipantName = name.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
