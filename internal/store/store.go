package store

import (
	"time"

	"github.com/park285/game-finalizer/internal/domain"
	"github.com/park285/game-finalizer/internal/finalizer"
	"github.com/park285/game-finalizer/internal/gamebuilder"
)

// ErrGameNotFound is returned by Get and Update when the game was never persisted.
var ErrGameNotFound = domain.ErrGameNotFound

var (
	_ finalizer.Store = (*MemoryStore)(nil)
	_ finalizer.Store = (*PostgresStore)(nil)
	_ finalizer.Store = (*RedisStore)(nil)
)

// gameRecord is the flat form games take in storage.
type gameRecord struct {
	ID          int64          `json:"id"`
	Description string         `json:"description"`
	PlayedAt    time.Time      `json:"played_at"`
	Zone        string         `json:"zone,omitempty"`
	Finalized   bool           `json:"finalized"`
	Results     []resultRecord `json:"results"`
}

type resultRecord struct {
	ParticipantID   int64   `json:"participant_id"`
	ParticipantName string  `json:"participant_name,omitempty"`
	Metric          float64 `json:"metric"`
}

func toRecord(g *domain.Game) gameRecord {
	rs := g.Results()
	rec := gameRecord{
		ID:          g.ID(),
		Description: g.Description(),
		Finalized:   g.IsFinalized(),
		Results:     make([]resultRecord, 0, len(rs)),
	}
	rec.setDate(g.Date())
	for _, r := range rs {
		rec.Results = append(rec.Results, resultRecord{
			ParticipantID:   r.Participant.ID,
			ParticipantName: r.Participant.Name,
			Metric:          r.Metric,
		})
	}
	return rec
}

// toGame rebuilds a game. Stored results already satisfied the recording
// policy, so replaying them through the builder keeps all of them.
func (rec gameRecord) toGame() *domain.Game {
	b := gamebuilder.New().For(rec.Description).WithID(rec.ID).On(rec.playedAt())
	for _, r := range rec.Results {
		b.Result(domain.NewParticipantWithID(r.ParticipantID, r.ParticipantName), r.Metric)
	}
	if rec.Finalized {
		b.Finalized()
	}
	return b.MustBuild()
}

func (rec *gameRecord) setDate(t time.Time) {
	rec.PlayedAt = t
	rec.Zone = t.Location().String()
}

// playedAt restores the date in the zone it was recorded in, so day stepping
// keeps wall-clock time across DST. Records without a zone use time.Local;
// zones that cannot be loaded keep the stored offset.
func (rec gameRecord) playedAt() time.Time {
	if rec.Zone == "" {
		return rec.PlayedAt.In(time.Local)
	}
	loc, err := time.LoadLocation(rec.Zone)
	if err != nil {
		return rec.PlayedAt
	}
	return rec.PlayedAt.In(loc)
}
