package domain

import (
	"errors"
	"time"
)

// ErrGameNotFound is reported when a game id is unknown to a store.
var ErrGameNotFound = errors.New("game not found")

// MaxResultsPerParticipant caps how many results one participant may hold in a game.
const MaxResultsPerParticipant = 5

// Participant identifies a contestant. An empty Name means the name is absent.
type Participant struct {
	ID   int64
	Name string
}

func NewParticipant(name string) Participant {
	return Participant{Name: name}
}

func NewParticipantWithID(id int64, name string) Participant {
	return Participant{ID: id, Name: name}
}

// Equal reports whether both id and name match.
func (p Participant) Equal(o Participant) bool {
	return p.ID == o.ID && p.Name == o.Name
}

// Result is one participant's recorded metric within a game.
type Result struct {
	Participant Participant
	Metric      float64
}

func NewResult(p Participant, metric float64) Result {
	return Result{Participant: p, Metric: metric}
}

// Game tracks a competitive session. Results are only added through Record.
type Game struct {
	id          int64
	description string
	date        time.Time
	finalized   bool
	results     []Result
}

// NewGame creates an in-progress game dated now.
func NewGame(description string) *Game {
	return NewGameAt(description, time.Now())
}

// NewGameAt creates an in-progress game with an explicit date. A zero date means now.
func NewGameAt(description string, date time.Time) *Game {
	if date.IsZero() {
		date = time.Now()
	}
	return &Game{description: description, date: date}
}

func (g *Game) ID() int64           { return g.id }
func (g *Game) SetID(id int64)      { g.id = id }
func (g *Game) Description() string { return g.description }
func (g *Game) IsFinalized() bool   { return g.finalized }

// Date returns a copy of the game date.
func (g *Game) Date() time.Time { return g.date }

func (g *Game) SetDate(date time.Time) { g.date = date }

// Finalize marks the game finished. Calling it again leaves the flag set.
func (g *Game) Finalize() { g.finalized = true }

// Record appends r unless its participant recorded the previous result or
// already holds MaxResultsPerParticipant results. Rejected results are dropped.
func (g *Game) Record(r Result) {
	if n := len(g.results); n > 0 && g.results[n-1].Participant.Equal(r.Participant) {
		return
	}
	if g.CountFor(r.Participant) >= MaxResultsPerParticipant {
		return
	}
	g.results = append(g.results, r)
}

// Results returns the recorded results in order. The slice is a copy.
func (g *Game) Results() []Result {
	out := make([]Result, len(g.results))
	copy(out, g.results)
	return out
}

// CountFor returns how many results p has recorded.
func (g *Game) CountFor(p Participant) int {
	n := 0
	for _, r := range g.results {
		if r.Participant.Equal(p) {
			n++
		}
	}
	return n
}

// Clone returns an independent deep copy.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	c.results = g.Results()
	return &c
}
