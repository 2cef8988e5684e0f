package judge

import (
	"errors"
	"math"

	"github.com/park285/game-finalizer/internal/domain"
)

// ErrEmptyGame is returned when a game without results is ranked.
var ErrEmptyGame = errors.New("judge: game has no results to rank")

// Ranking holds the best and worst metric of a game.
type Ranking struct {
	First float64
	Last  float64
}

// Judge ranks games and remembers the extremes of its latest successful evaluation.
type Judge struct {
	first float64
	last  float64
}

func New() *Judge {
	return &Judge{first: math.Inf(-1), last: math.Inf(1)}
}

// Evaluate scans every result of g. First is the maximum metric, Last the minimum.
func (j *Judge) Evaluate(g *domain.Game) (Ranking, error) {
	results := g.Results()
	if len(results) == 0 {
		return Ranking{}, ErrEmptyGame
	}
	r := Ranking{First: math.Inf(-1), Last: math.Inf(1)}
	for _, res := range results {
		if res.Metric > r.First {
			r.First = res.Metric
		}
		if res.Metric < r.Last {
			r.Last = res.Metric
		}
	}
	j.first, j.last = r.First, r.Last
	return r, nil
}

// FirstPlace is -Inf until a game has been evaluated.
func (j *Judge) FirstPlace() float64 { return j.first }

// LastPlace is +Inf until a game has been evaluated.
func (j *Judge) LastPlace() float64 { return j.last }
