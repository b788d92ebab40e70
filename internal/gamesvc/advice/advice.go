// Package advice generates per-player hints from a read-only view of a
// game after every turn.
package advice

import (
	"sort"
	"sync"

	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	log "github.com/sirupsen/logrus"
)

// Input is the read-only view evaluators work on.
type Input struct {
	Game    models.Game
	Players []models.Player
	Lands   []models.Land // ordered by position
	Stakes  []models.Stake

	previous func(playerID int64, t models.AdviceType) *models.Advice
}

// Previous returns the advice already given to a player, if any.
func (in *Input) Previous(playerID int64, t models.AdviceType) *models.Advice {
	if in.previous == nil {
		return nil
	}
	return in.previous(playerID, t)
}

func (in *Input) activeCount() int {
	n := 0
	for _, p := range in.Players {
		if !p.IsBankrupt() {
			n++
		}
	}
	return n
}

// Evaluator returns the advices that are new or changed state.
type Evaluator func(in *Input) []models.Advice

type key struct {
	playerID int64
	kind     models.AdviceType
}

// Engine runs its evaluators in order and remembers the latest advice per
// player and type for every game.
type Engine struct {
	evaluators []Evaluator

	mu     sync.Mutex
	byGame map[string]map[key]models.Advice
}

func NewEngine(evaluators ...Evaluator) *Engine {
	return &Engine{
		evaluators: evaluators,
		byGame:     map[string]map[key]models.Advice{},
	}
}

// Generate runs every evaluator against in and returns what changed.
func (e *Engine) Generate(in Input) []models.Advice {
	e.mu.Lock()
	defer e.mu.Unlock()

	code := in.Game.Code
	known, ok := e.byGame[code]
	if !ok {
		known = map[key]models.Advice{}
		e.byGame[code] = known
	}
	in.previous = func(playerID int64, t models.AdviceType) *models.Advice {
		if a, ok := known[key{playerID, t}]; ok {
			return &a
		}
		return nil
	}

	var changed []models.Advice
	for _, evaluate := range e.evaluators {
		for _, a := range evaluate(&in) {
			a.GameCode = code
			known[key{a.PlayerID, a.Type}] = a
			changed = append(changed, a)
		}
	}
	if len(changed) > 0 {
		log.Infof("generated %d advices for game %s", len(changed), code)
	}
	return changed
}

// Advices returns every advice of a game ordered by priority.
func (e *Engine) Advices(code string) []models.Advice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sorted(e.byGame[code])
}

// MarkViewed flags every unviewed advice of a player and returns them.
func (e *Engine) MarkViewed(code string, playerID int64) []models.Advice {
	e.mu.Lock()
	defer e.mu.Unlock()

	var viewed []models.Advice
	for k, a := range e.byGame[code] {
		if k.playerID == playerID && !a.Viewed {
			a.Viewed = true
			e.byGame[code][k] = a
			viewed = append(viewed, a)
		}
	}
	sort.Slice(viewed, func(i, j int) bool { return viewed[i].Priority < viewed[j].Priority })
	return viewed
}

func (e *Engine) Clear(code string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.byGame, code)
}

func sorted(m map[key]models.Advice) []models.Advice {
	out := make([]models.Advice, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}

// transition applies the shared NEW/FOLLOWED state machine. fresh builds
// the advice when none was given before.
func transition(prev *models.Advice, needed bool, fresh func() models.Advice) (models.Advice, bool) {
	switch {
	case prev == nil && !needed:
		return models.Advice{}, false
	case prev == nil:
		a := fresh()
		a.State = models.AdviceNew
		return a, true
	case prev.State != models.AdviceNew && needed:
		a := *prev
		a.State = models.AdviceNew
		a.Viewed = false
		return a, true
	case prev.State != models.AdviceFollowed && !needed:
		a := *prev
		a.State = models.AdviceFollowed
		a.Viewed = false
		return a, true
	}
	return models.Advice{}, false
}
