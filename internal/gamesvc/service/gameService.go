package service

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/avvvet/strategists-services/internal/gamesvc/advice"
	"github.com/avvvet/strategists-services/internal/gamesvc/config"
	"github.com/avvvet/strategists-services/internal/gamesvc/errs"
	"github.com/avvvet/strategists-services/internal/gamesvc/gamemap"
	"github.com/avvvet/strategists-services/internal/gamesvc/history"
	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/avvvet/strategists-services/internal/gamesvc/predictions"
	"github.com/avvvet/strategists-services/internal/gamesvc/scheduler"
	"github.com/avvvet/strategists-services/internal/gamesvc/store"
	"github.com/avvvet/strategists-services/internal/gamesvc/updates"
	"github.com/avvvet/strategists-services/internal/worker"
	log "github.com/sirupsen/logrus"
)

// Deps are the collaborators of a GameService. Advices, Predictions and
// History are optional.
type Deps struct {
	Store       store.Store
	Pool        *worker.Pool
	Dispatcher  *updates.Dispatcher
	Maps        *gamemap.Registry
	Advices     *advice.Engine
	Predictions *predictions.Client
	History     *history.Log
}

type Option func(s *GameService)

// WithDice replaces the dice. roll returns a value in [1, size].
func WithDice(roll func(size int) int) Option {
	return func(s *GameService) { s.roll = roll }
}

// WithPicker replaces the choice of the first turn holder. pick returns a
// value in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(s *GameService) { s.pick = pick }
}

func WithCodes(code func(length int) string) Option {
	return func(s *GameService) { s.code = code }
}

func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.now = now }
}

// GameService runs the game lifecycle and the turn engine. Every mutation
// of a game is serialized on the game code and committed as one unit.
type GameService struct {
	cfg         config.Config
	store       store.Store
	pool        *worker.Pool
	dispatcher  *updates.Dispatcher
	maps        *gamemap.Registry
	advices     *advice.Engine
	predictions *predictions.Client
	history     *history.Log
	scheduler   *scheduler.Scheduler
	locks       *gameLocks

	roll func(size int) int
	pick func(n int) int
	code func(length int) string
	now  func() time.Time
}

func NewGameService(cfg config.Config, deps Deps, opts ...Option) *GameService {
	s := &GameService{
		cfg:         cfg,
		store:       deps.Store,
		pool:        deps.Pool,
		dispatcher:  deps.Dispatcher,
		maps:        deps.Maps,
		advices:     deps.Advices,
		predictions: deps.Predictions,
		history:     deps.History,
		locks:       newGameLocks(),
		roll:        func(size int) int { return rand.IntN(size) + 1 },
		pick:        rand.IntN,
		code:        randomCode,
		now:         time.Now,
	}
	if s.maps == nil {
		s.maps = gamemap.Default()
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scheduler = scheduler.New(s.pool, s.handleEvent)
	return s
}

func (s *GameService) Scheduler() *scheduler.Scheduler {
	return s.scheduler
}

func (s *GameService) Close() {
	s.scheduler.Close()
}

func randomCode(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		b.WriteByte(byte('A' + rand.IntN(26)))
	}
	return b.String()
}

// execute runs fn as one atomic unit on a game and releases the collected
// updates and follow-ups once it committed.
func (s *GameService) execute(ctx context.Context, code string, fn func(st *gameState, b *batch) error) error {
	unlock := s.locks.Lock(code)
	defer unlock()

	b := &batch{now: s.now}
	err := s.store.InGame(ctx, code, func(tx store.GameTx) error {
		st, err := loadState(tx)
		if err != nil {
			return err
		}
		b.st = st
		return fn(st, b)
	})
	if err != nil {
		return err
	}
	s.flush(b)
	return nil
}

func (s *GameService) flush(b *batch) {
	if len(b.updates) > 0 {
		s.dispatcher.Dispatch(b.updates...)
		if s.history != nil {
			for _, u := range b.updates {
				s.history.Append(u)
			}
		}
	}
	for _, fn := range b.after {
		fn()
	}
}

// invariant logs a broken invariant with the state of the game and returns
// it as an error.
func (s *GameService) invariant(st *gameState, format string, args ...any) error {
	err := errs.Invariant(format, args...)
	fields := log.Fields{
		"game":      st.game.Code,
		"state":     st.game.State,
		"step":      st.game.CurrentStep,
		"ended":     st.game.EndedAt != nil,
		"lands":     len(st.lands),
		"bankrupts": st.bankruptCount(),
	}
	for _, p := range st.players {
		fields["player."+p.Username] = map[string]any{
			"id":    p.ID,
			"state": p.State,
			"turn":  p.Turn,
			"index": p.Index,
		}
	}
	log.WithFields(fields).Error(err)
	return err
}

func (s *GameService) handleEvent(ctx context.Context, e scheduler.Event) error {
	switch ev := e.(type) {
	case scheduler.SkipPlayerEvent:
		return s.HandleSkipTimeout(ctx, ev)
	case scheduler.CleanUpEvent:
		return s.CleanUp(ctx, ev.GameCode)
	}
	log.Warnf("unknown scheduled event %s", e.Key())
	return nil
}

func (s *GameService) scheduleSkip(game models.Game) {
	if !game.SkipEnabled() {
		return
	}
	s.scheduler.Schedule(scheduler.SkipPlayerEvent{
		GameCode: game.Code,
		Step:     game.CurrentStep,
		Time:     s.now().Add(time.Duration(game.SkipPlayerTimeout) * time.Millisecond),
	})
}

func (s *GameService) scheduleCleanUp(game models.Game) {
	if !game.CleanUpEnabled() {
		return
	}
	s.scheduler.Schedule(scheduler.CleanUpEvent{
		GameCode: game.Code,
		Time:     s.now().Add(time.Duration(game.CleanUpDelay) * time.Millisecond),
	})
}
