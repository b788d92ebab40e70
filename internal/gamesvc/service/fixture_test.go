package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/strategists-services/internal/gamesvc/config"
	"github.com/avvvet/strategists-services/internal/gamesvc/gamemap"
	"github.com/avvvet/strategists-services/internal/gamesvc/history"
	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/avvvet/strategists-services/internal/gamesvc/store"
	"github.com/avvvet/strategists-services/internal/gamesvc/updates"
	"github.com/avvvet/strategists-services/internal/gamesvc/updates/updatestest"
	"github.com/avvvet/strategists-services/internal/worker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc        *GameService
	store      *store.MemoryStore
	rec        *updatestest.Recorder
	dispatcher *updates.Dispatcher
	history    *history.Log

	mu    sync.Mutex
	rolls []int
	clock time.Time
}

// newFixture builds a service over a map with the given land values. Skip
// and clean-up timers are off unless cfg turns them on.
func newFixture(t *testing.T, values []int64, cfgs ...func(c *config.Config)) *fixture {
	t.Helper()
	return newFixtureWith(t, values, nil, cfgs...)
}

// newFixtureWith lets deps add the optional collaborators.
func newFixtureWith(t *testing.T, values []int64, deps func(d *Deps), cfgs ...func(c *config.Config)) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Game.DefaultMap = "test"
	cfg.SkipPlayer.Enabled = false
	cfg.CleanUp.Enabled = false
	for _, fn := range cfgs {
		fn(&cfg)
	}

	m := &gamemap.Map{ID: "test", PlayerBaseCash: decimal.NewFromInt(1000)}
	for i, v := range values {
		m.Lands = append(m.Lands, gamemap.LandSpec{Name: fmt.Sprintf("L%d", i), MarketValue: v})
	}

	f := &fixture{
		store: store.NewMemoryStore(),
		rec:   updatestest.NewRecorder(),
		clock: time.Now(),
	}
	f.dispatcher = updates.NewDispatcher(f.rec, 1024)
	f.history = history.NewLog(nil, time.Hour)
	pool := worker.NewPool(4, 64)

	d := Deps{
		Store:      f.store,
		Pool:       pool,
		Dispatcher: f.dispatcher,
		Maps:       gamemap.NewRegistry(m),
		History:    f.history,
	}
	if deps != nil {
		deps(&d)
		f.history = d.History
	}
	f.svc = NewGameService(cfg, d,
		WithDice(f.roll),
		WithPicker(func(n int) int { return 0 }),
		WithClock(f.now),
	)
	t.Cleanup(func() {
		f.svc.Close()
		pool.Close()
		f.dispatcher.Close()
	})
	return f
}

func (f *fixture) roll(size int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rolls) == 0 {
		return 1
	}
	r := f.rolls[0]
	f.rolls = f.rolls[1:]
	return r
}

func (f *fixture) setRolls(rolls ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rolls = rolls
}

func (f *fixture) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// create opens a game hosted by the first name and joins the others.
func (f *fixture) create(t *testing.T, names ...string) string {
	t.Helper()
	ctx := context.Background()
	game, host, err := f.svc.CreateGame(ctx, names[0]+"@x.io", names[0])
	require.NoError(t, err)
	require.True(t, host.Host)
	for _, name := range names[1:] {
		_, err := f.svc.JoinGame(ctx, game.Code, name+"@x.io", name)
		require.NoError(t, err)
	}
	return game.Code
}

func (f *fixture) start(t *testing.T, names ...string) string {
	t.Helper()
	code := f.create(t, names...)
	_, err := f.svc.StartGame(context.Background(), code)
	require.NoError(t, err)
	return code
}

// seed edits a game's records directly, bypassing the rules.
func (f *fixture) seed(t *testing.T, code string, fn func(tx store.GameTx, players map[string]*models.Player, lands []*models.Land)) {
	t.Helper()
	err := f.store.InGame(context.Background(), code, func(tx store.GameTx) error {
		ps, err := tx.Players()
		if err != nil {
			return err
		}
		byName := map[string]*models.Player{}
		for _, p := range ps {
			byName[p.Username] = p
		}
		lands, err := tx.Lands()
		if err != nil {
			return err
		}
		fn(tx, byName, lands)
		return nil
	})
	require.NoError(t, err)
}

// ownAll gives owner 100% of every land for free.
func (f *fixture) ownAll(t *testing.T, code, owner string) {
	f.seed(t, code, func(tx store.GameTx, players map[string]*models.Player, lands []*models.Land) {
		for _, l := range lands {
			require.NoError(t, tx.SaveStake(&models.Stake{
				PlayerID:  players[owner].ID,
				LandID:    l.ID,
				Ownership: decimal.NewFromInt(100),
				BuyAmount: decimal.Zero,
			}))
		}
	})
}

// drain moves cash from one player to another through a rent record.
func (f *fixture) drain(t *testing.T, code, from, to string, amount int64) {
	f.seed(t, code, func(tx store.GameTx, players map[string]*models.Player, lands []*models.Land) {
		require.NoError(t, tx.AddRent(&models.Rent{
			SourcePlayerID: players[from].ID,
			TargetPlayerID: players[to].ID,
			LandID:         lands[0].ID,
			Amount:         decimal.NewFromInt(amount),
		}))
	})
}

func (f *fixture) snapshot(t *testing.T, code string) *updates.Snapshot {
	t.Helper()
	snap, err := f.svc.GetGame(context.Background(), code)
	require.NoError(t, err)
	return snap
}

func (f *fixture) player(t *testing.T, code, name string) updates.PlayerView {
	t.Helper()
	for _, p := range f.snapshot(t, code).Players {
		if p.Username == name {
			return p
		}
	}
	t.Fatalf("no player %s in game %s", name, code)
	return updates.PlayerView{}
}

func (f *fixture) holder(t *testing.T, code string) string {
	t.Helper()
	for _, p := range f.snapshot(t, code).Players {
		if p.Turn {
			return p.Username
		}
	}
	return ""
}

// published waits for queued deliveries and returns the update types of a
// game in order.
func (f *fixture) published(code string) []string {
	f.dispatcher.Close()
	return f.rec.Types(code)
}

func count(types []string, t models.UpdateType) int {
	n := 0
	for _, s := range types {
		if s == string(t) {
			n++
		}
	}
	return n
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
