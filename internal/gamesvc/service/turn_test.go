package service

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/strategists-services/internal/gamesvc/config"
	"github.com/avvvet/strategists-services/internal/gamesvc/errs"
	"github.com/avvvet/strategists-services/internal/gamesvc/ledger"
	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/avvvet/strategists-services/internal/gamesvc/scheduler"
	"github.com/avvvet/strategists-services/internal/gamesvc/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tenLands = []int64{100, 200, 300, 120, 140, 160, 180, 220, 240, 260}

func TestPlayTurnOnUnownedLand(t *testing.T) {
	f := newFixture(t, tenLands)
	code := f.start(t, "alice", "bob")
	require.Equal(t, "alice", f.holder(t, code))

	f.setRolls(2)
	winner, err := f.svc.PlayTurn(context.Background(), code)
	require.NoError(t, err)
	assert.Nil(t, winner)

	snap := f.snapshot(t, code)
	assert.Equal(t, 2, snap.Game.CurrentStep)
	assert.Equal(t, "bob", f.holder(t, code))

	bob := f.player(t, code, "bob")
	assert.Equal(t, 2, bob.Index)
	assert.True(t, bob.Cash.Equal(dec(1000)))
	assert.Equal(t, "bob travelled 2 steps and reached L2.", snap.Activities[0].Text)
	assert.Equal(t, "alice passed turn to bob.", snap.Activities[1].Text)

	types := f.published(code)
	assert.Equal(t, []string{"CREATE", "JOIN", "START", "TREND", "TURN", "MOVE", "TREND"}, types)
}

func TestPlayTurnRequiresActiveGame(t *testing.T) {
	f := newFixture(t, tenLands)
	code := f.create(t, "alice", "bob")

	_, err := f.svc.PlayTurn(context.Background(), code)
	assert.True(t, errs.IsValidation(err))

	_, err = f.svc.PlayTurn(context.Background(), "NOPE")
	assert.True(t, errs.IsNotFound(err))
}

func TestMovementWrapsAroundTheCycle(t *testing.T) {
	f := newFixture(t, []int64{100, 100, 100})
	code := f.start(t, "alice", "bob")

	f.setRolls(2, 1, 2)
	for i := 0; i < 3; i++ {
		_, err := f.svc.PlayTurn(context.Background(), code)
		require.NoError(t, err)
	}
	// bob: 0+2, then 2+2 wraps to 1
	assert.Equal(t, 1, f.player(t, code, "bob").Index)
	assert.Equal(t, 1, f.player(t, code, "alice").Index)
}

func TestInvest(t *testing.T) {
	f := newFixture(t, tenLands)
	code := f.start(t, "alice", "bob")
	ctx := context.Background()
	alice := f.player(t, code, "alice")
	bob := f.player(t, code, "bob")
	land := f.snapshot(t, code).Lands[1] // $200

	stake, err := f.svc.Invest(ctx, alice.ID, land.ID, 50)
	require.NoError(t, err)
	assert.True(t, stake.BuyAmount.Equal(dec(100)))
	assert.True(t, f.player(t, code, "alice").Cash.Equal(dec(900)))
	assert.Equal(t, 1, f.player(t, code, "alice").LastInvestStep)

	_, err = f.svc.Invest(ctx, bob.ID, land.ID, 60)
	require.True(t, errs.IsValidation(err))
	assert.Contains(t, err.Error(), "capacity exceeded")

	snap := f.snapshot(t, code)
	assert.True(t, snap.Lands[1].TotalOwnership.Equal(dec(50)))
	assert.True(t, f.player(t, code, "bob").Cash.Equal(dec(1000)))
	assert.Equal(t, "alice invested in 50.00% of L1!", snap.Activities[0].Text)
}

func TestInvestExtendsExistingStake(t *testing.T) {
	f := newFixture(t, tenLands)
	code := f.start(t, "alice", "bob")
	ctx := context.Background()
	alice := f.player(t, code, "alice")
	land := f.snapshot(t, code).Lands[1]

	_, err := f.svc.Invest(ctx, alice.ID, land.ID, 20)
	require.NoError(t, err)
	_, err = f.svc.Invest(ctx, alice.ID, land.ID, 30)
	require.NoError(t, err)

	snap := f.snapshot(t, code)
	require.Len(t, snap.Lands[1].Stakes, 1)
	assert.True(t, snap.Lands[1].Stakes[0].Ownership.Equal(dec(50)))
	assert.True(t, snap.Lands[1].Stakes[0].BuyAmount.Equal(dec(100)))
}

func TestInvestRejections(t *testing.T) {
	f := newFixture(t, []int64{100, 2000})
	ctx := context.Background()

	lobby := f.create(t, "dave", "erin")
	dave := f.player(t, lobby, "dave")
	_, err := f.svc.Invest(ctx, dave.ID, f.snapshot(t, lobby).Lands[0].ID, 10)
	assert.True(t, errs.IsValidation(err), "lobby")

	code := f.start(t, "alice", "bob")
	alice := f.player(t, code, "alice")
	lands := f.snapshot(t, code).Lands

	_, err = f.svc.Invest(ctx, alice.ID, lands[0].ID, 0)
	assert.True(t, errs.IsValidation(err), "zero percent")

	_, err = f.svc.Invest(ctx, alice.ID, lands[1].ID, 50)
	require.True(t, errs.IsValidation(err), "buy amount equal to cash")
	assert.Contains(t, err.Error(), "insufficient funds")

	_, err = f.svc.Invest(ctx, alice.ID, 9999, 10)
	assert.True(t, errs.IsNotFound(err))

	_, err = f.svc.Invest(ctx, 9999, lands[0].ID, 10)
	assert.True(t, errs.IsNotFound(err))

	_, err = f.svc.Invest(ctx, alice.ID, lands[0].ID, 100.5)
	assert.True(t, errs.IsValidation(err))

	for _, percent := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err = f.svc.Invest(ctx, alice.ID, lands[0].ID, percent)
		assert.True(t, errs.IsValidation(err), "percent %v", percent)
	}

	snap := f.snapshot(t, code)
	for _, l := range snap.Lands {
		assert.Empty(t, l.Stakes)
	}
	for _, a := range snap.Activities {
		assert.NotEqual(t, models.UpdateInvest, a.Type)
	}
}

func TestTinyPositiveCashKeepsPlayerActive(t *testing.T) {
	f := newFixture(t, []int64{1000, 100, 100, 100})
	code := f.start(t, "alice", "bob")
	ctx := context.Background()
	bob := f.player(t, code, "bob")
	lands := f.snapshot(t, code).Lands

	_, err := f.svc.Invest(ctx, bob.ID, lands[0].ID, 99.9996)
	require.NoError(t, err)
	require.True(t, f.player(t, code, "bob").Cash.Equal(dec(1000).Sub(decimal.RequireFromString("999.996"))))

	f.setRolls(1)
	winner, err := f.svc.PlayTurn(ctx, code)
	require.NoError(t, err)
	assert.Nil(t, winner)

	bob = f.player(t, code, "bob")
	assert.Equal(t, models.PlayerActive, bob.State)
	assert.True(t, bob.Cash.Equal(decimal.RequireFromString("0.004")), bob.Cash.String())
	assert.Equal(t, "bob", f.holder(t, code))
}

func TestInvestBeyondSubCentCashIsRejected(t *testing.T) {
	f := newFixture(t, []int64{1000, 100})
	code := f.start(t, "alice", "bob")
	ctx := context.Background()
	bob := f.player(t, code, "bob")
	lands := f.snapshot(t, code).Lands

	_, err := f.svc.Invest(ctx, bob.ID, lands[0].ID, 99.9995)
	require.NoError(t, err)

	_, err = f.svc.Invest(ctx, bob.ID, lands[1].ID, 0.007)
	require.True(t, errs.IsValidation(err))
	assert.Contains(t, err.Error(), "insufficient funds")

	bob = f.player(t, code, "bob")
	assert.True(t, bob.Cash.Equal(decimal.RequireFromString("0.005")), bob.Cash.String())
	assert.Empty(t, f.snapshot(t, code).Lands[1].Stakes)

	_, err = f.svc.Invest(ctx, bob.ID, lands[1].ID, 0.004)
	require.NoError(t, err)
	assert.True(t, f.player(t, code, "bob").Cash.Equal(decimal.RequireFromString("0.001")))
}

func TestRentIsPaidToStakeHolders(t *testing.T) {
	f := newFixture(t, []int64{300, 300, 300, 300})
	code := f.start(t, "alice", "bob")
	f.ownAll(t, code, "alice")

	_, err := f.svc.PlayTurn(context.Background(), code)
	require.NoError(t, err)

	alice := f.player(t, code, "alice")
	bob := f.player(t, code, "bob")
	assert.True(t, bob.Cash.Equal(dec(940)), bob.Cash.String())
	assert.True(t, alice.Cash.Equal(dec(1060)), alice.Cash.String())
	assert.True(t, alice.Cash.Add(bob.Cash).Equal(dec(2000)))

	snap := f.snapshot(t, code)
	assert.Equal(t, "bob paid 60.00 cash rent to alice for L1.", snap.Activities[0].Text)
}

func TestNoRentForOwnOrBankruptStake(t *testing.T) {
	f := newFixture(t, []int64{300, 300, 300, 300})
	code := f.start(t, "alice", "bob", "carol")
	f.ownAll(t, code, "bob")
	f.seed(t, code, func(tx store.GameTx, players map[string]*models.Player, lands []*models.Land) {
		carol := players["carol"]
		carol.State = models.PlayerBankrupt
		carol.BankruptcyOrder = 1
		require.NoError(t, tx.UpdatePlayer(carol))
	})

	// bob moves onto his own land
	_, err := f.svc.PlayTurn(context.Background(), code)
	require.NoError(t, err)
	assert.True(t, f.player(t, code, "bob").Cash.Equal(dec(1000)))

	// give the bankrupt carol every stake; alice moves next and pays nothing
	f.seed(t, code, func(tx store.GameTx, players map[string]*models.Player, lands []*models.Land) {
		stakes, _ := tx.Stakes()
		require.NoError(t, tx.Reset())
		for _, s := range stakes {
			s.PlayerID = players["carol"].ID
			require.NoError(t, tx.SaveStake(s))
		}
	})
	_, err = f.svc.PlayTurn(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, "alice", f.holder(t, code))
	assert.True(t, f.player(t, code, "alice").Cash.Equal(dec(1000)))
}

func TestBankruptcyCascadesToNextPlayer(t *testing.T) {
	f := newFixture(t, []int64{20, 20, 20, 20}, func(c *config.Config) { c.Game.RentFactor = 0.5 })
	code := f.start(t, "alice", "bob", "carol")
	f.ownAll(t, code, "carol")
	f.drain(t, code, "bob", "alice", 995)

	winner, err := f.svc.PlayTurn(context.Background(), code)
	require.NoError(t, err)
	assert.Nil(t, winner)

	bob := f.player(t, code, "bob")
	assert.Equal(t, models.PlayerBankrupt, bob.State)
	assert.Equal(t, 1, bob.BankruptcyOrder)
	assert.False(t, bob.Turn)
	assert.True(t, bob.Cash.Equal(dec(-5)))

	assert.Equal(t, "carol", f.holder(t, code))
	assert.Equal(t, 3, f.snapshot(t, code).Game.CurrentStep)

	types := f.published(code)
	assert.Equal(t, 1, count(types, models.UpdateBankruptcy))
	assert.Equal(t, 2, count(types, models.UpdateTurn))
}

func TestBankruptcyOrderIsDense(t *testing.T) {
	f := newFixture(t, []int64{20, 20, 20, 20}, func(c *config.Config) { c.Game.RentFactor = 0.5 })
	code := f.start(t, "alice", "bob", "carol", "dave")
	f.ownAll(t, code, "alice")
	f.drain(t, code, "bob", "alice", 995)
	f.drain(t, code, "carol", "alice", 995)

	winner, err := f.svc.PlayTurn(context.Background(), code)
	require.NoError(t, err)
	assert.Nil(t, winner)

	assert.Equal(t, 1, f.player(t, code, "bob").BankruptcyOrder)
	assert.Equal(t, 2, f.player(t, code, "carol").BankruptcyOrder)
	assert.Equal(t, "dave", f.holder(t, code))
}

func TestWinnerEndsGameOnce(t *testing.T) {
	f := newFixture(t, []int64{20, 20, 20, 20}, func(c *config.Config) {
		c.Game.RentFactor = 0.5
		c.CleanUp.Enabled = true
		c.SkipPlayer.Enabled = true
	})
	code := f.start(t, "alice", "bob")
	f.ownAll(t, code, "alice")
	f.drain(t, code, "bob", "alice", 995)
	require.True(t, f.svc.Scheduler().Pending(scheduler.SkipPlayerKey(code)))
	require.False(t, f.svc.Scheduler().Pending(scheduler.CleanUpKey(code)))

	winner, err := f.svc.PlayTurn(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, "alice", winner.Username)

	first := f.snapshot(t, code).Game
	require.NotNil(t, first.EndedAt)
	assert.False(t, f.svc.Scheduler().Pending(scheduler.SkipPlayerKey(code)))
	assert.True(t, f.svc.Scheduler().Pending(scheduler.CleanUpKey(code)))

	winner, err = f.svc.PlayTurn(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, "alice", winner.Username)

	again := f.snapshot(t, code).Game
	assert.Equal(t, *first.EndedAt, *again.EndedAt)
	assert.Equal(t, first.CurrentStep, again.CurrentStep)

	types := f.published(code)
	assert.Equal(t, 1, count(types, models.UpdateWin))
	assert.Equal(t, "WIN", types[len(types)-1])
}

func TestSkipTimerBankruptsAfterAllowance(t *testing.T) {
	f := newFixture(t, tenLands, func(c *config.Config) {
		c.SkipPlayer.Enabled = true
		c.SkipPlayer.AllowedCount = 3
		c.SkipPlayer.TimeoutMs = 3600000
	})
	code := f.start(t, "alice", "bob")
	ctx := context.Background()

	fire := func() {
		step := f.snapshot(t, code).Game.CurrentStep
		require.NoError(t, f.svc.HandleSkipTimeout(ctx, scheduler.SkipPlayerEvent{GameCode: code, Step: step}))
	}

	fire()
	alice := f.player(t, code, "alice")
	assert.Equal(t, 2, alice.RemainingSkipsCount)
	assert.Equal(t, 1, alice.LastSkippedStep)
	assert.Equal(t, models.PlayerActive, alice.State)
	assert.Equal(t, "bob", f.holder(t, code))

	_, err := f.svc.PlayTurn(ctx, code)
	require.NoError(t, err)
	fire()
	assert.Equal(t, 1, f.player(t, code, "alice").RemainingSkipsCount)

	_, err = f.svc.PlayTurn(ctx, code)
	require.NoError(t, err)
	fire()

	alice = f.player(t, code, "alice")
	assert.Equal(t, 0, alice.RemainingSkipsCount)
	assert.Equal(t, models.PlayerBankrupt, alice.State)
	assert.Equal(t, 1, alice.BankruptcyOrder)
	assert.NotNil(t, f.snapshot(t, code).Game.EndedAt)
	assert.Equal(t, 3, f.player(t, code, "bob").RemainingSkipsCount)

	snap := f.snapshot(t, code)
	assert.Equal(t, "bob won The Strategists!", snap.Activities[0].Text)
}

func TestStaleSkipTimerIsIgnored(t *testing.T) {
	f := newFixture(t, tenLands, func(c *config.Config) {
		c.SkipPlayer.Enabled = true
		c.SkipPlayer.TimeoutMs = 3600000
	})
	code := f.start(t, "alice", "bob")
	ctx := context.Background()

	_, err := f.svc.PlayTurn(ctx, code)
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleSkipTimeout(ctx, scheduler.SkipPlayerEvent{GameCode: code, Step: 1}))
	assert.Equal(t, 2, f.snapshot(t, code).Game.CurrentStep)
	assert.Equal(t, 3, f.player(t, code, "bob").RemainingSkipsCount)

	require.NoError(t, f.svc.HandleSkipTimeout(ctx, scheduler.SkipPlayerEvent{GameCode: "GONE", Step: 1}))
}

func TestSkipTimerFiresThroughScheduler(t *testing.T) {
	f := newFixture(t, tenLands, func(c *config.Config) {
		c.SkipPlayer.Enabled = true
		c.SkipPlayer.TimeoutMs = 20
	})
	f.svc.now = time.Now
	code := f.start(t, "alice", "bob")

	require.Eventually(t, func() bool {
		return f.player(t, code, "alice").RemainingSkipsCount < 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManualSkip(t *testing.T) {
	f := newFixture(t, tenLands, func(c *config.Config) {
		c.SkipPlayer.Enabled = true
		c.SkipPlayer.TimeoutMs = 3600000
	})
	code := f.start(t, "alice", "bob")

	_, err := f.svc.SkipTurn(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, 2, f.player(t, code, "alice").RemainingSkipsCount)
	assert.Equal(t, "bob", f.holder(t, code))
	assert.Equal(t, "alice's turn skipped due to inactivity!", f.snapshot(t, code).Activities[2].Text)
}

func TestNextPlayerScanFromBankruptHolder(t *testing.T) {
	f := newFixture(t, tenLands)
	code := f.start(t, "alice", "bob", "carol")
	f.seed(t, code, func(tx store.GameTx, players map[string]*models.Player, lands []*models.Land) {
		alice := players["alice"]
		alice.State = models.PlayerBankrupt
		alice.BankruptcyOrder = 1
		require.NoError(t, tx.UpdatePlayer(alice))
	})

	winner, err := f.svc.PlayTurn(context.Background(), code)
	require.NoError(t, err)
	assert.Nil(t, winner)
	assert.Equal(t, "bob", f.holder(t, code))
}

func TestInvariantViolationRollsBack(t *testing.T) {
	f := newFixture(t, tenLands)
	code := f.start(t, "alice", "bob")
	f.seed(t, code, func(tx store.GameTx, players map[string]*models.Player, lands []*models.Land) {
		alice := players["alice"]
		alice.Turn = false
		require.NoError(t, tx.UpdatePlayer(alice))
	})

	_, err := f.svc.PlayTurn(context.Background(), code)
	require.Error(t, err)
	assert.True(t, errs.IsInvariant(err))
	assert.Equal(t, 1, f.snapshot(t, code).Game.CurrentStep)
}

func TestConcurrentTurnsAreSerialized(t *testing.T) {
	f := newFixture(t, tenLands)
	codes := []string{f.start(t, "alice", "bob", "carol"), f.start(t, "dave", "erin")}
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, code := range codes {
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func(code string) {
				defer wg.Done()
				_, err := f.svc.PlayTurn(ctx, code)
				assert.NoError(t, err)
			}(code)
		}
	}
	wg.Wait()

	for _, code := range codes {
		snap := f.snapshot(t, code)
		assert.Equal(t, 41, snap.Game.CurrentStep)

		holders := 0
		for _, p := range snap.Players {
			if p.Turn {
				holders++
			}
		}
		assert.Equal(t, 1, holders)
	}
	assert.Equal(t, 0, f.svc.locks.size())
}

func TestOwnershipNeverExceedsHundred(t *testing.T) {
	f := newFixture(t, tenLands)
	code := f.start(t, "alice", "bob", "carol")
	ctx := context.Background()
	snap := f.snapshot(t, code)
	land := snap.Lands[0]

	var wg sync.WaitGroup
	for _, p := range snap.Players {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				_, _ = f.svc.Invest(ctx, id, land.ID, 15)
			}(p.ID)
		}
	}
	wg.Wait()

	snap = f.snapshot(t, code)
	var stakes []*models.Stake
	for i := range snap.Lands[0].Stakes {
		stakes = append(stakes, &snap.Lands[0].Stakes[i])
	}
	total := ledger.TotalOwnership(land.ID, stakes)
	assert.True(t, total.LessThanOrEqual(dec(100)), total.String())
	assert.True(t, total.Equal(dec(90)), total.String())
}
