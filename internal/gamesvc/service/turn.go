package service

import (
	"context"
	"math"

	"github.com/avvvet/strategists-services/internal/gamesvc/errs"
	"github.com/avvvet/strategists-services/internal/gamesvc/ledger"
	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/avvvet/strategists-services/internal/gamesvc/scheduler"
	"github.com/avvvet/strategists-services/internal/gamesvc/updates"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var hundred = decimal.NewFromInt(100)

// PlayTurn passes the turn to the next player and resolves their move. It
// returns the winner once a single active player is left.
func (s *GameService) PlayTurn(ctx context.Context, code string) (*models.Player, error) {
	var winner *models.Player
	err := s.execute(ctx, code, func(st *gameState, b *batch) error {
		if !st.game.IsActive() {
			return errs.Validation("game %s has not started", code)
		}
		w, err := s.playTurn(st, b)
		if err != nil {
			return err
		}
		winner = w
		s.afterTurn(st, b, w)
		return nil
	})
	return winner, err
}

// SkipTurn consumes one skip of the current turn holder and plays the turn.
func (s *GameService) SkipTurn(ctx context.Context, code string) (*models.Player, error) {
	var winner *models.Player
	err := s.execute(ctx, code, func(st *gameState, b *batch) error {
		if !st.game.IsActive() || st.game.EndedAt != nil {
			return errs.Validation("game %s is not in progress", code)
		}
		w, err := s.skipTurn(st, b)
		if err != nil {
			return err
		}
		winner = w
		s.afterTurn(st, b, w)
		return nil
	})
	return winner, err
}

// HandleSkipTimeout is the skip-player timer callback. It does nothing when
// the game moved on since the timer was armed.
func (s *GameService) HandleSkipTimeout(ctx context.Context, ev scheduler.SkipPlayerEvent) error {
	err := s.execute(ctx, ev.GameCode, func(st *gameState, b *batch) error {
		if !st.game.IsActive() || st.game.EndedAt != nil || st.game.CurrentStep != ev.Step {
			log.Debugf("stale skip timer for game %s at step %d ignored", ev.GameCode, ev.Step)
			return nil
		}
		w, err := s.skipTurn(st, b)
		if err != nil {
			return err
		}
		s.afterTurn(st, b, w)
		return nil
	})
	if errs.IsNotFound(err) {
		return nil
	}
	return err
}

func (s *GameService) skipTurn(st *gameState, b *batch) (*models.Player, error) {
	holder := st.turnHolder()
	if holder == nil {
		return nil, s.invariant(st, "no player holds the turn")
	}

	holder.RemainingSkipsCount--
	holder.LastSkippedStep = st.game.CurrentStep
	if err := st.savePlayer(holder); err != nil {
		return nil, err
	}
	log.Infof("%d/%d skips remain for %s in game %s", holder.RemainingSkipsCount, st.game.AllowedSkipsCount, holder.Username, st.game.Code)
	if err := b.record(models.UpdateSkip, updates.SkipText(holder.Username), updates.SkipPayload{Player: st.view(holder)}); err != nil {
		return nil, err
	}

	if holder.RemainingSkipsCount <= 0 {
		if err := s.bankrupt(st, b, holder); err != nil {
			return nil, err
		}
	}
	return s.playTurn(st, b)
}

func (s *GameService) playTurn(st *gameState, b *batch) (*models.Player, error) {
	active := st.active()
	switch len(active) {
	case 0:
		return nil, s.invariant(st, "no active player left")
	case 1:
		return s.win(st, b, active[0])
	}
	if len(st.lands) == 0 {
		return nil, s.invariant(st, "game has no lands")
	}

	st.game.CurrentStep++
	if err := st.saveGame(); err != nil {
		return nil, err
	}

	current := st.turnHolder()
	if current == nil {
		return nil, s.invariant(st, "no player holds the turn")
	}
	next := st.nextPlayer(current)
	if next == nil {
		return nil, s.invariant(st, "no next player after %s with %d active players", current.Username, len(active))
	}

	current.Turn = false
	next.Turn = true
	if err := st.savePlayer(current, next); err != nil {
		return nil, err
	}
	err := b.record(models.UpdateTurn, updates.TurnText(current.Username, next.Username), updates.TurnPayload{
		Current:  st.view(next),
		Previous: st.view(current),
	})
	if err != nil {
		return nil, err
	}

	roll := s.roll(st.game.DiceSize)
	next.Index = (next.Index + roll) % len(st.lands)
	if err := st.savePlayer(next); err != nil {
		return nil, err
	}
	land := st.lands[next.Index]
	err = b.record(models.UpdateMove, updates.MoveText(next.Username, roll, land.Name), updates.MovePayload{
		Player: st.view(next),
		Roll:   roll,
		Land:   *land,
	})
	if err != nil {
		return nil, err
	}

	if err := s.payRents(st, b, next, land); err != nil {
		return nil, err
	}
	if err := s.recordTrends(st, b); err != nil {
		return nil, err
	}

	if !st.cash(next).IsPositive() {
		if err := s.bankrupt(st, b, next); err != nil {
			return nil, err
		}
		return s.playTurn(st, b)
	}
	return nil, nil
}

// win stamps the end of the game once and returns the survivor.
func (s *GameService) win(st *gameState, b *batch, winner *models.Player) (*models.Player, error) {
	if st.game.EndedAt != nil {
		return winner, nil
	}
	now := s.now()
	st.game.EndedAt = &now
	if err := st.saveGame(); err != nil {
		return nil, err
	}
	b.won = true
	log.Infof("%s won game %s at step %d", winner.Username, st.game.Code, st.game.CurrentStep)
	err := b.record(models.UpdateWin, updates.WinText(winner.Username), updates.WinPayload{
		Game:   *st.game,
		Player: st.view(winner),
	})
	return winner, err
}

// payRents charges the mover for every other solvent stake holder of land.
func (s *GameService) payRents(st *gameState, b *batch, mover *models.Player, land *models.Land) error {
	for _, stake := range st.stakesOn(land.ID) {
		holder := st.player(stake.PlayerID)
		if holder == nil || holder.ID == mover.ID || holder.IsBankrupt() {
			continue
		}
		rent := &models.Rent{
			SourcePlayerID: mover.ID,
			TargetPlayerID: holder.ID,
			LandID:         land.ID,
			Amount:         ledger.Rent(st.game.RentFactor, stake.Ownership, land.MarketValue),
			Step:           st.game.CurrentStep,
		}
		if err := st.addRent(rent); err != nil {
			return err
		}
		err := b.record(models.UpdateRent, updates.RentText(mover.Username, rent.Amount, holder.Username, land.Name), updates.RentPayload{
			Rent:   *rent,
			Source: st.view(mover),
			Target: st.view(holder),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *GameService) bankrupt(st *gameState, b *batch, p *models.Player) error {
	p.BankruptcyOrder = st.bankruptCount() + 1
	p.State = models.PlayerBankrupt
	if err := st.savePlayer(p); err != nil {
		return err
	}
	log.Infof("%s went bankrupt in game %s (order %d)", p.Username, st.game.Code, p.BankruptcyOrder)
	return b.record(models.UpdateBankruptcy, updates.BankruptcyText(p.Username), updates.BankruptcyPayload{
		Player:  st.view(p),
		Players: st.views(st.players),
	})
}

func (s *GameService) recordTrends(st *gameState, b *batch) error {
	trends := st.trends()
	if err := st.tx.AddTrends(trends); err != nil {
		return err
	}
	payload := updates.TrendPayload{}
	for _, t := range trends {
		payload.Trends = append(payload.Trends, *t)
	}
	return b.record(models.UpdateTrend, "", payload)
}

// assignInitialTurn hands the turn to a random player.
func (s *GameService) assignInitialTurn(st *gameState) (*models.Player, error) {
	if st.turnHolder() != nil {
		return nil, errs.Validation("turn already assigned in game %s", st.game.Code)
	}
	if len(st.players) == 0 {
		return nil, errs.Validation("game %s has no players", st.game.Code)
	}
	for _, p := range st.players {
		p.BankruptcyOrder = len(st.players)
	}
	first := st.players[s.pick(len(st.players))]
	first.Turn = true
	if err := st.savePlayer(st.players...); err != nil {
		return nil, err
	}
	return first, nil
}

// Invest buys percent of a land for a player.
func (s *GameService) Invest(ctx context.Context, playerID, landID int64, percent float64) (*models.Stake, error) {
	if math.IsNaN(percent) || math.IsInf(percent, 0) {
		return nil, errs.Validation("ownership must be a finite percent")
	}
	ownership := decimal.NewFromFloat(percent)
	if !ownership.IsPositive() {
		return nil, errs.Validation("ownership must be positive")
	}
	player, err := s.store.FindPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	var stake *models.Stake
	err = s.execute(ctx, player.GameCode, func(st *gameState, b *batch) error {
		p := st.player(playerID)
		if p == nil {
			return errs.NotFound("player", playerID)
		}
		if !st.game.IsActive() || st.game.EndedAt != nil {
			return errs.Validation("game %s is not in progress", st.game.Code)
		}
		if p.IsBankrupt() {
			return errs.Validation("%s is bankrupt", p.Username)
		}
		land := st.land(landID)
		if land == nil {
			return errs.NotFound("land", landID)
		}

		total := ledger.TotalOwnership(land.ID, st.stakes)
		if total.Add(ownership).GreaterThan(hundred) {
			return errs.Validation("capacity exceeded: %s%% of %s is still available", hundred.Sub(total).StringFixed(2), land.Name)
		}
		buyAmount := ledger.StakeValue(land.MarketValue, ownership)
		cash := st.cash(p)
		if !cash.GreaterThan(buyAmount) {
			return errs.Validation("insufficient funds: %s's %s cash is not more than %s", p.Username, cash.StringFixed(2), buyAmount.StringFixed(2))
		}

		stake = st.stake(p.ID, land.ID)
		if stake == nil {
			stake = &models.Stake{PlayerID: p.ID, LandID: land.ID}
		}
		stake.Ownership = stake.Ownership.Add(ownership)
		stake.BuyAmount = stake.BuyAmount.Add(buyAmount)
		if err := st.saveStake(stake); err != nil {
			return err
		}
		p.LastInvestStep = st.game.CurrentStep
		if err := st.savePlayer(p); err != nil {
			return err
		}

		var holders []*models.Player
		for _, sk := range st.stakesOn(land.ID) {
			if h := st.player(sk.PlayerID); h != nil {
				holders = append(holders, h)
			}
		}
		return b.record(models.UpdateInvest, updates.InvestText(p.Username, ownership, land.Name), updates.InvestPayload{
			Land:    st.landView(land),
			Players: st.views(holders),
		})
	})
	if err != nil {
		return nil, err
	}
	log.Infof("player %d invested %s%% in land %d", playerID, ownership.String(), landID)
	return stake, nil
}
