package service

import (
	"github.com/avvvet/strategists-services/internal/gamesvc/advice"
	"github.com/avvvet/strategists-services/internal/gamesvc/ledger"
	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/avvvet/strategists-services/internal/gamesvc/store"
	"github.com/avvvet/strategists-services/internal/gamesvc/updates"
	"github.com/shopspring/decimal"
)

// gameState is the in-memory copy of one game's tables for the length of an
// atomic unit. Writes go through to the transaction and the copy alike.
type gameState struct {
	tx      store.GameTx
	game    *models.Game
	players []*models.Player
	lands   []*models.Land
	stakes  []*models.Stake
	rents   []*models.Rent
}

func loadState(tx store.GameTx) (*gameState, error) {
	st := &gameState{tx: tx}
	var err error
	if st.game, err = tx.Game(); err != nil {
		return nil, err
	}
	if st.players, err = tx.Players(); err != nil {
		return nil, err
	}
	if st.lands, err = tx.Lands(); err != nil {
		return nil, err
	}
	if st.stakes, err = tx.Stakes(); err != nil {
		return nil, err
	}
	if st.rents, err = tx.Rents(); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *gameState) player(id int64) *models.Player {
	for _, p := range st.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (st *gameState) land(id int64) *models.Land {
	for _, l := range st.lands {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (st *gameState) active() []*models.Player {
	var out []*models.Player
	for _, p := range st.players {
		if !p.IsBankrupt() {
			out = append(out, p)
		}
	}
	return out
}

func (st *gameState) bankruptCount() int {
	return len(st.players) - len(st.active())
}

func (st *gameState) turnHolder() *models.Player {
	for _, p := range st.players {
		if p.Turn {
			return p
		}
	}
	return nil
}

// nextPlayer scans the players cyclically after current, skipping the
// bankrupt ones. It returns nil when current is the only candidate.
func (st *gameState) nextPlayer(current *models.Player) *models.Player {
	idx := -1
	for i, p := range st.players {
		if p.ID == current.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	n := len(st.players)
	for i := 1; i < n; i++ {
		p := st.players[(idx+i)%n]
		if !p.IsBankrupt() {
			return p
		}
	}
	return nil
}

func (st *gameState) stakesOn(landID int64) []*models.Stake {
	var out []*models.Stake
	for _, s := range st.stakes {
		if s.LandID == landID {
			out = append(out, s)
		}
	}
	return out
}

func (st *gameState) stake(playerID, landID int64) *models.Stake {
	for _, s := range st.stakes {
		if s.PlayerID == playerID && s.LandID == landID {
			return s
		}
	}
	return nil
}

func (st *gameState) cash(p *models.Player) decimal.Decimal {
	return ledger.Cash(st.game.PlayerBaseCash, p.ID, st.stakes, st.rents)
}

func (st *gameState) netWorth(p *models.Player) decimal.Decimal {
	return ledger.NetWorth(st.game.PlayerBaseCash, p, st.stakes, st.rents, st.lands)
}

func (st *gameState) saveGame() error {
	return st.tx.UpdateGame(st.game)
}

func (st *gameState) savePlayer(players ...*models.Player) error {
	for _, p := range players {
		if err := st.tx.UpdatePlayer(p); err != nil {
			return err
		}
	}
	return nil
}

func (st *gameState) addRent(r *models.Rent) error {
	if err := st.tx.AddRent(r); err != nil {
		return err
	}
	st.rents = append(st.rents, r)
	return nil
}

func (st *gameState) saveStake(s *models.Stake) error {
	if err := st.tx.SaveStake(s); err != nil {
		return err
	}
	if st.stake(s.PlayerID, s.LandID) == nil {
		st.stakes = append(st.stakes, s)
	}
	return nil
}

func (st *gameState) view(p *models.Player) updates.PlayerView {
	return updates.PlayerView{Player: *p, Cash: st.cash(p), NetWorth: st.netWorth(p)}
}

func (st *gameState) views(players []*models.Player) []updates.PlayerView {
	out := make([]updates.PlayerView, 0, len(players))
	for _, p := range players {
		out = append(out, st.view(p))
	}
	return out
}

func (st *gameState) landView(l *models.Land) updates.LandView {
	v := updates.LandView{Land: *l, TotalOwnership: ledger.TotalOwnership(l.ID, st.stakes), Stakes: []models.Stake{}}
	for _, s := range st.stakesOn(l.ID) {
		v.Stakes = append(v.Stakes, *s)
	}
	return v
}

func (st *gameState) trends() []*models.Trend {
	var out []*models.Trend
	for _, p := range st.active() {
		out = append(out, &models.Trend{
			Step:     st.game.CurrentStep,
			PlayerID: p.ID,
			Cash:     st.cash(p),
			NetWorth: st.netWorth(p),
		})
	}
	for _, l := range st.lands {
		out = append(out, &models.Trend{
			Step:           st.game.CurrentStep,
			LandID:         l.ID,
			MarketValue:    l.MarketValue,
			TotalOwnership: ledger.TotalOwnership(l.ID, st.stakes),
		})
	}
	return out
}

func (st *gameState) adviceInput() advice.Input {
	in := advice.Input{Game: *st.game}
	for _, p := range st.players {
		in.Players = append(in.Players, *p)
	}
	for _, l := range st.lands {
		in.Lands = append(in.Lands, *l)
	}
	for _, s := range st.stakes {
		in.Stakes = append(in.Stakes, *s)
	}
	return in
}

func (st *gameState) snapshot() (*updates.Snapshot, error) {
	snap := &updates.Snapshot{
		Game:    *st.game,
		Players: st.views(st.players),
	}
	for _, l := range st.lands {
		snap.Lands = append(snap.Lands, st.landView(l))
	}
	activities, err := st.tx.Activities()
	if err != nil {
		return nil, err
	}
	for _, a := range activities {
		snap.Activities = append(snap.Activities, *a)
	}
	trends, err := st.tx.Trends()
	if err != nil {
		return nil, err
	}
	for _, t := range trends {
		snap.Trends = append(snap.Trends, *t)
	}
	return snap, nil
}
