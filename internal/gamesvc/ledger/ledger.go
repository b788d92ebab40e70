// Package ledger derives cash and net worth from stakes and rent records.
// Nothing here is stored; every value is recomputed from the records and
// kept exact. Rounding belongs to display.
package ledger

import (
	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Cash is baseCash minus the player's investments, minus rent paid, plus
// rent received.
func Cash(baseCash decimal.Decimal, playerID int64, stakes []*models.Stake, rents []*models.Rent) decimal.Decimal {
	cash := baseCash
	for _, s := range stakes {
		if s.PlayerID == playerID {
			cash = cash.Sub(s.BuyAmount)
		}
	}
	for _, r := range rents {
		if r.SourcePlayerID == playerID {
			cash = cash.Sub(r.Amount)
		}
		if r.TargetPlayerID == playerID {
			cash = cash.Add(r.Amount)
		}
	}
	return cash
}

// NetWorth is cash plus the current value of every stake the player holds.
// Stakes of a bankrupt player are worth nothing to them.
func NetWorth(baseCash decimal.Decimal, player *models.Player, stakes []*models.Stake, rents []*models.Rent, lands []*models.Land) decimal.Decimal {
	worth := Cash(baseCash, player.ID, stakes, rents)
	if player.IsBankrupt() {
		return worth
	}
	for _, s := range stakes {
		if s.PlayerID != player.ID {
			continue
		}
		if land := landByID(lands, s.LandID); land != nil {
			worth = worth.Add(StakeValue(land.MarketValue, s.Ownership))
		}
	}
	return worth
}

// TotalOwnership sums the ownership percents of all stakes on a land.
func TotalOwnership(landID int64, stakes []*models.Stake) decimal.Decimal {
	total := decimal.Zero
	for _, s := range stakes {
		if s.LandID == landID {
			total = total.Add(s.Ownership)
		}
	}
	return total
}

// StakeValue is marketValue * ownership / 100.
func StakeValue(marketValue, ownership decimal.Decimal) decimal.Decimal {
	return marketValue.Mul(ownership).Div(hundred)
}

// Rent owed to a stake holder: rentFactor * ownership/100 * marketValue.
func Rent(rentFactor float64, ownership, marketValue decimal.Decimal) decimal.Decimal {
	return StakeValue(marketValue, ownership).Mul(decimal.NewFromFloat(rentFactor))
}

func landByID(lands []*models.Land, id int64) *models.Land {
	for _, l := range lands {
		if l.ID == id {
			return l
		}
	}
	return nil
}
