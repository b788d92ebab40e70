package advice

import (
	"fmt"

	"github.com/avvvet/strategists-services/internal/gamesvc/models"
)

// AvoidTimeout is needed when a player was skipped within the last round.
func AvoidTimeout(priority int) Evaluator {
	return func(in *Input) []models.Advice {
		active := in.activeCount()
		var out []models.Advice
		for _, p := range in.Players {
			if p.IsBankrupt() {
				continue
			}
			needed := p.LastSkippedStep > 0 && in.Game.CurrentStep-p.LastSkippedStep <= active
			a, ok := transition(in.Previous(p.ID, models.AdviceAvoidTimeout), needed, func() models.Advice {
				return models.Advice{
					PlayerID: p.ID,
					Type:     models.AdviceAvoidTimeout,
					Priority: priority,
					Text:     "Your turn was skipped due to inactivity. Play your turn in time to avoid bankruptcy!",
				}
			})
			if ok {
				out = append(out, a)
			}
		}
		return out
	}
}

// FrequentlyInvest is needed when a player has not invested for lookBack
// rounds.
func FrequentlyInvest(priority, lookBack int) Evaluator {
	return func(in *Input) []models.Advice {
		active := in.activeCount()
		var out []models.Advice
		for _, p := range in.Players {
			if p.IsBankrupt() {
				continue
			}
			needed := in.Game.CurrentStep-p.LastInvestStep > active*lookBack
			a, ok := transition(in.Previous(p.ID, models.AdviceFrequentlyInvest), needed, func() models.Advice {
				return models.Advice{
					PlayerID: p.ID,
					Type:     models.AdviceFrequentlyInvest,
					Priority: priority,
					Text:     fmt.Sprintf("You have yet to invest in the last %d turns. Try investing more to get a competitive edge!", lookBack),
				}
			})
			if ok {
				out = append(out, a)
			}
		}
		return out
	}
}

// ConcentrateInvestments is needed when a player holds at least minCount
// lands but no dice-size window of consecutive lands contains minCount of
// them.
func ConcentrateInvestments(priority, minCount int) Evaluator {
	return func(in *Input) []models.Advice {
		var out []models.Advice
		for _, p := range in.Players {
			if p.IsBankrupt() {
				continue
			}
			owned := map[int64]bool{}
			for _, s := range in.Stakes {
				if s.PlayerID == p.ID {
					owned[s.LandID] = true
				}
			}
			if len(owned) < minCount {
				continue
			}
			needed := maxWindowCount(in.Lands, in.Game.DiceSize, owned) < minCount
			a, ok := transition(in.Previous(p.ID, models.AdviceConcentrateInvestments), needed, func() models.Advice {
				return models.Advice{
					PlayerID: p.ID,
					Type:     models.AdviceConcentrateInvestments,
					Priority: priority,
					Text:     fmt.Sprintf("You have invested all over the map; try to have at least %d investments close by!", minCount),
				}
			})
			if ok {
				out = append(out, a)
			}
		}
		return out
	}
}

// maxWindowCount slides a window of size lands around the cycle and
// returns the highest number of owned lands seen in one window.
func maxWindowCount(lands []models.Land, size int, owned map[int64]bool) int {
	n := len(lands)
	if n == 0 {
		return 0
	}
	count, best := 0, 0
	for j := 0; j < size; j++ {
		if owned[lands[j%n].ID] {
			count++
		}
	}
	best = count
	for i := 1; i < n; i++ {
		if owned[lands[(i-1)%n].ID] {
			count--
		}
		if owned[lands[(i+size-1)%n].ID] {
			count++
		}
		if count > best {
			best = count
		}
	}
	return best
}
