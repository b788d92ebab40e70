package models

type AdviceType string

const (
	AdviceAvoidTimeout           AdviceType = "AVOID_TIMEOUT"
	AdviceFrequentlyInvest       AdviceType = "FREQUENTLY_INVEST"
	AdviceConcentrateInvestments AdviceType = "CONCENTRATE_INVESTMENTS"
)

type AdviceState string

const (
	AdviceNew      AdviceState = "NEW"
	AdviceFollowed AdviceState = "FOLLOWED"
)

type Advice struct {
	GameCode string      `json:"gameCode"`
	PlayerID int64       `json:"playerId"`
	Type     AdviceType  `json:"type"`
	State    AdviceState `json:"state"`
	Priority int         `json:"priority"`
	Viewed   bool        `json:"viewed"`
	Text     string      `json:"text"`
}

type Prediction struct {
	PlayerID            int64   `json:"playerId"`
	Username            string  `json:"username"`
	BankruptProbability float64 `json:"bankruptProbability"`
	WinnerProbability   float64 `json:"winnerProbability"`
	Prediction          string  `json:"prediction"` // WINNER or BANKRUPT
}
