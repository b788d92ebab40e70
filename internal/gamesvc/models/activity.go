package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type UpdateType string

const (
	UpdateAdvice     UpdateType = "ADVICE"
	UpdateBankruptcy UpdateType = "BANKRUPTCY"
	UpdateCleanUp    UpdateType = "CLEAN_UP"
	UpdateCreate     UpdateType = "CREATE"
	UpdateInvest     UpdateType = "INVEST"
	UpdateJoin       UpdateType = "JOIN"
	UpdateKick       UpdateType = "KICK"
	UpdateMove       UpdateType = "MOVE"
	UpdatePing       UpdateType = "PING"
	UpdatePrediction UpdateType = "PREDICTION"
	UpdateRent       UpdateType = "RENT"
	UpdateReset      UpdateType = "RESET"
	UpdateResync     UpdateType = "RESYNC"
	UpdateSkip       UpdateType = "SKIP"
	UpdateStart      UpdateType = "START"
	UpdateTrend      UpdateType = "TREND"
	UpdateTurn       UpdateType = "TURN"
	UpdateWin        UpdateType = "WIN"
)

// Activity is one line of a game's ordered activity log.
type Activity struct {
	ID        int64      `json:"id"`
	GameCode  string     `json:"gameCode"`
	Step      int        `json:"step"`
	Type      UpdateType `json:"type"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Trend is a valuation sample of a player (Cash, NetWorth) or of a land
// (MarketValue, TotalOwnership) at a given step.
type Trend struct {
	ID             int64           `json:"id"`
	GameCode       string          `json:"gameCode"`
	Step           int             `json:"step"`
	PlayerID       int64           `json:"playerId,omitempty"`
	LandID         int64           `json:"landId,omitempty"`
	Cash           decimal.Decimal `json:"cash"`
	NetWorth       decimal.Decimal `json:"netWorth"`
	MarketValue    decimal.Decimal `json:"marketValue"`
	TotalOwnership decimal.Decimal `json:"totalOwnership"`
}
