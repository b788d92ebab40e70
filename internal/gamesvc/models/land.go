package models

import "github.com/shopspring/decimal"

type Land struct {
	ID          int64           `json:"id"`
	GameCode    string          `json:"gameCode"`
	Name        string          `json:"name"`
	MarketValue decimal.Decimal `json:"marketValue"`
	Position    int             `json:"position"` // order in the cycle, starting at 0
}

// Stake is the ownership edge between a player and a land. One stake per
// player/land pair; later investments extend it.
type Stake struct {
	GameCode  string          `json:"gameCode"`
	PlayerID  int64           `json:"playerId"`
	LandID    int64           `json:"landId"`
	Ownership decimal.Decimal `json:"ownership"` // percent, (0,100]
	BuyAmount decimal.Decimal `json:"buyAmount"`
}
