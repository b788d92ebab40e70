package models

import "github.com/shopspring/decimal"

// Rent is an append-only payment record from the player who landed on a
// tile to one stake holder of that tile.
type Rent struct {
	ID             int64           `json:"id"`
	GameCode       string          `json:"gameCode"`
	SourcePlayerID int64           `json:"sourcePlayerId"`
	TargetPlayerID int64           `json:"targetPlayerId"`
	LandID         int64           `json:"landId"`
	Amount         decimal.Decimal `json:"amount"`
	Step           int             `json:"step"`
}
