package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type GameState string

const (
	GameLobby  GameState = "LOBBY"
	GameActive GameState = "ACTIVE"
)

type Game struct {
	Code              string          `json:"code"` // Primary key, immutable
	State             GameState       `json:"state"`
	CurrentStep       int             `json:"currentStep"`
	GameMapID         string          `json:"gameMapId"`
	DiceSize          int             `json:"diceSize"`
	RentFactor        float64         `json:"-"`
	PlayerBaseCash    decimal.Decimal `json:"-"`
	MinPlayersCount   int             `json:"minPlayersCount"`
	MaxPlayersCount   int             `json:"maxPlayersCount"`
	AllowedSkipsCount int             `json:"allowedSkipsCount,omitempty"` // 0 when skip-player is disabled
	SkipPlayerTimeout int64           `json:"skipPlayerTimeout,omitempty"` // milliseconds
	CleanUpDelay      int64           `json:"cleanUpDelay,omitempty"`      // milliseconds
	CreatedAt         time.Time       `json:"createdAt"`
	EndedAt           *time.Time      `json:"endedAt,omitempty"`
}

func (g *Game) IsLobby() bool {
	return g.State == GameLobby
}

func (g *Game) IsActive() bool {
	return g.State == GameActive
}

func (g *Game) SkipEnabled() bool {
	return g.AllowedSkipsCount > 0 && g.SkipPlayerTimeout > 0
}

func (g *Game) CleanUpEnabled() bool {
	return g.CleanUpDelay > 0
}
