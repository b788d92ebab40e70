// Package updates builds the records describing every game mutation and
// delivers them to subscribers in per-game order.
package updates

import (
	"time"

	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/shopspring/decimal"
)

// Update is immutable once dispatched.
type Update struct {
	Timestamp int64             `json:"timestamp"` // unix millis
	Type      models.UpdateType `json:"type"`
	GameCode  string            `json:"gameCode"`
	GameStep  int               `json:"gameStep"`
	Activity  *models.Activity  `json:"activity,omitempty"`
	Payload   any               `json:"payload,omitempty"`
}

func Ping(gameCode string, now time.Time) *Update {
	return &Update{Timestamp: now.UnixMilli(), Type: models.UpdatePing, GameCode: gameCode}
}

// Resync tells subscribers that updates up to step were lost and the game
// has to be fetched again.
func Resync(gameCode string, step int, now time.Time) *Update {
	return &Update{Timestamp: now.UnixMilli(), Type: models.UpdateResync, GameCode: gameCode, GameStep: step}
}

type PlayerView struct {
	models.Player
	Cash     decimal.Decimal `json:"cash"`
	NetWorth decimal.Decimal `json:"netWorth"`
}

type LandView struct {
	models.Land
	TotalOwnership decimal.Decimal `json:"totalOwnership"`
	Stakes         []models.Stake  `json:"stakes"`
}

// Snapshot is the full state handed to late joiners and REST readers.
type Snapshot struct {
	Game        models.Game         `json:"game"`
	Players     []PlayerView        `json:"players"`
	Lands       []LandView          `json:"lands"`
	Activities  []models.Activity   `json:"activities"` // newest first
	Trends      []models.Trend      `json:"trends"`     // oldest first
	Advices     []models.Advice     `json:"advices,omitempty"`
	Predictions []models.Prediction `json:"predictions,omitempty"`
}

type CreatePayload struct {
	Game   models.Game `json:"game"`
	Player PlayerView  `json:"player"`
}

type JoinPayload struct {
	Player PlayerView `json:"player"`
}

type KickPayload struct {
	PlayerID int64 `json:"playerId"`
}

type StartPayload struct {
	Game   models.Game `json:"game"`
	Player PlayerView  `json:"player"`
}

type MovePayload struct {
	Player PlayerView  `json:"player"`
	Roll   int         `json:"roll"`
	Land   models.Land `json:"land"`
}

type InvestPayload struct {
	Land    LandView     `json:"land"`
	Players []PlayerView `json:"players"`
}

type RentPayload struct {
	Rent   models.Rent `json:"rent"`
	Source PlayerView  `json:"source"`
	Target PlayerView  `json:"target"`
}

type SkipPayload struct {
	Player PlayerView `json:"player"`
}

type BankruptcyPayload struct {
	Player  PlayerView   `json:"player"`
	Players []PlayerView `json:"players"`
}

type TurnPayload struct {
	Current  PlayerView `json:"current"`
	Previous PlayerView `json:"previous"`
}

type WinPayload struct {
	Game   models.Game `json:"game"`
	Player PlayerView  `json:"player"`
}

type TrendPayload struct {
	Trends []models.Trend `json:"trends"`
}

type AdvicePayload struct {
	Advices []models.Advice `json:"advices"`
}

type PredictionPayload struct {
	Predictions []models.Prediction `json:"predictions"`
}
