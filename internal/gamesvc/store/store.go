// Package store holds the game directory: games, players, lands, stakes,
// rents, activities and trends, grouped per game code.
package store

import (
	"context"
	"errors"

	"github.com/avvvet/strategists-services/internal/gamesvc/models"
)

// ErrCodeTaken is returned by CreateGame when the game code is in use.
var ErrCodeTaken = errors.New("game code already taken")

type Store interface {
	// CreateGame inserts a new game and runs fn against it in the same
	// atomic unit.
	CreateGame(ctx context.Context, game *models.Game, fn func(tx GameTx) error) error

	// InGame runs fn atomically against the records of one game. Callers on
	// the same game are serialized. A non-nil error from fn rolls back every
	// write fn made.
	InGame(ctx context.Context, code string, fn func(tx GameTx) error) error

	FindPlayer(ctx context.Context, id int64) (*models.Player, error)
	FindPlayerByEmail(ctx context.Context, email string) (*models.Player, error)
	Close()
}

// GameTx is the read-your-writes view of one game inside an atomic unit.
type GameTx interface {
	Game() (*models.Game, error)
	UpdateGame(g *models.Game) error
	DeleteGame() error

	// Players are ordered by join order.
	Players() ([]*models.Player, error)
	AddPlayer(p *models.Player) error
	UpdatePlayer(p *models.Player) error
	RemovePlayer(id int64) error

	// Lands are ordered by position.
	Lands() ([]*models.Land, error)
	AddLands(lands []*models.Land) error

	Stakes() ([]*models.Stake, error)
	// SaveStake inserts the stake or replaces the one of the same player
	// and land.
	SaveStake(s *models.Stake) error

	Rents() ([]*models.Rent, error)
	AddRent(r *models.Rent) error

	// Activities are ordered newest first.
	Activities() ([]*models.Activity, error)
	AddActivity(a *models.Activity) error

	// Trends are ordered oldest first.
	Trends() ([]*models.Trend, error)
	AddTrends(trends []*models.Trend) error

	// Reset drops stakes, rents, activities and trends of the game.
	Reset() error
}
