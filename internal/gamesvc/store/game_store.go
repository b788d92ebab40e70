package store

import (
	"fmt"

	"github.com/avvvet/strategists-services/internal/gamesvc/models"
)

const selectGame = `
	SELECT code, state, current_step, game_map_id, dice_size, rent_factor, player_base_cash,
		min_players_count, max_players_count, allowed_skips_count, skip_player_timeout,
		clean_up_delay, created_at, ended_at
	FROM games
`

func (t *pgTx) insertGame(g *models.Game) error {
	query := `
		INSERT INTO games (code, state, current_step, game_map_id, dice_size, rent_factor, player_base_cash,
			min_players_count, max_players_count, allowed_skips_count, skip_player_timeout, clean_up_delay, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	return t.exec(query,
		g.Code,
		g.State,
		g.CurrentStep,
		g.GameMapID,
		g.DiceSize,
		g.RentFactor,
		g.PlayerBaseCash,
		g.MinPlayersCount,
		g.MaxPlayersCount,
		g.AllowedSkipsCount,
		g.SkipPlayerTimeout,
		g.CleanUpDelay,
		g.CreatedAt,
	)
}

func (t *pgTx) Game() (*models.Game, error) {
	var g models.Game
	err := t.tx.QueryRow(t.ctx, selectGame+` WHERE code = $1`, t.code).Scan(
		&g.Code,
		&g.State,
		&g.CurrentStep,
		&g.GameMapID,
		&g.DiceSize,
		&g.RentFactor,
		&g.PlayerBaseCash,
		&g.MinPlayersCount,
		&g.MaxPlayersCount,
		&g.AllowedSkipsCount,
		&g.SkipPlayerTimeout,
		&g.CleanUpDelay,
		&g.CreatedAt,
		&g.EndedAt,
	)
	if err != nil {
		return nil, mapErr(err, "game", t.code)
	}
	return &g, nil
}

func (t *pgTx) UpdateGame(g *models.Game) error {
	query := `
		UPDATE games
		SET state = $2, current_step = $3, created_at = $4, ended_at = $5
		WHERE code = $1
	`
	if err := t.exec(query, t.code, g.State, g.CurrentStep, g.CreatedAt, g.EndedAt); err != nil {
		return fmt.Errorf("failed to update game %s: %w", t.code, err)
	}
	return nil
}

func (t *pgTx) DeleteGame() error {
	if err := t.exec(`DELETE FROM games WHERE code = $1`, t.code); err != nil {
		return fmt.Errorf("failed to delete game %s: %w", t.code, err)
	}
	return nil
}
