package store

import (
	"fmt"

	"github.com/avvvet/strategists-services/internal/gamesvc/models"
)

func (t *pgTx) Lands() ([]*models.Land, error) {
	query := `
		SELECT id, game_code, name, market_value, position
		FROM lands
		WHERE game_code = $1
		ORDER BY position
	`
	rows, err := t.tx.Query(t.ctx, query, t.code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lands []*models.Land
	for rows.Next() {
		var l models.Land
		if err := rows.Scan(&l.ID, &l.GameCode, &l.Name, &l.MarketValue, &l.Position); err != nil {
			return nil, err
		}
		lands = append(lands, &l)
	}
	return lands, rows.Err()
}

func (t *pgTx) AddLands(lands []*models.Land) error {
	query := `
		INSERT INTO lands (game_code, name, market_value, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	for _, l := range lands {
		l.GameCode = t.code
		if err := t.tx.QueryRow(t.ctx, query, t.code, l.Name, l.MarketValue, l.Position).Scan(&l.ID); err != nil {
			return fmt.Errorf("failed to add land %s: %w", l.Name, err)
		}
	}
	return nil
}

func (t *pgTx) Stakes() ([]*models.Stake, error) {
	query := `
		SELECT game_code, player_id, land_id, ownership, buy_amount
		FROM stakes
		WHERE game_code = $1
	`
	rows, err := t.tx.Query(t.ctx, query, t.code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stakes []*models.Stake
	for rows.Next() {
		var s models.Stake
		if err := rows.Scan(&s.GameCode, &s.PlayerID, &s.LandID, &s.Ownership, &s.BuyAmount); err != nil {
			return nil, err
		}
		stakes = append(stakes, &s)
	}
	return stakes, rows.Err()
}

func (t *pgTx) SaveStake(s *models.Stake) error {
	query := `
		INSERT INTO stakes (game_code, player_id, land_id, ownership, buy_amount)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (player_id, land_id)
		DO UPDATE SET ownership = EXCLUDED.ownership, buy_amount = EXCLUDED.buy_amount
	`
	s.GameCode = t.code
	if err := t.exec(query, t.code, s.PlayerID, s.LandID, s.Ownership, s.BuyAmount); err != nil {
		return fmt.Errorf("failed to save stake of player %d on land %d: %w", s.PlayerID, s.LandID, err)
	}
	return nil
}
