package store

import (
	"fmt"

	"github.com/avvvet/strategists-services/internal/gamesvc/models"
)

func (t *pgTx) Rents() ([]*models.Rent, error) {
	query := `
		SELECT id, game_code, source_player_id, target_player_id, land_id, amount, step
		FROM rents
		WHERE game_code = $1
		ORDER BY id
	`
	rows, err := t.tx.Query(t.ctx, query, t.code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rents []*models.Rent
	for rows.Next() {
		var r models.Rent
		err := rows.Scan(
			&r.ID,
			&r.GameCode,
			&r.SourcePlayerID,
			&r.TargetPlayerID,
			&r.LandID,
			&r.Amount,
			&r.Step,
		)
		if err != nil {
			return nil, err
		}
		rents = append(rents, &r)
	}
	return rents, rows.Err()
}

func (t *pgTx) AddRent(r *models.Rent) error {
	query := `
		INSERT INTO rents (game_code, source_player_id, target_player_id, land_id, amount, step)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	r.GameCode = t.code
	err := t.tx.QueryRow(t.ctx, query, t.code, r.SourcePlayerID, r.TargetPlayerID, r.LandID, r.Amount, r.Step).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to add rent: %w", err)
	}
	return nil
}
