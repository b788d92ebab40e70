package store

import (
	"fmt"

	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
)

func (t *pgTx) Activities() ([]*models.Activity, error) {
	query := `
		SELECT id, game_code, step, type, text, created_at
		FROM activities
		WHERE game_code = $1
		ORDER BY id DESC
	`
	rows, err := t.tx.Query(t.ctx, query, t.code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.GameCode, &a.Step, &a.Type, &a.Text, &a.CreatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, &a)
	}
	return activities, rows.Err()
}

func (t *pgTx) AddActivity(a *models.Activity) error {
	query := `
		INSERT INTO activities (game_code, step, type, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	a.GameCode = t.code
	if err := t.tx.QueryRow(t.ctx, query, t.code, a.Step, a.Type, a.Text, a.CreatedAt).Scan(&a.ID); err != nil {
		return fmt.Errorf("failed to add activity: %w", err)
	}
	return nil
}

func (t *pgTx) Trends() ([]*models.Trend, error) {
	query := `
		SELECT id, game_code, step, player_id, land_id, cash, net_worth, market_value, total_ownership
		FROM trends
		WHERE game_code = $1
		ORDER BY id
	`
	rows, err := t.tx.Query(t.ctx, query, t.code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []*models.Trend
	for rows.Next() {
		var tr models.Trend
		err := rows.Scan(
			&tr.ID,
			&tr.GameCode,
			&tr.Step,
			&tr.PlayerID,
			&tr.LandID,
			&tr.Cash,
			&tr.NetWorth,
			&tr.MarketValue,
			&tr.TotalOwnership,
		)
		if err != nil {
			return nil, err
		}
		trends = append(trends, &tr)
	}
	return trends, rows.Err()
}

func (t *pgTx) AddTrends(trends []*models.Trend) error {
	batch := &pgx.Batch{}
	for _, tr := range trends {
		tr.GameCode = t.code
		batch.Queue(`
			INSERT INTO trends (game_code, step, player_id, land_id, cash, net_worth, market_value, total_ownership)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, t.code, tr.Step, tr.PlayerID, tr.LandID, tr.Cash, tr.NetWorth, tr.MarketValue, tr.TotalOwnership)
	}
	if err := t.tx.SendBatch(t.ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to add trends: %w", err)
	}
	return nil
}
