package store

import (
	"fmt"

	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
)

const selectPlayers = `
	SELECT id, game_code, username, email, idx, state, turn, host, bankruptcy_order,
		last_invest_step, last_skipped_step, remaining_skips_count
	FROM players
`

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var p models.Player
	err := row.Scan(
		&p.ID,
		&p.GameCode,
		&p.Username,
		&p.Email,
		&p.Index,
		&p.State,
		&p.Turn,
		&p.Host,
		&p.BankruptcyOrder,
		&p.LastInvestStep,
		&p.LastSkippedStep,
		&p.RemainingSkipsCount,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *pgTx) Players() ([]*models.Player, error) {
	rows, err := t.tx.Query(t.ctx, selectPlayers+` WHERE game_code = $1 ORDER BY id`, t.code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// AddPlayer fails with a ValidationError if the email is already part of a
// game (unique_player_email) or the username is taken in this game
// (unique_game_username).
func (t *pgTx) AddPlayer(p *models.Player) error {
	query := `
		INSERT INTO players (game_code, username, email, idx, state, turn, host, bankruptcy_order,
			last_invest_step, last_skipped_step, remaining_skips_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	p.GameCode = t.code
	err := t.tx.QueryRow(t.ctx, query,
		t.code,
		p.Username,
		p.Email,
		p.Index,
		p.State,
		p.Turn,
		p.Host,
		p.BankruptcyOrder,
		p.LastInvestStep,
		p.LastSkippedStep,
		p.RemainingSkipsCount,
	).Scan(&p.ID)
	if err != nil {
		return mapErr(err, "game", t.code)
	}
	return nil
}

func (t *pgTx) UpdatePlayer(p *models.Player) error {
	query := `
		UPDATE players
		SET idx = $3, state = $4, turn = $5, bankruptcy_order = $6, last_invest_step = $7,
			last_skipped_step = $8, remaining_skips_count = $9
		WHERE id = $1 AND game_code = $2
	`
	err := t.exec(query,
		p.ID,
		t.code,
		p.Index,
		p.State,
		p.Turn,
		p.BankruptcyOrder,
		p.LastInvestStep,
		p.LastSkippedStep,
		p.RemainingSkipsCount,
	)
	if err != nil {
		return fmt.Errorf("failed to update player %d: %w", p.ID, err)
	}
	return nil
}

func (t *pgTx) RemovePlayer(id int64) error {
	if err := t.exec(`DELETE FROM players WHERE id = $1 AND game_code = $2`, id, t.code); err != nil {
		return fmt.Errorf("failed to remove player %d: %w", id, err)
	}
	return nil
}
