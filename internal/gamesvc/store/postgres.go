package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/strategists-services/internal/gamesvc/errs"
	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	code                TEXT PRIMARY KEY,
	state               TEXT NOT NULL,
	current_step        INTEGER NOT NULL DEFAULT 0,
	game_map_id         TEXT NOT NULL,
	dice_size           INTEGER NOT NULL,
	rent_factor         DOUBLE PRECISION NOT NULL,
	player_base_cash    NUMERIC NOT NULL,
	min_players_count   INTEGER NOT NULL,
	max_players_count   INTEGER NOT NULL,
	allowed_skips_count INTEGER NOT NULL DEFAULT 0,
	skip_player_timeout BIGINT NOT NULL DEFAULT 0,
	clean_up_delay      BIGINT NOT NULL DEFAULT 0,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at            TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS players (
	id                    BIGSERIAL PRIMARY KEY,
	game_code             TEXT NOT NULL REFERENCES games(code) ON DELETE CASCADE,
	username              TEXT NOT NULL,
	email                 TEXT NOT NULL,
	idx                   INTEGER NOT NULL DEFAULT 0,
	state                 TEXT NOT NULL,
	turn                  BOOLEAN NOT NULL DEFAULT FALSE,
	host                  BOOLEAN NOT NULL DEFAULT FALSE,
	bankruptcy_order      INTEGER NOT NULL DEFAULT 0,
	last_invest_step      INTEGER NOT NULL DEFAULT 0,
	last_skipped_step     INTEGER NOT NULL DEFAULT 0,
	remaining_skips_count INTEGER NOT NULL DEFAULT 0,
	CONSTRAINT unique_player_email UNIQUE (email),
	CONSTRAINT unique_game_username UNIQUE (game_code, username)
);

CREATE TABLE IF NOT EXISTS lands (
	id           BIGSERIAL PRIMARY KEY,
	game_code    TEXT NOT NULL REFERENCES games(code) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	market_value NUMERIC NOT NULL,
	position     INTEGER NOT NULL,
	CONSTRAINT unique_game_position UNIQUE (game_code, position)
);

CREATE TABLE IF NOT EXISTS stakes (
	game_code  TEXT NOT NULL REFERENCES games(code) ON DELETE CASCADE,
	player_id  BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	land_id    BIGINT NOT NULL REFERENCES lands(id) ON DELETE CASCADE,
	ownership  NUMERIC NOT NULL CHECK (ownership > 0 AND ownership <= 100),
	buy_amount NUMERIC NOT NULL,
	PRIMARY KEY (player_id, land_id)
);

CREATE TABLE IF NOT EXISTS rents (
	id               BIGSERIAL PRIMARY KEY,
	game_code        TEXT NOT NULL REFERENCES games(code) ON DELETE CASCADE,
	source_player_id BIGINT NOT NULL,
	target_player_id BIGINT NOT NULL,
	land_id          BIGINT NOT NULL,
	amount           NUMERIC NOT NULL,
	step             INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS activities (
	id         BIGSERIAL PRIMARY KEY,
	game_code  TEXT NOT NULL REFERENCES games(code) ON DELETE CASCADE,
	step       INTEGER NOT NULL,
	type       TEXT NOT NULL,
	text       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS trends (
	id              BIGSERIAL PRIMARY KEY,
	game_code       TEXT NOT NULL REFERENCES games(code) ON DELETE CASCADE,
	step            INTEGER NOT NULL,
	player_id       BIGINT NOT NULL DEFAULT 0,
	land_id         BIGINT NOT NULL DEFAULT 0,
	cash            NUMERIC NOT NULL DEFAULT 0,
	net_worth       NUMERIC NOT NULL DEFAULT 0,
	market_value    NUMERIC NOT NULL DEFAULT 0,
	total_ownership NUMERIC NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_activities_game ON activities (game_code, id);
CREATE INDEX IF NOT EXISTS idx_rents_game ON rents (game_code);
`

// PostgresStore keeps games in PostgreSQL. An atomic unit is one database
// transaction holding the game row lock.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

func (s *PostgresStore) CreateGame(ctx context.Context, game *models.Game, fn func(tx GameTx) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		ptx := &pgTx{ctx: ctx, tx: tx, code: game.Code}
		if err := ptx.insertGame(game); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrCodeTaken
			}
			return err
		}
		return fn(ptx)
	})
}

func (s *PostgresStore) InGame(ctx context.Context, code string, fn func(tx GameTx) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT code FROM games WHERE code = $1 FOR UPDATE`, code).Scan(&locked)
		if err != nil {
			return mapErr(err, "game", code)
		}
		return fn(&pgTx{ctx: ctx, tx: tx, code: code})
	})
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapErr(err, "", "")
	}
	return nil
}

func (s *PostgresStore) FindPlayer(ctx context.Context, id int64) (*models.Player, error) {
	p, err := scanPlayer(s.db.QueryRow(ctx, selectPlayers+` WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "player", id)
	}
	return p, nil
}

func (s *PostgresStore) FindPlayerByEmail(ctx context.Context, email string) (*models.Player, error) {
	p, err := scanPlayer(s.db.QueryRow(ctx, selectPlayers+` WHERE email = $1`, email))
	if err != nil {
		return nil, mapErr(err, "player", email)
	}
	return p, nil
}

// mapErr turns driver errors into errs types.
func mapErr(err error, kind string, key any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.NotFound(kind, key)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "unique_player_email":
			return errs.Validation("email is already part of a game")
		case "unique_game_username":
			return errs.Validation("username is already taken")
		}
		return errs.Validation("duplicate %s", pgErr.ConstraintName)
	}
	return err
}

type pgTx struct {
	ctx  context.Context
	tx   pgx.Tx
	code string
}

func (t *pgTx) exec(query string, args ...any) error {
	_, err := t.tx.Exec(t.ctx, query, args...)
	return err
}

func (t *pgTx) Reset() error {
	for _, table := range []string{"stakes", "rents", "activities", "trends"} {
		if err := t.exec(`DELETE FROM `+table+` WHERE game_code = $1`, t.code); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}
