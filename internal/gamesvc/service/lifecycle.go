package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avvvet/strategists-services/internal/gamesvc/errs"
	"github.com/avvvet/strategists-services/internal/gamesvc/gamemap"
	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/avvvet/strategists-services/internal/gamesvc/scheduler"
	"github.com/avvvet/strategists-services/internal/gamesvc/store"
	"github.com/avvvet/strategists-services/internal/gamesvc/updates"
	log "github.com/sirupsen/logrus"
)

const maxCodeAttempts = 64

// CreateGame opens a lobby with the creator as host.
func (s *GameService) CreateGame(ctx context.Context, email, name string) (*models.Game, *models.Player, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil, errs.Validation("no email found in the request")
	}
	if err := s.ensureNewEmail(ctx, email); err != nil {
		return nil, nil, err
	}
	gameMap, err := s.maps.Get(s.cfg.Game.DefaultMap)
	if err != nil {
		return nil, nil, fmt.Errorf("create game: %w", err)
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		game, host, err := s.createGame(ctx, s.code(s.cfg.Game.CodeLength), gameMap, email, name)
		if errors.Is(err, store.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		log.Infof("%s created game %s", host.Username, game.Code)
		return game, host, nil
	}
	return nil, nil, fmt.Errorf("create game: no free code after %d attempts", maxCodeAttempts)
}

func (s *GameService) createGame(ctx context.Context, code string, gameMap *gamemap.Map, email, name string) (*models.Game, *models.Player, error) {
	unlock := s.locks.Lock(code)
	defer unlock()

	game := &models.Game{
		Code:            code,
		State:           models.GameLobby,
		GameMapID:       gameMap.ID,
		DiceSize:        s.cfg.Game.DiceSize,
		RentFactor:      s.cfg.Game.RentFactor,
		PlayerBaseCash:  gameMap.PlayerBaseCash,
		MinPlayersCount: s.cfg.Game.MinPlayers,
		MaxPlayersCount: s.cfg.Game.MaxPlayers,
		CreatedAt:       s.now(),
	}
	if s.cfg.SkipPlayer.Enabled {
		game.AllowedSkipsCount = s.cfg.SkipPlayer.AllowedCount
		game.SkipPlayerTimeout = s.cfg.SkipPlayer.TimeoutMs
	}
	if s.cfg.CleanUp.Enabled {
		game.CleanUpDelay = s.cfg.CleanUp.DelayMs
	}

	var host *models.Player
	b := &batch{now: s.now}
	err := s.store.CreateGame(ctx, game, func(tx store.GameTx) error {
		if err := tx.AddLands(gameMap.NewLands(code)); err != nil {
			return err
		}
		st, err := loadState(tx)
		if err != nil {
			return err
		}
		b.st = st
		if host, err = s.addPlayer(st, email, name, true); err != nil {
			return err
		}
		return b.record(models.UpdateCreate, updates.CreateText(host.Username, code), updates.CreatePayload{
			Game:   *st.game,
			Player: st.view(host),
		})
	})
	if err != nil {
		return nil, nil, err
	}
	created := *b.st.game
	b.then(func() { s.scheduleCleanUp(created) })
	s.flush(b)
	return &created, host, nil
}

// JoinGame adds a player to a lobby.
func (s *GameService) JoinGame(ctx context.Context, code, email, name string) (*models.Player, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errs.Validation("no email found in the request")
	}
	if err := s.ensureNewEmail(ctx, email); err != nil {
		return nil, err
	}

	var player *models.Player
	err := s.execute(ctx, code, func(st *gameState, b *batch) error {
		if !st.game.IsLobby() {
			return errs.Validation("game %s already started", code)
		}
		p, err := s.addPlayer(st, email, name, false)
		if err != nil {
			return err
		}
		player = p
		return b.record(models.UpdateJoin, updates.JoinText(p.Username), updates.JoinPayload{Player: st.view(p)})
	})
	if err != nil {
		return nil, err
	}
	log.Infof("%s joined game %s", player.Username, code)
	return player, nil
}

func (s *GameService) ensureNewEmail(ctx context.Context, email string) error {
	_, err := s.store.FindPlayerByEmail(ctx, email)
	switch {
	case err == nil:
		return errs.Validation("%s already part of a game", email)
	case errs.IsNotFound(err):
		return nil
	}
	return err
}

func (s *GameService) addPlayer(st *gameState, email, name string, host bool) (*models.Player, error) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return nil, errs.Validation("no name found in the request")
	}
	if len(st.players) >= st.game.MaxPlayersCount {
		return nil, errs.Validation("max count reached, can't add more players to game %s", st.game.Code)
	}

	taken := map[string]bool{}
	for _, p := range st.players {
		taken[p.Username] = true
	}
	username := fields[0]
	for n := 1; taken[username]; n++ {
		username = fmt.Sprintf("%s-%d", fields[0], n)
	}

	p := &models.Player{
		Email:               email,
		Username:            username,
		State:               models.PlayerActive,
		Host:                host,
		RemainingSkipsCount: st.game.AllowedSkipsCount,
	}
	if err := st.tx.AddPlayer(p); err != nil {
		return nil, err
	}
	st.players = append(st.players, p)
	return p, nil
}

// KickPlayer removes a non-host player from a lobby.
func (s *GameService) KickPlayer(ctx context.Context, code string, playerID int64) error {
	return s.execute(ctx, code, func(st *gameState, b *batch) error {
		if !st.game.IsLobby() {
			return errs.Validation("players can't be kicked once game %s started", code)
		}
		p := st.player(playerID)
		if p == nil {
			return errs.NotFound("player", playerID)
		}
		if p.Host {
			return errs.Validation("host can't be kicked")
		}
		if err := st.tx.RemovePlayer(p.ID); err != nil {
			return err
		}
		for i := range st.players {
			if st.players[i].ID == p.ID {
				st.players = append(st.players[:i], st.players[i+1:]...)
				break
			}
		}
		return b.record(models.UpdateKick, updates.KickText(p.Username), updates.KickPayload{PlayerID: p.ID})
	})
}

// StartGame moves a lobby to ACTIVE and hands out the first turn.
func (s *GameService) StartGame(ctx context.Context, code string) (*models.Game, error) {
	var (
		started models.Game
		players int
	)
	err := s.execute(ctx, code, func(st *gameState, b *batch) error {
		if !st.game.IsLobby() {
			return errs.Validation("game %s already started", code)
		}
		if len(st.players) < st.game.MinPlayersCount {
			return errs.Validation("at least %d players are needed to start game %s", st.game.MinPlayersCount, code)
		}

		st.game.State = models.GameActive
		st.game.CurrentStep = 1
		if err := st.saveGame(); err != nil {
			return err
		}
		first, err := s.assignInitialTurn(st)
		if err != nil {
			return err
		}
		err = b.record(models.UpdateStart, updates.StartText(first.Username), updates.StartPayload{
			Game:   *st.game,
			Player: st.view(first),
		})
		if err != nil {
			return err
		}
		if err := s.recordTrends(st, b); err != nil {
			return err
		}

		started = *st.game
		players = len(st.players)
		b.then(func() {
			s.scheduleSkip(started)
			s.scheduler.Unschedule(scheduler.CleanUpKey(code))
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Infof("game %s started with %d players", code, players)
	return &started, nil
}

// ResetGame brings a game back to its lobby with every player restored.
func (s *GameService) ResetGame(ctx context.Context, code string) (*updates.Snapshot, error) {
	var snap *updates.Snapshot
	err := s.execute(ctx, code, func(st *gameState, b *batch) error {
		if err := st.tx.Reset(); err != nil {
			return err
		}
		st.stakes = nil
		st.rents = nil

		st.game.State = models.GameLobby
		st.game.CurrentStep = 0
		st.game.EndedAt = nil
		st.game.CreatedAt = s.now()
		if err := st.saveGame(); err != nil {
			return err
		}
		for _, p := range st.players {
			p.Index = 0
			p.State = models.PlayerActive
			p.Turn = false
			p.BankruptcyOrder = 0
			p.LastInvestStep = 0
			p.LastSkippedStep = 0
			p.RemainingSkipsCount = st.game.AllowedSkipsCount
		}
		if err := st.savePlayer(st.players...); err != nil {
			return err
		}

		var err error
		if snap, err = st.snapshot(); err != nil {
			return err
		}
		if err := b.record(models.UpdateReset, updates.ResetText(), snap); err != nil {
			return err
		}

		game := *st.game
		b.then(func() {
			s.scheduler.Unschedule(scheduler.SkipPlayerKey(code))
			s.scheduleCleanUp(game)
			s.clearSideState(code)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Infof("game %s reset", code)
	return snap, nil
}

// DeleteGame removes a game and everything it owns. Deleting an unknown
// game is not an error.
func (s *GameService) DeleteGame(ctx context.Context, code string) error {
	err := s.execute(ctx, code, func(st *gameState, b *batch) error {
		if err := b.record(models.UpdateCleanUp, "", nil); err != nil {
			return err
		}
		if err := st.tx.DeleteGame(); err != nil {
			return err
		}
		b.then(func() {
			s.scheduler.Unschedule(scheduler.SkipPlayerKey(code))
			s.scheduler.Unschedule(scheduler.CleanUpKey(code))
			s.dispatcher.CloseGame(code)
			s.clearSideState(code)
		})
		return nil
	})
	if errs.IsNotFound(err) {
		return nil
	}
	if err == nil {
		log.Infof("game %s deleted", code)
	}
	return err
}

// CleanUp is the clean-up timer callback.
func (s *GameService) CleanUp(ctx context.Context, code string) error {
	log.Infof("cleaning up idle game %s", code)
	return s.DeleteGame(ctx, code)
}

func (s *GameService) clearSideState(code string) {
	if s.advices != nil {
		s.advices.Clear(code)
	}
	if s.predictions != nil {
		s.predictions.Clear(code)
	}
}

// GetGame returns the current state of a game.
func (s *GameService) GetGame(ctx context.Context, code string) (*updates.Snapshot, error) {
	var snap *updates.Snapshot
	err := s.store.InGame(ctx, code, func(tx store.GameTx) error {
		st, err := loadState(tx)
		if err != nil {
			return err
		}
		snap, err = st.snapshot()
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.advices != nil {
		snap.Advices = s.advices.Advices(code)
	}
	if s.predictions != nil {
		snap.Predictions = s.predictions.Predictions(code)
	}
	return snap, nil
}

// FindPlayer looks a player up by email so a client can resume its game.
func (s *GameService) FindPlayer(ctx context.Context, email string) (*models.Player, error) {
	return s.store.FindPlayerByEmail(ctx, strings.TrimSpace(email))
}
