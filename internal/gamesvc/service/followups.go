package service

import (
	"context"

	"github.com/avvvet/strategists-services/internal/gamesvc/errs"
	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/avvvet/strategists-services/internal/gamesvc/scheduler"
	"github.com/avvvet/strategists-services/internal/gamesvc/store"
	"github.com/avvvet/strategists-services/internal/gamesvc/updates"
	log "github.com/sirupsen/logrus"
)

// afterTurn registers the follow-ups of a resolved turn.
func (s *GameService) afterTurn(st *gameState, b *batch, winner *models.Player) {
	game := *st.game
	if winner != nil {
		if b.won {
			b.then(func() { s.afterWin(game) })
		}
		return
	}
	b.then(func() {
		s.scheduleSkip(game)
		s.submit(game.Code, "advices", s.advices != nil, s.generateAdvices)
		s.submit(game.Code, "predictions", s.predictions != nil && s.history != nil, s.inferPredictions)
	})
}

func (s *GameService) afterWin(game models.Game) {
	s.scheduler.Unschedule(scheduler.SkipPlayerKey(game.Code))
	s.scheduleCleanUp(game)
	ok := s.pool.TrySubmit(func(ctx context.Context) {
		// the export feeds training, so it runs first
		if s.history != nil {
			if err := s.history.Export(ctx, game); err != nil {
				log.Warnf("history export skipped: %s", err)
			}
		}
		if s.predictions != nil {
			if err := s.predictions.Train(ctx, game.GameMapID); err != nil {
				log.Warnf("predictions training skipped: %s", err)
			}
		}
	})
	if !ok {
		log.Warnf("worker pool busy, archiving of game %s dropped", game.Code)
	}
}

func (s *GameService) submit(code, what string, enabled bool, job func(ctx context.Context, code string)) {
	if !enabled {
		return
	}
	if !s.pool.TrySubmit(func(ctx context.Context) { job(ctx, code) }) {
		log.Warnf("worker pool busy, %s of game %s dropped", what, code)
	}
}

func (s *GameService) generateAdvices(ctx context.Context, code string) {
	err := s.execute(ctx, code, func(st *gameState, b *batch) error {
		if !st.game.IsActive() || st.game.EndedAt != nil {
			return nil
		}
		changed := s.advices.Generate(st.adviceInput())
		if len(changed) == 0 {
			return nil
		}
		return b.record(models.UpdateAdvice, "", updates.AdvicePayload{Advices: changed})
	})
	if err != nil && !errs.IsNotFound(err) {
		log.Errorf("unable to generate advices for game %s: %s", code, err)
	}
}

func (s *GameService) inferPredictions(ctx context.Context, code string) {
	var (
		game    models.Game
		players []models.Player
	)
	err := s.store.InGame(ctx, code, func(tx store.GameTx) error {
		g, err := tx.Game()
		if err != nil {
			return err
		}
		ps, err := tx.Players()
		if err != nil {
			return err
		}
		game = *g
		for _, p := range ps {
			players = append(players, *p)
		}
		return nil
	})
	if err != nil {
		log.Debugf("predictions skipped for game %s: %s", code, err)
		return
	}

	preds, err := s.predictions.Infer(ctx, game, players, s.history.Lines(code))
	if err != nil {
		log.Warnf("%s", err)
		return
	}

	err = s.execute(ctx, code, func(st *gameState, b *batch) error {
		// a newer turn makes these predictions stale
		if st.game.CurrentStep != game.CurrentStep || st.game.EndedAt != nil {
			return nil
		}
		return b.record(models.UpdatePrediction, "", updates.PredictionPayload{Predictions: preds})
	})
	if err != nil && !errs.IsNotFound(err) {
		log.Errorf("unable to publish predictions for game %s: %s", code, err)
	}
}

// MarkAdvicesViewed flags the advices of a player as seen.
func (s *GameService) MarkAdvicesViewed(ctx context.Context, playerID int64) ([]models.Advice, error) {
	if s.advices == nil {
		return nil, errs.Validation("advices are disabled")
	}
	player, err := s.store.FindPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	var viewed []models.Advice
	err = s.execute(ctx, player.GameCode, func(st *gameState, b *batch) error {
		viewed = s.advices.MarkViewed(player.GameCode, playerID)
		if len(viewed) == 0 {
			return nil
		}
		return b.record(models.UpdateAdvice, "", updates.AdvicePayload{Advices: viewed})
	})
	return viewed, err
}
