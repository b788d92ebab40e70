package service

import (
	"time"

	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/avvvet/strategists-services/internal/gamesvc/updates"
)

// batch collects the updates and follow-up work of one atomic unit. Nothing
// leaves the batch before the unit commits.
type batch struct {
	st      *gameState
	now     func() time.Time
	updates []*updates.Update
	after   []func()
	won     bool // the unit ended the game
}

// record persists an activity line when text is set and queues the update.
func (b *batch) record(t models.UpdateType, text string, payload any) error {
	now := b.now()
	u := &updates.Update{
		Timestamp: now.UnixMilli(),
		Type:      t,
		GameCode:  b.st.game.Code,
		GameStep:  b.st.game.CurrentStep,
		Payload:   payload,
	}
	if text != "" {
		a := &models.Activity{
			Step:      b.st.game.CurrentStep,
			Type:      t,
			Text:      text,
			CreatedAt: now,
		}
		if err := b.st.tx.AddActivity(a); err != nil {
			return err
		}
		u.Activity = a
	}
	b.updates = append(b.updates, u)
	return nil
}

func (b *batch) then(fn func()) {
	b.after = append(b.after, fn)
}
