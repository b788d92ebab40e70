package scheduler

import (
	"fmt"
	"time"
)

type Event interface {
	Key() string
	At() time.Time
}

// SkipPlayerEvent fires when the turn holder of a game stayed idle too
// long. Step is the game step the timer was armed at.
type SkipPlayerEvent struct {
	GameCode string
	Step     int
	Time     time.Time
}

func SkipPlayerKey(gameCode string) string {
	return fmt.Sprintf("skip-player-%s", gameCode)
}

func (e SkipPlayerEvent) Key() string   { return SkipPlayerKey(e.GameCode) }
func (e SkipPlayerEvent) At() time.Time { return e.Time }

// CleanUpEvent fires when an idle game should be deleted.
type CleanUpEvent struct {
	GameCode string
	Time     time.Time
}

func CleanUpKey(gameCode string) string {
	return fmt.Sprintf("clean-up-%s", gameCode)
}

func (e CleanUpEvent) Key() string   { return CleanUpKey(e.GameCode) }
func (e CleanUpEvent) At() time.Time { return e.Time }
