// Package updatestest provides an in-memory updates.Publisher for tests.
package updatestest

import (
	"sync"

	"github.com/avvvet/strategists-services/internal/gamesvc/updates"
)

// Recorder keeps every published update in memory.
type Recorder struct {
	mu      sync.Mutex
	updates map[string][]*updates.Update
}

func NewRecorder() *Recorder {
	return &Recorder{updates: map[string][]*updates.Update{}}
}

func (r *Recorder) Publish(gameCode string, u *updates.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[gameCode] = append(r.updates[gameCode], u)
	return nil
}

func (r *Recorder) Updates(gameCode string) []*updates.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*updates.Update(nil), r.updates[gameCode]...)
}

func (r *Recorder) Types(gameCode string) []string {
	var types []string
	for _, u := range r.Updates(gameCode) {
		types = append(types, string(u.Type))
	}
	return types
}
