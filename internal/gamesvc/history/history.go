// Package history keeps the JSON-lines update log of every game and
// exports it to an archive once the game is won.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/avvvet/strategists-services/internal/gamesvc/updates"
	log "github.com/sirupsen/logrus"
)

type Record struct {
	GameCode   string    `bson:"game_code" json:"gameCode"`
	GameMapID  string    `bson:"game_map_id" json:"gameMapId"`
	Lines      []string  `bson:"lines" json:"lines"`
	ExportedAt time.Time `bson:"exported_at" json:"exportedAt"`
	ExpiresAt  time.Time `bson:"expires_at" json:"expiresAt"`
}

type Archive interface {
	Save(ctx context.Context, rec *Record) error
	Count(ctx context.Context) (int64, error)
}

type Log struct {
	archive   Archive
	retention time.Duration

	mu    sync.Mutex
	lines map[string][]json.RawMessage
}

// NewLog returns a log exporting to archive. A nil archive keeps the log in
// memory only.
func NewLog(archive Archive, retention time.Duration) *Log {
	return &Log{
		archive:   archive,
		retention: retention,
		lines:     map[string][]json.RawMessage{},
	}
}

// Append adds u to its game's log. A reset starts the log over and a clean
// up drops it.
func (l *Log) Append(u *updates.Update) {
	switch u.Type {
	case models.UpdatePing:
		return
	case models.UpdateCleanUp:
		l.Reset(u.GameCode)
		return
	}

	line, err := json.Marshal(u)
	if err != nil {
		log.Errorf("unable to encode %s update of game %s for history: %s", u.Type, u.GameCode, err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if u.Type == models.UpdateReset {
		l.lines[u.GameCode] = nil
	}
	l.lines[u.GameCode] = append(l.lines[u.GameCode], line)
}

func (l *Log) Lines(code string) []json.RawMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]json.RawMessage(nil), l.lines[code]...)
}

func (l *Log) Reset(code string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.lines, code)
}

// Export writes the log of a game to the archive.
func (l *Log) Export(ctx context.Context, game models.Game) error {
	if l.archive == nil {
		return nil
	}
	lines := l.Lines(game.Code)
	if len(lines) == 0 {
		return fmt.Errorf("no history recorded for game %s", game.Code)
	}

	now := time.Now()
	rec := &Record{
		GameCode:   game.Code,
		GameMapID:  game.GameMapID,
		Lines:      make([]string, 0, len(lines)),
		ExportedAt: now,
		ExpiresAt:  now.Add(l.retention),
	}
	for _, line := range lines {
		rec.Lines = append(rec.Lines, string(line))
	}
	if err := l.archive.Save(ctx, rec); err != nil {
		return fmt.Errorf("export history of game %s: %w", game.Code, err)
	}
	log.Infof("exported %d history lines of game %s", len(rec.Lines), game.Code)
	return nil
}

// Restore reports what the archive holds on boot.
func (l *Log) Restore(ctx context.Context) {
	if l.archive == nil {
		log.Info("history archive disabled")
		return
	}
	n, err := l.archive.Count(ctx)
	if err != nil {
		log.Warnf("unable to read history archive: %s", err)
		return
	}
	log.Infof("history archive holds %d games", n)
}
