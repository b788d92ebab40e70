package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/avvvet/strategists-services/internal/gamesvc/updates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memArchive struct {
	records []*Record
	err     error
}

func (a *memArchive) Save(ctx context.Context, rec *Record) error {
	if a.err != nil {
		return a.err
	}
	a.records = append(a.records, rec)
	return nil
}

func (a *memArchive) Count(ctx context.Context) (int64, error) {
	return int64(len(a.records)), a.err
}

func upd(t models.UpdateType, step int) *updates.Update {
	return &updates.Update{Type: t, GameCode: "ABCD", GameStep: step}
}

func TestAppendSkipsPingAndHandlesReset(t *testing.T) {
	l := NewLog(nil, time.Hour)

	l.Append(upd(models.UpdateStart, 1))
	l.Append(updates.Ping("ABCD", time.Now()))
	l.Append(upd(models.UpdateMove, 2))
	require.Len(t, l.Lines("ABCD"), 2)

	l.Append(upd(models.UpdateReset, 0))
	lines := l.Lines("ABCD")
	require.Len(t, lines, 1)

	var u updates.Update
	require.NoError(t, json.Unmarshal(lines[0], &u))
	assert.Equal(t, models.UpdateReset, u.Type)

	l.Append(upd(models.UpdateCleanUp, 0))
	assert.Empty(t, l.Lines("ABCD"))
}

func TestExport(t *testing.T) {
	archive := &memArchive{}
	l := NewLog(archive, time.Hour)
	game := models.Game{Code: "ABCD", GameMapID: "india"}

	assert.Error(t, l.Export(context.Background(), game), "nothing recorded yet")

	l.Append(upd(models.UpdateStart, 1))
	l.Append(upd(models.UpdateWin, 9))
	require.NoError(t, l.Export(context.Background(), game))

	require.Len(t, archive.records, 1)
	rec := archive.records[0]
	assert.Equal(t, "india", rec.GameMapID)
	assert.Len(t, rec.Lines, 2)
	assert.True(t, rec.ExpiresAt.After(rec.ExportedAt))

	archive.err = errors.New("down")
	assert.Error(t, l.Export(context.Background(), game))
}

func TestExportWithoutArchive(t *testing.T) {
	l := NewLog(nil, time.Hour)
	assert.NoError(t, l.Export(context.Background(), models.Game{Code: "ABCD"}))
}
