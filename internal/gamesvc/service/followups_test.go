package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avvvet/strategists-services/internal/gamesvc/advice"
	"github.com/avvvet/strategists-services/internal/gamesvc/config"
	"github.com/avvvet/strategists-services/internal/gamesvc/errs"
	"github.com/avvvet/strategists-services/internal/gamesvc/history"
	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/avvvet/strategists-services/internal/gamesvc/predictions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memArchive struct {
	mu      sync.Mutex
	records []*history.Record
}

func (a *memArchive) Save(ctx context.Context, rec *history.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

func (a *memArchive) Count(ctx context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int64(len(a.records)), nil
}

func (a *memArchive) saved() []*history.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*history.Record(nil), a.records...)
}

func TestAdvicesFollowTurns(t *testing.T) {
	engine := advice.NewEngine(advice.FrequentlyInvest(1, 1))
	f := newFixtureWith(t, tenLands, func(d *Deps) { d.Advices = engine })
	code := f.start(t, "alice", "bob")
	ctx := context.Background()

	_, err := f.svc.PlayTurn(ctx, code)
	require.NoError(t, err)
	_, err = f.svc.PlayTurn(ctx, code)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(f.snapshot(t, code).Advices) == 2
	}, 2*time.Second, 10*time.Millisecond)
	for _, a := range f.snapshot(t, code).Advices {
		assert.Equal(t, models.AdviceFrequentlyInvest, a.Type)
		assert.Equal(t, models.AdviceNew, a.State)
	}

	alice := f.player(t, code, "alice")
	viewed, err := f.svc.MarkAdvicesViewed(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, viewed, 1)
	assert.True(t, viewed[0].Viewed)
	assert.Equal(t, alice.ID, viewed[0].PlayerID)

	viewed, err = f.svc.MarkAdvicesViewed(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, viewed)

	_, err = f.svc.MarkAdvicesViewed(ctx, 9999)
	assert.True(t, errs.IsNotFound(err))

	require.NoError(t, f.svc.DeleteGame(ctx, code))
	assert.Empty(t, engine.Advices(code))
}

func TestAdvicesDisabled(t *testing.T) {
	f := newFixture(t, tenLands)
	code := f.start(t, "alice", "bob")

	_, err := f.svc.MarkAdvicesViewed(context.Background(), f.player(t, code, "alice").ID)
	assert.True(t, errs.IsValidation(err))
}

func TestPredictionsAndArchiveFollowTheGame(t *testing.T) {
	var (
		mu      sync.Mutex
		ids     []int64
		trained atomic.Int32
		infers  atomic.Int32
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/api/predictions-model/test/train"):
			trained.Add(1)
			w.WriteHeader(http.StatusOK)
		case strings.HasSuffix(r.URL.Path, "/api/predictions-model/test/infer"):
			infers.Add(1)
			mu.Lock()
			defer mu.Unlock()
			var resp []map[string]any
			for i, id := range ids {
				resp = append(resp, map[string]any{
					"player_id":          id,
					"winner_probability": float64(i+1) / 10,
					"prediction":         "WINNER",
				})
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	archive := &memArchive{}
	f := newFixtureWith(t, []int64{20, 20, 20, 20}, func(d *Deps) {
		d.Predictions = predictions.NewClient(srv.URL, time.Second)
		d.History = history.NewLog(archive, time.Hour)
	}, func(c *config.Config) { c.Game.RentFactor = 0.5 })
	code := f.start(t, "alice", "bob", "carol")
	ctx := context.Background()

	mu.Lock()
	for _, p := range f.snapshot(t, code).Players {
		ids = append(ids, p.ID)
	}
	mu.Unlock()

	_, err := f.svc.PlayTurn(ctx, code)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(f.snapshot(t, code).Predictions) == 3
	}, 2*time.Second, 10*time.Millisecond)
	preds := f.snapshot(t, code).Predictions
	assert.Equal(t, "carol", preds[0].Username)
	assert.GreaterOrEqual(t, infers.Load(), int32(1))

	// alice wins once bob and carol go broke on her lands
	f.ownAll(t, code, "alice")
	f.drain(t, code, "bob", "alice", 995)
	f.drain(t, code, "carol", "alice", 995)
	var winner *models.Player
	for i := 0; i < 5 && winner == nil; i++ {
		winner, err = f.svc.PlayTurn(ctx, code)
		require.NoError(t, err)
	}
	require.NotNil(t, winner)
	assert.Equal(t, "alice", winner.Username)
	assert.Equal(t, 1, f.player(t, code, "carol").BankruptcyOrder)
	assert.Equal(t, 2, f.player(t, code, "bob").BankruptcyOrder)

	require.Eventually(t, func() bool {
		return trained.Load() == 1 && len(archive.saved()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec := archive.saved()[0]
	assert.Equal(t, code, rec.GameCode)
	assert.Equal(t, "test", rec.GameMapID)
	require.NotEmpty(t, rec.Lines)
	assert.Contains(t, rec.Lines[0], `"type":"CREATE"`)
	assert.Contains(t, rec.Lines[len(rec.Lines)-1], `"type":"WIN"`, fmt.Sprint(len(rec.Lines)))
}
