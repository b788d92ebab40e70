package predictions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/predictions-model/india/infer", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req inferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Data, 2)

		_ = json.NewEncoder(w).Encode([]playerPrediction{
			{GameCode: "ABCD", PlayerID: 1, WinnerProbability: 0.3, BankruptProbability: 0.7, Prediction: "BANKRUPT"},
			{GameCode: "ABCD", PlayerID: 2, WinnerProbability: 0.8, BankruptProbability: 0.2, Prediction: "WINNER"},
			{GameCode: "ABCD", PlayerID: 3, WinnerProbability: 0.9, Prediction: "WINNER"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	game := models.Game{Code: "ABCD", GameMapID: "india"}
	players := []models.Player{
		{ID: 1, Username: "alice", State: models.PlayerActive},
		{ID: 2, Username: "bob", State: models.PlayerActive},
		{ID: 3, Username: "carol", State: models.PlayerBankrupt},
	}
	history := []json.RawMessage{json.RawMessage(`{"type":"START"}`), json.RawMessage(`{"type":"MOVE"}`)}

	got, err := c.Infer(context.Background(), game, players, history)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "bob", got[0].Username)
	assert.Equal(t, "alice", got[1].Username)

	assert.Equal(t, got, c.Predictions("ABCD"))
	c.Clear("ABCD")
	assert.Empty(t, c.Predictions("ABCD"))
}

func TestTrainReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/predictions-model/india/train" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "no model", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	assert.NoError(t, c.Train(context.Background(), "india"))

	err := c.Train(context.Background(), "classic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
