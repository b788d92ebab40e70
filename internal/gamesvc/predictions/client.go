// Package predictions talks to the external model that estimates which
// player is going to win a game.
package predictions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avvvet/strategists-services/internal/gamesvc/models"
	log "github.com/sirupsen/logrus"
)

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu     sync.Mutex
	byGame map[string][]models.Prediction
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		byGame:     map[string][]models.Prediction{},
	}
}

type inferRequest struct {
	Data []json.RawMessage `json:"data"`
}

type playerPrediction struct {
	GameCode            string  `json:"game_code"`
	PlayerID            int64   `json:"player_id"`
	BankruptProbability float64 `json:"bankrupt_probability"`
	WinnerProbability   float64 `json:"winner_probability"`
	Prediction          string  `json:"prediction"`
}

// Infer sends the update history of a running game to the model and keeps
// the returned predictions for the game's active players.
func (c *Client) Infer(ctx context.Context, game models.Game, players []models.Player, history []json.RawMessage) ([]models.Prediction, error) {
	body, err := json.Marshal(inferRequest{Data: history})
	if err != nil {
		return nil, err
	}

	var resp []playerPrediction
	if err := c.post(ctx, c.modelURL(game.GameMapID, "infer"), body, &resp); err != nil {
		return nil, fmt.Errorf("infer predictions for game %s: %w", game.Code, err)
	}

	names := map[int64]string{}
	for _, p := range players {
		if !p.IsBankrupt() {
			names[p.ID] = p.Username
		}
	}

	var out []models.Prediction
	for _, r := range resp {
		name, ok := names[r.PlayerID]
		if !ok {
			continue
		}
		out = append(out, models.Prediction{
			PlayerID:            r.PlayerID,
			Username:            name,
			BankruptProbability: r.BankruptProbability,
			WinnerProbability:   r.WinnerProbability,
			Prediction:          r.Prediction,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WinnerProbability > out[j].WinnerProbability })

	c.mu.Lock()
	c.byGame[game.Code] = out
	c.mu.Unlock()
	return out, nil
}

// Train asks the model to retrain on the archived games of a map.
func (c *Client) Train(ctx context.Context, gameMapID string) error {
	if err := c.post(ctx, c.modelURL(gameMapID, "train"), nil, nil); err != nil {
		return fmt.Errorf("train predictions model %s: %w", gameMapID, err)
	}
	log.Infof("predictions model trained for map %s", gameMapID)
	return nil
}

func (c *Client) Predictions(gameCode string) []models.Prediction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Prediction(nil), c.byGame[gameCode]...)
}

func (c *Client) Clear(gameCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byGame, gameCode)
}

func (c *Client) modelURL(gameMapID, action string) string {
	return fmt.Sprintf("%s/api/predictions-model/%s/%s", c.baseURL, gameMapID, action)
}

func (c *Client) post(ctx context.Context, url string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
