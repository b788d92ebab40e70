package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/avvvet/strategists-services/internal/gamesvc/errs"
	"github.com/avvvet/strategists-services/internal/gamesvc/models"
)

// MemoryStore keeps every game in process memory. Each atomic unit works
// on a private copy of the game's tables which replaces the committed
// copy only when fn succeeds.
type MemoryStore struct {
	mu     sync.RWMutex
	games  map[string]*memGame
	emails map[string]int64 // email -> player id
	seq    atomic.Int64
}

type memGame struct {
	mu   sync.Mutex // held for the whole atomic unit
	data *tables    // committed, never mutated in place
}

type tables struct {
	game       models.Game
	players    []models.Player
	lands      []models.Land
	stakes     []models.Stake
	rents      []models.Rent
	activities []models.Activity
	trends     []models.Trend
	deleted    bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:  map[string]*memGame{},
		emails: map[string]int64{},
	}
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) CreateGame(ctx context.Context, game *models.Game, fn func(tx GameTx) error) error {
	s.mu.RLock()
	_, taken := s.games[game.Code]
	s.mu.RUnlock()
	if taken {
		return ErrCodeTaken
	}

	tx := &memTx{store: s, t: &tables{game: *game}}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[game.Code]; ok {
		return ErrCodeTaken
	}
	if err := s.claimEmails(nil, tx.t); err != nil {
		return err
	}
	s.games[game.Code] = &memGame{data: tx.t}
	*game = tx.t.game
	return nil
}

func (s *MemoryStore) InGame(ctx context.Context, code string, fn func(tx GameTx) error) error {
	s.mu.RLock()
	g, ok := s.games[code]
	s.mu.RUnlock()
	if !ok {
		return errs.NotFound("game", code)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	s.mu.RLock()
	current, ok := s.games[code]
	s.mu.RUnlock()
	if !ok || current != g {
		return errs.NotFound("game", code)
	}

	tx := &memTx{store: s, t: g.data.clone()}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.t.deleted {
		s.releaseEmails(g.data)
		delete(s.games, code)
		return nil
	}
	if err := s.claimEmails(g.data, tx.t); err != nil {
		return err
	}
	g.data = tx.t
	return nil
}

// claimEmails moves the email index from the committed players of prev to
// the players of next. Must be called with s.mu held.
func (s *MemoryStore) claimEmails(prev, next *tables) error {
	for _, p := range next.players {
		if id, ok := s.emails[p.Email]; ok && id != p.ID {
			return errs.Validation("email %s is already part of a game", p.Email)
		}
	}
	if prev != nil {
		s.releaseEmails(prev)
	}
	for _, p := range next.players {
		s.emails[p.Email] = p.ID
	}
	return nil
}

func (s *MemoryStore) releaseEmails(t *tables) {
	for _, p := range t.players {
		if s.emails[p.Email] == p.ID {
			delete(s.emails, p.Email)
		}
	}
}

func (s *MemoryStore) FindPlayer(ctx context.Context, id int64) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.games {
		for _, p := range g.data.players {
			if p.ID == id {
				found := p
				return &found, nil
			}
		}
	}
	return nil, errs.NotFound("player", id)
}

func (s *MemoryStore) FindPlayerByEmail(ctx context.Context, email string) (*models.Player, error) {
	s.mu.RLock()
	id, ok := s.emails[email]
	s.mu.RUnlock()
	if !ok {
		return nil, errs.NotFound("player", email)
	}
	return s.FindPlayer(ctx, id)
}

func (t *tables) clone() *tables {
	return &tables{
		game:       t.game,
		players:    append([]models.Player(nil), t.players...),
		lands:      append([]models.Land(nil), t.lands...),
		stakes:     append([]models.Stake(nil), t.stakes...),
		rents:      append([]models.Rent(nil), t.rents...),
		activities: append([]models.Activity(nil), t.activities...),
		trends:     append([]models.Trend(nil), t.trends...),
	}
}

type memTx struct {
	store *MemoryStore
	t     *tables
}

func (tx *memTx) Game() (*models.Game, error) {
	if tx.t.deleted {
		return nil, errs.NotFound("game", tx.t.game.Code)
	}
	g := tx.t.game
	return &g, nil
}

func (tx *memTx) UpdateGame(g *models.Game) error {
	tx.t.game = *g
	return nil
}

func (tx *memTx) DeleteGame() error {
	tx.t.deleted = true
	return nil
}

func (tx *memTx) Players() ([]*models.Player, error) {
	out := make([]*models.Player, 0, len(tx.t.players))
	for i := range tx.t.players {
		p := tx.t.players[i]
		out = append(out, &p)
	}
	return out, nil
}

func (tx *memTx) AddPlayer(p *models.Player) error {
	for _, other := range tx.t.players {
		if other.Username == p.Username {
			return errs.Validation("username %s is already taken", p.Username)
		}
		if other.Email == p.Email {
			return errs.Validation("email %s is already part of a game", p.Email)
		}
	}
	tx.store.mu.RLock()
	_, taken := tx.store.emails[p.Email]
	tx.store.mu.RUnlock()
	if taken {
		return errs.Validation("email %s is already part of a game", p.Email)
	}
	p.ID = tx.store.seq.Add(1)
	p.GameCode = tx.t.game.Code
	tx.t.players = append(tx.t.players, *p)
	return nil
}

func (tx *memTx) UpdatePlayer(p *models.Player) error {
	for i := range tx.t.players {
		if tx.t.players[i].ID == p.ID {
			tx.t.players[i] = *p
			return nil
		}
	}
	return errs.NotFound("player", p.ID)
}

func (tx *memTx) RemovePlayer(id int64) error {
	for i := range tx.t.players {
		if tx.t.players[i].ID == id {
			tx.t.players = append(tx.t.players[:i:i], tx.t.players[i+1:]...)
			return nil
		}
	}
	return errs.NotFound("player", id)
}

func (tx *memTx) Lands() ([]*models.Land, error) {
	out := make([]*models.Land, 0, len(tx.t.lands))
	for i := range tx.t.lands {
		l := tx.t.lands[i]
		out = append(out, &l)
	}
	return out, nil
}

func (tx *memTx) AddLands(lands []*models.Land) error {
	for _, l := range lands {
		l.ID = tx.store.seq.Add(1)
		l.GameCode = tx.t.game.Code
		tx.t.lands = append(tx.t.lands, *l)
	}
	return nil
}

func (tx *memTx) Stakes() ([]*models.Stake, error) {
	out := make([]*models.Stake, 0, len(tx.t.stakes))
	for i := range tx.t.stakes {
		s := tx.t.stakes[i]
		out = append(out, &s)
	}
	return out, nil
}

func (tx *memTx) SaveStake(s *models.Stake) error {
	s.GameCode = tx.t.game.Code
	for i := range tx.t.stakes {
		if tx.t.stakes[i].PlayerID == s.PlayerID && tx.t.stakes[i].LandID == s.LandID {
			tx.t.stakes[i] = *s
			return nil
		}
	}
	tx.t.stakes = append(tx.t.stakes, *s)
	return nil
}

func (tx *memTx) Rents() ([]*models.Rent, error) {
	out := make([]*models.Rent, 0, len(tx.t.rents))
	for i := range tx.t.rents {
		r := tx.t.rents[i]
		out = append(out, &r)
	}
	return out, nil
}

func (tx *memTx) AddRent(r *models.Rent) error {
	r.ID = tx.store.seq.Add(1)
	r.GameCode = tx.t.game.Code
	tx.t.rents = append(tx.t.rents, *r)
	return nil
}

func (tx *memTx) Activities() ([]*models.Activity, error) {
	out := make([]*models.Activity, 0, len(tx.t.activities))
	for i := len(tx.t.activities) - 1; i >= 0; i-- {
		a := tx.t.activities[i]
		out = append(out, &a)
	}
	return out, nil
}

func (tx *memTx) AddActivity(a *models.Activity) error {
	a.ID = tx.store.seq.Add(1)
	a.GameCode = tx.t.game.Code
	tx.t.activities = append(tx.t.activities, *a)
	return nil
}

func (tx *memTx) Trends() ([]*models.Trend, error) {
	out := make([]*models.Trend, 0, len(tx.t.trends))
	for i := range tx.t.trends {
		tr := tx.t.trends[i]
		out = append(out, &tr)
	}
	return out, nil
}

func (tx *memTx) AddTrends(trends []*models.Trend) error {
	for _, tr := range trends {
		tr.ID = tx.store.seq.Add(1)
		tr.GameCode = tx.t.game.Code
		tx.t.trends = append(tx.t.trends, *tr)
	}
	return nil
}

func (tx *memTx) Reset() error {
	tx.t.stakes = nil
	tx.t.rents = nil
	tx.t.activities = nil
	tx.t.trends = nil
	return nil
}
