// Package hub fans game updates out to the sockets subscribed to a game.
package hub

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Subscription receives the updates of one game on C. C is closed when the
// subscription ends, either by Unsubscribe or because the subscriber fell
// behind.
type Subscription struct {
	ID       string
	GameCode string
	C        <-chan []byte

	out    chan []byte
	closed bool
}

type Hub struct {
	mu     sync.Mutex
	games  map[string]map[string]*Subscription
	buffer int
}

func New(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		games:  map[string]map[string]*Subscription{},
		buffer: buffer,
	}
}

func (h *Hub) Subscribe(gameCode string) *Subscription {
	out := make(chan []byte, h.buffer)
	sub := &Subscription{
		ID:       uuid.New().String(),
		GameCode: gameCode,
		C:        out,
		out:      out,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.games[gameCode]
	if !ok {
		subs = map[string]*Subscription{}
		h.games[gameCode] = subs
	}
	subs[sub.ID] = sub
	return sub
}

// Unsubscribe ends sub. It is safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(sub)
}

// Publish hands payload to every subscriber of the game without blocking.
// A subscriber whose buffer is full is dropped. It returns the number of
// subscribers reached.
func (h *Hub) Publish(gameCode string, payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for _, sub := range h.games[gameCode] {
		select {
		case sub.out <- payload:
			sent++
		default:
			log.Warnf("subscriber %s of game %s is too slow, dropping it", sub.ID, gameCode)
			h.remove(sub)
		}
	}
	return sent
}

// Count returns the number of live subscriptions of a game.
func (h *Hub) Count(gameCode string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.games[gameCode])
}

func (h *Hub) remove(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.out)

	subs := h.games[sub.GameCode]
	delete(subs, sub.ID)
	if len(subs) == 0 {
		delete(h.games, sub.GameCode)
	}
}
