package updates

import (
	"context"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Publisher delivers one update to the subscribers of a game.
type Publisher interface {
	Publish(gameCode string, u *Update) error
}

// Dispatcher hands updates to a Publisher through one bounded queue per
// game. Dispatch never blocks. A full queue drops the update; once the
// game's queue drains, the pump sends a RESYNC update so subscribers fetch
// the game again.
type Dispatcher struct {
	pub       Publisher
	queueSize int

	mu      sync.Mutex
	queues  map[string]chan *Update
	dropped map[string]int // step of the last dropped update per game
	closed  bool
	wg      sync.WaitGroup
}

func NewDispatcher(pub Publisher, queueSize int) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		pub:       pub,
		queueSize: queueSize,
		queues:    map[string]chan *Update{},
		dropped:   map[string]int{},
	}
}

func (d *Dispatcher) Dispatch(updates ...*Update) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	for _, u := range updates {
		q := d.queue(u.GameCode)
		select {
		case q <- u:
		default:
			d.dropped[u.GameCode] = u.GameStep
			log.Warnf("outbound queue of game %s is full, dropping %s update", u.GameCode, u.Type)
		}
	}
}

// queue must be called with d.mu held.
func (d *Dispatcher) queue(code string) chan *Update {
	q, ok := d.queues[code]
	if !ok {
		q = make(chan *Update, d.queueSize)
		d.queues[code] = q
		d.wg.Add(1)
		go d.pump(code, q)
	}
	return q
}

func (d *Dispatcher) pump(code string, q chan *Update) {
	defer d.wg.Done()
	for u := range q {
		d.publish(code, u)
		if len(q) > 0 {
			continue
		}
		if step, ok := d.takeDropped(code); ok {
			d.publish(code, Resync(code, step, time.Now()))
		}
	}
}

func (d *Dispatcher) publish(code string, u *Update) {
	if err := d.pub.Publish(code, u); err != nil {
		log.Warnf("failed to publish %s update of game %s: %s", u.Type, code, err)
	}
}

func (d *Dispatcher) takeDropped(code string) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	step, ok := d.dropped[code]
	delete(d.dropped, code)
	return step, ok
}

// CloseGame drains and removes the queue of a game. Later updates for the
// same code open a new queue.
func (d *Dispatcher) CloseGame(code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if q, ok := d.queues[code]; ok {
		close(q)
		delete(d.queues, code)
	}
	delete(d.dropped, code)
}

func (d *Dispatcher) Games() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	codes := make([]string, 0, len(d.queues))
	for code := range d.queues {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Ping sends a keep-alive update to every game with a live queue.
func (d *Dispatcher) Ping() {
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	for code, q := range d.queues {
		select {
		case q <- Ping(code, now):
		default:
		}
	}
}

func (d *Dispatcher) RunPing(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Ping()
		}
	}
}

// Close closes every queue and waits for pending deliveries. Later
// dispatches are ignored.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	for code, q := range d.queues {
		close(q)
		delete(d.queues, code)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
