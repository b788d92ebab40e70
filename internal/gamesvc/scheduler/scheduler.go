// Package scheduler keeps at most one pending delayed task per key.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/avvvet/strategists-services/internal/worker"
	log "github.com/sirupsen/logrus"
)

type Handler func(ctx context.Context, e Event) error

type Scheduler struct {
	mu      sync.Mutex
	pending map[string]*task
	pool    *worker.Pool
	handle  Handler
}

type task struct {
	event Event
	timer *time.Timer
}

func New(pool *worker.Pool, handle Handler) *Scheduler {
	return &Scheduler{
		pending: map[string]*task{},
		pool:    pool,
		handle:  handle,
	}
}

// Schedule arms a timer for e, replacing any timer pending under the same
// key.
func (s *Scheduler) Schedule(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := e.Key()
	if t, ok := s.pending[key]; ok {
		t.timer.Stop()
	}
	t := &task{event: e}
	t.timer = time.AfterFunc(time.Until(e.At()), func() { s.fire(t) })
	s.pending[key] = t
	log.Debugf("scheduled %s at %s", key, e.At().Format(time.RFC3339))
}

// Unschedule cancels the timer pending under key, if any. A callback that
// already started is not affected.
func (s *Scheduler) Unschedule(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.pending[key]; ok {
		t.timer.Stop()
		delete(s.pending, key)
		log.Debugf("unscheduled %s", key)
	}
}

func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) fire(t *task) {
	key := t.event.Key()

	s.mu.Lock()
	if s.pending[key] != t {
		// replaced or cancelled while the timer was firing
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.mu.Unlock()

	ok := s.pool.Submit(func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("scheduled task %s panicked: %v", key, r)
			}
		}()
		if err := s.handle(ctx, t.event); err != nil {
			log.Errorf("scheduled task %s failed: %s", key, err)
		}
	})
	if !ok {
		log.Warnf("scheduled task %s dropped, worker pool closed", key)
	}
}

// Close stops every pending timer.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.pending {
		t.timer.Stop()
		delete(s.pending, key)
	}
}
