// Package worker runs background jobs on a fixed number of goroutines.
package worker

import (
	"context"
	"runtime/debug"
	"sync"

	log "github.com/sirupsen/logrus"
)

type Job func(ctx context.Context)

type Pool struct {
	jobs   chan Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewPool(workers, queue int) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:   make(chan Job, queue),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	return p
}

// Submit queues job, blocking while the queue is full. It returns false
// once the pool is closed.
func (p *Pool) Submit(job Job) bool {
	select {
	case <-p.ctx.Done():
		return false
	default:
	}
	select {
	case p.jobs <- job:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// TrySubmit queues job unless the queue is full or the pool is closed.
func (p *Pool) TrySubmit(job Job) bool {
	select {
	case <-p.ctx.Done():
		return false
	default:
	}
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobs:
			p.run(job)
		}
	}
}

func (p *Pool) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("worker job panicked: %v\n%s", r, debug.Stack())
		}
	}()
	job(p.ctx)
}

// Close stops the workers. Jobs still queued are dropped; running jobs see
// their context cancelled.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}
