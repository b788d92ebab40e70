package broker

import "sync"

// lanes runs jobs in submission order per key. Jobs of different keys run
// concurrently. A key's goroutine exits once its backlog is empty.
type lanes struct {
	mu      sync.Mutex
	pending map[string][]func()
}

func newLanes() *lanes {
	return &lanes{pending: map[string][]func(){}}
}

func (l *lanes) run(key string, job func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if jobs, busy := l.pending[key]; busy {
		l.pending[key] = append(jobs, job)
		return
	}
	l.pending[key] = []func(){}
	go l.drain(key, job)
}

func (l *lanes) drain(key string, job func()) {
	for job != nil {
		job()

		l.mu.Lock()
		jobs := l.pending[key]
		if len(jobs) == 0 {
			delete(l.pending, key)
			job = nil
		} else {
			job, l.pending[key] = jobs[0], jobs[1:]
		}
		l.mu.Unlock()
	}
}

func (l *lanes) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
