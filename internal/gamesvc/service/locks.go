package service

import "sync"

// gameLocks hands out one mutex per game code and forgets it once nobody
// holds or waits for it.
type gameLocks struct {
	mu    sync.Mutex
	locks map[string]*gameLock
}

type gameLock struct {
	sync.Mutex
	refs int
}

func newGameLocks() *gameLocks {
	return &gameLocks{locks: map[string]*gameLock{}}
}

// Lock blocks until the game is free and returns the unlock func.
func (g *gameLocks) Lock(code string) func() {
	g.mu.Lock()
	l, ok := g.locks[code]
	if !ok {
		l = &gameLock{}
		g.locks[code] = l
	}
	l.refs++
	g.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		g.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.locks, code)
		}
		g.mu.Unlock()
	}
}

func (g *gameLocks) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}
