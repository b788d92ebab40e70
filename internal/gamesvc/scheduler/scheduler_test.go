package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/strategists-services/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	fired []Event
	ch    chan Event
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Event, 16)}
}

func (r *recorder) handle(ctx context.Context, e Event) error {
	r.mu.Lock()
	r.fired = append(r.fired, e)
	r.mu.Unlock()
	r.ch <- e
	return nil
}

func newScheduler(t *testing.T, h Handler) *Scheduler {
	pool := worker.NewPool(2, 8)
	s := New(pool, h)
	t.Cleanup(func() {
		s.Close()
		pool.Close()
	})
	return s
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "skip-player-ABCD", SkipPlayerEvent{GameCode: "ABCD"}.Key())
	assert.Equal(t, "clean-up-ABCD", CleanUpEvent{GameCode: "ABCD"}.Key())
}

func TestScheduleFires(t *testing.T) {
	r := newRecorder()
	s := newScheduler(t, r.handle)

	s.Schedule(SkipPlayerEvent{GameCode: "ABCD", Step: 3, Time: time.Now().Add(10 * time.Millisecond)})
	assert.True(t, s.Pending("skip-player-ABCD"))

	select {
	case e := <-r.ch:
		assert.Equal(t, 3, e.(SkipPlayerEvent).Step)
	case <-time.After(time.Second):
		t.Fatal("event did not fire")
	}
	assert.False(t, s.Pending("skip-player-ABCD"))
}

func TestScheduleReplacesPendingTimer(t *testing.T) {
	r := newRecorder()
	s := newScheduler(t, r.handle)

	s.Schedule(SkipPlayerEvent{GameCode: "ABCD", Step: 1, Time: time.Now().Add(20 * time.Millisecond)})
	s.Schedule(SkipPlayerEvent{GameCode: "ABCD", Step: 2, Time: time.Now().Add(60 * time.Millisecond)})
	assert.Equal(t, 1, s.Len())

	select {
	case e := <-r.ch:
		assert.Equal(t, 2, e.(SkipPlayerEvent).Step)
	case <-time.After(time.Second):
		t.Fatal("event did not fire")
	}

	time.Sleep(50 * time.Millisecond)
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Len(t, r.fired, 1)
}

func TestUnschedule(t *testing.T) {
	r := newRecorder()
	s := newScheduler(t, r.handle)

	s.Unschedule("clean-up-NONE")

	s.Schedule(CleanUpEvent{GameCode: "ABCD", Time: time.Now().Add(20 * time.Millisecond)})
	s.Unschedule("clean-up-ABCD")
	assert.Equal(t, 0, s.Len())

	select {
	case <-r.ch:
		t.Fatal("cancelled event fired")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestKeysAreIndependent(t *testing.T) {
	r := newRecorder()
	s := newScheduler(t, r.handle)

	s.Schedule(CleanUpEvent{GameCode: "ABCD", Time: time.Now().Add(time.Hour)})
	s.Schedule(SkipPlayerEvent{GameCode: "ABCD", Time: time.Now().Add(time.Hour)})
	s.Schedule(SkipPlayerEvent{GameCode: "EFGH", Time: time.Now().Add(time.Hour)})
	assert.Equal(t, 3, s.Len())

	s.Unschedule(SkipPlayerKey("ABCD"))
	assert.True(t, s.Pending(CleanUpKey("ABCD")))
	assert.True(t, s.Pending(SkipPlayerKey("EFGH")))
}

func TestFailingTaskLeavesSlotFree(t *testing.T) {
	calls := make(chan string, 4)
	s := newScheduler(t, func(ctx context.Context, e Event) error {
		calls <- e.Key()
		if e.(CleanUpEvent).GameCode == "ABCD" {
			panic("boom")
		}
		return errors.New("failed")
	})

	s.Schedule(CleanUpEvent{GameCode: "ABCD", Time: time.Now()})
	<-calls
	require.Eventually(t, func() bool { return !s.Pending("clean-up-ABCD") }, time.Second, 5*time.Millisecond)

	s.Schedule(CleanUpEvent{GameCode: "ABCD", Time: time.Now()})
	s.Schedule(CleanUpEvent{GameCode: "EFGH", Time: time.Now()})
	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case key := <-calls:
			seen[key] = true
		case <-time.After(time.Second):
			t.Fatal("rescheduled events did not fire")
		}
	}
	assert.Equal(t, 0, s.Len())
}
