package driver

import (
	"errors"
	"sync"
	"testing"
)

type countingStateListener struct {
	mu      sync.Mutex
	updates int
	errs    int
}

func (l *countingStateListener) DescriptionUpdated(*Description) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates++
}

func (l *countingStateListener) Error(error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs++
}

func (l *countingStateListener) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updates, l.errs
}

func TestListenerSetAdd(t *testing.T) {
	var set listenerSet

	a := &countingStateListener{}
	b := &countingStateListener{}

	set.add(a)
	set.add(b)
	set.add(a) // identity duplicate, ignored

	if got := len(set.snapshot()); got != 2 {
		t.Fatalf("snapshot length = %d, want 2", got)
	}

	set.broadcastUpdated(&Description{})
	set.broadcastError(errors.New("probe failed"))

	for _, l := range []*countingStateListener{a, b} {
		updates, errs := l.counts()
		if updates != 1 || errs != 1 {
			t.Fatalf("counts = (%d, %d), want (1, 1)", updates, errs)
		}
	}
}

func TestListenerSetSnapshotIsStable(t *testing.T) {
	var set listenerSet

	a := &countingStateListener{}
	set.add(a)

	snap := set.snapshot()
	set.add(&countingStateListener{})

	if len(snap) != 1 {
		t.Fatalf("snapshot mutated by concurrent add: length %d", len(snap))
	}
}

func TestListenerSetConcurrentAddAndBroadcast(t *testing.T) {
	var set listenerSet
	set.add(&countingStateListener{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			set.add(&countingStateListener{})
		}()
		go func() {
			defer wg.Done()
			set.broadcastUpdated(&Description{})
		}()
	}
	wg.Wait()

	if got := len(set.snapshot()); got != 9 {
		t.Fatalf("snapshot length = %d, want 9", got)
	}
}
