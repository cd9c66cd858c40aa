package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/letya999/support-rag-sub001/pkg/store"
)

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	repo := NewSessionRepository()

	first := repo.GetOrCreate("conv-1", "user-1")
	if first.DialogState != store.StateInitial {
		t.Fatalf("new session state = %q, want %q", first.DialogState, store.StateInitial)
	}

	first.AttemptCount = 2
	repo.Save(first)

	second := repo.GetOrCreate("conv-1", "user-1")
	if second != first {
		t.Error("expected the stored session instance, got a fresh one")
	}
	if second.AttemptCount != 2 {
		t.Errorf("AttemptCount = %d, want 2", second.AttemptCount)
	}
}

func TestGetMissesUnknownSession(t *testing.T) {
	repo := NewSessionRepository()
	if _, found := repo.Get("nope"); found {
		t.Error("expected a miss for an unknown session id")
	}
}

func TestDeleteRemovesSession(t *testing.T) {
	repo := NewSessionRepository()
	repo.GetOrCreate("conv-1", "user-1")
	repo.Delete("conv-1")

	if _, found := repo.Get("conv-1"); found {
		t.Error("session still present after Delete")
	}
}

func TestLockSerializesTurnsPerSession(t *testing.T) {
	repo := NewSessionRepository()

	const turns = 50
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := repo.Lock("conv-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != turns {
		t.Errorf("counter = %d, want %d", counter, turns)
	}
}

func TestLockEntriesAreReleased(t *testing.T) {
	repo := NewSessionRepository()

	const conversations = 20
	var wg sync.WaitGroup
	for i := 0; i < conversations; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			unlock := repo.Lock(string(rune('a' + n)))
			unlock()
		}(i)
	}
	wg.Wait()

	repo.locks.mu.Lock()
	remaining := len(repo.locks.locks)
	repo.locks.mu.Unlock()
	if remaining != 0 {
		t.Errorf("lock map holds %d entries after all turns finished, want 0", remaining)
	}
}

func TestLockKeepsSessionsIndependent(t *testing.T) {
	repo := NewSessionRepository()

	unlockA := repo.Lock("conv-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := repo.Lock("conv-b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on conv-b blocked while conv-a was held")
	}
}
