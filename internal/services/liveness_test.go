package services

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestTryMarkActive(t *testing.T) {
	r := NewLivenessRegistry()

	if !r.TryMarkActive("s1") {
		t.Fatal("First mark should succeed")
	}
	if r.TryMarkActive("s1") {
		t.Error("Second mark of an active session should fail")
	}
	if !r.IsActive("s1") {
		t.Error("Session should be active")
	}
	if r.IsActive("s2") {
		t.Error("Unmarked session should not be active")
	}
}

func TestTryMarkActiveConcurrent(t *testing.T) {
	r := NewLivenessRegistry()

	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.TryMarkActive("s1") {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("Expected exactly one winner, got %d", wins)
	}
}

func TestClearActive(t *testing.T) {
	r := NewLivenessRegistry()

	r.TryMarkActive("s1")
	r.ClearActive("s1")

	if r.IsActive("s1") {
		t.Error("Cleared session should not be active")
	}
	if !r.TryMarkActive("s1") {
		t.Error("Cleared session should be markable again")
	}
}

func TestClearActiveIdempotent(t *testing.T) {
	r := NewLivenessRegistry()

	// Double clears and clears of never-marked sessions must be no-ops.
	r.ClearActive("never-marked")
	r.TryMarkActive("s1")
	r.ClearActive("s1")
	r.ClearActive("s1")

	if r.IsActive("s1") {
		t.Error("Session should stay cleared")
	}
}
