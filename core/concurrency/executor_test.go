package concurrency

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutorSubmitRuns(t *testing.T) {
	e := NewExecutor(2, -1)
	defer e.Close()

	var n int64
	for i := 0; i < 100; i++ {
		if err := e.Submit(func() { atomic.AddInt64(&n, 1) }); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt64(&n) == 100 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected 100 tasks executed, got %d", atomic.LoadInt64(&n))
}

func TestExecutorCloseRejectsSubmit(t *testing.T) {
	e := NewExecutor(1, -1)
	e.Close()
	if err := e.Submit(func() {}); err != ErrExecutorClosed {
		t.Fatalf("expected ErrExecutorClosed, got %v", err)
	}
}
