package gateway

import (
	"context"
	"testing"
	"time"
)

func TestDoReturnsImmediatelyOnDone(t *testing.T) {
	calls := 0
	h := HandlerFunc(func(cmd Command) (uint32, GWStatus) {
		calls++
		return 42, GWDone
	})
	g := New(h)
	result, status := g.Do(context.Background(), Command{Addr: 1}, RetryPolicy{MaxAttempts: 5, Backoff: time.Microsecond})
	if status != GWDone || result != 42 || calls != 1 {
		t.Fatalf("expected single successful call, got result=%d status=%v calls=%d", result, status, calls)
	}
}

func TestDoRetriesOnBusyThenSucceeds(t *testing.T) {
	calls := 0
	h := HandlerFunc(func(cmd Command) (uint32, GWStatus) {
		calls++
		if calls < 3 {
			return 0, GWBusy
		}
		return 7, GWDone
	})
	g := New(h)
	result, status := g.Do(context.Background(), Command{}, RetryPolicy{MaxAttempts: 5, Backoff: time.Microsecond})
	if status != GWDone || result != 7 || calls != 3 {
		t.Fatalf("expected 3 calls ending in done, got result=%d status=%v calls=%d", result, status, calls)
	}
}

func TestVirtGatewayFanOutByIkernelID(t *testing.T) {
	v := NewVirtGateway()
	v.Register(1, HandlerFunc(func(cmd Command) (uint32, GWStatus) { return 100, GWDone }))
	v.Register(2, HandlerFunc(func(cmd Command) (uint32, GWStatus) { return 200, GWDone }))

	result, status := v.Do(context.Background(), 2, Command{}, DefaultRetryPolicy)
	if status != GWDone || result != 200 {
		t.Fatalf("expected ikernel 2's handler result, got %d %v", result, status)
	}
	if _, status := v.Do(context.Background(), 9, Command{}, DefaultRetryPolicy); status != GWFail {
		t.Fatalf("expected GWFail for unregistered ikernel_id")
	}
}
