package cms

import (
	"encoding/binary"
	"testing"
)

func payloadOf(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func TestObserveIncreasesEstimateOnRepeat(t *testing.T) {
	ik := New(4)
	_, e1 := ik.Observe(payloadOf(100))
	_, e2 := ik.Observe(payloadOf(100))
	if e2 <= e1 {
		t.Fatalf("expected repeated value's estimate to grow, got e1=%d e2=%d", e1, e2)
	}
}

func TestTopKTracksKLargest(t *testing.T) {
	ik := New(2)
	for i := 0; i < 5; i++ {
		ik.Observe(payloadOf(1))
	}
	ik.Observe(payloadOf(2))
	ik.Observe(payloadOf(3))

	topk := ik.TopK()
	if len(topk) != 2 {
		t.Fatalf("expected top-2 entries, got %d", len(topk))
	}
	found1 := false
	for _, e := range topk {
		if e.Value == 1 {
			found1 = true
		}
	}
	if !found1 {
		t.Fatalf("expected value 1 (observed 5x) to survive in top-2, got %+v", topk)
	}
}

func TestHashesBaseRegisterRoundTrip(t *testing.T) {
	ik := New(4)
	ik.RegWrite(RegHashesBase, 7, 0)
	a, status := ik.RegRead(RegHashesBase, 0)
	if a != 7 {
		t.Fatalf("expected programmed a=7, got %d status=%v", a, status)
	}
}
