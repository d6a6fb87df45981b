package threshold

import (
	"encoding/binary"
	"testing"

	"github.com/nica-dataplane/nicacore/ikernel"
)

func payloadOf(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func TestObserveDropsBelowThreshold(t *testing.T) {
	k := New()
	k.RegWrite(RegThresholdValue, 100, 0)

	if drop := k.Observe(payloadOf(50)); !drop {
		t.Fatalf("expected drop for value below threshold")
	}
	if drop := k.Observe(payloadOf(150)); drop {
		t.Fatalf("expected no drop for value above threshold")
	}

	dropped, _ := k.RegRead(RegDropped, 0)
	if dropped != 1 {
		t.Fatalf("expected dropped=1, got %d", dropped)
	}
	count, _ := k.RegRead(RegCount, 0)
	if count != 2 {
		t.Fatalf("expected count=2, got %d", count)
	}
	min, _ := k.RegRead(RegMin, 0)
	max, _ := k.RegRead(RegMax, 0)
	if min != 50 || max != 150 {
		t.Fatalf("expected min=50 max=150, got min=%d max=%d", min, max)
	}
}

func TestResetClearsConfigAndCounters(t *testing.T) {
	k := New()
	k.RegWrite(RegThresholdValue, 100, 0)
	k.Observe(payloadOf(50))
	k.RegWrite(RegReset, 0, 0)

	threshold, _ := k.RegRead(RegThresholdValue, 0)
	count, _ := k.RegRead(RegCount, 0)
	if threshold != 0 || count != 0 {
		t.Fatalf("expected reset state, got threshold=%d count=%d", threshold, count)
	}
}

func TestUnknownRegisterFails(t *testing.T) {
	k := New()
	if _, status := k.RegRead(0xFF, 0); status != ikernel.GWFail {
		t.Fatalf("expected GWFail for unknown register")
	}
}
