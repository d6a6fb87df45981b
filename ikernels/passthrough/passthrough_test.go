package passthrough

import (
	"testing"

	"github.com/nica-dataplane/nicacore/ikernel"
)

func TestIgnoreCreditsBypassesCheck(t *testing.T) {
	ik := New(1)
	ik.IgnoreCredits = true
	if !ik.CanTransmit(0, 0, 1, 64, ikernel.DirectionHost) {
		t.Fatalf("expected IgnoreCredits to bypass credit exhaustion")
	}
}

func TestRegistersAreUnsupported(t *testing.T) {
	ik := New(0)
	if _, status := ik.RegRead(0, 0); status != ikernel.GWFail {
		t.Fatalf("expected GWFail for any register read")
	}
}
