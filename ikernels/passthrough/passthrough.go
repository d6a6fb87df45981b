// Package passthrough implements the trivial ring_id=0 passthrough /
// ring_id=R custom-ring rewrap ikernel, used as a conformance baseline
// and as a test-only way to bypass credit checks via IgnoreCredits.
package passthrough

import (
	"context"

	"github.com/nica-dataplane/nicacore/ikernel"
)

// Ikernel is the passthrough engine.
type Ikernel struct {
	*ikernel.Base
	// IgnoreCredits bypasses the CanTransmit credit check, a test-only
	// escape hatch for exercising downstream stages without modeling
	// credit exhaustion.
	IgnoreCredits bool
	RingID        uint8
}

// New returns a passthrough ikernel targeting ring ringID (0 = raw
// passthrough, non-zero = custom-ring rewrap).
func New(ringID uint8) *Ikernel {
	return &Ikernel{Base: ikernel.NewBase(), RingID: ringID}
}

// Step is a no-op: passthrough forwards whatever it's given without
// inspecting payload.
func (ik *Ikernel) Step(ctx context.Context, ports *ikernel.Ports, counts ikernel.TCCounts) error {
	return nil
}

// RegRead implements ikernel.Ikernel; passthrough has no registers.
func (ik *Ikernel) RegRead(addr uint32, ikernelID uint8) (uint32, ikernel.GWStatus) {
	return 0, ikernel.GWFail
}

// RegWrite implements ikernel.Ikernel; passthrough has no registers.
func (ik *Ikernel) RegWrite(addr uint32, value uint32, ikernelID uint8) ikernel.GWStatus {
	return ikernel.GWFail
}

// CanTransmit delegates to the shared Base precondition unless
// IgnoreCredits is set.
func (ik *Ikernel) CanTransmit(tc int, ikernelID uint8, ringID uint8, length int, direction ikernel.Direction) bool {
	if ik.IgnoreCredits {
		return true
	}
	return ik.Base.CanTransmit(ikernel.TCCounts{}, ikernelID, ringID, direction)
}

// NewMessage delegates to the shared Base bookkeeping.
func (ik *Ikernel) NewMessage(ring uint8, direction ikernel.Direction) {
	ik.Base.NewMessage(ring)
}

var _ ikernel.Ikernel = (*Ikernel)(nil)
