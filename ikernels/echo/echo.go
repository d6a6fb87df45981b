// Package echo implements the trivial bounce-back ikernel: whatever
// payload arrives is emitted unchanged. Included as the minimal
// conformance example for the ikernel.Ikernel contract, alongside the
// more elaborate threshold/CMS engines.
package echo

import (
	"context"

	"github.com/nica-dataplane/nicacore/ikernel"
)

// Ikernel is the echo engine.
type Ikernel struct {
	*ikernel.Base
	echoed uint32
}

// New returns an echo ikernel.
func New() *Ikernel {
	return &Ikernel{Base: ikernel.NewBase()}
}

// Bounce returns payload unchanged, incrementing the echoed counter.
func (ik *Ikernel) Bounce(payload []byte) []byte {
	ik.echoed++
	return payload
}

// Step is a no-op: packets reach the engine through Bounce.
func (ik *Ikernel) Step(ctx context.Context, ports *ikernel.Ports, counts ikernel.TCCounts) error {
	return nil
}

// RegRead exposes the echoed-packet counter at address 0.
func (ik *Ikernel) RegRead(addr uint32, ikernelID uint8) (uint32, ikernel.GWStatus) {
	if addr == 0 {
		return ik.echoed, ikernel.GWDone
	}
	return 0, ikernel.GWFail
}

// RegWrite implements ikernel.Ikernel; echo has no writable registers.
func (ik *Ikernel) RegWrite(addr uint32, value uint32, ikernelID uint8) ikernel.GWStatus {
	return ikernel.GWFail
}

// CanTransmit delegates to the shared Base precondition.
func (ik *Ikernel) CanTransmit(tc int, ikernelID uint8, ringID uint8, length int, direction ikernel.Direction) bool {
	return ik.Base.CanTransmit(ikernel.TCCounts{}, ikernelID, ringID, direction)
}

// NewMessage delegates to the shared Base bookkeeping.
func (ik *Ikernel) NewMessage(ring uint8, direction ikernel.Direction) {
	ik.Base.NewMessage(ring)
}

var _ ikernel.Ikernel = (*Ikernel)(nil)
