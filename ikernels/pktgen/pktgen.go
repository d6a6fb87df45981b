// Package pktgen implements the packet-generator ikernel: a cached
// template packet is duplicated burst_size times with a decrementing
// IP-identification field (matching spec.md §8 scenario 5, which
// observes the sequence 2, 1). Arming a burst marks the ikernel's flow
// active in a per-ikernel scheduler.DRR, but the engine pulls burst
// packets with NextPacket directly; that DRR does not order their egress.
package pktgen

import (
	"context"
	"sync"

	"github.com/nica-dataplane/nicacore/ikernel"
	"github.com/nica-dataplane/nicacore/scheduler"
)

// Register addresses, matching original_source/ikernels/hls/pktgen.cpp's
// PKTGEN_BURST_SIZE/PKTGEN_CUR_PACKET gateway fields.
const (
	RegBurstSize uint32 = 0x00
	RegCurPacket uint32 = 0x01
)

// Ikernel is the packet-generator engine.
type Ikernel struct {
	*ikernel.Base

	mu        sync.Mutex
	template  []byte
	burstSize uint32
	remaining uint32
	nextIPID  uint16
	sched     *scheduler.DRR
	flowID    int
}

// New returns a pktgen ikernel emitting copies of template, scheduled
// through sched under flowID.
func New(template []byte, sched *scheduler.DRR, flowID int) *Ikernel {
	return &Ikernel{
		Base:     ikernel.NewBase(),
		template: append([]byte(nil), template...),
		sched:    sched,
		flowID:   flowID,
	}
}

// SetTemplate replaces the cached template packet and arms a new burst
// of up to burst_size duplicates, triggered when a whole raw frame is
// steered to this ikernel (see nica.ingest, which special-cases this
// slot and forwards the template itself unchanged before this burst).
// This mirrors original_source/ikernels/hls/pktgen.cpp's sched_wrapper:
// completing receipt of the template packet writes a context update
// with cur_packet = -1, which clips to burst_size and (if nonzero)
// schedules the flow — there is no separate explicit "start" step in
// hardware.
func (ik *Ikernel) SetTemplate(template []byte) {
	ik.mu.Lock()
	defer ik.mu.Unlock()
	ik.template = append([]byte(nil), template...)
	ik.arm(ik.burstSize)
}

// Start arms a new burst starting at the given IP-identification,
// mirroring an explicit PKTGEN_CUR_PACKET gateway write (the hardware
// lets the control plane set cur_packet directly via contexts.rpc).
func (ik *Ikernel) Start(startIPID uint16) {
	ik.mu.Lock()
	defer ik.mu.Unlock()
	ik.arm(uint32(startIPID))
}

// arm must be called with ik.mu held.
func (ik *Ikernel) arm(startIPID uint32) {
	ik.remaining = ik.burstSize
	ik.nextIPID = uint16(startIPID)
	if ik.remaining > 0 {
		ik.sched.Schedule(ik.flowID)
	}
}

// NextPacket returns the next generated packet (a copy of the template
// with its IP-identification field overwritten), decrementing the
// remaining burst count. ok is false once the burst is exhausted.
func (ik *Ikernel) NextPacket() (packet []byte, ipID uint16, ok bool) {
	ik.mu.Lock()
	defer ik.mu.Unlock()
	if ik.remaining == 0 {
		return nil, 0, false
	}
	out := append([]byte(nil), ik.template...)
	if len(out) >= 20+4 {
		out[18] = byte(ik.nextIPID >> 8)
		out[19] = byte(ik.nextIPID)
	}
	ipID = ik.nextIPID
	ik.nextIPID--
	ik.remaining--
	return out, ipID, true
}

// Remaining reports how many packets are left in the current burst.
func (ik *Ikernel) Remaining() uint32 {
	ik.mu.Lock()
	defer ik.mu.Unlock()
	return ik.remaining
}

// RegRead implements ikernel.Ikernel.
func (ik *Ikernel) RegRead(addr uint32, ikernelID uint8) (uint32, ikernel.GWStatus) {
	ik.mu.Lock()
	defer ik.mu.Unlock()
	switch addr {
	case RegBurstSize:
		return ik.burstSize, ikernel.GWDone
	case RegCurPacket:
		return ik.remaining, ikernel.GWDone
	default:
		return 0, ikernel.GWFail
	}
}

// RegWrite implements ikernel.Ikernel. RegCurPacket triggers Start with
// value used as the starting IP-identification, mirroring a direct
// gateway write to the hardware's cur_packet field.
func (ik *Ikernel) RegWrite(addr uint32, value uint32, ikernelID uint8) ikernel.GWStatus {
	switch addr {
	case RegBurstSize:
		ik.mu.Lock()
		ik.burstSize = value
		ik.mu.Unlock()
		return ikernel.GWDone
	case RegCurPacket:
		ik.Start(uint16(value))
		return ikernel.GWDone
	default:
		return ikernel.GWFail
	}
}

// CanTransmit delegates to the shared Base precondition.
func (ik *Ikernel) CanTransmit(tc int, ikernelID uint8, ringID uint8, length int, direction ikernel.Direction) bool {
	return ik.Base.CanTransmit(ikernel.TCCounts{}, ikernelID, ringID, direction)
}

// NewMessage delegates to the shared Base bookkeeping.
func (ik *Ikernel) NewMessage(ring uint8, direction ikernel.Direction) {
	ik.Base.NewMessage(ring)
}

// Step is a no-op placeholder: bursts are driven through
// Start/NextPacket, called by the pipeline glue.
func (ik *Ikernel) Step(ctx context.Context, ports *ikernel.Ports, counts ikernel.TCCounts) error {
	return nil
}

var _ ikernel.Ikernel = (*Ikernel)(nil)
