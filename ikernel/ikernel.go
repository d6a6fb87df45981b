// Package ikernel defines the runtime contract every engine plugged into
// the dataplane (threshold, count-min-sketch, memcached, coap,
// passthrough, pktgen, echo) must satisfy, plus the shared plumbing those
// engines are built from: port bundles, credit registers, and the
// generic per-ikernel context array.
package ikernel

import (
	"context"

	"github.com/nica-dataplane/nicacore/codec"
)

// Direction distinguishes the host-facing and network-facing sides of an
// ikernel's traffic.
type Direction uint8

const (
	DirectionHost Direction = iota
	DirectionNet
)

// NumTrafficClass is the default traffic-class count (NUM_TC); the last
// class is always reserved for passthrough traffic per the demux design.
const NumTrafficClass = 8

// MetaDataThreshold and DataThreshold are the default per-TC FIFO
// backpressure thresholds (256 entries each, per spec §4.4).
const (
	MetaDataThreshold = 256
	DataThreshold     = 256
)

// TCCounts holds per-traffic-class depth gauges used for backpressure
// decisions in CanTransmit.
type TCCounts struct {
	MetaDepth [NumTrafficClass]int
	DataDepth [NumTrafficClass]int
}

// CreditRegs is one entry of the 6-entry credit-regs array carried in
// Ports: a ring's {MSN, MaxMSN} pair plus its RingID and Reset flag.
// Base.CanTransmit does not read it; it consults Base's own per-ring
// credit table.
type CreditRegs struct {
	RingID uint8
	MSN    uint32
	MaxMSN uint32
	Reset  bool
}

// CreditUpdate is the {ring_id, max_msn, reset} tuple pushed into the
// single-element intake queue whenever the top level observes a change.
type CreditUpdate struct {
	RingID uint8
	MaxMSN uint32
	Reset  bool
}

// Ports bundles host- and net-side ingress/egress metadata+data queues,
// credit registers, and a trace-event bitset, exactly as spec.md §4.4
// describes for the per-tick Step call.
type Ports struct {
	HostIngressMeta chan codec.PacketMeta
	HostIngressData chan codec.Flit
	HostEgressMeta  chan codec.PacketMeta
	HostEgressData  chan codec.Flit

	NetIngressMeta chan codec.PacketMeta
	NetIngressData chan codec.Flit
	NetEgressMeta  chan codec.PacketMeta
	NetEgressData  chan codec.Flit

	Credits [6]CreditRegs
	Trace   uint8 // up to 8 trace-event bits
}

// GWStatus mirrors the gateway's three-value RPC status.
type GWStatus uint8

const (
	GWDone GWStatus = iota
	GWBusy
	GWFail
)

// Ikernel is the contract every engine implements.
type Ikernel interface {
	// Step runs one tick of the engine's packet-processing state machine.
	Step(ctx context.Context, ports *Ports, counts TCCounts) error

	// RegRead performs a register-level read routed through the gateway.
	RegRead(addr uint32, ikernelID uint8) (uint32, GWStatus)

	// RegWrite performs a register-level write routed through the gateway.
	RegWrite(addr uint32, value uint32, ikernelID uint8) GWStatus

	// CanTransmit is the precondition an ikernel must check before
	// producing a packet.
	CanTransmit(tc int, ikernelID uint8, ringID uint8, length int, direction Direction) bool

	// NewMessage must be called exactly once per emitted custom-ring
	// packet; it increments the per-ring MSN.
	NewMessage(ring uint8, direction Direction)
}

// Base provides the credit-bookkeeping and CanTransmit/NewMessage logic
// shared by every concrete ikernel. Its CanTransmit/NewMessage signatures
// differ from the Ikernel interface's, so each engine embeds *Base and
// defines its own CanTransmit/NewMessage alongside Step/RegRead/RegWrite.
type Base struct {
	rings  map[uint8]*ringState
	update chan CreditUpdate
}

type ringState struct {
	msn    uint32
	maxMSN uint32
}

// NewBase returns a Base with an empty credit table and a single-element
// update intake queue.
func NewBase() *Base {
	return &Base{
		rings:  make(map[uint8]*ringState),
		update: make(chan CreditUpdate, 1),
	}
}

// PushCreditUpdate enqueues a {ring_id, max_msn, reset} tuple observed by
// the top level, non-blocking: if the single-element queue is already
// full the newest update wins (matches "push into a single-element
// queue" with overwrite-on-change semantics).
func (b *Base) PushCreditUpdate(u CreditUpdate) {
	select {
	case b.update <- u:
	default:
		select {
		case <-b.update:
		default:
		}
		b.update <- u
	}
}

// Update drains the credit-update intake queue, applying the tuple to the
// ring's credit state. Invalid ring IDs (0, or maxRings and above) are
// reported via invalidRingID and otherwise ignored.
func (b *Base) Update(maxRings uint8) (applied bool, invalidRingID bool) {
	select {
	case u := <-b.update:
		if u.RingID == 0 || u.RingID >= maxRings {
			return false, true
		}
		rs := b.rings[u.RingID]
		if rs == nil {
			rs = &ringState{}
			b.rings[u.RingID] = rs
		}
		rs.maxMSN = u.MaxMSN
		if u.Reset {
			rs.msn = 0
		}
		return true, false
	default:
		return false, false
	}
}

// CanTransmit implements the shared precondition: false iff the host
// direction's ring credit slot is exhausted, or the traffic class for
// ikernelID exceeds its metadata/data thresholds.
func (b *Base) CanTransmit(counts TCCounts, ikernelID uint8, ringID uint8, direction Direction) bool {
	if direction == DirectionHost && ringID != 0 {
		rs := b.rings[ringID]
		if rs != nil && rs.msn == rs.maxMSN {
			return false
		}
	}
	tc := int(ikernelID) % NumTrafficClass
	if counts.MetaDepth[tc] > MetaDataThreshold || counts.DataDepth[tc] > DataThreshold {
		return false
	}
	return true
}

// NewMessage increments the per-ring MSN, creating the ring's credit
// state on first use.
func (b *Base) NewMessage(ring uint8) {
	rs := b.rings[ring]
	if rs == nil {
		rs = &ringState{}
		b.rings[ring] = rs
	}
	rs.msn++
}

// RingMSN returns the current (msn, maxMSN) pair for a ring, for tests
// and debug probes.
func (b *Base) RingMSN(ring uint8) (msn, maxMSN uint32) {
	rs := b.rings[ring]
	if rs == nil {
		return 0, 0
	}
	return rs.msn, rs.maxMSN
}
