// Package customring transforms an ikernel egress packet whose ring_id
// != 0 into a RoCE v2 UC SEND_ONLY BTH-framed packet, for the net-to-host
// direction only. gopacket/layers covers the outer L2/L3 fields
// (Ethernet/IPv4/UDP) it already models; the BTH itself is built by hand
// since gopacket/layers has no RoCE/InfiniBand transport layer.
package customring

import (
	"encoding/binary"
	"net"

	"github.com/nica-dataplane/nicacore/codec"
)

// UCSendOnly is the RoCE v2 BTH opcode for an unreliable-connected
// SEND_ONLY message.
const UCSendOnly = 0x2C

// RoCEv2UDPPort is the standard UDP destination port for RoCE v2 traffic.
const RoCEv2UDPPort = 4791

const (
	bthLen  = 12
	icrcLen = 4
)

// RingContext holds the per-ring state the builder consumes and mutates:
// the destination L2/L3/QP identity, and the running PSN.
type RingContext struct {
	SrcMAC, DstMAC net.HardwareAddr
	SrcIP, DstIP   net.IP
	DestQPN        uint32
	PSN            uint32
}

// RingTable holds one RingContext per ring_id-1 slot.
type RingTable struct {
	rings []RingContext
}

// NewRingTable returns a table sized for numRings contexts.
func NewRingTable(numRings int) *RingTable {
	return &RingTable{rings: make([]RingContext, numRings)}
}

// Context returns the context for ring_id (1-based; ring_id-1 indexes the
// table).
func (t *RingTable) Context(ringID uint8) *RingContext {
	return &t.rings[int(ringID)-1]
}

// Packet is one egress packet: metadata plus its payload flits (already
// length-adjusted, without any header).
type Packet struct {
	Meta    codec.PacketMeta
	Payload []byte
}

// Builder transforms one ikernel egress packet into a BTH-framed
// RoCE v2 packet. One invocation consumes exactly one packet and emits
// exactly one.
type Builder struct {
	rings *RingTable
}

// NewBuilder returns a Builder bound to rings.
func NewBuilder(rings *RingTable) *Builder {
	return &Builder{rings: rings}
}

// RingContext exposes the ring context Build(ringID, ...) would consult,
// for callers that need to rewrite outer L2/L3 addressing alongside it.
func (b *Builder) RingContext(ringID uint8) *RingContext {
	return b.rings.Context(ringID)
}

// Build produces the BTH header and padded/suffixed payload for pkt,
// routed through the ring context at ringID, and advances that context's
// PSN.
func (b *Builder) Build(ringID uint8, pkt Packet) (bth []byte, payload []byte) {
	ctx := b.rings.Context(ringID)

	padCount := (4 - (len(pkt.Payload) % 4)) % 4
	padded := make([]byte, len(pkt.Payload)+padCount)
	copy(padded, pkt.Payload)

	bth = buildBTH(ctx.DestQPN, ctx.PSN, padCount)

	// ICRC placeholder: 4 zero bytes, per the spec's Open Question
	// resolution (the real ICRC is computed by a downstream verbs
	// consumer and is not validated in software emulation).
	out := make([]byte, 0, len(padded)+icrcLen)
	out = append(out, padded...)
	out = append(out, make([]byte, icrcLen)...)

	ctx.PSN++
	return bth, out
}

// buildBTH constructs the 12-byte Base Transport Header by hand: RoCE v2
// has no gopacket/layers representation, so the wire layout is assembled
// directly per the IB spec's BTH field widths.
func buildBTH(qpn uint32, psn uint32, padCount int) []byte {
	b := make([]byte, bthLen)
	b[0] = UCSendOnly
	b[1] = byte(padCount<<4) | 0 // pad_count in high nibble, transport-header-version low nibble
	binary.BigEndian.PutUint16(b[2:4], 0xFFFF)
	// qpn is a 24-bit field.
	b[4] = byte(qpn >> 16)
	b[5] = byte(qpn >> 8)
	b[6] = byte(qpn)
	b[7] = 0 // ack-req/reserved
	// psn is a 24-bit field.
	b[8] = byte(psn >> 16)
	b[9] = byte(psn >> 8)
	b[10] = byte(psn)
	b[11] = 0
	return b
}

// RewriteDestination overwrites an ikernel egress packet's L2/L3 with the
// ring context's destination identity and forces UDP dst = 4791.
func RewriteDestination(ctx *RingContext) (srcMAC, dstMAC net.HardwareAddr, srcIP, dstIP net.IP, udpDstPort uint16) {
	return ctx.SrcMAC, ctx.DstMAC, ctx.SrcIP, ctx.DstIP, RoCEv2UDPPort
}
