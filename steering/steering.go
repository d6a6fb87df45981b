// Package steering implements the three-stage Probe/Resolve/Act pipeline
// that turns a decoded packet header into a routing decision: passthrough,
// drop, or forward to one of N ikernels. Synchronous header sanity checks
// (disabled, not_ipv4, bad_length, not_udp) always force passthrough,
// regardless of what the flow table says.
package steering

import (
	"github.com/nica-dataplane/nicacore/codec"
	"github.com/nica-dataplane/nicacore/control"
	"github.com/nica-dataplane/nicacore/flowtable"
)

// Decision is the outcome of steering one packet.
type Decision struct {
	Action    flowtable.Action
	IkernelID uint8
	Passthrough bool // true when the raw-passthrough merger should forward this packet
}

// CheckReason names a synchronous header check that forced passthrough.
type CheckReason string

const (
	ReasonNone      CheckReason = ""
	ReasonDisabled  CheckReason = "disabled"
	ReasonNotIPv4   CheckReason = "not_ipv4"
	ReasonBadLength CheckReason = "bad_length"
	ReasonNotUDP    CheckReason = "not_udp"
)

const minTotalLength = 28 // tot_len < 28 is bad_length

// Stage runs the Probe/Resolve/Act pipeline for one direction (h2n or
// n2h), owning a reference to the shared flow table and counters for
// each forced-passthrough check and for flow-table hits; no
// per-destination counters are kept.
type Stage struct {
	table      *flowtable.Table
	mask       flowtable.FieldMask
	enabled    bool
	numIkernel int
	metrics    *control.MetricsRegistry
	prefix     string
}

// NewStage returns a steering Stage bound to table, with numIkernel
// ikernel destinations beyond the passthrough port.
func NewStage(table *flowtable.Table, mask flowtable.FieldMask, numIkernel int, metrics *control.MetricsRegistry, prefix string) *Stage {
	return &Stage{
		table:      table,
		mask:       mask,
		enabled:    true,
		numIkernel: numIkernel,
		metrics:    metrics,
		prefix:     prefix,
	}
}

// SetEnabled toggles the steering enable register; when disabled every
// packet is forced to passthrough.
func (s *Stage) SetEnabled(enabled bool) { s.enabled = enabled }

// Probe computes the masked lookup key from a decoded header. Returns
// ok=false if hdr is nil (a short/unclassifiable packet never reaches
// the flow table and is handled as an empty passthrough beat by Act).
func (s *Stage) Probe(hdr *codec.Header) (flowtable.Key, bool) {
	if hdr == nil {
		return flowtable.Key{}, false
	}
	var key flowtable.Key
	if s.mask&flowtable.MaskSrcPort != 0 {
		key.SrcPort = uint16(hdr.UDP.SrcPort)
	}
	if s.mask&flowtable.MaskDstPort != 0 {
		key.DstPort = uint16(hdr.UDP.DstPort)
	}
	if s.mask&flowtable.MaskSrcIP != 0 {
		key.SrcIP = ipToUint32(hdr.IP.SrcIP)
	}
	if s.mask&flowtable.MaskDstIP != 0 {
		key.DstIP = ipToUint32(hdr.IP.DstIP)
	}
	return key, true
}

// Resolve drains the flow-table lookup result and combines it with the
// synchronous header checks, returning the reason any forced-passthrough
// override applied (ReasonNone otherwise).
func (s *Stage) Resolve(hdr *codec.Header, key flowtable.Key, probed bool) (flowtable.Value, CheckReason) {
	if !s.enabled {
		s.count(ReasonDisabled)
		return flowtable.Value{Action: flowtable.ActionPassthrough}, ReasonDisabled
	}
	if hdr == nil {
		s.count(ReasonNotUDP)
		return flowtable.Value{Action: flowtable.ActionPassthrough}, ReasonNotUDP
	}
	if hdr.Eth.EthernetType != 0x0800 {
		s.count(ReasonNotIPv4)
		return flowtable.Value{Action: flowtable.ActionPassthrough}, ReasonNotIPv4
	}
	if int(hdr.IP.Length) < minTotalLength {
		s.count(ReasonBadLength)
		return flowtable.Value{Action: flowtable.ActionPassthrough}, ReasonBadLength
	}
	if hdr.IP.Protocol != 17 {
		s.count(ReasonNotUDP)
		return flowtable.Value{Action: flowtable.ActionPassthrough}, ReasonNotUDP
	}
	if !probed {
		return flowtable.Value{Action: flowtable.ActionPassthrough}, ReasonNotUDP
	}
	val, hit := s.table.Lookup(key, s.mask)
	if !hit {
		s.count(ReasonNone)
		return flowtable.Value{Action: flowtable.ActionPassthrough}, ReasonNone
	}
	s.countHit(val)
	return val, ReasonNone
}

// Act turns a resolved Value into a Decision, signalling the
// raw-passthrough merger (Passthrough=true) or a specific ikernel
// destination.
func (s *Stage) Act(val flowtable.Value) Decision {
	switch val.Action {
	case flowtable.ActionPassthrough:
		return Decision{Action: flowtable.ActionPassthrough, Passthrough: true}
	case flowtable.ActionDrop:
		return Decision{Action: flowtable.ActionDrop, Passthrough: false}
	default:
		return Decision{Action: flowtable.ActionSteer, IkernelID: val.IkernelID, Passthrough: false}
	}
}

func (s *Stage) count(reason CheckReason) {
	if s.metrics == nil || reason == ReasonNone {
		return
	}
	s.metrics.Inc(s.prefix + ".check." + string(reason))
}

func (s *Stage) countHit(val flowtable.Value) {
	if s.metrics == nil {
		return
	}
	s.metrics.Inc(s.prefix + ".match.hit")
}

func ipToUint32(ip []byte) uint32 {
	ip4 := ip
	if len(ip4) == 16 {
		ip4 = ip4[12:]
	}
	if len(ip4) != 4 {
		return 0
	}
	return uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])
}
