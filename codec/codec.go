// Package codec implements the flit/header split at the front of every
// pipeline direction: raw AXI-stream-shaped beats ("flits") arrive from a
// transport.RawConn, and the splitter state machine peels off the
// Ethernet+IP+UDP header so downstream stages (flowtable, steering,
// lenadjust) operate on decoded metadata instead of raw bytes.
//
// Adapted from the teacher's core/protocol frame-codec state machine,
// generalized from a WS frame boundary detector to a fixed 2-flit header
// window, and from the byte-slicing header reads of early drafts to
// gopacket-based decoding (grounded on malbeclabs-doublezero's
// telemetry/flow-enricher decoder).
package codec

import (
	"math/bits"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// FlitSize is the width of one AXI-stream-shaped transfer beat (256 bits).
const FlitSize = 32

// Flit is one fixed-width beat of the packet byte stream.
type Flit struct {
	Data [FlitSize]byte
	Keep uint32 // bitmask of valid bytes in Data, LSB-first
	Last bool
}

// NumKeptBytes returns the count of valid leading bytes in the flit, per
// the invariant that Keep is always a contiguous run of set low bits
// (LSB-first).
func (f Flit) NumKeptBytes() int {
	return bits.TrailingZeros32(^f.Keep) // index of the first zero bit
}

// PacketMeta is the per-packet metadata beat threaded alongside the data
// stream (component 1's mlx::metadata equivalent).
type PacketMeta struct {
	User uint16 // VLAN/ingress port tag, transport-defined
	ID   uint8  // packet identifier within one Tick batch
}

// Header holds the decoded Ethernet+IP+UDP fields a packet carries, when
// the pipeline was able to classify it as UDP/IPv4.
type Header struct {
	Eth layers.Ethernet
	IP  layers.IPv4
	UDP layers.UDP
}

// headerWindowFlits is the number of leading flits buffered before the
// splitter attempts to decode a header (covers 14B Ethernet + 20B IPv4 +
// 8B UDP = 42 bytes, comfortably inside two 32-byte flits).
const headerWindowFlits = 2

type splitterState int

const (
	stateIdle splitterState = iota
	stateReadingHeader
	stateStream
	stateLast
)

// Splitter consumes a packet's flit stream and classifies/decodes its
// header, emitting the (possibly nil) Header alongside the unmodified
// data flits it forwards downstream.
type Splitter struct {
	state   splitterState
	buf     []byte
	flitBuf []Flit
}

// NewSplitter returns a Splitter ready to consume one packet's flit
// stream, starting in the Idle state.
func NewSplitter() *Splitter {
	return &Splitter{state: stateIdle}
}

// Reset returns the splitter to Idle, discarding any partially buffered
// header window. Called between packets.
func (s *Splitter) Reset() {
	s.state = stateIdle
	s.buf = s.buf[:0]
	s.flitBuf = s.flitBuf[:0]
}

// PushFlit feeds one flit into the splitter. It returns the decoded
// Header once the header window has been fully buffered (nil until
// then, and nil forever for a short/non-UDP packet), along with the
// flits accumulated so far that should now be forwarded.
func (s *Splitter) PushFlit(f Flit) (hdr *Header, forward []Flit, done bool) {
	switch s.state {
	case stateIdle, stateReadingHeader:
		s.state = stateReadingHeader
		s.flitBuf = append(s.flitBuf, f)
		s.buf = append(s.buf, f.Data[:f.NumKeptBytes()]...)
		if len(s.flitBuf) < headerWindowFlits {
			if f.Last {
				// Packet shorter than the header window: classify non-UDP,
				// forward everything buffered, best-effort nil header.
				s.state = stateLast
				forward = s.flitBuf
				return nil, forward, true
			}
			return nil, nil, false
		}
		next := stateStream
		if f.Last {
			next = stateLast
		}
		h, err := decodeHeader(s.buf)
		if err != nil {
			forward = s.flitBuf
			s.flitBuf = nil
			s.state = next
			return nil, forward, f.Last
		}
		headerLen := len(h.Eth.Contents) + len(h.IP.Contents) + len(h.UDP.Contents)
		residual := s.buf[headerLen:]
		s.flitBuf = nil
		s.state = next
		forward = residualFlits(residual)
		if f.Last && len(forward) > 0 {
			forward[len(forward)-1].Last = true
		}
		return h, forward, f.Last
	case stateStream:
		if f.Last {
			s.state = stateLast
			return nil, []Flit{f}, true
		}
		return nil, []Flit{f}, false
	default:
		return nil, []Flit{f}, f.Last
	}
}

// residualFlits rechunks the payload bytes left over after the header
// window into FlitSize-aligned flits, none marked Last: PushFlit marks
// the final one itself when the header window's second flit also ended
// the packet.
func residualFlits(data []byte) []Flit {
	if len(data) == 0 {
		return nil
	}
	out := make([]Flit, 0, (len(data)+FlitSize-1)/FlitSize)
	for off := 0; off < len(data); off += FlitSize {
		end := off + FlitSize
		if end > len(data) {
			end = len(data)
		}
		var f Flit
		n := copy(f.Data[:], data[off:end])
		f.Keep = (uint32(1) << uint(n)) - 1
		out = append(out, f)
	}
	return out
}

// decodeHeader decodes the leading Ethernet+IPv4+UDP layers using
// gopacket's lazy, no-copy decode options, erroring if the packet is not
// classifiable as IPv4/UDP (the not_ipv4/not_udp steering checks act on
// this failure).
func decodeHeader(raw []byte) (*Header, error) {
	pkt := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.DecodeOptions{
		Lazy:   true,
		NoCopy: true,
	})
	var h Header
	if eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet); ok {
		h.Eth = *eth
	} else {
		return nil, errNotEthernet
	}
	ipLayer, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok {
		return nil, errNotIPv4
	}
	h.IP = *ipLayer
	udpLayer, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	if !ok {
		return nil, errNotUDP
	}
	h.UDP = *udpLayer
	return &h, nil
}
