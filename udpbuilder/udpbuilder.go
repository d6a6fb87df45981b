// Package udpbuilder rebuilds a full Ethernet+IPv4+UDP frame from egress
// metadata and a payload stream, computing the IP header checksum and
// UDP checksum (with pseudo-header) via gopacket.SerializeLayers rather
// than a hand-rolled one's-complement fold — the idiomatic gopacket way
// to get RFC 791/768-correct checksums.
package udpbuilder

import (
	"net"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// MinEthernetFrame is the minimum Ethernet frame length (60 bytes,
// excluding the 4-byte FCS which this software model does not append).
const MinEthernetFrame = 60

// EgressMeta carries the fields needed to synthesize the outer frame.
type EgressMeta struct {
	SrcMAC, DstMAC net.HardwareAddr
	SrcIP, DstIP   net.IP
	SrcPort, DstPort uint16
}

// Build serializes meta and payload into a complete Ethernet frame,
// computing checksums, and pads the result to the 60-byte Ethernet
// minimum.
func Build(meta EgressMeta, payload []byte) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       meta.SrcMAC,
		DstMAC:       meta.DstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    meta.SrcIP,
		DstIP:    meta.DstIP,
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(meta.SrcPort),
		DstPort: layers.UDPPort(meta.DstPort),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return nil, err
	}

	out := buf.Bytes()
	if len(out) < MinEthernetFrame {
		padded := make([]byte, MinEthernetFrame)
		copy(padded, out)
		out = padded
	}
	return out, nil
}
