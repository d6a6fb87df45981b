package udpbuilder

import (
	"net"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

func TestBuildPadsToMinimumFrameSize(t *testing.T) {
	meta := EgressMeta{
		SrcMAC: net.HardwareAddr{1, 2, 3, 4, 5, 6}, DstMAC: net.HardwareAddr{6, 5, 4, 3, 2, 1},
		SrcIP: net.IPv4(10, 0, 0, 1), DstIP: net.IPv4(10, 0, 0, 2),
		SrcPort: 1000, DstPort: 2000,
	}
	out, err := Build(meta, []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(out) < MinEthernetFrame {
		t.Fatalf("expected frame padded to %d bytes, got %d", MinEthernetFrame, len(out))
	}
}

func TestBuildProducesValidChecksums(t *testing.T) {
	meta := EgressMeta{
		SrcMAC: net.HardwareAddr{1, 2, 3, 4, 5, 6}, DstMAC: net.HardwareAddr{6, 5, 4, 3, 2, 1},
		SrcIP: net.IPv4(10, 0, 0, 1), DstIP: net.IPv4(10, 0, 0, 2),
		SrcPort: 1000, DstPort: 2000,
	}
	payload := make([]byte, 100)
	out, err := Build(meta, payload)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	pkt := gopacket.NewPacket(out, layers.LayerTypeEthernet, gopacket.Default)
	if pkt.ErrorLayer() != nil {
		t.Fatalf("decode error: %v", pkt.ErrorLayer().Error())
	}
	udpLayer, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	if !ok {
		t.Fatalf("expected a UDP layer")
	}
	if err := udpLayer.SetNetworkLayerForChecksum(pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)); err != nil {
		t.Fatalf("SetNetworkLayerForChecksum: %v", err)
	}
	if onesComplementSum(out[14:34]) != 0xFFFF {
		t.Fatalf("IPv4 header checksum does not verify")
	}
	udpLen := int(udpLayer.Length)
	pseudo := make([]byte, 0, 12+udpLen)
	pseudo = append(pseudo, out[26:34]...) // IPv4 source and destination addresses
	pseudo = append(pseudo, 0, byte(layers.IPProtocolUDP), byte(udpLen>>8), byte(udpLen))
	pseudo = append(pseudo, out[34:34+udpLen]...)
	if onesComplementSum(pseudo) != 0xFFFF {
		t.Fatalf("UDP checksum does not verify")
	}
}

// onesComplementSum folds b (zero-padded to an even length) into a 16-bit
// one's-complement sum; data that includes a correct checksum sums to 0xFFFF.
func onesComplementSum(b []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(b); i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if len(b)%2 == 1 {
		sum += uint32(b[len(b)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = sum&0xFFFF + sum>>16
	}
	return uint16(sum)
}
