package nica

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"github.com/nica-dataplane/nicacore/codec"
	"github.com/nica-dataplane/nicacore/flowtable"
	"github.com/nica-dataplane/nicacore/gateway"
	"github.com/nica-dataplane/nicacore/ikernels/pktgen"
	"github.com/nica-dataplane/nicacore/ikernels/threshold"
	"github.com/nica-dataplane/nicacore/lenadjust"
)

const (
	testSrcIP uint32 = 0x0A000001 // 10.0.0.1
	testDstIP uint32 = 0x0A000002 // 10.0.0.2
)

func buildUDPFrame(t *testing.T, srcPort, dstPort uint16, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(10, 0, 0, 1),
		DstIP:    net.IPv4(10, 0, 0, 2),
	}
	udp := &layers.UDP{SrcPort: layers.UDPPort(srcPort), DstPort: layers.UDPPort(dstPort)}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("SetNetworkLayerForChecksum: %v", err)
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		t.Fatalf("SerializeLayers: %v", err)
	}
	return buf.Bytes()
}

// decodeUDPPayload recovers a frame's UDP payload using the same
// codec.Splitter/lenadjust.Adjuster machinery ingest() itself runs,
// rather than re-deriving UDP framing semantics independently.
func decodeUDPPayload(t *testing.T, frame []byte) []byte {
	t.Helper()
	sp := codec.NewSplitter()
	var hdr *codec.Header
	var flits []codec.Flit
	for _, f := range codec.FlitsFromBytes(frame) {
		h, forward, done := sp.PushFlit(f)
		if h != nil {
			hdr = h
		}
		flits = append(flits, forward...)
		if done {
			break
		}
	}
	if hdr == nil {
		t.Fatalf("expected a decodable UDP header in output frame")
	}
	flits = codec.FlitsFromBytes(codec.BytesFromFlits(flits))
	adj := lenadjust.NewAdjuster(hdr.UDP.Length)
	var kept []codec.Flit
	for _, f := range flits {
		out, ok := adj.Push(f)
		if ok {
			kept = append(kept, out)
		}
	}
	return codec.BytesFromFlits(kept)
}

func flowKey(srcPort, dstPort uint16) flowtable.Key {
	return flowtable.Key{SrcPort: srcPort, DstPort: dstPort, SrcIP: testSrcIP, DstIP: testDstIP}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func addSteerFlow(t *testing.T, e *Engine, srcPort, dstPort uint16, ikernelID uint8) {
	t.Helper()
	_, status := e.AddFlow(context.Background(), flowKey(srcPort, dstPort), flowtable.MaskAll,
		flowtable.Value{Action: flowtable.ActionSteer, IkernelID: ikernelID})
	if status != gateway.GWDone {
		t.Fatalf("AddFlow: expected GWDone, got %v", status)
	}
}

func TestEngineThresholdDropsBelowRegisteredValue(t *testing.T) {
	e := newTestEngine(t)
	addSteerFlow(t, e, 1000, 2000, slotThreshold)

	ctx := context.Background()
	if _, status := e.IkernelReg(ctx, slotThreshold, threshold.RegThresholdValue, true, 100); status != gateway.GWDone {
		t.Fatalf("expected threshold register write to succeed, got %v", status)
	}

	low := make([]byte, 4)
	binary.BigEndian.PutUint32(low, 50)
	h2nOut, _ := e.Tick([][]byte{buildUDPFrame(t, 1000, 2000, low)}, nil)
	if len(h2nOut) != 0 {
		t.Fatalf("expected below-threshold packet dropped, got %d frames", len(h2nOut))
	}

	high := make([]byte, 4)
	binary.BigEndian.PutUint32(high, 500)
	h2nOut, _ = e.Tick([][]byte{buildUDPFrame(t, 1000, 2000, high)}, nil)
	if len(h2nOut) != 1 {
		t.Fatalf("expected above-threshold packet forwarded, got %d frames", len(h2nOut))
	}
	if got := decodeUDPPayload(t, h2nOut[0]); !bytes.Equal(got, high) {
		t.Fatalf("forwarded payload mismatch: got %x want %x", got, high)
	}
}

func TestEngineEchoBounceRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	addSteerFlow(t, e, 3000, 4000, slotEcho)

	payload := []byte("ping")
	h2nOut, _ := e.Tick([][]byte{buildUDPFrame(t, 3000, 4000, payload)}, nil)
	if len(h2nOut) != 1 {
		t.Fatalf("expected one echoed frame, got %d", len(h2nOut))
	}
	if got := decodeUDPPayload(t, h2nOut[0]); !bytes.Equal(got, payload) {
		t.Fatalf("echoed payload mismatch: got %q want %q", got, payload)
	}
}

func TestEngineMemcachedSetThenGet(t *testing.T) {
	e := newTestEngine(t)
	addSteerFlow(t, e, 5000, 6000, slotMemcached)

	setOut, _ := e.Tick([][]byte{buildUDPFrame(t, 5000, 6000, []byte("SET foo bar\r\n"))}, nil)
	if len(setOut) != 1 {
		t.Fatalf("expected one response to SET, got %d", len(setOut))
	}
	if got := decodeUDPPayload(t, setOut[0]); !bytes.Equal(got, []byte("STORED\r\n")) {
		t.Fatalf("SET response mismatch: got %q", got)
	}

	getOut, _ := e.Tick([][]byte{buildUDPFrame(t, 5000, 6000, []byte("GET foo\r\n"))}, nil)
	if len(getOut) != 1 {
		t.Fatalf("expected one response to GET, got %d", len(getOut))
	}
	if got := decodeUDPPayload(t, getOut[0]); !bytes.Equal(got, []byte("bar\r\n")) {
		t.Fatalf("GET response mismatch: got %q", got)
	}
}

func TestEngineUnclassifiableFrameForcedPassthroughUnchanged(t *testing.T) {
	e := newTestEngine(t)
	frame := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	h2nOut, _ := e.Tick([][]byte{frame}, nil)
	if len(h2nOut) != 1 {
		t.Fatalf("expected the short frame forwarded verbatim, got %d frames", len(h2nOut))
	}
	if !bytes.Equal(h2nOut[0], frame) {
		t.Fatalf("unclassifiable frame should pass through byte-for-byte: got %x want %x", h2nOut[0], frame)
	}
}

func TestEnginePktgenBurstEmitsDecrementingIPID(t *testing.T) {
	e := newTestEngine(t)
	addSteerFlow(t, e, 7000, 8000, slotPktgen)

	ctx := context.Background()
	if _, status := e.IkernelReg(ctx, slotPktgen, pktgen.RegBurstSize, true, 2); status != gateway.GWDone {
		t.Fatalf("expected burst-size write to succeed, got %v", status)
	}

	// spec.md §8 scenario 5: sending one template packet with
	// burst_size=2 already configured yields the template itself plus
	// two duplicates with ip_identification 2, 1 — no separate "start"
	// step, since the hardware arms the burst on template receipt.
	template := buildUDPFrame(t, 7000, 8000, make([]byte, 8))
	h2nOut, _ := e.Tick([][]byte{template}, nil)
	if len(h2nOut) != 3 {
		t.Fatalf("expected the template plus a 2-packet burst, got %d frames", len(h2nOut))
	}
	if !bytes.Equal(h2nOut[0], template) {
		t.Fatalf("expected the template forwarded unchanged first: got %x want %x", h2nOut[0], template)
	}
	id1 := binary.BigEndian.Uint16(h2nOut[1][18:20])
	id2 := binary.BigEndian.Uint16(h2nOut[2][18:20])
	if id1 != 2 || id2 != 1 {
		t.Fatalf("expected IP-identification sequence 2,1, got %d,%d", id1, id2)
	}
}

func TestEngineDeleteFlowRevertsToPassthrough(t *testing.T) {
	e := newTestEngine(t)
	addSteerFlow(t, e, 9000, 9500, slotThreshold)

	ctx := context.Background()
	if _, status := e.IkernelReg(ctx, slotThreshold, threshold.RegThresholdValue, true, 1000); status != gateway.GWDone {
		t.Fatalf("expected threshold register write to succeed, got %v", status)
	}

	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, 50)
	frame := buildUDPFrame(t, 9000, 9500, payload)

	if out, _ := e.Tick([][]byte{frame}, nil); len(out) != 0 {
		t.Fatalf("expected steered packet dropped by threshold, got %d frames", len(out))
	}

	if _, status := e.DeleteFlow(ctx, flowKey(9000, 9500), flowtable.MaskAll); status != gateway.GWDone {
		t.Fatalf("expected DeleteFlow to succeed, got %v", status)
	}

	out, _ := e.Tick([][]byte{frame}, nil)
	if len(out) != 1 {
		t.Fatalf("expected passthrough after delete, got %d frames", len(out))
	}
	if got := decodeUDPPayload(t, out[0]); !bytes.Equal(got, payload) {
		t.Fatalf("passthrough payload mismatch: got %x want %x", got, payload)
	}
}
