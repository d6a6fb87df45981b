package steering

import (
	"net"
	"testing"

	"github.com/gopacket/gopacket/layers"
	"github.com/nica-dataplane/nicacore/codec"
	"github.com/nica-dataplane/nicacore/control"
	"github.com/nica-dataplane/nicacore/flowtable"
)

func testHeader() *codec.Header {
	return &codec.Header{
		Eth: layers.Ethernet{EthernetType: 0x0800},
		IP:  layers.IPv4{Protocol: 17, Length: 100, SrcIP: net.IPv4(10, 0, 0, 1), DstIP: net.IPv4(10, 0, 0, 2)},
		UDP: layers.UDP{SrcPort: 1000, DstPort: 2000},
	}
}

func TestResolveForcesPassthroughWhenDisabled(t *testing.T) {
	tbl := flowtable.New()
	s := NewStage(tbl, flowtable.MaskAll, 4, control.NewMetricsRegistry(), "h2n")
	s.SetEnabled(false)
	val, reason := s.Resolve(testHeader(), flowtable.Key{}, true)
	if reason != ReasonDisabled || val.Action != flowtable.ActionPassthrough {
		t.Fatalf("expected disabled passthrough, got %+v %v", val, reason)
	}
}

func TestResolveForcesPassthroughOnNotUDP(t *testing.T) {
	tbl := flowtable.New()
	s := NewStage(tbl, flowtable.MaskAll, 4, control.NewMetricsRegistry(), "h2n")
	hdr := testHeader()
	hdr.IP.Protocol = 6 // TCP
	_, reason := s.Resolve(hdr, flowtable.Key{}, true)
	if reason != ReasonNotUDP {
		t.Fatalf("expected not_udp, got %v", reason)
	}
}

func TestResolveHonorsFlowTableHit(t *testing.T) {
	tbl := flowtable.New()
	s := NewStage(tbl, flowtable.MaskSrcPort|flowtable.MaskDstPort, 4, control.NewMetricsRegistry(), "h2n")
	key := flowtable.Key{SrcPort: 1000, DstPort: 2000}
	tbl.Insert(key, flowtable.MaskSrcPort|flowtable.MaskDstPort, flowtable.Value{Action: flowtable.ActionSteer, IkernelID: 2})

	probedKey, ok := s.Probe(testHeader())
	if !ok {
		t.Fatalf("probe should succeed on a valid header")
	}
	val, reason := s.Resolve(testHeader(), probedKey, true)
	if reason != ReasonNone || val.Action != flowtable.ActionSteer || val.IkernelID != 2 {
		t.Fatalf("expected steer to ikernel 2, got %+v %v", val, reason)
	}
	decision := s.Act(val)
	if decision.Passthrough || decision.IkernelID != 2 {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestActMapsDropAndPassthrough(t *testing.T) {
	s := NewStage(flowtable.New(), flowtable.MaskAll, 4, nil, "h2n")
	d := s.Act(flowtable.Value{Action: flowtable.ActionDrop})
	if d.Passthrough || d.Action != flowtable.ActionDrop {
		t.Fatalf("expected drop decision, got %+v", d)
	}
	d = s.Act(flowtable.Value{Action: flowtable.ActionPassthrough})
	if !d.Passthrough {
		t.Fatalf("expected passthrough decision")
	}
}
