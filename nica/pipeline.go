package nica

import (
	"log/slog"

	"github.com/nica-dataplane/nicacore/arbiter"
	"github.com/nica-dataplane/nicacore/codec"
	"github.com/nica-dataplane/nicacore/control"
	"github.com/nica-dataplane/nicacore/customring"
	"github.com/nica-dataplane/nicacore/demux"
	"github.com/nica-dataplane/nicacore/flowtable"
	"github.com/nica-dataplane/nicacore/scheduler"
	"github.com/nica-dataplane/nicacore/steering"
	"github.com/nica-dataplane/nicacore/udpbuilder"
)

// pendingExtra carries the header/ring context a queued packet needs for
// egress rebuilding, alongside (in lockstep with) the arbiter.TCStream
// entry occupying the same queue position.
type pendingExtra struct {
	hdr    *codec.Header
	ringID uint8
}

// Pipeline drives one direction (host-to-net or net-to-host) of the
// dataplane: steering decides each packet's destination, ikernel
// processing runs via the registered Processor, demux assigns a traffic
// class, and the arbiter's DRR schedule decides transmission order.
type Pipeline struct {
	name    string
	steer   *steering.Stage
	demux   *demux.Demux
	sched   *scheduler.DRR
	arb     *arbiter.Arbiter
	ring    *customring.Builder // non-nil only for the n2h direction
	streams []*arbiter.TCStream
	extra   [][]pendingExtra
	logger  *slog.Logger
	metrics *control.MetricsRegistry

	// rawOut carries frames forwarded verbatim, bypassing the TC/arbiter
	// DRR schedule entirely: unclassifiable traffic forced to
	// passthrough (no header to rebuild from) and packet-generator
	// bursts (already complete frames, not a steered packet's payload).
	rawOut [][]byte
}

// newPipeline wires one direction's stages, sharing table/mask/metrics
// with its mirror-image sibling.
func newPipeline(name string, table *flowtable.Table, mask flowtable.FieldMask, numIkernel, numTC int, quantum uint32, ring *customring.Builder, metrics *control.MetricsRegistry, logger *slog.Logger) *Pipeline {
	sched := scheduler.NewDRR(quantum)
	streams := make([]*arbiter.TCStream, numTC)
	extra := make([][]pendingExtra, numTC)
	for i := range streams {
		streams[i] = &arbiter.TCStream{}
	}
	return &Pipeline{
		name:    name,
		steer:   steering.NewStage(table, mask, numIkernel, metrics, name+".steering"),
		demux:   demux.New(numTC),
		sched:   sched,
		arb:     arbiter.New(sched, metrics, name+".arbiter"),
		ring:    ring,
		streams: streams,
		extra:   extra,
		logger:  logger,
		metrics: metrics,
	}
}

// enqueue appends a processed packet to its routed traffic class's
// stream, in lockstep with its egress-rebuild context.
func (p *Pipeline) enqueue(tc int, meta codec.PacketMeta, flits []codec.Flit, hdr *codec.Header, ringID uint8) {
	p.streams[tc].Meta = append(p.streams[tc].Meta, meta)
	p.streams[tc].Data = append(p.streams[tc].Data, flits)
	p.extra[tc] = append(p.extra[tc], pendingExtra{hdr: hdr, ringID: ringID})
}

// drain runs one Peek/PickAndTransmit round and rebuilds each
// transmitted packet into a full egress Ethernet frame.
func (p *Pipeline) drain() [][]byte {
	p.arb.Peek(p.streams)
	transmitted := p.arb.PickAndTransmit(p.streams)
	if len(transmitted) == 0 {
		return nil
	}
	tc := transmitted[0].TC
	popped := p.extra[tc][:len(transmitted)]
	p.extra[tc] = p.extra[tc][len(transmitted):]

	frames := make([][]byte, 0, len(transmitted))
	for i, t := range transmitted {
		x := popped[i]
		payload := codec.BytesFromFlits(t.Data)
		frame, ok := p.buildEgress(x.hdr, x.ringID, payload)
		if !ok {
			continue
		}
		frames = append(frames, frame)
	}
	return frames
}

// DrainAll runs Peek/PickAndTransmit rounds until every traffic class is
// empty, then flushes any verbatim rawOut frames, returning every frame
// ready for transmission this tick.
func (p *Pipeline) DrainAll() [][]byte {
	var frames [][]byte
	for {
		f := p.drain()
		if f == nil {
			break
		}
		frames = append(frames, f...)
	}
	if len(p.rawOut) > 0 {
		frames = append(frames, p.rawOut...)
		p.rawOut = nil
	}
	return frames
}

func (p *Pipeline) buildEgress(hdr *codec.Header, ringID uint8, payload []byte) ([]byte, bool) {
	if hdr == nil {
		return nil, false
	}
	meta := udpbuilder.EgressMeta{
		SrcMAC:  hdr.Eth.SrcMAC,
		DstMAC:  hdr.Eth.DstMAC,
		SrcIP:   hdr.IP.SrcIP,
		DstIP:   hdr.IP.DstIP,
		SrcPort: uint16(hdr.UDP.SrcPort),
		DstPort: uint16(hdr.UDP.DstPort),
	}
	if p.ring != nil && ringID != 0 {
		bth, body := p.ring.Build(ringID, customring.Packet{Payload: payload})
		ctx := p.ring.RingContext(ringID)
		srcMAC, dstMAC, srcIP, dstIP, dstPort := customring.RewriteDestination(ctx)
		meta.SrcMAC, meta.DstMAC, meta.SrcIP, meta.DstIP, meta.DstPort = srcMAC, dstMAC, srcIP, dstIP, dstPort
		payload = append(bth, body...)
	}
	frame, err := udpbuilder.Build(meta, payload)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("egress build failed", "pipeline", p.name, "err", err)
		}
		return nil, false
	}
	return frame, true
}
