package nica

import (
	"github.com/nica-dataplane/nicacore/codec"
	"github.com/nica-dataplane/nicacore/flowtable"
	"github.com/nica-dataplane/nicacore/ikernels/passthrough"
	"github.com/nica-dataplane/nicacore/ikernels/pktgen"
	"github.com/nica-dataplane/nicacore/lenadjust"
)

// ingest runs one raw frame through the codec/steering/lenadjust/ikernel
// front end of p, enqueueing the result (if any) onto the routed traffic
// class's stream for the next DrainAll.
func (e *Engine) ingest(p *Pipeline, frame []byte) {
	sp := e.splitters.Get()
	defer func() {
		sp.Reset()
		e.splitters.Put(sp)
	}()

	var hdr *codec.Header
	var payloadFlits []codec.Flit
	for _, f := range codec.FlitsFromBytes(frame) {
		h, forward, done := sp.PushFlit(f)
		if h != nil {
			hdr = h
		}
		payloadFlits = append(payloadFlits, forward...)
		if done {
			break
		}
	}

	key, probed := p.steer.Probe(hdr)
	val, _ := p.steer.Resolve(hdr, key, probed)
	decision := p.steer.Act(val)

	if decision.Action == flowtable.ActionDrop {
		return
	}

	if hdr == nil {
		// Unclassifiable traffic: nothing downstream can rebuild a
		// header it never had, so the original frame goes out
		// unchanged, bypassing the TC/arbiter DRR schedule entirely.
		p.rawOut = append(p.rawOut, append([]byte(nil), frame...))
		return
	}

	if !decision.Passthrough {
		if int(decision.IkernelID) >= len(e.slots) {
			return
		}
		// The packet generator replicates whole raw frames (it has no
		// notion of a UDP payload), so a packet steered to it is cached
		// as-is rather than run through the length-adjust/processor path
		// every other ikernel uses. Per spec.md §8 scenario 5, the
		// template itself is also forwarded unchanged: it arms the
		// burst but is not consumed by it
		// (original_source/ikernels/hls/pktgen.cpp's INPUT_PACKET state
		// writes every received flit straight to p.data_output before
		// the context update that arms DUPLICATE).
		if pg, ok := e.slots[decision.IkernelID].ik.(*pktgen.Ikernel); ok {
			pg.SetTemplate(frame)
			p.rawOut = append(p.rawOut, append([]byte(nil), frame...))
			return
		}
	}

	// The splitter's first forwarded flit holds only the bytes left over
	// from the header window, so it can be partial while later flits are
	// full; repack so the flit-counting length adjuster sees full flits.
	payloadFlits = codec.FlitsFromBytes(codec.BytesFromFlits(payloadFlits))
	adj := lenadjust.NewAdjuster(hdr.UDP.Length)
	kept := make([]codec.Flit, 0, len(payloadFlits))
	for _, f := range payloadFlits {
		out, ok := adj.Push(f)
		if ok {
			kept = append(kept, out)
		}
	}

	var ringID uint8
	var outFlits []codec.Flit
	if decision.Passthrough {
		outFlits = kept
	} else {
		slot := &e.slots[decision.IkernelID]
		out, drop := slot.processor.Process(codec.BytesFromFlits(kept), decision.IkernelID)
		if drop {
			return
		}
		outFlits = codec.FlitsFromBytes(out)
		if pt, ok := slot.ik.(*passthrough.Ikernel); ok {
			ringID = pt.RingID
		}
	}

	meta := codec.PacketMeta{ID: decision.IkernelID}
	tc := p.demux.Route(decision.IkernelID, decision.Passthrough)
	p.enqueue(tc, meta, outFlits, hdr, ringID)
}
