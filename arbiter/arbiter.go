// Package arbiter implements the three-stage Peek/Pick/Transmit pipeline
// that drains N traffic-class streams through a DRR scheduler, emitting
// packets in per-TC submission order while the ordering across TCs is
// decided entirely by DRR.
package arbiter

import (
	"github.com/nica-dataplane/nicacore/codec"
	"github.com/nica-dataplane/nicacore/control"
	"github.com/nica-dataplane/nicacore/scheduler"
)

// TCStream is one traffic class's metadata+data FIFO pair, as consumed
// by the arbiter.
type TCStream struct {
	Meta []codec.PacketMeta
	Data [][]codec.Flit // one flit slice per queued packet, aligned with Meta
}

func (s *TCStream) empty() bool { return len(s.Meta) == 0 }

func (s *TCStream) peekLength() int {
	if s.empty() {
		return 0
	}
	return len(s.Data[0])
}

func (s *TCStream) pop() (codec.PacketMeta, []codec.Flit) {
	m := s.Meta[0]
	d := s.Data[0]
	s.Meta = s.Meta[1:]
	s.Data = s.Data[1:]
	return m, d
}

// Transmitted is one packet emitted by the Transmit stage.
type Transmitted struct {
	TC   int
	Meta codec.PacketMeta
	Data []codec.Flit
}

// Arbiter drives one DRR scheduler over N traffic-class streams.
type Arbiter struct {
	sched   *scheduler.DRR
	metrics *control.MetricsRegistry
	prefix  string
}

// New returns an Arbiter driving sched, with per-port Prometheus
// counters (bytes, packets, evictions) registered under prefix.
func New(sched *scheduler.DRR, metrics *control.MetricsRegistry, prefix string) *Arbiter {
	return &Arbiter{sched: sched, metrics: metrics, prefix: prefix}
}

// Peek inspects the head metadata of every TC stream, scheduling every
// non-empty TC (idempotent against the DRR active bitmap).
func (a *Arbiter) Peek(streams []*TCStream) {
	for i, s := range streams {
		if !s.empty() {
			a.sched.Schedule(i)
		}
	}
}

// PickAndTransmit drains one (tc, quota) pair from the scheduler and
// transmits packets from that TC's stream while the peeked packet's flit
// count fits in the remaining quota, emitting an eviction trace event and
// calling UpdateFlow once the stream drains or the next packet no longer
// fits.
func (a *Arbiter) PickAndTransmit(streams []*TCStream) []Transmitted {
	tc, quota, ok := a.sched.NextFlow()
	if !ok {
		return nil
	}
	s := streams[tc]
	var out []Transmitted
	for !s.empty() {
		need := uint32(s.peekLength()) // peekLength is already a flit count
		if need > quota {
			break
		}
		meta, data := s.pop()
		quota -= need
		out = append(out, Transmitted{TC: tc, Meta: meta, Data: data})
		a.countTransmit(tc, len(data))
	}
	a.countEviction(tc)
	a.sched.UpdateFlow(tc, !s.empty(), quota)
	return out
}

func (a *Arbiter) countTransmit(tc int, nFlits int) {
	if a.metrics == nil {
		return
	}
	a.metrics.Inc(a.prefix + ".packets")
	a.metrics.Add(a.prefix+".bytes", float64(nFlits*codec.FlitSize))
}

func (a *Arbiter) countEviction(tc int) {
	if a.metrics == nil {
		return
	}
	a.metrics.Inc(a.prefix + ".evictions")
}
