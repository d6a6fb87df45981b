// Package scheduler implements Deficit Round Robin flow scheduling for
// the arbiter: an active-flow FIFO plus per-flow quantum/deficit state,
// with an active-bitmap membership oracle guaranteeing a flow is never
// queued twice.
//
// The active-flow FIFO is backed by github.com/eapache/queue.Queue, a
// dependency carried over from the teacher module and used nowhere else
// here; a DRR
// scheduler's amortized-growable-ring-buffer-of-flow-IDs need is exactly
// what that library targets, so it is reused here instead of a
// hand-rolled slice ring.
package scheduler

import "github.com/eapache/queue"

// LogFlows sets the size of the Contexts/ActiveBitmap arrays to 1<<LogFlows.
const LogFlows = 8

const numFlows = 1 << LogFlows

// FlowContext holds one flow's DRR quantum and accumulated deficit.
type FlowContext struct {
	Quantum uint32
	Deficit uint32
}

// DRR is one scheduler instance; the h2n and n2h arbiters each own one.
type DRR struct {
	contexts     [numFlows]FlowContext
	activeBitmap []uint64
	activeFlows  *queue.Queue
}

// NewDRR returns a DRR scheduler with every flow's quantum set to
// defaultQuantum and no active flows.
func NewDRR(defaultQuantum uint32) *DRR {
	d := &DRR{
		activeBitmap: make([]uint64, (numFlows+63)/64),
		activeFlows:  queue.New(),
	}
	for i := range d.contexts {
		d.contexts[i].Quantum = defaultQuantum
	}
	return d
}

func (d *DRR) bitSet(f int) bool {
	return d.activeBitmap[f/64]&(1<<uint(f%64)) != 0
}

func (d *DRR) setBit(f int) {
	d.activeBitmap[f/64] |= 1 << uint(f%64)
}

func (d *DRR) clearBit(f int) {
	d.activeBitmap[f/64] &^= 1 << uint(f%64)
}

// Schedule marks flow f active and enqueues it, idempotently: a flow
// already active is left untouched.
func (d *DRR) Schedule(f int) {
	if d.bitSet(f) {
		return
	}
	d.setBit(f)
	d.activeFlows.Add(f)
}

// NextFlow pops the head of the active-flow FIFO, clears its bit, and
// returns its id with quota = deficit + quantum. ok is false if no flow
// is currently active.
func (d *DRR) NextFlow() (f int, quota uint32, ok bool) {
	if d.activeFlows.Length() == 0 {
		return 0, 0, false
	}
	v := d.activeFlows.Remove()
	flow := v.(int)
	d.clearBit(flow)
	ctx := &d.contexts[flow]
	quota = ctx.Deficit + ctx.Quantum
	return flow, quota, true
}

// UpdateFlow records how much of a flow's quota went unused after
// servicing: a still-nonempty flow keeps remainingQuota as its new
// deficit; a drained flow forfeits its deficit.
func (d *DRR) UpdateFlow(f int, stillNonEmpty bool, remainingQuota uint32) {
	if stillNonEmpty {
		d.contexts[f].Deficit = remainingQuota
	} else {
		d.contexts[f].Deficit = 0
	}
}

// SetQuantum overrides a flow's configured quantum (gateway register
// write path).
func (d *DRR) SetQuantum(f int, quantum uint32) {
	d.contexts[f].Quantum = quantum
}

// Active reports whether f is currently queued in the active-flow FIFO.
func (d *DRR) Active(f int) bool {
	return d.bitSet(f)
}
