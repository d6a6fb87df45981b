// Package cms implements the count-min-sketch + top-K ikernel: a fixed
// WIDTH x DEPTH counter matrix updated per packet, plus a host-side
// min-heap (container/heap — no priority-queue library exists anywhere
// in the retrieved corpus; see DESIGN.md) tracking the K largest observed
// estimates.
package cms

import (
	"container/heap"
	"context"
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/nica-dataplane/nicacore/ikernel"
)

// Fixed sketch dimensions, per spec.md.
const (
	Width = 272
	Depth = 3
)

// Register addresses.
const (
	RegHashesBase    uint32 = 0x10 // HASHES_BASE + 2*i + j selects row i's (a,b) pair
	RegReadTopK      uint32 = 0x20
	RegTopKReadNext  uint32 = 0x21
	RegTopKSize      uint32 = 0x22
)

type hashParam struct {
	a, b uint32
}

// Ikernel is the CMS + top-K engine.
type Ikernel struct {
	*ikernel.Base

	mu     sync.Mutex
	sketch [Depth][Width]uint32
	params [Depth]hashParam

	k        int
	heapIdx  map[uint32]*heapItem
	h        topKHeap
}

// New returns a CMS ikernel with default affine hash parameters seeded
// from xxhash (used only to generate varied default (a,b) pairs at
// init, not for the per-row hashing itself, which must stay the
// register-programmable affine form h_d(x) = (a_d*x + b_d) mod WIDTH).
func New(k int) *Ikernel {
	ik := &Ikernel{
		Base:    ikernel.NewBase(),
		k:       k,
		heapIdx: make(map[uint32]*heapItem),
	}
	seed := xxhash.Sum64([]byte("cms-default-seed"))
	for d := 0; d < Depth; d++ {
		ik.params[d] = hashParam{
			a: uint32(seed>>uint(d*16)) | 1,
			b: uint32(seed >> uint(d*8)),
		}
	}
	heap.Init(&ik.h)
	return ik
}

func rowHash(p hashParam, x uint32) uint32 {
	return (p.a*x + p.b) % Width
}

// Observe updates the sketch with payload's first 4-byte value and
// returns the estimated count, pushing (value, estimate) onto the
// top-K side channel.
func (ik *Ikernel) Observe(payload []byte) (value uint32, estimate uint32) {
	if len(payload) < 4 {
		return 0, 0
	}
	value = binary.BigEndian.Uint32(payload[:4])

	ik.mu.Lock()
	defer ik.mu.Unlock()

	estimate = ^uint32(0)
	for d := 0; d < Depth; d++ {
		col := rowHash(ik.params[d], value)
		ik.sketch[d][col]++
		if ik.sketch[d][col] < estimate {
			estimate = ik.sketch[d][col]
		}
	}
	ik.pushTopK(value, estimate)
	return value, estimate
}

func (ik *Ikernel) pushTopK(value, estimate uint32) {
	if item, ok := ik.heapIdx[value]; ok {
		item.estimate = estimate
		heap.Fix(&ik.h, item.index)
		return
	}
	if len(ik.h) < ik.k {
		item := &heapItem{value: value, estimate: estimate}
		heap.Push(&ik.h, item)
		ik.heapIdx[value] = item
		return
	}
	if len(ik.h) > 0 && estimate > ik.h[0].estimate {
		evicted := ik.h[0]
		delete(ik.heapIdx, evicted.value)
		evicted.value, evicted.estimate = value, estimate
		heap.Fix(&ik.h, 0)
		ik.heapIdx[value] = evicted
	}
}

// TopK returns the current top-K (value, estimate) pairs, descending.
func (ik *Ikernel) TopK() []struct {
	Value, Estimate uint32
} {
	ik.mu.Lock()
	defer ik.mu.Unlock()
	cp := append(topKHeap{}, ik.h...)
	out := make([]struct{ Value, Estimate uint32 }, 0, len(cp))
	for cp.Len() > 0 {
		item := heap.Pop(&cp).(*heapItem)
		out = append([]struct{ Value, Estimate uint32 }{{item.value, item.estimate}}, out...)
	}
	return out
}

// RegRead implements ikernel.Ikernel, serving HASHES_BASE row parameter
// reads and the current Top-K heap size (RegTopKSize). The
// READ_TOP_K/TOPK_READ_NEXT_VALUE register walk is not implemented: any
// other address returns GWFail.
func (ik *Ikernel) RegRead(addr uint32, ikernelID uint8) (uint32, ikernel.GWStatus) {
	ik.mu.Lock()
	defer ik.mu.Unlock()
	switch {
	case addr >= RegHashesBase && addr < RegHashesBase+2*Depth:
		off := addr - RegHashesBase
		row, slot := off/2, off%2
		if slot == 0 {
			return ik.params[row].a, ikernel.GWDone
		}
		return ik.params[row].b, ikernel.GWDone
	case addr == RegTopKSize:
		return uint32(len(ik.h)), ikernel.GWDone
	default:
		return 0, ikernel.GWFail
	}
}

// RegWrite implements ikernel.Ikernel, programming HASHES_BASE row
// parameters.
func (ik *Ikernel) RegWrite(addr uint32, value uint32, ikernelID uint8) ikernel.GWStatus {
	ik.mu.Lock()
	defer ik.mu.Unlock()
	if addr >= RegHashesBase && addr < RegHashesBase+2*Depth {
		off := addr - RegHashesBase
		row, slot := off/2, off%2
		if slot == 0 {
			ik.params[row].a = value
		} else {
			ik.params[row].b = value
		}
		return ikernel.GWDone
	}
	return ikernel.GWFail
}

// CanTransmit delegates to the shared Base precondition.
func (ik *Ikernel) CanTransmit(tc int, ikernelID uint8, ringID uint8, length int, direction ikernel.Direction) bool {
	return ik.Base.CanTransmit(ikernel.TCCounts{}, ikernelID, ringID, direction)
}

// NewMessage delegates to the shared Base bookkeeping.
func (ik *Ikernel) NewMessage(ring uint8, direction ikernel.Direction) {
	ik.Base.NewMessage(ring)
}

// Step is a no-op placeholder: packet bytes reach the engine through
// Observe, called by the pipeline glue once per packet.
func (ik *Ikernel) Step(ctx context.Context, ports *ikernel.Ports, counts ikernel.TCCounts) error {
	return nil
}

var _ ikernel.Ikernel = (*Ikernel)(nil)
