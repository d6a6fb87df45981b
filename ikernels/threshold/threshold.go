// Package threshold implements the threshold ikernel: drop packets whose
// first 4-byte payload word (big-endian) is below a configurable
// register, while maintaining min/max/count/sum/dropped counters.
package threshold

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/nica-dataplane/nicacore/ikernel"
)

// Register addresses.
const (
	RegThresholdValue uint32 = 0x00
	RegReset          uint32 = 0x01
	RegMin            uint32 = 0x02
	RegMax            uint32 = 0x03
	RegCount          uint32 = 0x04
	RegSum            uint32 = 0x05
	RegDropped        uint32 = 0x06
	RegDroppedBackpressure uint32 = 0x07
)

type counters struct {
	min, max, count, sum, dropped, droppedBackpressure uint32
	minSet                                             bool
}

// Ikernel is the threshold engine.
type Ikernel struct {
	*ikernel.Base
	mu        sync.Mutex
	threshold uint32
	counters  counters
}

// New returns a threshold ikernel with threshold=0 (nothing dropped)
// until configured via RegWrite.
func New() *Ikernel {
	return &Ikernel{Base: ikernel.NewBase()}
}

// Step does nothing: values are delivered out-of-band via
// Observe rather than parsed from Ports directly, since the engine's
// only interesting state is its register-visible counters.
func (k *Ikernel) Step(ctx context.Context, ports *ikernel.Ports, counts ikernel.TCCounts) error {
	return nil
}

// Observe evaluates payload's first 4 bytes against the threshold,
// updating counters and returning whether the packet should be dropped.
func (k *Ikernel) Observe(payload []byte) (drop bool) {
	if len(payload) < 4 {
		return false
	}
	value := binary.BigEndian.Uint32(payload[:4])

	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.counters.minSet || value < k.counters.min {
		k.counters.min = value
		k.counters.minSet = true
	}
	if value > k.counters.max {
		k.counters.max = value
	}
	k.counters.count++
	k.counters.sum += value
	if value < k.threshold {
		k.counters.dropped++
		return true
	}
	return false
}

// ObserveBackpressured records a drop caused by downstream backpressure
// rather than the threshold check.
func (k *Ikernel) ObserveBackpressured() {
	k.mu.Lock()
	k.counters.droppedBackpressure++
	k.mu.Unlock()
}

// RegRead implements ikernel.Ikernel.
func (k *Ikernel) RegRead(addr uint32, ikernelID uint8) (uint32, ikernel.GWStatus) {
	k.mu.Lock()
	defer k.mu.Unlock()
	switch addr {
	case RegThresholdValue:
		return k.threshold, ikernel.GWDone
	case RegMin:
		return k.counters.min, ikernel.GWDone
	case RegMax:
		return k.counters.max, ikernel.GWDone
	case RegCount:
		return k.counters.count, ikernel.GWDone
	case RegSum:
		return k.counters.sum, ikernel.GWDone
	case RegDropped:
		return k.counters.dropped, ikernel.GWDone
	case RegDroppedBackpressure:
		return k.counters.droppedBackpressure, ikernel.GWDone
	default:
		return 0, ikernel.GWFail
	}
}

// RegWrite implements ikernel.Ikernel. THRESHOLD_RESET clears both the
// config context and every counter atomically (single critical section),
// matching the two-phase reset barrier the original parser/counter split
// required in hardware — here a single mutex makes both halves atomic at
// once.
func (k *Ikernel) RegWrite(addr uint32, value uint32, ikernelID uint8) ikernel.GWStatus {
	k.mu.Lock()
	defer k.mu.Unlock()
	switch addr {
	case RegThresholdValue:
		k.threshold = value
		return ikernel.GWDone
	case RegReset:
		k.threshold = 0
		k.counters = counters{}
		return ikernel.GWDone
	default:
		return ikernel.GWFail
	}
}

// CanTransmit delegates to the shared Base precondition.
func (k *Ikernel) CanTransmit(tc int, ikernelID uint8, ringID uint8, length int, direction ikernel.Direction) bool {
	return k.Base.CanTransmit(ikernel.TCCounts{}, ikernelID, ringID, direction)
}

// NewMessage delegates to the shared Base bookkeeping.
func (k *Ikernel) NewMessage(ring uint8, direction ikernel.Direction) {
	k.Base.NewMessage(ring)
}

var _ ikernel.Ikernel = (*Ikernel)(nil)
