// Package flowtable implements the bounded linear-probing hash table
// every steering stage consults to map a flow's 5-tuple to an action and
// ikernel binding.
//
// Hashing uses xxhash.Sum64 over the masked key bytes, replacing the
// original implementation's boost::hash_combine (see DESIGN.md);
// xxhash is a pack-wide common dependency grounded on the example
// corpus's daemons.
package flowtable

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Size is the fixed flow-table capacity (spec constant S=1024).
const Size = 1024

// maxHops bounds the linear-probe scan distance used by Delete's
// hole-filling shift.
const maxHops = Size

// Action is the steering outcome attached to a flow-table entry.
type Action uint8

const (
	ActionPassthrough Action = iota
	ActionSteer
	ActionDrop
)

// FieldMask selects which 5-tuple fields participate in the lookup key
// (5-bit selector: srcPort, dstPort, srcIP, dstIP, vmID).
type FieldMask uint8

const (
	MaskSrcPort FieldMask = 1 << iota
	MaskDstPort
	MaskSrcIP
	MaskDstIP
	MaskVMID

	MaskAll = MaskSrcPort | MaskDstPort | MaskSrcIP | MaskDstIP | MaskVMID
)

// Key is the flow 5-tuple used to look an entry up.
type Key struct {
	SrcPort, DstPort uint16
	SrcIP, DstIP     uint32
	VMID             uint16
}

// Value is the steering/ikernel binding stored for a flow.
type Value struct {
	Action    Action
	EngineID  uint8
	IkernelID uint8
}

type entry struct {
	occupied bool
	key      Key
	mask     FieldMask
	value    Value
}

// Table is a fixed-size open-addressed flow table, safe for exactly one
// concurrent caller (the owning pipeline goroutine never shares it).
type Table struct {
	entries [Size]entry
	count   int
}

// New returns an empty flow table.
func New() *Table {
	return &Table{}
}

// Len returns the number of occupied slots.
func (t *Table) Len() int { return t.count }

// maskedBytes serializes the subset of key fields selected by mask, in a
// fixed field order, for hashing.
func maskedBytes(k Key, mask FieldMask) []byte {
	buf := make([]byte, 0, 12)
	if mask&MaskSrcPort != 0 {
		buf = binary.BigEndian.AppendUint16(buf, k.SrcPort)
	}
	if mask&MaskDstPort != 0 {
		buf = binary.BigEndian.AppendUint16(buf, k.DstPort)
	}
	if mask&MaskSrcIP != 0 {
		buf = binary.BigEndian.AppendUint32(buf, k.SrcIP)
	}
	if mask&MaskDstIP != 0 {
		buf = binary.BigEndian.AppendUint32(buf, k.DstIP)
	}
	if mask&MaskVMID != 0 {
		buf = binary.BigEndian.AppendUint16(buf, k.VMID)
	}
	return buf
}

func hashKey(k Key, mask FieldMask) uint64 {
	return xxhash.Sum64(maskedBytes(k, mask))
}

func (t *Table) naturalSlot(k Key, mask FieldMask) int {
	return int(hashKey(k, mask) % Size)
}

// Lookup returns the value bound to key under mask, if present.
func (t *Table) Lookup(key Key, mask FieldMask) (Value, bool) {
	idx := t.naturalSlot(key, mask)
	for hops := 0; hops < maxHops; hops++ {
		slot := (idx + hops) % Size
		e := &t.entries[slot]
		if !e.occupied {
			return Value{}, false
		}
		if e.mask == mask && e.key == key {
			return e.value, true
		}
	}
	return Value{}, false
}

// Insert adds or overwrites the entry for key under mask. Returns false
// if the table is full and no existing slot could be reused.
func (t *Table) Insert(key Key, mask FieldMask, value Value) bool {
	idx := t.naturalSlot(key, mask)
	firstFree := -1
	for hops := 0; hops < maxHops; hops++ {
		slot := (idx + hops) % Size
		e := &t.entries[slot]
		if e.occupied && e.mask == mask && e.key == key {
			e.value = value
			return true
		}
		if !e.occupied && firstFree == -1 {
			firstFree = slot
			break
		}
	}
	if firstFree == -1 {
		return false
	}
	t.entries[firstFree] = entry{occupied: true, key: key, mask: mask, value: value}
	t.count++
	return true
}

// Delete removes the entry for key under mask, performing the
// hole-filling shift: entries probed past the freed slot whose natural
// hash lies at-or-before the hole are moved back to close the probe
// chain, bounded by maxHops.
func (t *Table) Delete(key Key, mask FieldMask) bool {
	idx := t.naturalSlot(key, mask)
	hole := -1
	for hops := 0; hops < maxHops; hops++ {
		slot := (idx + hops) % Size
		e := &t.entries[slot]
		if !e.occupied {
			return false
		}
		if e.mask == mask && e.key == key {
			hole = slot
			break
		}
	}
	if hole == -1 {
		return false
	}
	t.entries[hole] = entry{}
	t.count--
	t.fillHoles(hole)
	return true
}

func (t *Table) fillHoles(hole int) {
	slot := (hole + 1) % Size
	for hops := 0; hops < maxHops; hops++ {
		e := &t.entries[slot]
		if !e.occupied {
			return
		}
		natural := t.naturalSlot(e.key, e.mask)
		if probeDistanceCovers(natural, slot, hole) {
			t.entries[hole] = *e
			t.entries[slot] = entry{}
			hole = slot
		}
		slot = (slot + 1) % Size
	}
}

// probeDistanceCovers reports whether an entry whose natural slot is
// natural, currently sitting at cur, may legally be relocated to hole
// (i.e. hole lies on or before cur in that entry's own probe sequence).
func probeDistanceCovers(natural, cur, hole int) bool {
	distCur := (cur - natural + Size) % Size
	distHole := (hole - natural + Size) % Size
	return distHole <= distCur
}

// SetRaw writes a debug entry directly at a raw table index (FT_SET_ENTRY).
func (t *Table) SetRaw(index int, key Key, mask FieldMask, value Value) {
	index = index % Size
	occupied := t.entries[index].occupied
	t.entries[index] = entry{occupied: true, key: key, mask: mask, value: value}
	if !occupied {
		t.count++
	}
}

// ReadRaw reads the entry at a raw table index (FT_READ_ENTRY).
func (t *Table) ReadRaw(index int) (Key, FieldMask, Value, bool) {
	index = index % Size
	e := t.entries[index]
	return e.key, e.mask, e.value, e.occupied
}
