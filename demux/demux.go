// Package demux routes the arbiter-after-ikernel fan-out stream to
// NUM_TC-1 outputs by ikernel_id mod (NUM_TC-1), reserving the last
// traffic-class slot for passthrough traffic that bypassed every
// ikernel.
package demux

import "github.com/nica-dataplane/nicacore/codec"

// Demux routes packets to one of numTC outputs.
type Demux struct {
	numTC int
}

// New returns a Demux with numTC total traffic classes (the last one
// reserved for passthrough).
func New(numTC int) *Demux {
	return &Demux{numTC: numTC}
}

// PassthroughTC is the reserved output index for passthrough traffic.
func (d *Demux) PassthroughTC() int {
	return d.numTC - 1
}

// Route returns the output TC for a packet that went through ikernelID,
// or PassthroughTC() when passthrough is true.
func (d *Demux) Route(ikernelID uint8, passthrough bool) int {
	if passthrough {
		return d.PassthroughTC()
	}
	return int(ikernelID) % (d.numTC - 1)
}

// RouteMeta is a convenience wrapper routing directly from a PacketMeta's
// carried ikernel id, which the engine's ingest stores in meta.ID.
func (d *Demux) RouteMeta(meta codec.PacketMeta, passthrough bool) int {
	return d.Route(meta.ID, passthrough)
}
