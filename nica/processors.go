// Package nica wires the per-direction pipelines (codec -> steering ->
// ikernel -> demux -> arbiter -> egress builder) into the two
// mirror-image engines (host-to-net, net-to-host) sharing one ikernel
// slice and one gateway, per the glue component spec.md's runtime
// diagram describes.
package nica

import (
	"bytes"

	"github.com/nica-dataplane/nicacore/ikernels/cms"
	"github.com/nica-dataplane/nicacore/ikernels/coap"
	"github.com/nica-dataplane/nicacore/ikernels/echo"
	"github.com/nica-dataplane/nicacore/ikernels/memcached"
	"github.com/nica-dataplane/nicacore/ikernels/passthrough"
	"github.com/nica-dataplane/nicacore/ikernels/threshold"
)

// Processor adapts one ikernel's domain-specific payload operation
// (Observe/Bounce/Get-Set/Verify/...) to the uniform shape the pipeline
// drives a steered packet's payload through.
type Processor interface {
	Process(payload []byte, ikernelID uint8) (out []byte, drop bool)
}

// ThresholdProcessor adapts the threshold ikernel's Observe call.
type ThresholdProcessor struct{ *threshold.Ikernel }

func (p ThresholdProcessor) Process(payload []byte, ikernelID uint8) ([]byte, bool) {
	return payload, p.Observe(payload)
}

// CMSProcessor adapts the count-min-sketch ikernel: every packet is
// counted and forwarded unchanged, never dropped.
type CMSProcessor struct{ *cms.Ikernel }

func (p CMSProcessor) Process(payload []byte, ikernelID uint8) ([]byte, bool) {
	p.Observe(payload)
	return payload, false
}

// EchoProcessor adapts the echo ikernel's Bounce call.
type EchoProcessor struct{ *echo.Ikernel }

func (p EchoProcessor) Process(payload []byte, ikernelID uint8) ([]byte, bool) {
	return p.Bounce(payload), false
}

// CoAPProcessor adapts the CoAP/JWT verifier: an envelope that fails
// verification is dropped, never forwarded.
type CoAPProcessor struct{ *coap.Ikernel }

func (p CoAPProcessor) Process(payload []byte, ikernelID uint8) ([]byte, bool) {
	if !p.Verify(payload) {
		return nil, true
	}
	return payload, false
}

// PassthroughProcessor adapts the passthrough/ring-rewrap ikernel: the
// payload is forwarded unchanged, ring framing (if any) is applied by
// the n2h pipeline's customring stage keyed off the passthrough
// ikernel's RingID, not by this processor.
type PassthroughProcessor struct{ *passthrough.Ikernel }

func (p PassthroughProcessor) Process(payload []byte, ikernelID uint8) ([]byte, bool) {
	return payload, false
}

// MemcachedProcessor adapts the memcached cache ikernel to a minimal
// line-rate text protocol: "GET <key>\r\n" or "SET <key> <value>\r\n",
// matching the wire shape original_source's memcached-responses.pcap
// fixtures exercise.
type MemcachedProcessor struct{ *memcached.Ikernel }

func (p MemcachedProcessor) Process(payload []byte, ikernelID uint8) ([]byte, bool) {
	line := bytes.TrimRight(payload, "\r\n")
	fields := bytes.SplitN(line, []byte(" "), 3)
	if len(fields) < 2 {
		return payload, false
	}
	switch string(fields[0]) {
	case "GET":
		value, hit := p.Get(fields[1], ikernelID)
		if !hit {
			return []byte("END\r\n"), false
		}
		return append(append([]byte{}, value...), "\r\n"...), false
	case "SET":
		if len(fields) < 3 {
			return []byte("ERROR\r\n"), false
		}
		p.Set(fields[1], fields[2], ikernelID)
		return []byte("STORED\r\n"), false
	default:
		return payload, false
	}
}
