// Package lenadjust implements the length-adjust state machine that
// trims a packet's data-flit stream to exactly the UDP payload length,
// discarding any extra padding flits the NIC appended.
package lenadjust

import "github.com/nica-dataplane/nicacore/codec"

const udpHeaderLen = 8

type state int

const (
	stateCopy state = iota
	stateConsume
)

// Adjuster streams exactly word_count flits to the output, overriding the
// last flit's Keep mask to match last_word_data, then consumes (and
// discards) any extra upstream flits until the true last flit arrives.
type Adjuster struct {
	st            state
	wordCount     int
	lastWordData  int
	emitted       int
}

// NewAdjuster derives word_count and last_word_data from a UDP length
// field and returns an Adjuster ready to process that packet's flits.
func NewAdjuster(udpLength uint16) *Adjuster {
	payload := int(udpLength) - udpHeaderLen
	if payload < 0 {
		payload = 0
	}
	wordCount := (payload + codec.FlitSize - 1) / codec.FlitSize
	lastWordData := payload % codec.FlitSize
	if lastWordData == 0 && payload > 0 {
		lastWordData = codec.FlitSize
	}
	return &Adjuster{st: stateCopy, wordCount: wordCount, lastWordData: lastWordData}
}

// Push processes one upstream flit, returning the (possibly adjusted)
// output flit and whether it should be forwarded. Extra upstream flits
// beyond word_count are consumed and return ok=false.
func (a *Adjuster) Push(f codec.Flit) (out codec.Flit, ok bool) {
	switch a.st {
	case stateCopy:
		a.emitted++
		if a.emitted >= a.wordCount {
			f = a.truncateLast(f)
			a.st = stateConsume
			return f, true
		}
		if f.Last {
			// Upstream asserted last before word_count reached zero:
			// enter CONSUME and wait for the true last flit.
			a.st = stateConsume
			return f, true
		}
		return f, true
	case stateConsume:
		return codec.Flit{}, false
	default:
		return codec.Flit{}, false
	}
}

func (a *Adjuster) truncateLast(f codec.Flit) codec.Flit {
	if a.lastWordData >= codec.FlitSize {
		f.Last = true
		return f
	}
	f.Keep = (uint32(1) << uint(a.lastWordData)) - 1
	f.Last = true
	return f
}

// Done reports whether the adjuster has finished emitting word_count
// flits and is now draining/discarding any remainder.
func (a *Adjuster) Done() bool {
	return a.st == stateConsume
}
