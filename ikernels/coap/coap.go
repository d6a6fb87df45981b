// Package coap implements the CoAP/JWT verifier ikernel: a CBOR envelope
// containing a compact JWT (header.payload.signature) is decoded with a
// minimal hand-rolled CBOR reader limited to the map/text-string/uint
// major types the token format needs, then the JWT's HMAC-SHA-256
// signature is verified with a per-ikernel 512-bit key using the
// standard library's two-pass HMAC-SHA-256 (crypto/hmac+crypto/sha256).
// No CBOR or JWT library appears anywhere in the retrieved corpus — see
// DESIGN.md — so both the narrow CBOR parser and the signature check are
// built on stdlib primitives rather than pulling in general-purpose
// codecs for one fixed shape.
package coap

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"strings"
	"sync"

	"github.com/nica-dataplane/nicacore/ikernel"
)

// KeySize is the per-ikernel HMAC key width (512 bits).
const KeySize = 64

// Register addresses.
const (
	RegVerified uint32 = 0x00
	RegRejected uint32 = 0x01
)

// Ikernel is the CoAP/JWT verifier engine.
type Ikernel struct {
	*ikernel.Base

	mu       sync.Mutex
	key      [KeySize]byte
	verified uint32
	rejected uint32
}

// New returns a verifier with the given 512-bit HMAC key (truncated or
// zero-padded to KeySize).
func New(key []byte) *Ikernel {
	ik := &Ikernel{Base: ikernel.NewBase()}
	copy(ik.key[:], key)
	return ik
}

// SetKey reprograms the per-ikernel HMAC key.
func (ik *Ikernel) SetKey(key []byte) {
	ik.mu.Lock()
	defer ik.mu.Unlock()
	var k [KeySize]byte
	copy(k[:], key)
	ik.key = k
}

// Verify decodes a CBOR envelope wrapping a compact JWT string and
// checks its HMAC-SHA-256 signature, dropping (returning false) on any
// parse or signature failure.
func (ik *Ikernel) Verify(envelope []byte) bool {
	token, err := decodeCBORTextEnvelope(envelope)
	ok := err == nil && ik.verifyJWT(token)

	ik.mu.Lock()
	if ok {
		ik.verified++
	} else {
		ik.rejected++
	}
	ik.mu.Unlock()
	return ok
}

func (ik *Ikernel) verifyJWT(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	signingInput := parts[0] + "." + parts[1]
	sig, err := base64urlDecode(parts[2])
	if err != nil {
		return false
	}

	ik.mu.Lock()
	key := ik.key
	ik.mu.Unlock()

	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(signingInput))
	expected := mac.Sum(nil)
	return hmac.Equal(expected, sig)
}

// RegRead implements ikernel.Ikernel.
func (ik *Ikernel) RegRead(addr uint32, ikernelID uint8) (uint32, ikernel.GWStatus) {
	ik.mu.Lock()
	defer ik.mu.Unlock()
	switch addr {
	case RegVerified:
		return ik.verified, ikernel.GWDone
	case RegRejected:
		return ik.rejected, ikernel.GWDone
	default:
		return 0, ikernel.GWFail
	}
}

// RegWrite implements ikernel.Ikernel; this engine exposes no writable
// registers beyond key programming (done via SetKey, not the register
// map, since a 512-bit key does not fit one 32-bit register write).
func (ik *Ikernel) RegWrite(addr uint32, value uint32, ikernelID uint8) ikernel.GWStatus {
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

// Step is a no-op placeholder: envelopes reach the engine through
// Verify, called by the pipeline glue once per packet.
func (ik *Ikernel) Step(ctx context.Context, ports *ikernel.Ports, counts ikernel.TCCounts) error {
	return nil
}

var _ ikernel.Ikernel = (*Ikernel)(nil)

var errShortBuffer = errors.New("coap: CBOR buffer too short")
