package coap

import (
	"encoding/base64"
	"fmt"
)

// decodeCBORTextEnvelope decodes a narrow CBOR shape: a single top-level
// text string (major type 3) carrying the compact JWT, or a one-entry
// map (major type 5) whose single value is that text string — the two
// envelope shapes original_source/ikernels/hls/coap.cpp's parser
// accepts. No other CBOR major type is supported.
func decodeCBORTextEnvelope(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errShortBuffer
	}
	major := data[0] >> 5
	switch major {
	case 3: // text string
		s, _, err := decodeCBORTextString(data)
		return s, err
	case 5: // map
		_, rest, err := decodeCBORUint(data) // consume the map header's length
		if err != nil {
			return "", err
		}
		// key (ignored)
		_, rest, err = decodeCBORAny(rest)
		if err != nil {
			return "", err
		}
		// value: the JWT text string
		s, _, err := decodeCBORTextString(rest)
		return s, err
	default:
		return "", fmt.Errorf("coap: unsupported CBOR major type %d", major)
	}
}

// decodeCBORAny skips over one CBOR item of major type 0 (uint) or 3
// (text string), the only shapes the envelope's map key can take, and
// returns the remaining buffer.
func decodeCBORAny(data []byte) (any, []byte, error) {
	if len(data) == 0 {
		return nil, nil, errShortBuffer
	}
	switch data[0] >> 5 {
	case 0:
		v, rest, err := decodeCBORUint(data)
		return v, rest, err
	case 3:
		s, rest, err := decodeCBORTextString(data)
		return s, rest, err
	default:
		return nil, nil, fmt.Errorf("coap: unsupported CBOR key major type %d", data[0]>>5)
	}
}

// decodeCBORUint decodes a major-type-0/5-shaped length/value following
// the CBOR additional-information encoding (direct value 0-23, or 1/2/4
// byte follow-on).
func decodeCBORUint(data []byte) (uint64, []byte, error) {
	if len(data) == 0 {
		return 0, nil, errShortBuffer
	}
	ai := data[0] & 0x1F
	switch {
	case ai < 24:
		return uint64(ai), data[1:], nil
	case ai == 24:
		if len(data) < 2 {
			return 0, nil, errShortBuffer
		}
		return uint64(data[1]), data[2:], nil
	case ai == 25:
		if len(data) < 3 {
			return 0, nil, errShortBuffer
		}
		return uint64(data[1])<<8 | uint64(data[2]), data[3:], nil
	case ai == 26:
		if len(data) < 5 {
			return 0, nil, errShortBuffer
		}
		v := uint64(data[1])<<24 | uint64(data[2])<<16 | uint64(data[3])<<8 | uint64(data[4])
		return v, data[5:], nil
	default:
		return 0, nil, fmt.Errorf("coap: unsupported CBOR additional info %d", ai)
	}
}

// decodeCBORTextString decodes a major-type-3 (text string) item.
func decodeCBORTextString(data []byte) (string, []byte, error) {
	if len(data) == 0 || data[0]>>5 != 3 {
		return "", nil, fmt.Errorf("coap: expected CBOR text string")
	}
	n, rest, err := decodeCBORUint(data)
	if err != nil {
		return "", nil, err
	}
	if uint64(len(rest)) < n {
		return "", nil, errShortBuffer
	}
	return string(rest[:n]), rest[n:], nil
}

func base64urlDecode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
