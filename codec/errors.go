package codec

import "errors"

var (
	errNotEthernet = errors.New("codec: packet is not Ethernet-framed")
	errNotIPv4     = errors.New("codec: packet is not IPv4")
	errNotUDP      = errors.New("codec: packet is not UDP")
)
