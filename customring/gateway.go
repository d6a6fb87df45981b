package customring

import "github.com/nica-dataplane/nicacore/gateway"

// Register addresses within one ring's slot; a command's Addr packs
// (ringID<<8)|reg, matching the CR_DESTQPN/CR_PSN debug surface.
const (
	regDestQPN uint32 = 0
	regPSN     uint32 = 1
)

// GatewayHandler exposes a RingTable's per-ring destination-QPN and PSN
// registers.
type GatewayHandler struct {
	table *RingTable
}

// NewGatewayHandler returns a GatewayHandler bound to table.
func NewGatewayHandler(table *RingTable) *GatewayHandler {
	return &GatewayHandler{table: table}
}

// HandleCommand implements gateway.Handler.
func (h *GatewayHandler) HandleCommand(cmd gateway.Command) (uint32, gateway.GWStatus) {
	ringID := uint8(cmd.Addr >> 8)
	reg := cmd.Addr & 0xFF
	if ringID == 0 || int(ringID) > len(h.table.rings) {
		return 0, gateway.GWFail
	}
	ctx := h.table.Context(ringID)
	switch reg {
	case regDestQPN:
		if cmd.Write {
			ctx.DestQPN = cmd.Data
			return 0, gateway.GWDone
		}
		return ctx.DestQPN, gateway.GWDone
	case regPSN:
		if cmd.Write {
			ctx.PSN = cmd.Data
			return 0, gateway.GWDone
		}
		return ctx.PSN, gateway.GWDone
	default:
		return 0, gateway.GWFail
	}
}
