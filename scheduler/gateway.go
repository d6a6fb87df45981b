package scheduler

import "github.com/nica-dataplane/nicacore/gateway"

// Register stride: addr = flow*2 + {regQuantum, regDeficit}, matching
// the SCHED_DRR_QUANTUM/SCHED_DRR_DEFICIT debug surface spec.md's
// register map names for the scheduler.
const (
	regQuantum uint32 = 0
	regDeficit uint32 = 1
)

// GatewayHandler exposes one DRR's per-flow quantum/deficit registers.
type GatewayHandler struct {
	drr *DRR
}

// NewGatewayHandler returns a GatewayHandler bound to drr.
func NewGatewayHandler(drr *DRR) *GatewayHandler {
	return &GatewayHandler{drr: drr}
}

// HandleCommand implements gateway.Handler.
func (h *GatewayHandler) HandleCommand(cmd gateway.Command) (uint32, gateway.GWStatus) {
	flow := int(cmd.Addr / 2)
	if flow < 0 || flow >= numFlows {
		return 0, gateway.GWFail
	}
	ctx := &h.drr.contexts[flow]
	switch cmd.Addr % 2 {
	case regQuantum:
		if cmd.Write {
			h.drr.SetQuantum(flow, cmd.Data)
			return 0, gateway.GWDone
		}
		return ctx.Quantum, gateway.GWDone
	case regDeficit:
		if cmd.Write {
			ctx.Deficit = cmd.Data
			return 0, gateway.GWDone
		}
		return ctx.Deficit, gateway.GWDone
	default:
		return 0, gateway.GWFail
	}
}
