// Package gateway implements the three-register {cmd, data, done}
// control-plane RPC every dataplane component is reached through, plus
// VirtGateway's fourth ikernel_id register for per-ikernel fan-out.
//
// Modeled as Gateway.Do(ctx, Command, RetryPolicy) (uint32, GWStatus): the
// "poll done" protocol step becomes a synchronous call to the target
// handler's HandleCommand, repeated while it reports GWBusy, up to the
// policy's attempt limit.
package gateway

import (
	"context"
	"time"

	"github.com/nica-dataplane/nicacore/ikernel"
)

// GWStatus mirrors ikernel.GWStatus for the gateway's own RPC surface.
type GWStatus = ikernel.GWStatus

const (
	GWDone = ikernel.GWDone
	GWBusy = ikernel.GWBusy
	GWFail = ikernel.GWFail
)

// Command is one gateway register-level operation.
type Command struct {
	Addr  uint32
	Write bool
	Data  uint32
}

// Handler is implemented by whatever component answers a Command on a
// given tick (e.g. flowtable.Table's debug surface, an ikernel's
// RegRead/RegWrite).
type Handler interface {
	HandleCommand(cmd Command) (result uint32, status GWStatus)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(cmd Command) (uint32, GWStatus)

func (f HandlerFunc) HandleCommand(cmd Command) (uint32, GWStatus) { return f(cmd) }

// RetryPolicy bounds how many times Do retries a GWBusy response, and how
// long it waits between attempts — modeling the libnica client's
// documented "retries up to 15 times in tests" behavior.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy matches libnica's 15-attempt bound.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 15, Backoff: time.Microsecond}

// Gateway routes commands to a single target Handler, one command drained
// per Tick.
type Gateway struct {
	target Handler
}

// New returns a Gateway routing every command to target.
func New(target Handler) *Gateway {
	return &Gateway{target: target}
}

// Do issues cmd against the target handler, retrying on GWBusy according
// to policy.
func (g *Gateway) Do(ctx context.Context, cmd Command, policy RetryPolicy) (uint32, GWStatus) {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy
	}
	var result uint32
	var status GWStatus
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		result, status = g.target.HandleCommand(cmd)
		if status != GWBusy {
			return result, status
		}
		select {
		case <-ctx.Done():
			return 0, GWFail
		case <-time.After(policy.Backoff):
		}
	}
	return result, status
}

// VirtGateway wraps a base Gateway with a fourth ikernel_id register, so
// one control channel can fan out to per-ikernel context arrays.
type VirtGateway struct {
	targets map[uint8]Handler
}

// NewVirtGateway returns a VirtGateway with no registered ikernel
// targets.
func NewVirtGateway() *VirtGateway {
	return &VirtGateway{targets: make(map[uint8]Handler)}
}

// Register binds a Handler to an ikernel_id.
func (v *VirtGateway) Register(ikernelID uint8, h Handler) {
	v.targets[ikernelID] = h
}

// Do issues cmd against the ikernel_id's registered handler.
func (v *VirtGateway) Do(ctx context.Context, ikernelID uint8, cmd Command, policy RetryPolicy) (uint32, GWStatus) {
	h, ok := v.targets[ikernelID]
	if !ok {
		return 0, GWFail
	}
	return (&Gateway{target: h}).Do(ctx, cmd, policy)
}
