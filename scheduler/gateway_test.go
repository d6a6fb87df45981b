package scheduler

import (
	"testing"

	"github.com/nica-dataplane/nicacore/gateway"
)

func TestGatewayHandlerQuantumAndDeficitRegisters(t *testing.T) {
	d := NewDRR(100)
	h := NewGatewayHandler(d)

	if _, status := h.HandleCommand(gateway.Command{Addr: 6, Write: true, Data: 42}); status != gateway.GWDone {
		t.Fatalf("expected quantum write to succeed, got %v", status)
	}
	result, status := h.HandleCommand(gateway.Command{Addr: 6})
	if status != gateway.GWDone || result != 42 {
		t.Fatalf("expected quantum readback 42, got %d %v", result, status)
	}

	if _, status := h.HandleCommand(gateway.Command{Addr: 7, Write: true, Data: 7}); status != gateway.GWDone {
		t.Fatalf("expected deficit write to succeed, got %v", status)
	}
	result, status = h.HandleCommand(gateway.Command{Addr: 7})
	if status != gateway.GWDone || result != 7 {
		t.Fatalf("expected deficit readback 7, got %d %v", result, status)
	}
}

func TestGatewayHandlerRejectsOutOfRangeFlow(t *testing.T) {
	h := NewGatewayHandler(NewDRR(100))
	if _, status := h.HandleCommand(gateway.Command{Addr: uint32(numFlows) * 2}); status != gateway.GWFail {
		t.Fatalf("expected GWFail for out-of-range flow, got %v", status)
	}
}
