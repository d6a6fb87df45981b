package gateway

import "github.com/nica-dataplane/nicacore/ikernel"

// IkernelHandler adapts an ikernel.Ikernel's RegRead/RegWrite pair to
// Handler, so a VirtGateway can fan control-plane commands out to any
// ikernel without that ikernel's package depending on gateway itself.
type IkernelHandler struct {
	Ikernel   ikernel.Ikernel
	IkernelID uint8
}

// HandleCommand implements Handler.
func (h IkernelHandler) HandleCommand(cmd Command) (uint32, GWStatus) {
	if cmd.Write {
		return 0, h.Ikernel.RegWrite(cmd.Addr, cmd.Data, h.IkernelID)
	}
	return h.Ikernel.RegRead(cmd.Addr, h.IkernelID)
}
