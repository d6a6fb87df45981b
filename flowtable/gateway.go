package flowtable

import "github.com/nica-dataplane/nicacore/gateway"

// Register addresses for the flow table's gateway-exposed operations,
// per the FT_ADD_FLOW/FT_DELETE_FLOW/FT_SET_ENTRY/FT_READ_ENTRY debug
// surface original_source/nica/hls/flow_table.cpp exposes.
const (
	RegAddFlow    uint32 = 0x00
	RegDeleteFlow uint32 = 0x01
	RegSetEntry   uint32 = 0x02
	RegReadEntry  uint32 = 0x03
)

// GatewayHandler adapts a Table to gateway.Handler, exposing both the
// production add/delete-flow surface and the raw-index debug read/write
// surface through one register map. A single pending Command at a time
// is held in the handler, set by PrepareFlow before
// the gateway drains HandleCommand on the owning pipeline's tick.
type GatewayHandler struct {
	table   *Table
	pending Value
	key     Key
	mask    FieldMask
	index   int
}

// NewGatewayHandler returns a GatewayHandler bound to table.
func NewGatewayHandler(table *Table) *GatewayHandler {
	return &GatewayHandler{table: table}
}

// PrepareFlow stages the key/mask/value for the next AddFlow/DeleteFlow
// command, and the raw index for the next SetEntry/ReadEntry command.
func (h *GatewayHandler) PrepareFlow(key Key, mask FieldMask, value Value, index int) {
	h.key, h.mask, h.pending, h.index = key, mask, value, index
}

// HandleCommand implements gateway.Handler, draining at most one staged
// operation per call (the gateway serializes with the dataplane so
// lookups/updates never alias within the same tick).
func (h *GatewayHandler) HandleCommand(cmd gateway.Command) (uint32, gateway.GWStatus) {
	switch cmd.Addr {
	case RegAddFlow:
		if h.table.Insert(h.key, h.mask, h.pending) {
			return 0, gateway.GWDone
		}
		return 0, gateway.GWFail
	case RegDeleteFlow:
		if h.table.Delete(h.key, h.mask) {
			return 0, gateway.GWDone
		}
		return 0, gateway.GWFail
	case RegSetEntry:
		h.table.SetRaw(h.index, h.key, h.mask, h.pending)
		return 0, gateway.GWDone
	case RegReadEntry:
		_, _, v, ok := h.table.ReadRaw(h.index)
		if !ok {
			return 0, gateway.GWFail
		}
		return uint32(v.IkernelID)<<8 | uint32(v.Action), gateway.GWDone
	default:
		return 0, gateway.GWFail
	}
}
