package nica

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nica-dataplane/nicacore/api"
	"github.com/nica-dataplane/nicacore/codec"
	"github.com/nica-dataplane/nicacore/config"
	"github.com/nica-dataplane/nicacore/control"
	"github.com/nica-dataplane/nicacore/core/concurrency"
	"github.com/nica-dataplane/nicacore/customring"
	"github.com/nica-dataplane/nicacore/flowtable"
	"github.com/nica-dataplane/nicacore/gateway"
	"github.com/nica-dataplane/nicacore/ikernel"
	"github.com/nica-dataplane/nicacore/ikernels/cms"
	"github.com/nica-dataplane/nicacore/ikernels/coap"
	"github.com/nica-dataplane/nicacore/ikernels/echo"
	"github.com/nica-dataplane/nicacore/ikernels/memcached"
	"github.com/nica-dataplane/nicacore/ikernels/passthrough"
	"github.com/nica-dataplane/nicacore/ikernels/pktgen"
	"github.com/nica-dataplane/nicacore/ikernels/threshold"
	"github.com/nica-dataplane/nicacore/internal/obs"
	"github.com/nica-dataplane/nicacore/pool"
	"github.com/nica-dataplane/nicacore/scheduler"
	"github.com/nica-dataplane/nicacore/transport"
)

// Fixed ikernel slot ids, shared by both pipeline directions: every
// flow-table entry's IkernelID indexes this same array regardless of
// which direction steered the packet there.
const (
	slotThreshold uint8 = iota
	slotCMS
	slotMemcached
	slotCoAP
	slotPassthrough
	slotPktgen
	slotEcho
	numIkernelSlots
)

// numRings is the custom-ring table size (ring_id 1..numRings).
const numRings = 8

// defaultQuantum is the DRR quantum (in flits) every flow starts with.
const defaultQuantum = 1500

type ikernelSlot struct {
	ik        ikernel.Ikernel
	processor Processor
}

// Engine is the glue component: two mirror-image pipelines (host-to-net,
// net-to-host) sharing one flow table, one ikernel slice, and one
// gateway surface, per spec.md's runtime diagram. It implements
// api.Control so operators reach configuration, stats, hot-reload and
// debug probes through one uniform seam.
type Engine struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
	cfgStore *control.ConfigStore

	table *flowtable.Table
	mask  flowtable.FieldMask

	h2n *Pipeline
	n2h *Pipeline

	rings       *customring.RingTable
	ringBuilder *customring.Builder

	slots [numIkernelSlots]ikernelSlot

	flowHandler *flowtable.GatewayHandler
	flowGW      *gateway.Gateway
	ikernelGW   *gateway.VirtGateway
	schedH2NGW  *gateway.Gateway
	schedN2HGW  *gateway.Gateway
	ringGW      *gateway.Gateway

	splitters *pool.SyncPool[*codec.Splitter]

	h2nExec *concurrency.Executor
	n2hExec *concurrency.Executor

	mu sync.Mutex
}

// New builds an Engine from cfg (DefaultConfig() if nil), wiring every
// component per SPEC_FULL.md §3: flow table, steering, per-direction
// demux/scheduler/arbiter, the seven representative ikernels, the
// custom-ring and flow-table/scheduler gateway surfaces, and a worker
// Executor per direction.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("nica: invalid config: %w", err)
	}
	if logger == nil {
		logger = obs.NewLogger(nil, cfg.Log.Level)
	}

	metrics := control.NewMetricsRegistry()
	debug := control.NewDebugProbes()
	control.RegisterPlatformProbes(debug)
	cfgStore := control.NewConfigStore()

	table := flowtable.New()
	mask := flowtable.MaskAll
	rings := customring.NewRingTable(numRings)
	ringBuilder := customring.NewBuilder(rings)

	h2n := newPipeline("h2n", table, mask, int(numIkernelSlots), cfg.Pipeline.NumTrafficClass, defaultQuantum, nil, metrics, obs.Component(logger, "h2n"))
	n2h := newPipeline("n2h", table, mask, int(numIkernelSlots), cfg.Pipeline.NumTrafficClass, defaultQuantum, ringBuilder, metrics, obs.Component(logger, "n2h"))

	e := &Engine{
		cfg: cfg, logger: logger, metrics: metrics, debug: debug, cfgStore: cfgStore,
		table: table, mask: mask,
		h2n: h2n, n2h: n2h,
		rings: rings, ringBuilder: ringBuilder,
		splitters: pool.NewSyncPool(func() *codec.Splitter { return codec.NewSplitter() }),
	}

	pktgenSched := scheduler.NewDRR(defaultQuantum)
	thresholdIk := threshold.New()
	cmsIk := cms.New(16)
	memcachedIk := memcached.New(10)
	coapIk := coap.New(make([]byte, coap.KeySize))
	passthroughIk := passthrough.New(1)
	pktgenIk := pktgen.New(nil, pktgenSched, 0)
	echoIk := echo.New()

	e.slots[slotThreshold] = ikernelSlot{ik: thresholdIk, processor: ThresholdProcessor{thresholdIk}}
	e.slots[slotCMS] = ikernelSlot{ik: cmsIk, processor: CMSProcessor{cmsIk}}
	e.slots[slotMemcached] = ikernelSlot{ik: memcachedIk, processor: MemcachedProcessor{memcachedIk}}
	e.slots[slotCoAP] = ikernelSlot{ik: coapIk, processor: CoAPProcessor{coapIk}}
	e.slots[slotPassthrough] = ikernelSlot{ik: passthroughIk, processor: PassthroughProcessor{passthroughIk}}
	// No Processor: ingest special-cases the packet-generator slot
	// directly (see ingest.go), since it caches whole raw frames rather
	// than processing a steered UDP payload.
	e.slots[slotPktgen] = ikernelSlot{ik: pktgenIk}
	e.slots[slotEcho] = ikernelSlot{ik: echoIk, processor: EchoProcessor{echoIk}}

	e.flowHandler = flowtable.NewGatewayHandler(table)
	e.flowGW = gateway.New(e.flowHandler)
	e.ikernelGW = gateway.NewVirtGateway()
	for id := range e.slots {
		e.ikernelGW.Register(uint8(id), gateway.IkernelHandler{Ikernel: e.slots[id].ik, IkernelID: uint8(id)})
	}
	e.schedH2NGW = gateway.New(scheduler.NewGatewayHandler(h2n.sched))
	e.schedN2HGW = gateway.New(scheduler.NewGatewayHandler(n2h.sched))
	e.ringGW = gateway.New(customring.NewGatewayHandler(rings))

	debug.RegisterProbe("flowtable.len", func() any { return table.Len() })
	debug.RegisterProbe("pktgen.remaining", func() any { return pktgenIk.Remaining() })

	workers := cfg.Pipeline.Workers
	if workers <= 0 {
		workers = 1
	}
	e.h2nExec = concurrency.NewExecutor(workers, cfg.Pipeline.NUMANode)
	e.n2hExec = concurrency.NewExecutor(workers, cfg.Pipeline.NUMANode)

	return e, nil
}

// Close stops both directions' worker executors.
func (e *Engine) Close() {
	e.h2nExec.Close()
	e.n2hExec.Close()
}

// Tick processes one batch of raw Ethernet frames arriving on each
// direction, returning the frames ready for transmission on the
// opposite side once every stage (steering, ikernel processing, demux,
// DRR arbitration, egress rebuild) has run.
func (e *Engine) Tick(h2nFrames, n2hFrames [][]byte) (h2nOut, n2hOut [][]byte) {
	for _, f := range h2nFrames {
		e.ingest(e.h2n, f)
	}
	for _, f := range n2hFrames {
		e.ingest(e.n2h, f)
	}
	e.drainPktgenBursts()
	return e.h2n.DrainAll(), e.n2h.DrainAll()
}

// drainPktgenBursts pulls every packet the generator currently has
// armed and appends it to the host-to-net pipeline's verbatim output:
// generated packets are already complete frames, not a steered packet's
// payload, so they bypass ingest/steering/buildEgress entirely.
func (e *Engine) drainPktgenBursts() {
	pg, ok := e.slots[slotPktgen].ik.(*pktgen.Ikernel)
	if !ok {
		return
	}
	for {
		pkt, _, ok := pg.NextPacket()
		if !ok {
			return
		}
		e.h2n.rawOut = append(e.h2n.rawOut, pkt)
	}
}

// Run drives both directions continuously until ctx is cancelled:
// hostConn's frames are processed by the host-to-net pipeline and
// transmitted on netConn, netConn's frames by the net-to-host pipeline
// and transmitted on hostConn, each direction's loop submitted to its
// own Executor so the two directions never contend for one goroutine.
func (e *Engine) Run(ctx context.Context, hostConn, netConn transport.RawConn) error {
	errCh := make(chan error, 2)

	runDirection := func(exec *concurrency.Executor, in, out transport.RawConn, dir ikernel.Direction) {
		err := exec.Submit(func() {
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				frame, err := in.ReadFrame()
				if err != nil {
					errCh <- err
					return
				}
				if frame == nil {
					time.Sleep(time.Millisecond)
					continue
				}
				var h2nOut, n2hOut [][]byte
				if dir == ikernel.DirectionHost {
					h2nOut, _ = e.Tick([][]byte{frame}, nil)
				} else {
					_, n2hOut = e.Tick(nil, [][]byte{frame})
				}
				outs := h2nOut
				if dir == ikernel.DirectionNet {
					outs = n2hOut
				}
				for _, frameOut := range outs {
					if err := out.WriteFrame(frameOut); err != nil {
						errCh <- err
						return
					}
				}
			}
		})
		if err != nil {
			errCh <- err
		}
	}

	runDirection(e.h2nExec, hostConn, netConn, ikernel.DirectionHost)
	runDirection(e.n2hExec, netConn, hostConn, ikernel.DirectionNet)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// AddFlow inserts a flow-table entry through the flow-table gateway
// surface: PrepareFlow stages the multi-field command (Gateway's
// three-register Command carries only one uint32 payload, so a
// multi-field operation is staged out-of-band before the register-level
// Do call drains it — see DESIGN.md).
func (e *Engine) AddFlow(ctx context.Context, key flowtable.Key, mask flowtable.FieldMask, value flowtable.Value) (uint32, gateway.GWStatus) {
	e.mu.Lock()
	e.flowHandler.PrepareFlow(key, mask, value, 0)
	e.mu.Unlock()
	return e.flowGW.Do(ctx, gateway.Command{Addr: flowtable.RegAddFlow, Write: true}, gateway.DefaultRetryPolicy)
}

// DeleteFlow removes a flow-table entry through the same staged-command
// surface AddFlow uses.
func (e *Engine) DeleteFlow(ctx context.Context, key flowtable.Key, mask flowtable.FieldMask) (uint32, gateway.GWStatus) {
	e.mu.Lock()
	e.flowHandler.PrepareFlow(key, mask, flowtable.Value{}, 0)
	e.mu.Unlock()
	return e.flowGW.Do(ctx, gateway.Command{Addr: flowtable.RegDeleteFlow, Write: true}, gateway.DefaultRetryPolicy)
}

// ReadFlowRaw reads the raw flow-table slot at index (FT_READ_ENTRY).
func (e *Engine) ReadFlowRaw(ctx context.Context, index int) (uint32, gateway.GWStatus) {
	e.mu.Lock()
	e.flowHandler.PrepareFlow(flowtable.Key{}, 0, flowtable.Value{}, index)
	e.mu.Unlock()
	return e.flowGW.Do(ctx, gateway.Command{Addr: flowtable.RegReadEntry}, gateway.DefaultRetryPolicy)
}

// IkernelReg issues a register read/write against one ikernel, fanned
// out by ikernelID through the VirtGateway.
func (e *Engine) IkernelReg(ctx context.Context, ikernelID uint8, addr uint32, write bool, data uint32) (uint32, gateway.GWStatus) {
	return e.ikernelGW.Do(ctx, ikernelID, gateway.Command{Addr: addr, Write: write, Data: data}, gateway.DefaultRetryPolicy)
}

// SchedReg issues a register read/write against one direction's DRR
// scheduler (SCHED_DRR_QUANTUM/SCHED_DRR_DEFICIT).
func (e *Engine) SchedReg(ctx context.Context, dir ikernel.Direction, addr uint32, write bool, data uint32) (uint32, gateway.GWStatus) {
	gw := e.schedH2NGW
	if dir == ikernel.DirectionNet {
		gw = e.schedN2HGW
	}
	return gw.Do(ctx, gateway.Command{Addr: addr, Write: write, Data: data}, gateway.DefaultRetryPolicy)
}

// RingReg issues a register read/write against one custom-ring context
// (CR_DESTQPN/CR_PSN).
func (e *Engine) RingReg(ctx context.Context, ringID uint8, reg uint32, write bool, data uint32) (uint32, gateway.GWStatus) {
	addr := uint32(ringID)<<8 | reg
	return e.ringGW.Do(ctx, gateway.Command{Addr: addr, Write: write, Data: data}, gateway.DefaultRetryPolicy)
}

// GetConfig implements api.Control.
func (e *Engine) GetConfig() map[string]any {
	return e.cfgStore.GetSnapshot()
}

// SetConfig implements api.Control: merges cfg into the live config
// store without touching the load-time Config (FIFO depths, NUMA
// placement, ... require a restart; only soft knobs are hot-settable).
func (e *Engine) SetConfig(cfg map[string]any) error {
	e.cfgStore.SetConfig(cfg)
	return nil
}

// Stats implements api.Control, surfacing every Prometheus counter/gauge
// registered across the engine's components.
func (e *Engine) Stats() map[string]any {
	return e.metrics.GetSnapshot()
}

// OnReload implements api.Control: fn is registered both against this
// Engine's own config store and the package-level hot-reload hook list,
// so a reload triggered by any Engine in the process reaches it too.
func (e *Engine) OnReload(fn func()) {
	e.cfgStore.OnReload(fn)
	control.RegisterReloadHook(fn)
}

// RegisterDebugProbe implements api.Control.
func (e *Engine) RegisterDebugProbe(name string, fn func() any) {
	e.debug.RegisterProbe(name, fn)
}

// DumpDebugState returns every registered debug probe's current value.
func (e *Engine) DumpDebugState() map[string]any {
	return e.debug.DumpState()
}

// ReloadConfig merges newCfg into the live config store and fires every
// reload hook, including ones registered outside this Engine via
// control.RegisterReloadHook.
func (e *Engine) ReloadConfig(newCfg map[string]any) error {
	if err := e.SetConfig(newCfg); err != nil {
		return err
	}
	control.TriggerHotReload()
	return nil
}

// Metrics exposes the underlying registry, e.g. for promhttp.HandlerFor
// in cmd/nicactl.
func (e *Engine) Metrics() *control.MetricsRegistry {
	return e.metrics
}

var _ api.Control = (*Engine)(nil)
