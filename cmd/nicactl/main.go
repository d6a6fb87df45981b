// Command nicactl runs the NICA dataplane engine and exposes its
// control plane (flow-table, ikernel register, and Prometheus stats)
// over a small CLI, in the shape a real libnica client would drive
// against the gateway.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/nica-dataplane/nicacore/config"
	"github.com/nica-dataplane/nicacore/flowtable"
	"github.com/nica-dataplane/nicacore/internal/obs"
	"github.com/nica-dataplane/nicacore/nica"
	"github.com/nica-dataplane/nicacore/transport"
)

var configPath string

func main() {
	if _, err := maxprocs.Set(); err != nil {
		fmt.Fprintf(os.Stderr, "nicactl: maxprocs.Set: %v\n", err)
	}

	root := &cobra.Command{
		Use:   "nicactl",
		Short: "Run and control the NICA dataplane engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(serveCmd(), flowAddCmd(), ikernelRegCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadEngine() (*nica.Engine, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := obs.NewLogger(os.Stderr, cfg.Log.Level)
	eng, err := nica.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return eng, cfg, nil
}

// serveCmd starts the dataplane engine and its metrics endpoint, running
// until interrupted. hostConn/netConn are transport.Fake instances: the
// real AF_XDP/DPDK/io_uring RawConn a production deployment would supply
// is an out-of-scope external collaborator (see transport package doc).
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dataplane engine until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			mux := http.NewServeMux()
			mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(eng.Metrics().Registry(), promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					fmt.Fprintf(os.Stderr, "nicactl: metrics server: %v\n", err)
				}
			}()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hostConn, netConn := transport.NewFake(), transport.NewFake()
			err = eng.Run(ctx, hostConn, netConn)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)

			if err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}

// flowAddCmd demonstrates the flow-table control surface: build a short-
// lived engine, stage one flow-table entry through its gateway, and
// print the resulting status.
func flowAddCmd() *cobra.Command {
	var srcPort, dstPort uint16
	var ikernelID uint8
	cmd := &cobra.Command{
		Use:   "flow-add",
		Short: "Add one flow-table entry (demo/smoke-test use)",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			key := flowtable.Key{SrcPort: srcPort, DstPort: dstPort}
			value := flowtable.Value{Action: flowtable.ActionSteer, IkernelID: ikernelID}
			_, status := eng.AddFlow(context.Background(), key, flowtable.MaskSrcPort|flowtable.MaskDstPort, value)
			fmt.Printf("flow-add status=%v\n", status)
			return nil
		},
	}
	cmd.Flags().Uint16Var(&srcPort, "src-port", 0, "flow source port")
	cmd.Flags().Uint16Var(&dstPort, "dst-port", 0, "flow destination port")
	cmd.Flags().Uint8Var(&ikernelID, "ikernel", 0, "destination ikernel id")
	return cmd
}

// ikernelRegCmd demonstrates the per-ikernel register surface.
func ikernelRegCmd() *cobra.Command {
	var ikernelID uint8
	var addr uint32
	var write bool
	var data uint32
	cmd := &cobra.Command{
		Use:   "ikernel-reg",
		Short: "Read or write one ikernel register (demo/smoke-test use)",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			result, status := eng.IkernelReg(context.Background(), ikernelID, addr, write, data)
			fmt.Printf("ikernel-reg result=%d status=%v\n", result, status)
			return nil
		},
	}
	cmd.Flags().Uint8Var(&ikernelID, "ikernel", 0, "ikernel id")
	cmd.Flags().Uint32Var(&addr, "addr", 0, "register address")
	cmd.Flags().BoolVar(&write, "write", false, "perform a write instead of a read")
	cmd.Flags().Uint32Var(&data, "data", 0, "value to write")
	return cmd
}
