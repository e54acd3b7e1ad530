package commands

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/valksor/go-phaseflow/internal/conductor"
	"github.com/valksor/go-phaseflow/internal/log"
	"github.com/valksor/go-phaseflow/internal/mcp"
)

var serveMetricsAddr string

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Expose the workflow tool over MCP stdio",
	GroupID: "workflow",
	Long: `Serve the "workflow" MCP tool on stdin/stdout until the client disconnects.

Logs go to stderr. With --metrics-addr (or metrics.addr in the config file)
Prometheus counters are served on http://<addr>/metrics for the lifetime of
the MCP session.`,
	Example: `  phaseflow serve
  phaseflow serve --metrics-addr 127.0.0.1:9464`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "Listen address for the /metrics endpoint")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	c, err := newConductor(ctx, conductor.WithRuntimeMetrics())
	if err != nil {
		return err
	}
	defer c.Close()

	addr := serveMetricsAddr
	if addr == "" {
		addr = c.Config().Metrics.Addr
	}

	server := mcp.NewServer(c.Dispatcher(), Version)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The metrics endpoint lives only as long as the MCP session.
		defer cancel()
		return server.Run(gctx)
	})
	if addr != "" {
		g.Go(func() error {
			return c.Metrics().Serve(gctx, addr)
		})
	}

	err = g.Wait()
	log.Debug("serve stopped", log.Err(err))
	return err
}
