package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/fairdiet/fairdiet/internal/config"
	"github.com/fairdiet/fairdiet/internal/server"
)

// ServeParams holds the parameters for the serve command.
type ServeParams struct {
	Addr    string
	Origins []string
}

// NewServeCmd creates the "serve" command, which exposes the pipeline over
// HTTP and websocket for browser front ends.
func NewServeCmd() *cobra.Command {
	var params ServeParams

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recompute API",
		Long: `Serve the JSON API and the websocket recompute session.

  GET  /health          liveness and climate model name
  GET  /api/catalog     food groups, items, regions and bases
  GET  /api/regions     regions with loaded data
  POST /api/recompute   {"region": "uk", "state": {"ruminant_level": 2, "basis": "weight"}}
  GET  /api/ws          websocket; send requests, receive the newest result`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeServe(cmd, params)
		},
	}

	cmd.Flags().StringVar(&params.Addr, "addr", "", "listen address (default from server.addr)")
	cmd.Flags().StringSliceVar(&params.Origins, "allow-origin", nil,
		"allowed browser origin for CORS and websocket (repeatable; default any)")

	return cmd
}

func executeServe(cmd *cobra.Command, params ServeParams) error {
	cfg := config.GetGlobalConfig()
	addr := params.Addr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	if debug, _ := cmd.Flags().GetBool("debug"); !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	srv := server.New(ctx, p, server.WithAllowedOrigins(params.Origins...))
	cmd.Printf("Serving %d region(s) on http://%s (climate model: %s)\n", len(p.Regions()), addr, p.ModelName())
	return srv.Run(ctx, addr)
}
