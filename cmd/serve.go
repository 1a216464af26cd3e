package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mj1618/autoshare/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent with an MCP diagnostics server attached",
	Long: `Run the auto-accept agent and expose status, enable, disable and check
as Model Context Protocol (MCP) tools so operator tooling can inspect and
toggle the agent while it runs.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote operators)

Examples:
  autoshare serve
  autoshare serve --transport streamable-http --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")

	svc, _, _, log, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("agent stopped", "error", err)
			stop()
		}
	}()

	srv := server.New(svc)
	return srv.Serve(server.Config{Transport: transport, Port: port})
}
