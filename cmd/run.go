package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the auto-accept agent in the foreground",
	Long: `Attach to the device, watch for UI change notifications from the
monitored apps, and drive the accept flow until interrupted.

Examples:
  autoshare run
  autoshare run --config /etc/autoshare.yaml
  AUTOSHARE_DEVICE=emulator-5554 autoshare run`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	svc, _, cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("agent starting",
		"host", cfg.HostPackage,
		"cast", cfg.CastPackage,
		"enabled", cfg.Enabled,
	)
	return svc.Run(ctx)
}
