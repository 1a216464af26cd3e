package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/autoshare/internal/output"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Classify the current screen against every known dialog shape",
	Long: `Take a one-shot snapshot of the device UI and score it against every
dialog shape the agent knows. Prints the evidence report per shape, which is
the fastest way to see why a dialog is or is not being recognized.

Examples:
  autoshare check
  autoshare check --format json --pretty`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Bool("pretty", false, "Pretty-print JSON output")
	checkCmd.Flags().Int("timeout", 15, "Snapshot timeout in seconds")
}

func runCheck(cmd *cobra.Command, args []string) error {
	svc, _, _, _, err := setup(cmd)
	if err != nil {
		return err
	}

	timeoutS, _ := cmd.Flags().GetInt("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutS)*time.Second)
	defer cancel()

	reports, err := svc.Check(ctx)
	if err != nil {
		return err
	}
	return output.Print(reports)
}
