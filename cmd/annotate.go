package cmd

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/autoshare/internal/locate"
	"github.com/mj1618/autoshare/internal/overlay"
	"github.com/mj1618/autoshare/internal/uitree"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Screenshot the device with the located targets outlined",
	Long: `Capture a screenshot, locate every role the agent knows how to click
on the current screen, and write a PNG with each found target outlined and
labeled. Useful when tuning locator strategies against an unfamiliar app
build.

Examples:
  autoshare annotate
  autoshare annotate --out /tmp/targets.png`,
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	annotateCmd.Flags().String("out", "annotated.png", "Output PNG path")
	annotateCmd.Flags().Int("timeout", 15, "Capture timeout in seconds")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	_, provider, _, log, err := setup(cmd)
	if err != nil {
		return err
	}

	outPath, _ := cmd.Flags().GetString("out")
	timeoutS, _ := cmd.Flags().GetInt("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutS)*time.Second)
	defer cancel()

	img, err := provider.Screens.Capture(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}

	snap, err := uitree.Acquire(ctx, provider.Session)
	if err != nil {
		return fmt.Errorf("failed to snapshot UI tree: %w", err)
	}
	defer snap.Close()

	locator := locate.New(log)
	var marks []overlay.Mark
	for name, role := range locate.Roles {
		n, err := locator.Find(ctx, snap, role)
		if err != nil {
			return err
		}
		if n == nil {
			continue
		}
		marks = append(marks, overlay.Mark{Label: name, Bounds: n.Bounds})
		n.Release()
	}

	annotated := overlay.Annotate(img, marks)
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer f.Close()
	if err := png.Encode(f, annotated); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}

	fmt.Printf("wrote %s (%d targets found)\n", outPath, len(marks))
	return nil
}
