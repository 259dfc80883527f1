package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one clip without the screen",
	Long: `Record a single clip into memory without drawing the screen.
Use -p to chain steps, e.g. -p rp records and then plays the clip back.
The clip is never written to disk. Press Ctrl+C to cancel.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := pipeline
		if steps == "" {
			steps = "r"
		}
		if steps[0] != 'r' && steps[0] != 'R' {
			return fmt.Errorf("pipeline must start with a record step, got '%s'", steps)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Headless: nothing is drawn
		svc, err := newDevice(cfg, nil)
		if err != nil {
			return err
		}
		defer func() {
			if err := svc.Close(); err != nil {
				slog.Warn("Failed to close device", "error", err)
			}
		}()

		slog.Info("Record command started", "seconds", cfg.Audio.DurationSeconds(), "pipeline", steps)
		return executePipeline(ctx, svc, steps)
	},
}
