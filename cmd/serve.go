package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/safebite/handheld/internal/server"
	"github.com/safebite/handheld/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the device loop headless with a web API",
	Long: `Run the control loop without a screen and expose its status and
buttons over HTTP, so the device can be driven from a phone on the same
network. The server stops when the device halts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")

		svc, err := newDevice(cfg, nil)
		if err != nil {
			return err
		}
		defer func() {
			if err := svc.Close(); err != nil {
				slog.Warn("Failed to close device", "error", err)
			}
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(svc, cfgFile, port)
		slog.Info("SafeBite web server starting", "port", port, "config", cfgFile)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return svc.Run(ctx)
		})
		g.Go(func() error {
			return srv.Start(ctx)
		})

		err = g.Wait()
		if errors.Is(err, service.ErrHalted) || errors.Is(err, context.Canceled) {
			slog.Info("Device stopped", "reason", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "8080", "port for the web server")
}
