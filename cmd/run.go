package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/safebite/handheld/internal/render"
	"github.com/safebite/handheld/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// frameInterval caps how often the terminal screen is repainted.
const frameInterval = 50 * time.Millisecond

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the device loop with the screen in the terminal",
	Long: `Run the control loop and draw the handheld screen in the terminal.

Keys:
  a       start recording (button A)
  b       cancel recording (button B)
  p       play the last clip
  q       power off
  any     counts as activity`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return errors.New("run needs an interactive terminal, use 'record' or 'serve' instead")
		}

		// The terminal belongs to the screen from here on
		setupLogging(verboseLevel, logWriter())

		canvas := render.NewCanvas()
		svc, err := newDevice(cfg, canvas)
		if err != nil {
			return err
		}
		defer func() {
			if err := svc.Close(); err != nil {
				slog.Warn("Failed to close device", "error", err)
			}
		}()

		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to enter raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return svc.Run(ctx)
		})
		g.Go(func() error {
			return paintLoop(ctx, os.Stdout, canvas)
		})
		go readKeys(ctx, os.Stdin, svc)

		err = g.Wait()
		fmt.Fprint(os.Stdout, "\x1b[2J\x1b[H")
		if errors.Is(err, service.ErrHalted) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

// paintLoop repaints the terminal whenever the canvas changed.
func paintLoop(ctx context.Context, w io.Writer, canvas *render.Canvas) error {
	fmt.Fprint(w, "\x1b[2J\x1b[?25l")
	defer fmt.Fprint(w, "\x1b[?25h")

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if !canvas.TakeDirty() {
			continue
		}
		// Raw mode does not translate newlines
		frame := strings.ReplaceAll(canvas.Render(), "\n", "\r\n")
		if _, err := fmt.Fprint(w, "\x1b[H"+frame); err != nil {
			return err
		}
	}
}

// readKeys maps key presses to device inputs until ctx is done.
func readKeys(ctx context.Context, r io.Reader, svc *service.DeviceService) {
	buf := make([]byte, 1)
	for {
		if _, err := r.Read(buf); err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		var in service.Input
		switch buf[0] {
		case 'a', 'A':
			in = service.InputButtonA
		case 'b', 'B':
			in = service.InputButtonB
		case 'q', 'Q', 3: // Ctrl+C in raw mode
			in = service.InputPower
		case 'p', 'P':
			svc.Submit(service.InputWake)
			go func() {
				if err := svc.Play(ctx); err != nil {
					slog.Warn("Playback failed", "error", err)
				}
			}()
			continue
		default:
			in = service.InputWake
		}

		if err := svc.Submit(in); err != nil {
			slog.Debug("Input dropped", "input", in, "error", err)
		}
	}
}
