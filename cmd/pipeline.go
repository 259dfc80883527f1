package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/safebite/handheld/internal/audio"
	"github.com/safebite/handheld/internal/service"
)

// executePipeline runs the pipeline steps in order against svc.
func executePipeline(ctx context.Context, svc *service.DeviceService, steps string) error {
	for i, step := range []rune(strings.ToLower(steps)) {
		fmt.Printf("Pipeline: executing step %d/%d: '%c'...\n", i+1, len(steps), step)

		switch step {
		case 'r':
			if err := recordClip(ctx, svc); err != nil {
				return fmt.Errorf("pipeline record failed: %w", err)
			}
			fmt.Println("Pipeline: recording completed")

		case 'p':
			if err := svc.Play(ctx); err != nil {
				return fmt.Errorf("pipeline play failed: %w", err)
			}
			fmt.Println("Pipeline: playback completed")

		default:
			return fmt.Errorf("unknown pipeline step: '%c' (valid: r=record, p=play)", step)
		}
	}
	return nil
}

// recordClip starts a recording and ticks the loop until it ends. A
// cancelled context cancels the recording.
func recordClip(ctx context.Context, svc *service.DeviceService) error {
	svc.Tick()
	if err := svc.StartRecording(); err != nil {
		return err
	}

	ticker := time.NewTicker(svc.GetConfig().Loop.TickInterval)
	defer ticker.Stop()

	lastPct := -1
	for {
		select {
		case <-ctx.Done():
			svc.CancelRecording()
			return ctx.Err()
		case <-ticker.C:
		}

		svc.Tick()
		switch svc.RecorderState() {
		case audio.StatusRecording:
			if pct := int(svc.RecorderProgress() * 100); pct/10 != lastPct/10 {
				slog.Info("Recording", "progress", fmt.Sprintf("%d%%", pct))
				lastPct = pct
			}
		case audio.StatusComplete:
			snap := svc.Snapshot()
			slog.Info("Recording complete",
				"samples", snap.SamplesRecorded,
				"session", snap.Session.ID)
			return nil
		case audio.StatusError:
			return errors.New(svc.GetLastError())
		default:
			return errors.New("recording stopped")
		}
	}
}

func validatePipeline() error {
	if pipeline == "" {
		return nil
	}

	validSteps := map[rune]bool{
		'r': true, // record
		'p': true, // play
	}

	steps := []rune(strings.ToLower(pipeline))
	for _, step := range steps {
		if !validSteps[step] {
			return fmt.Errorf("invalid pipeline step: '%c' (valid: r=record, p=play)", step)
		}
	}

	return nil
}
