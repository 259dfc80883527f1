package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/safebite/handheld/internal/audio"
	"github.com/safebite/handheld/internal/config"
	"github.com/safebite/handheld/internal/render"
	"github.com/safebite/handheld/internal/service"
	"github.com/safebite/handheld/internal/wifi"
)

// probeRecheck bounds how often a connected link re-probes its endpoint.
const probeRecheck = 5 * time.Second

// newDevice wires the sampling driver and network link chosen by cfg into
// a device service drawing on display.
func newDevice(cfg *config.Config, display render.Display) (*service.DeviceService, error) {
	driver, err := audio.NewDriver(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampling driver: %w", err)
	}

	var link wifi.Link
	if cfg.Wifi.HasCredentials() {
		link = wifi.NewProbeLink(cfg.Wifi.ProbeAddress, cfg.Wifi.ConnectionTimeout, probeRecheck)
	} else {
		slog.Info("No Wi-Fi credentials configured, running offline")
	}

	slog.Debug("Device wired",
		"driver", cfg.Audio.Driver,
		"sample_rate", cfg.Audio.SampleRate,
		"clip_seconds", cfg.Audio.DurationSeconds(),
		"online", link != nil)

	return service.New(cfg, driver, link, display), nil
}
