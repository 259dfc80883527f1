package audio

import (
	"fmt"
	"strings"

	"github.com/safebite/handheld/internal/config"
)

// SamplingDriver is the capture hardware contract. Request never blocks: it
// returns false when count samples are not yet available or the driver
// failed.
type SamplingDriver interface {
	Configure(sampleRate, gain int)
	Start() error
	Request(buf []int16, count, sampleRate int) bool
	Stop()
}

// BackendType represents the type of sampling backend
type BackendType string

const (
	BackendTypeSynthetic BackendType = "synthetic"
	BackendTypeMalgo     BackendType = "malgo"
	BackendTypeAuto      BackendType = "auto"
)

// NewDriver creates a sampling driver using the backend named in the
// configuration.
func NewDriver(cfg *config.Config) (SamplingDriver, error) {
	switch determineBackend(cfg) {
	case BackendTypeSynthetic:
		return NewSyntheticDriver(cfg.Audio.ToneHz), nil
	case BackendTypeMalgo:
		return NewMalgoDriver(cfg.Audio.Device), nil
	default:
		return nil, fmt.Errorf("unsupported audio driver: %s", cfg.Audio.Driver)
	}
}

// determineBackend determines which backend to use based on configuration
func determineBackend(cfg *config.Config) BackendType {
	switch strings.ToLower(cfg.Audio.Driver) {
	case "", "synthetic":
		return BackendTypeSynthetic
	case "malgo", "auto":
		// A host microphone is the only real capture path.
		return BackendTypeMalgo
	}
	return BackendType(cfg.Audio.Driver)
}

// GetAvailableBackends returns list of available backends on current system
func GetAvailableBackends() []BackendType {
	devices, err := ListCaptureDevices()
	if err != nil {
		return BackendsFor(nil)
	}
	return BackendsFor(devices)
}

// BackendsFor returns the usable backends given the host's capture devices.
func BackendsFor(captureDevices []string) []BackendType {
	backends := []BackendType{BackendTypeSynthetic}
	if len(captureDevices) > 0 {
		backends = append(backends, BackendTypeMalgo)
	}
	return backends
}
