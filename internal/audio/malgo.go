package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/multierr"
)

// queueSeconds bounds the capture queue of a MalgoDriver.
const queueSeconds = 2

// MalgoDriver captures mono S16 samples from a host microphone through
// miniaudio. The device callback fills a bounded queue that Request drains.
type MalgoDriver struct {
	deviceName string

	mu         sync.Mutex
	sampleRate int
	gain       int
	queue      []int16
	dropped    int

	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

// NewMalgoDriver returns a driver for the capture device whose name contains
// deviceName, or the system default when deviceName is empty.
func NewMalgoDriver(deviceName string) *MalgoDriver {
	return &MalgoDriver{deviceName: deviceName, gain: 1}
}

// Configure implements SamplingDriver.
func (d *MalgoDriver) Configure(sampleRate, gain int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sampleRate = sampleRate
	d.gain = max(gain, 1)
}

// Start implements SamplingDriver.
func (d *MalgoDriver) Start() error {
	if d.device != nil {
		return errors.New("capture device already started")
	}
	if d.sampleRate <= 0 {
		return errors.New("capture device: sample rate not configured")
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(d.sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if d.deviceName != "" {
		deviceID, err := findDeviceID(ctx, malgo.Capture, d.deviceName)
		if err != nil {
			return multierr.Append(err, closeContext(ctx))
		}
		deviceConfig.Capture.DeviceID = deviceID.Pointer()
	}

	d.mu.Lock()
	d.queue = make([]int16, 0, d.sampleRate*queueSeconds)
	d.dropped = 0
	d.mu.Unlock()

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: d.onData,
	})
	if err != nil {
		return multierr.Append(fmt.Errorf("failed to init capture device: %w", err), closeContext(ctx))
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return multierr.Append(fmt.Errorf("failed to start capture device: %w", err), closeContext(ctx))
	}

	d.ctx = ctx
	d.device = device
	slog.Debug("Capture device started", "device", d.deviceName, "sample_rate", d.sampleRate)
	return nil
}

// onData runs on the miniaudio thread.
func (d *MalgoDriver) onData(_, input []byte, frames uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := min(int(frames), len(input)/2)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(input[i*2:]))
		v := int(s) * d.gain
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		if len(d.queue) == cap(d.queue) {
			copy(d.queue, d.queue[1:])
			d.queue = d.queue[:len(d.queue)-1]
			d.dropped++
		}
		d.queue = append(d.queue, int16(v))
	}
}

// Request implements SamplingDriver.
func (d *MalgoDriver) Request(buf []int16, count, sampleRate int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil || sampleRate != d.sampleRate || count > len(buf) {
		return false
	}
	if len(d.queue) < count {
		return false
	}
	copy(buf, d.queue[:count])
	rest := copy(d.queue, d.queue[count:])
	d.queue = d.queue[:rest]
	return true
}

// Stop implements SamplingDriver.
func (d *MalgoDriver) Stop() {
	if d.device == nil {
		return
	}
	err := d.device.Stop()
	d.device.Uninit()
	err = multierr.Append(err, closeContext(d.ctx))
	if err != nil {
		slog.Warn("Failed to stop capture device cleanly", "error", err)
	}

	d.mu.Lock()
	if d.dropped > 0 {
		slog.Debug("Capture queue overflowed", "dropped_samples", d.dropped)
	}
	d.queue = nil
	d.mu.Unlock()

	d.device = nil
	d.ctx = nil
}

func closeContext(ctx *malgo.AllocatedContext) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Uninit(); err != nil {
		return err
	}
	ctx.Free()
	return nil
}

// findDeviceID finds the first device whose name contains nameSnippet.
func findDeviceID(ctx *malgo.AllocatedContext, deviceType malgo.DeviceType, nameSnippet string) (malgo.DeviceID, error) {
	infos, err := ctx.Devices(deviceType)
	if err != nil {
		return malgo.DeviceID{}, err
	}

	for _, info := range infos {
		if strings.Contains(strings.ToLower(deviceName(info)), strings.ToLower(nameSnippet)) {
			return info.ID, nil
		}
	}
	return malgo.DeviceID{}, fmt.Errorf("capture device not found: %s", nameSnippet)
}

func deviceName(info malgo.DeviceInfo) string {
	return strings.TrimRight(info.Name(), "\x00")
}

// ListCaptureDevices returns the names of the host's capture devices.
func ListCaptureDevices() (names []string, err error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init audio context: %w", err)
	}
	defer func() {
		err = multierr.Append(err, closeContext(ctx))
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to list capture devices: %w", err)
	}
	for _, info := range infos {
		names = append(names, deviceName(info))
	}
	return names, nil
}
