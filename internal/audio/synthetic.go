package audio

import (
	"errors"
	"math"
	"time"

	"github.com/safebite/handheld/internal/clock"
)

// SyntheticDriver generates a tone with a slow amplitude envelope. It stands
// in for the microphone on headless runs and in tests, and like a microphone
// it only delivers samples at the configured rate: a request for more
// samples than have elapsed since Start is refused.
type SyntheticDriver struct {
	// Amplitude is the raw (pre-gain) peak amplitude.
	Amplitude float64
	// FailEvery makes every N-th request fail. Zero never fails.
	FailEvery int
	// StartErr, when set, is returned by Start.
	StartErr error

	clock      clock.Clock
	toneHz     float64
	sampleRate int
	gain       int
	running    bool
	startedAt  time.Time
	position   int

	Starts   int
	Stops    int
	Requests int
}

// NewSyntheticDriver returns a driver producing a toneHz sine wave.
func NewSyntheticDriver(toneHz float64) *SyntheticDriver {
	if toneHz <= 0 {
		toneHz = 440
	}
	return &SyntheticDriver{
		Amplitude: 600,
		clock:     clock.Real(),
		toneHz:    toneHz,
		gain:      1,
	}
}

// SetClock replaces the time source that paces delivery.
func (d *SyntheticDriver) SetClock(c clock.Clock) {
	d.clock = c
}

// Configure implements SamplingDriver.
func (d *SyntheticDriver) Configure(sampleRate, gain int) {
	d.sampleRate = sampleRate
	d.gain = max(gain, 1)
}

// Start implements SamplingDriver.
func (d *SyntheticDriver) Start() error {
	d.Starts++
	if d.StartErr != nil {
		return d.StartErr
	}
	if d.sampleRate <= 0 {
		return errors.New("synthetic driver: sample rate not configured")
	}
	d.running = true
	d.startedAt = d.clock.Now()
	d.position = 0
	return nil
}

// Request implements SamplingDriver.
func (d *SyntheticDriver) Request(buf []int16, count, sampleRate int) bool {
	if !d.running || count > len(buf) || sampleRate != d.sampleRate {
		return false
	}
	if d.position+count > d.available() {
		return false
	}
	d.Requests++
	if d.FailEvery > 0 && d.Requests%d.FailEvery == 0 {
		return false
	}

	rate := float64(d.sampleRate)
	for i := 0; i < count; i++ {
		t := float64(d.position+i) / rate
		envelope := 0.5 + 0.5*math.Sin(2*math.Pi*0.5*t)
		v := math.Sin(2*math.Pi*d.toneHz*t) * d.Amplitude * envelope * float64(d.gain)
		buf[i] = clamp16(v)
	}
	d.position += count
	return true
}

// available returns the number of samples produced since Start.
func (d *SyntheticDriver) available() int {
	elapsed := d.clock.Now().Sub(d.startedAt)
	return int(int64(elapsed) * int64(d.sampleRate) / int64(time.Second))
}

// Stop implements SamplingDriver.
func (d *SyntheticDriver) Stop() {
	d.Stops++
	d.running = false
}

// Running reports whether the driver is between Start and Stop.
func (d *SyntheticDriver) Running() bool { return d.running }

func clamp16(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
