package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/safebite/handheld/internal/clock"
	"github.com/safebite/handheld/internal/config"
	"github.com/safebite/handheld/internal/render"
	"github.com/safebite/handheld/internal/wav"
)

// Status represents the current state of the recorder
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusRecording Status = "RECORDING"
	StatusComplete  Status = "COMPLETE"
	StatusError     Status = "ERROR"
)

var (
	ErrNoBuffer         = errors.New("capture buffer not allocated")
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrBufferLimit      = errors.New("capture buffer exceeds limit")
	ErrDriverFailed     = errors.New("sampling driver stopped delivering samples")
)

// SessionInfo contains information about the current recording session
type SessionInfo struct {
	ID           string        `json:"id"`
	StartTime    time.Time     `json:"start_time"`
	SampleRate   int           `json:"sample_rate"`
	TotalSamples int           `json:"total_samples"`
	Duration     time.Duration `json:"duration"`
}

// Allocator provides the capture buffer.
type Allocator func(size int) ([]byte, error)

// LimitedAllocator refuses buffers larger than limit bytes. A zero limit
// allows any size.
func LimitedAllocator(limit int) Allocator {
	return func(size int) ([]byte, error) {
		if limit > 0 && size > limit {
			return nil, fmt.Errorf("%w: need %d bytes, limit %d", ErrBufferLimit, size, limit)
		}
		return make([]byte, size), nil
	}
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock sets the time source used by the blink and bar timers.
func WithClock(c clock.Clock) Option {
	return func(r *Recorder) { r.clock = c }
}

// WithAllocator replaces the buffer allocator.
func WithAllocator(a Allocator) Option {
	return func(r *Recorder) { r.alloc = a }
}

// Recorder captures one fixed-length clip into an in-memory WAV buffer and
// keeps the progress screen up to date. It is driven by the control loop and
// is not safe for concurrent use.
type Recorder struct {
	audio   config.AudioConfig
	display config.DisplayConfig
	driver  SamplingDriver
	screen  render.Display
	clock   clock.Clock
	alloc   Allocator
	cache   *render.Cache

	buffer []byte
	chunk  []int16
	total  int

	status       Status
	lastErr      error
	session      *SessionInfo
	recorded     int
	failures     int
	driverActive bool

	levels    LevelHistory
	blinkOn   bool
	lastBlink time.Time
	lastBars  time.Time
}

// NewRecorder allocates the capture buffer. When allocation fails the
// recorder starts in StatusError and every session start fails.
func NewRecorder(cfg *config.Config, driver SamplingDriver, screen render.Display, opts ...Option) *Recorder {
	r := &Recorder{
		audio:   cfg.Audio,
		display: cfg.Display,
		driver:  driver,
		screen:  screen,
		clock:   clock.Real(),
		alloc:   LimitedAllocator(cfg.Audio.BufferLimit),
		cache:   render.NewCache(),
		total:   cfg.Audio.TotalSamples(),
		status:  StatusIdle,
		blinkOn: true,
	}
	for _, opt := range opts {
		opt(r)
	}

	levels, err := NewLevelHistory(cfg.Display.Bars)
	if err != nil {
		levels, _ = NewLevelHistory(MaxBars)
	}
	r.levels = levels
	r.chunk = make([]int16, max(cfg.Audio.ChunkSamples, 1))

	buf, err := r.alloc(wav.HeaderSize + r.total*2)
	if err != nil {
		slog.Error("Failed to allocate capture buffer", "error", err)
		r.status = StatusError
		r.lastErr = fmt.Errorf("%w: %v", ErrNoBuffer, err)
		return r
	}
	r.buffer = buf
	return r
}

// StartSession begins capturing a new clip, discarding any previous one.
func (r *Recorder) StartSession() error {
	if r.status == StatusRecording {
		return ErrAlreadyRecording
	}
	if r.buffer == nil {
		r.status = StatusError
		return ErrNoBuffer
	}

	clear(r.buffer[wav.HeaderSize:])
	header := wav.NewPCM16Mono(r.audio.SampleRate, r.total)
	if err := header.Put(r.buffer); err != nil {
		r.status = StatusError
		r.lastErr = err
		return fmt.Errorf("failed to write header: %w", err)
	}

	now := r.clock.Now()
	r.recorded = 0
	r.failures = 0
	r.blinkOn = true
	r.lastBlink = now
	r.lastBars = time.Time{}
	r.levels.Clear()
	r.cache.Reset()
	r.lastErr = nil

	r.driver.Configure(r.audio.SampleRate, r.audio.Gain)
	if err := r.driver.Start(); err != nil {
		r.driver.Stop()
		r.status = StatusError
		r.lastErr = err
		slog.Error("Failed to start sampling driver", "error", err)
		return fmt.Errorf("failed to start sampling driver: %w", err)
	}
	r.driverActive = true

	r.session = &SessionInfo{
		ID:           uuid.NewString(),
		StartTime:    now,
		SampleRate:   r.audio.SampleRate,
		TotalSamples: r.total,
		Duration:     r.audio.Duration,
	}
	r.status = StatusRecording

	r.drawFull()
	slog.Info("Recording started", "session", r.session.ID, "samples", r.total, "sample_rate", r.audio.SampleRate)
	return nil
}

// Tick pulls at most one chunk from the driver and refreshes the regions of
// the progress screen whose values changed.
func (r *Recorder) Tick() {
	if r.status != StatusRecording {
		return
	}

	remaining := r.total - r.recorded
	n := min(remaining, len(r.chunk))
	chunk := r.chunk[:n]

	level := uint8(0)
	if r.driver.Request(chunk, n, r.audio.SampleRate) {
		offset := wav.HeaderSize + r.recorded*2
		for i, s := range chunk {
			r.buffer[offset+i*2] = byte(s)
			r.buffer[offset+i*2+1] = byte(uint16(s) >> 8)
		}
		r.recorded += n
		r.failures = 0
		level = PeakLevel(chunk)
	} else {
		r.failures++
		if r.audio.MaxChunkFailures > 0 && r.failures >= r.audio.MaxChunkFailures {
			r.stopDriver()
			r.status = StatusError
			r.lastErr = fmt.Errorf("%w after %d attempts", ErrDriverFailed, r.failures)
			slog.Error("Recording aborted", "session", r.session.ID, "failures", r.failures, "recorded", r.recorded)
			return
		}
		slog.Debug("Sample chunk not ready", "failures", r.failures)
	}

	if r.recorded == r.total {
		r.stopDriver()
		r.status = StatusComplete
		slog.Info("Recording complete", "session", r.session.ID, "samples", r.recorded)
		return
	}

	now := r.clock.Now()
	if now.Sub(r.lastBlink) >= r.display.BlinkInterval {
		r.blinkOn = !r.blinkOn
		r.lastBlink = now
	}
	if r.lastBars.IsZero() || now.Sub(r.lastBars) >= r.display.BarUpdateInterval {
		r.levels.Push(level)
		r.lastBars = now
	}

	render.Update(r.cache, RegionDot, r.blinkOn, func(v bool) { drawDot(r.screen, v) })
	render.Update(r.cache, RegionSeconds, r.secondsLeft(), func(v int) { drawSeconds(r.screen, v) })
	render.Update(r.cache, RegionBars, r.levels, func(v LevelHistory) { drawBars(r.screen, v) })
}

// Reset cancels a running session and returns to StatusIdle. It is safe to
// call in any state.
func (r *Recorder) Reset() {
	if r.status == StatusRecording {
		r.stopDriver()
		slog.Info("Recording cancelled", "session", r.session.ID, "recorded", r.recorded)
	}
	r.recorded = 0
	r.failures = 0
	r.blinkOn = true
	if r.buffer != nil {
		r.status = StatusIdle
		r.lastErr = nil
	}
}

func (r *Recorder) drawFull() {
	r.screen.FillScreen(render.Black)
	render.Force(r.cache, RegionDot, r.blinkOn, func(v bool) { drawDot(r.screen, v) })
	render.Force(r.cache, RegionSeconds, r.secondsLeft(), func(v int) { drawSeconds(r.screen, v) })
	render.Force(r.cache, RegionBars, r.levels, func(v LevelHistory) { drawBars(r.screen, v) })
	drawHint(r.screen)
}

func (r *Recorder) stopDriver() {
	if !r.driverActive {
		return
	}
	r.driver.Stop()
	r.driverActive = false
}

func (r *Recorder) secondsLeft() int {
	if r.audio.SampleRate <= 0 {
		return 0
	}
	s := (r.total - r.recorded) / r.audio.SampleRate
	return min(max(s, 0), r.audio.DurationSeconds())
}

// Status returns the current recorder state.
func (r *Recorder) Status() Status { return r.status }

// Err returns the cause of the last transition to StatusError.
func (r *Recorder) Err() error { return r.lastErr }

// Progress returns the recorded fraction of the clip while recording, and 0
// otherwise.
func (r *Recorder) Progress() float64 {
	if r.status != StatusRecording || r.total == 0 {
		return 0
	}
	return float64(r.recorded) / float64(r.total)
}

// Buffer returns the complete WAV clip. The slice is owned by the recorder
// and is overwritten by the next session.
func (r *Recorder) Buffer() ([]byte, bool) {
	if r.status != StatusComplete {
		return nil, false
	}
	return r.buffer, true
}

// Session returns a copy of the current or last session.
func (r *Recorder) Session() *SessionInfo {
	if r.session == nil {
		return nil
	}
	s := *r.session
	return &s
}

// SamplesRecorded returns the number of samples captured in this session.
func (r *Recorder) SamplesRecorded() int { return r.recorded }

// TotalSamples returns the clip length in samples.
func (r *Recorder) TotalSamples() int { return r.total }

// Levels returns the current level history.
func (r *Recorder) Levels() LevelHistory { return r.levels }

// Cache exposes the diff cache of the progress screen.
func (r *Recorder) Cache() *render.Cache { return r.cache }
