package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/safebite/handheld/internal/audio"
	"github.com/safebite/handheld/internal/clock"
	"github.com/safebite/handheld/internal/config"
	"github.com/safebite/handheld/internal/play"
	"github.com/safebite/handheld/internal/render"
	"github.com/safebite/handheld/internal/wifi"
)

var (
	ErrHalted    = errors.New("device halted")
	ErrQueueFull = errors.New("input queue full")
	ErrNoClip    = errors.New("no completed recording")
)

// inputQueueSize bounds inputs submitted between two ticks.
const inputQueueSize = 16

// Service represents the core device service interface
type Service interface {
	// Control loop
	Tick()
	Run(ctx context.Context) error

	// Recording operations
	StartRecording() error
	CancelRecording()
	RecorderState() audio.Status
	RecorderProgress() float64
	Recording() ([]byte, bool)
	OnRecordingComplete(hook func(clip []byte))

	// Playback operations
	Play(ctx context.Context) error

	// Connectivity
	IsOnline() bool

	// Inputs and information
	Submit(in Input) error
	Snapshot() Snapshot
	GetConfig() *config.Config
	GetLastError() string

	Close() error
}

var _ Service = (*DeviceService)(nil)

// Snapshot is the state published at the end of every tick.
type Snapshot struct {
	RecorderState   audio.Status       `json:"recorder_state"`
	Progress        float64            `json:"progress"`
	SamplesRecorded int                `json:"samples_recorded"`
	TotalSamples    int                `json:"total_samples"`
	Session         *audio.SessionInfo `json:"session,omitempty"`
	WifiMode        wifi.Mode          `json:"wifi_mode"`
	WifiState       wifi.State         `json:"wifi_state"`
	Online          bool               `json:"online"`
	Halted          bool               `json:"halted"`
	LastError       string             `json:"last_error,omitempty"`
	Ticks           uint64             `json:"ticks"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Option configures a DeviceService.
type Option func(*options)

type options struct {
	clock     clock.Clock
	allocator audio.Allocator
}

// WithClock sets the time source shared by the loop, recorder and
// connectivity manager.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithAllocator replaces the capture buffer allocator.
func WithAllocator(a audio.Allocator) Option {
	return func(o *options) { o.allocator = a }
}

// DeviceService runs the cooperative control loop. Tick and the query
// methods may be called from different goroutines; they are serialised.
type DeviceService struct {
	cfg     *config.Config
	clock   clock.Clock
	display render.Display
	driver  audio.SamplingDriver
	link    wifi.Link
	player  *play.Player

	mu           sync.Mutex
	recorder     *audio.Recorder
	manager      *wifi.Manager
	booted       bool
	halted       bool
	lastActivity time.Time
	ticks        uint64
	hooks        []func([]byte)

	inputs chan Input

	snapMu sync.RWMutex
	snap   Snapshot

	// Error tracking
	lastError      string
	lastErrorMutex sync.RWMutex
}

// New creates a new device service. link may be nil when the device has no
// credentials; display may be nil for headless runs.
func New(cfg *config.Config, driver audio.SamplingDriver, link wifi.Link, display render.Display, opts ...Option) *DeviceService {
	o := options{clock: clock.Real()}
	for _, opt := range opts {
		opt(&o)
	}
	if display == nil {
		display = render.Discard
	}

	recOpts := []audio.Option{audio.WithClock(o.clock)}
	if o.allocator != nil {
		recOpts = append(recOpts, audio.WithAllocator(o.allocator))
	}

	s := &DeviceService{
		cfg:          cfg,
		clock:        o.clock,
		display:      display,
		driver:       driver,
		link:         link,
		player:       play.New(),
		recorder:     audio.NewRecorder(cfg, driver, display, recOpts...),
		manager:      wifi.NewManager(cfg.Wifi, link, wifi.WithClock(o.clock)),
		lastActivity: o.clock.Now(),
		inputs:       make(chan Input, inputQueueSize),
	}
	if err := s.recorder.Err(); err != nil {
		s.setLastError(err.Error())
	}
	s.publish()
	return s
}

// Tick runs one iteration of the control loop.
func (s *DeviceService) Tick() {
	s.mu.Lock()
	if s.halted {
		s.mu.Unlock()
		return
	}
	if !s.booted {
		s.boot()
	}

	s.sampleInputs()
	if s.halted {
		s.ticks++
		s.mu.Unlock()
		s.publish()
		return
	}

	before := s.recorder.Status()
	s.recorder.Tick()
	after := s.recorder.Status()

	var completed []func([]byte)
	var clip []byte
	if before == audio.StatusRecording && after != audio.StatusRecording {
		s.lastActivity = s.clock.Now()
		switch after {
		case audio.StatusComplete:
			completed = append(completed, s.hooks...)
			if len(completed) > 0 {
				// Hooks run unlocked, after the next session may have
				// started reusing the buffer.
				buf, _ := s.recorder.Buffer()
				clip = append([]byte(nil), buf...)
			}
			s.clearLastError()
		case audio.StatusError:
			s.setLastError(fmt.Sprintf("Recording failed: %v", s.recorder.Err()))
		}
		s.showIdle()
	}

	s.manager.Tick()
	s.manager.Render(s.display)

	if s.inactive() {
		s.halt("inactivity")
	}
	s.ticks++
	s.mu.Unlock()

	s.publish()

	// Hooks run outside the lock so they may call back into the service.
	for _, hook := range completed {
		hook(clip)
	}
}

// boot draws the idle screen and brings the link up. Called with mu held.
func (s *DeviceService) boot() {
	s.booted = true
	s.showIdle()
	if err := s.manager.Start(); err != nil {
		slog.Warn("Initial connection attempt failed", "error", err)
	}
	slog.Info("Device started", "wifi_mode", s.manager.Mode(), "clip_seconds", s.cfg.Audio.DurationSeconds())
}

func (s *DeviceService) sampleInputs() {
	for {
		select {
		case in := <-s.inputs:
			s.handleInput(in)
		default:
			s.manager.Poll()
			return
		}
	}
}

func (s *DeviceService) handleInput(in Input) {
	s.lastActivity = s.clock.Now()
	slog.Debug("Input", "input", in)

	switch in {
	case InputButtonA:
		if s.recorder.Status() != audio.StatusRecording {
			if err := s.startRecording(); err != nil {
				slog.Warn("Failed to start recording", "error", err)
			}
		}
	case InputButtonB:
		s.cancelRecording()
	case InputPower:
		s.halt("power button")
	case InputWake:
	}
}

func (s *DeviceService) inactive() bool {
	timeout := s.cfg.Loop.InactivityTimeout
	if s.halted || timeout <= 0 || s.recorder.Status() == audio.StatusRecording {
		return false
	}
	return s.clock.Now().Sub(s.lastActivity) >= timeout
}

// halt disables connectivity and blanks the screen. Called with mu held.
func (s *DeviceService) halt(reason string) {
	if s.halted {
		return
	}
	s.recorder.Reset()
	s.manager.Disable()
	s.display.FillScreen(render.Black)
	s.halted = true
	slog.Info("Halting", "reason", reason)
}

// Run ticks the loop at the configured cadence until ctx is done or the
// device halts.
func (s *DeviceService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Loop.TickInterval)
	defer ticker.Stop()

	for {
		s.Tick()
		if s.Halted() {
			return ErrHalted
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Halted reports whether the loop has stopped for good.
func (s *DeviceService) Halted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// StartRecording begins a new clip.
func (s *DeviceService) StartRecording() error {
	s.mu.Lock()
	if s.halted {
		s.mu.Unlock()
		return ErrHalted
	}
	s.lastActivity = s.clock.Now()
	err := s.startRecording()
	s.mu.Unlock()

	s.publish()
	return err
}

func (s *DeviceService) startRecording() error {
	s.clearLastError()
	if err := s.recorder.StartSession(); err != nil {
		s.setLastError(fmt.Sprintf("Failed to start recording: %v", err))
		if !errors.Is(err, audio.ErrAlreadyRecording) {
			s.showIdle()
		}
		return err
	}
	// The progress screen was drawn over the whole display.
	s.manager.InvalidateGlyph()
	return nil
}

// CancelRecording abandons a running recording. It is a no-op otherwise.
func (s *DeviceService) CancelRecording() {
	s.mu.Lock()
	s.lastActivity = s.clock.Now()
	s.cancelRecording()
	s.mu.Unlock()

	s.publish()
}

func (s *DeviceService) cancelRecording() {
	if s.recorder.Status() != audio.StatusRecording {
		return
	}
	s.recorder.Reset()
	s.showIdle()
}

// showIdle draws the idle screen and forces the glyph back on top.
func (s *DeviceService) showIdle() {
	drawIdle(s.display, s.recorder.Status(), s.cfg.Audio.DurationSeconds())
	s.manager.InvalidateGlyph()
	s.manager.Render(s.display)
}

// RecorderState returns the recorder state.
func (s *DeviceService) RecorderState() audio.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder.Status()
}

// RecorderProgress returns the recorded fraction while recording.
func (s *DeviceService) RecorderProgress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder.Progress()
}

// Recording returns the completed clip. The bytes are owned by the recorder
// and are overwritten by the next recording.
func (s *DeviceService) Recording() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder.Buffer()
}

// OnRecordingComplete registers hook to run once per completed clip. The
// hook receives a copy of the clip that it may keep.
func (s *DeviceService) OnRecordingComplete(hook func(clip []byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Play plays a copy of the completed clip.
func (s *DeviceService) Play(ctx context.Context) error {
	clip, ok := s.Recording()
	if !ok {
		return ErrNoClip
	}
	return s.player.Play(ctx, append([]byte(nil), clip...))
}

// IsOnline reports whether the link is connected.
func (s *DeviceService) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.IsOnline()
}

// Submit queues an input for the next tick.
func (s *DeviceService) Submit(in Input) error {
	if s.Halted() {
		return ErrHalted
	}
	select {
	case s.inputs <- in:
		return nil
	default:
		return ErrQueueFull
	}
}

// Snapshot returns the state published by the last tick.
func (s *DeviceService) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

func (s *DeviceService) publish() {
	s.mu.Lock()
	snap := Snapshot{
		RecorderState:   s.recorder.Status(),
		Progress:        s.recorder.Progress(),
		SamplesRecorded: s.recorder.SamplesRecorded(),
		TotalSamples:    s.recorder.TotalSamples(),
		Session:         s.recorder.Session(),
		WifiMode:        s.manager.Mode(),
		WifiState:       s.manager.State(),
		Online:          s.manager.IsOnline(),
		Halted:          s.halted,
		Ticks:           s.ticks,
		UpdatedAt:       s.clock.Now(),
	}
	s.mu.Unlock()
	snap.LastError = s.GetLastError()

	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()
}

// GetConfig returns the current configuration
func (s *DeviceService) GetConfig() *config.Config {
	return s.cfg
}

// GetLastError returns the last error message
func (s *DeviceService) GetLastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

func (s *DeviceService) setLastError(msg string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = msg
}

func (s *DeviceService) clearLastError() {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = ""
}

// Close stops the driver and the link.
func (s *DeviceService) Close() error {
	s.mu.Lock()
	s.recorder.Reset()
	s.manager.Disable()
	s.mu.Unlock()

	var err error
	if c, ok := s.link.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	if c, ok := s.driver.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	return err
}
