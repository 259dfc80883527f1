package wifi

import (
	"log/slog"
	"time"

	"github.com/safebite/handheld/internal/clock"
	"github.com/safebite/handheld/internal/config"
	"github.com/safebite/handheld/internal/render"
)

// State is the connectivity state.
type State string

const (
	StateOff          State = "OFF"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
	StateDisconnected State = "DISCONNECTED"
)

// Mode is fixed at construction from the presence of credentials.
type Mode string

const (
	ModeOffline Mode = "OFFLINE"
	ModeOnline  Mode = "ONLINE"
)

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source for timeouts, backoff and blinking.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// Manager drives the link through connect, timeout and reconnect. Like the
// recorder it belongs to the control loop and is not safe for concurrent use.
type Manager struct {
	cfg   config.WifiConfig
	creds Credentials
	link  Link
	clock clock.Clock
	cache *render.Cache

	mode         Mode
	state        State
	attemptStart time.Time
	lastAttempt  time.Time

	blinkOn   bool
	lastBlink time.Time
}

// NewManager returns a manager in StateOff. Without an SSID the manager is
// offline for its whole life and link may be nil.
func NewManager(cfg config.WifiConfig, link Link, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg,
		creds:   Credentials{SSID: cfg.SSID, Password: cfg.Password},
		link:    link,
		clock:   clock.Real(),
		cache:   render.NewCache(),
		mode:    ModeOffline,
		state:   StateOff,
		blinkOn: true,
	}
	if cfg.HasCredentials() && link != nil {
		m.mode = ModeOnline
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins the first connection attempt, or re-enables the link after
// Disable. It does nothing offline or while an attempt is in progress.
func (m *Manager) Start() error {
	if m.mode == ModeOffline || m.state != StateOff {
		return nil
	}
	return m.begin()
}

func (m *Manager) begin() error {
	now := m.clock.Now()
	m.state = StateConnecting
	m.attemptStart = now
	m.blinkOn = true
	m.lastBlink = now

	slog.Debug("Connecting", "ssid", m.creds.SSID)
	if err := m.link.Begin(m.creds); err != nil {
		slog.Warn("Connection attempt failed", "ssid", m.creds.SSID, "error", err)
		m.state = StateDisconnected
		m.lastAttempt = now
		return err
	}
	return nil
}

// Poll applies pending link events without blocking.
func (m *Manager) Poll() {
	if m.mode == ModeOffline {
		return
	}
	for {
		select {
		case ev := <-m.link.Events():
			m.handle(ev)
		default:
			return
		}
	}
}

func (m *Manager) handle(ev Event) {
	switch ev {
	case EventAddressAcquired:
		if m.state == StateConnecting {
			m.state = StateConnected
			slog.Info("Connected", "ssid", m.creds.SSID)
		}
	case EventDisconnected:
		if m.state == StateConnecting || m.state == StateConnected {
			m.state = StateDisconnected
			m.lastAttempt = m.clock.Now()
			slog.Info("Disconnected", "ssid", m.creds.SSID)
		}
	}
}

// Tick advances timeouts and the reconnect backoff.
func (m *Manager) Tick() {
	if m.mode == ModeOffline || m.state == StateOff {
		return
	}
	now := m.clock.Now()

	switch m.state {
	case StateConnecting:
		if now.Sub(m.attemptStart) >= m.cfg.ConnectionTimeout {
			if err := m.link.Disconnect(false); err != nil {
				slog.Warn("Failed to abort connection attempt", "error", err)
			}
			m.state = StateDisconnected
			m.lastAttempt = now
			slog.Info("Connection timed out", "ssid", m.creds.SSID, "timeout", m.cfg.ConnectionTimeout)
		}
	case StateDisconnected:
		if now.Sub(m.lastAttempt) >= m.cfg.ReconnectInterval {
			m.begin()
		}
	case StateConnected:
		if m.link.Status() != LinkConnected {
			m.state = StateDisconnected
			m.lastAttempt = now
			slog.Info("Link lost", "ssid", m.creds.SSID)
		}
	}

	if m.state == StateConnecting {
		if now.Sub(m.lastBlink) >= m.cfg.BlinkRate {
			m.blinkOn = !m.blinkOn
			m.lastBlink = now
		}
	} else {
		m.blinkOn = true
	}
}

// Disable shuts the link down until the next Start. The mode is kept.
func (m *Manager) Disable() {
	if m.mode == ModeOffline {
		return
	}
	if err := m.link.Disconnect(true); err != nil {
		slog.Warn("Failed to disable link", "error", err)
	}
	m.state = StateOff
	slog.Info("Connectivity disabled")
}

// IsOnline reports whether the link is connected.
func (m *Manager) IsOnline() bool {
	return m.state == StateConnected
}

// State returns the connectivity state.
func (m *Manager) State() State { return m.state }

// Mode returns the connectivity mode.
func (m *Manager) Mode() Mode { return m.mode }

// IndicatorVisible reports the blink phase of the connecting glyph.
func (m *Manager) IndicatorVisible() bool { return m.blinkOn }
