package wifi

import (
	"errors"
	"testing"
	"time"

	"github.com/safebite/handheld/internal/clock"
	"github.com/safebite/handheld/internal/config"
	"github.com/safebite/handheld/internal/render"
)

type fakeLink struct {
	events   chan Event
	status   LinkStatus
	beginErr error

	begins      int
	disconnects []bool
	lastCreds   Credentials
}

func newFakeLink() *fakeLink {
	return &fakeLink{events: make(chan Event, 8)}
}

func (l *fakeLink) Begin(creds Credentials) error {
	l.begins++
	l.lastCreds = creds
	return l.beginErr
}

func (l *fakeLink) Disconnect(force bool) error {
	l.disconnects = append(l.disconnects, force)
	return nil
}

func (l *fakeLink) Status() LinkStatus   { return l.status }
func (l *fakeLink) Events() <-chan Event { return l.events }

func onlineConfig() config.WifiConfig {
	cfg := config.Default().Wifi
	cfg.SSID = "kitchen"
	cfg.Password = "secret"
	return cfg
}

func newTestManager(t *testing.T, cfg config.WifiConfig) (*Manager, *fakeLink, *clock.Manual) {
	t.Helper()
	link := newFakeLink()
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewManager(cfg, link, WithClock(clk)), link, clk
}

func TestManager_OfflineIsPinned(t *testing.T) {
	m, link, clk := newTestManager(t, config.Default().Wifi)
	canvas := render.NewCanvas()

	if m.Mode() != ModeOffline {
		t.Fatalf("Expected OFFLINE, got %s", m.Mode())
	}
	m.Start()
	for i := 0; i < 10; i++ {
		clk.Advance(time.Minute)
		m.Poll()
		m.Tick()
		m.Render(canvas)
	}
	m.Disable()

	if m.State() != StateOff || m.IsOnline() {
		t.Errorf("Expected OFF and not online, got %s", m.State())
	}
	if link.begins != 0 || len(link.disconnects) != 0 {
		t.Errorf("Expected link untouched, got %d begins %d disconnects", link.begins, len(link.disconnects))
	}
	if canvas.Ops() != 0 {
		t.Errorf("Expected no glyph drawn offline, got %d ops", canvas.Ops())
	}
}

func TestManager_ConnectTimeout(t *testing.T) {
	m, link, clk := newTestManager(t, onlineConfig())

	if err := m.Start(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if m.State() != StateConnecting || link.begins != 1 {
		t.Fatalf("Expected CONNECTING with one attempt, got %s/%d", m.State(), link.begins)
	}
	if link.lastCreds.SSID != "kitchen" || link.lastCreds.Password != "secret" {
		t.Errorf("Expected configured credentials, got %+v", link.lastCreds)
	}

	// Start while connecting does not begin a second attempt.
	m.Start()
	if link.begins != 1 {
		t.Errorf("Expected one attempt in flight, got %d", link.begins)
	}

	clk.Advance(10*time.Second - 20*time.Millisecond)
	m.Tick()
	if m.State() != StateConnecting {
		t.Errorf("Expected CONNECTING one tick before timeout, got %s", m.State())
	}

	clk.Advance(20 * time.Millisecond)
	m.Tick()
	if m.State() != StateDisconnected {
		t.Fatalf("Expected DISCONNECTED at timeout, got %s", m.State())
	}
	if len(link.disconnects) != 1 || link.disconnects[0] {
		t.Errorf("Expected one non-forced disconnect, got %v", link.disconnects)
	}

	// Backoff counts from the timeout.
	clk.Advance(30*time.Second - time.Millisecond)
	m.Tick()
	if link.begins != 1 {
		t.Errorf("Expected no retry before backoff, got %d attempts", link.begins)
	}
	clk.Advance(time.Millisecond)
	m.Tick()
	if m.State() != StateConnecting || link.begins != 2 {
		t.Errorf("Expected retry at backoff, got %s/%d", m.State(), link.begins)
	}
}

func TestManager_DisconnectAndReconnect(t *testing.T) {
	m, link, clk := newTestManager(t, onlineConfig())

	m.Start()
	link.events <- EventAddressAcquired
	m.Poll()
	if !m.IsOnline() {
		t.Fatalf("Expected online, got %s", m.State())
	}

	link.status = LinkConnected
	clk.Advance(2 * time.Second)
	m.Tick()
	if !m.IsOnline() {
		t.Error("Expected to stay online while the link reports connected")
	}

	link.events <- EventDisconnected
	m.Poll()
	if m.State() != StateDisconnected {
		t.Fatalf("Expected DISCONNECTED, got %s", m.State())
	}

	// Reconnect attempt at 2s + 30s.
	clk.Advance(30*time.Second - 20*time.Millisecond)
	m.Tick()
	if link.begins != 1 {
		t.Errorf("Expected no retry at 31.98s, got %d attempts", link.begins)
	}
	clk.Advance(20 * time.Millisecond)
	m.Tick()
	if link.begins != 2 || m.State() != StateConnecting {
		t.Errorf("Expected retry at 32s, got %s/%d", m.State(), link.begins)
	}
}

func TestManager_LinkLostWhileConnected(t *testing.T) {
	m, link, _ := newTestManager(t, onlineConfig())

	m.Start()
	link.events <- EventAddressAcquired
	m.Poll()

	link.status = LinkNotConnected
	m.Tick()
	if m.State() != StateDisconnected {
		t.Errorf("Expected DISCONNECTED when status drops, got %s", m.State())
	}
}

func TestManager_StaleEvents(t *testing.T) {
	m, link, _ := newTestManager(t, onlineConfig())

	m.Start()
	link.events <- EventDisconnected
	link.events <- EventAddressAcquired
	m.Poll()
	if m.State() != StateDisconnected {
		t.Errorf("Expected late address event to be ignored, got %s", m.State())
	}

	m.Disable()
	link.events <- EventAddressAcquired
	link.events <- EventDisconnected
	m.Poll()
	if m.State() != StateOff {
		t.Errorf("Expected events dropped while OFF, got %s", m.State())
	}
}

func TestManager_DisableAndRestart(t *testing.T) {
	m, link, clk := newTestManager(t, onlineConfig())

	m.Start()
	m.Disable()
	if m.State() != StateOff || m.Mode() != ModeOnline {
		t.Fatalf("Expected OFF/ONLINE, got %s/%s", m.State(), m.Mode())
	}
	if len(link.disconnects) != 1 || !link.disconnects[0] {
		t.Errorf("Expected one forced disconnect, got %v", link.disconnects)
	}

	clk.Advance(time.Hour)
	m.Tick()
	if link.begins != 1 {
		t.Errorf("Expected no attempts while OFF, got %d", link.begins)
	}

	m.Start()
	if m.State() != StateConnecting || link.begins != 2 {
		t.Errorf("Expected re-enable to connect, got %s/%d", m.State(), link.begins)
	}
}

func TestManager_BeginError(t *testing.T) {
	m, link, clk := newTestManager(t, onlineConfig())
	link.beginErr = errors.New("radio busy")

	if err := m.Start(); err == nil {
		t.Error("Expected begin error")
	}
	if m.State() != StateDisconnected {
		t.Errorf("Expected DISCONNECTED, got %s", m.State())
	}

	link.beginErr = nil
	clk.Advance(30 * time.Second)
	m.Tick()
	if m.State() != StateConnecting {
		t.Errorf("Expected retry after backoff, got %s", m.State())
	}
}

func TestManager_Blink(t *testing.T) {
	m, link, clk := newTestManager(t, onlineConfig())

	m.Start()
	if !m.IndicatorVisible() {
		t.Error("Expected indicator visible at start")
	}
	clk.Advance(499 * time.Millisecond)
	m.Tick()
	if !m.IndicatorVisible() {
		t.Error("Expected no toggle before blink rate")
	}
	clk.Advance(time.Millisecond)
	m.Tick()
	if m.IndicatorVisible() {
		t.Error("Expected toggle at blink rate")
	}

	link.events <- EventAddressAcquired
	m.Poll()
	m.Tick()
	if !m.IndicatorVisible() {
		t.Error("Expected solid indicator once connected")
	}
}

func TestManager_Render(t *testing.T) {
	m, link, _ := newTestManager(t, onlineConfig())
	canvas := render.NewCanvas()

	m.Start()
	m.Render(canvas)
	m.Render(canvas)
	if got := m.cache.Redraws(); got != 2 {
		t.Errorf("Expected a redraw on every call while connecting, got %d", got)
	}
	if canvas.Pixel(225, 10) != render.Yellow {
		t.Errorf("Expected yellow glyph, got %v", canvas.Pixel(225, 10))
	}

	link.events <- EventAddressAcquired
	link.status = LinkConnected
	m.Poll()
	m.Tick()
	m.Render(canvas)
	m.Render(canvas)
	if got := m.cache.Redraws(); got != 3 {
		t.Errorf("Expected a single redraw once connected, got %d", got)
	}
	if canvas.Pixel(225, 10) != render.Green {
		t.Errorf("Expected green glyph, got %v", canvas.Pixel(225, 10))
	}

	canvas.FillScreen(render.Black)
	m.InvalidateGlyph()
	m.Render(canvas)
	if canvas.Pixel(225, 10) != render.Green {
		t.Error("Expected glyph restored after invalidation")
	}

	link.status = LinkNotConnected
	m.Tick()
	m.Render(canvas)
	if canvas.Pixel(225, 10) != render.Black || canvas.Pixel(230, 10) != render.Red {
		t.Error("Expected red outline when disconnected")
	}

	m.Disable()
	m.Render(canvas)
	if canvas.Pixel(230, 10) != render.Black {
		t.Error("Expected glyph cleared when OFF")
	}
}
