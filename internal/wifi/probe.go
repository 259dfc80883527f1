package wifi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

// ErrAttemptInFlight is returned by Begin while a previous attempt runs.
var ErrAttemptInFlight = errors.New("connection attempt already in flight")

// DialFunc opens a connection; net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// ProbeLink treats reachability of a TCP endpoint as association. Begin dials
// the probe address in the background and reports the outcome as an Event.
type ProbeLink struct {
	address string
	timeout time.Duration
	recheck time.Duration
	dial    DialFunc
	events  chan Event

	mu        sync.Mutex
	cancel    context.CancelFunc
	inFlight  bool
	connected bool
	lastProbe time.Time
	wg        sync.WaitGroup
}

// NewProbeLink returns a link probing address ("host:port"). Each dial is
// bounded by timeout; while connected the endpoint is re-probed at most
// every recheck.
func NewProbeLink(address string, timeout, recheck time.Duration) *ProbeLink {
	d := &net.Dialer{}
	return &ProbeLink{
		address: address,
		timeout: timeout,
		recheck: recheck,
		dial:    d.DialContext,
		events:  make(chan Event, 8),
	}
}

// SetDialer replaces the dial function.
func (l *ProbeLink) SetDialer(dial DialFunc) {
	l.mu.Lock()
	l.dial = dial
	l.mu.Unlock()
}

// Begin implements Link.
func (l *ProbeLink) Begin(creds Credentials) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.inFlight {
		return ErrAttemptInFlight
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	l.cancel = cancel
	l.inFlight = true
	l.connected = false

	l.wg.Add(1)
	go l.probe(ctx, cancel, true)
	slog.Debug("Probing link", "ssid", creds.SSID, "address", l.address)
	return nil
}

func (l *ProbeLink) probe(ctx context.Context, cancel context.CancelFunc, associate bool) {
	defer l.wg.Done()
	defer cancel()

	l.mu.Lock()
	dial := l.dial
	l.mu.Unlock()

	conn, err := dial(ctx, "tcp", l.address)
	if err == nil {
		conn.Close()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	l.inFlight = false
	l.lastProbe = time.Now()

	switch {
	case err == nil && associate:
		l.connected = true
		l.emit(EventAddressAcquired)
	case err == nil:
		l.connected = true
	case l.connected || associate:
		slog.Debug("Probe failed", "address", l.address, "error", err)
		l.connected = false
		l.emit(EventDisconnected)
	}
}

// emit must be called with mu held.
func (l *ProbeLink) emit(ev Event) {
	select {
	case l.events <- ev:
	default:
		slog.Warn("Link event dropped", "event", ev)
	}
}

// Disconnect implements Link. Any attempt in flight is abandoned.
func (l *ProbeLink) Disconnect(force bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.inFlight = false
	l.connected = false
	if force {
		// Drop events queued before the link went down.
		for {
			select {
			case <-l.events:
			default:
				return nil
			}
		}
	}
	return nil
}

// Status implements Link. It reports the cached result and, when that result
// is stale, re-probes in the background.
func (l *ProbeLink) Status() LinkStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return LinkNotConnected
	}
	if !l.inFlight && l.recheck > 0 && time.Since(l.lastProbe) >= l.recheck {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		l.cancel = cancel
		l.inFlight = true
		l.wg.Add(1)
		go l.probe(ctx, cancel, false)
	}
	return LinkConnected
}

// Events implements Link.
func (l *ProbeLink) Events() <-chan Event {
	return l.events
}

// Close abandons any probe and waits for it to return.
func (l *ProbeLink) Close() error {
	l.Disconnect(true)
	l.wg.Wait()
	return nil
}
