// Package wifi keeps a best-effort network link alive with connection
// timeouts and a reconnect backoff, and draws the link status glyph.
package wifi

// Credentials authenticate against the access point.
type Credentials struct {
	SSID     string
	Password string
}

// LinkStatus is the polled association status of a Link.
type LinkStatus int

const (
	LinkNotConnected LinkStatus = iota
	LinkConnected
)

// Event is an asynchronous notification from a Link.
type Event int

const (
	EventAddressAcquired Event = iota
	EventDisconnected
)

func (e Event) String() string {
	switch e {
	case EventAddressAcquired:
		return "address-acquired"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Link is the radio contract. Begin starts an association attempt and must
// not block; the outcome arrives on Events.
type Link interface {
	Begin(creds Credentials) error
	Disconnect(force bool) error
	Status() LinkStatus
	Events() <-chan Event
}
