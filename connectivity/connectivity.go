package connectivity

import (
	"context"
	"sync"

	"github.com/the-lightning-land/wifid/network"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Associated
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Associated:
		return "associated"
	case Connected:
		return "connected"
	default:
		return "invalid state"
	}
}

type Reporter interface {
	CurrentState() State
	WaitForStateChange(context.Context, State) bool
}

// StatusReporter holds the connection state of one adapter together with
// the network it refers to.
type StatusReporter struct {
	mu      sync.Mutex
	state   State
	network *network.Wifi
	changed chan struct{}
}

var _ Reporter = (*StatusReporter)(nil)

func NewReporter() *StatusReporter {
	return &StatusReporter{
		changed: make(chan struct{}),
	}
}

func (r *StatusReporter) CurrentState() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Network returns the network the current state refers to, if any.
func (r *StatusReporter) Network() *network.Wifi {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.network
}

// Set records a new state and reports whether it differs from the previous
// one. Waiters are only woken on a change.
func (r *StatusReporter) Set(state State, wifi *network.Wifi) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state == r.state && sameNetwork(wifi, r.network) {
		return false
	}

	r.state = state
	r.network = wifi

	close(r.changed)
	r.changed = make(chan struct{})

	return true
}

func sameNetwork(a, b *network.Wifi) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Ssid == b.Ssid && a.Bssid == b.Bssid
}

// WaitForStateChange blocks until the state differs from source and
// returns true, or returns false once ctx is done.
func (r *StatusReporter) WaitForStateChange(ctx context.Context, source State) bool {
	for {
		r.mu.Lock()
		if r.state != source {
			r.mu.Unlock()
			return true
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return false
		}
	}
}
