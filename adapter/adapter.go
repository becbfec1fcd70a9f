package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/the-lightning-land/wifid/certs"
	"github.com/the-lightning-land/wifid/connectivity"
	"github.com/the-lightning-land/wifid/network"
	"github.com/the-lightning-land/wifid/protocol"
)

const (
	DefaultPollInterval = 5 * time.Second

	notificationBuffer = 16
)

// Link changes settings of the wireless interface.
type Link interface {
	SetEnabled(ctx context.Context, enable bool) error
	SetPowerSave(ctx context.Context, enable bool) error
	SetIpConfig(ctx context.Context, cfg *network.IpConfig) error
}

type Config struct {
	Network      network.Network
	Profiles     *network.ProfileStore
	Pipeline     *network.Pipeline
	Link         Link
	Certs        *certs.Manager
	Status       *connectivity.StatusReporter
	Clock        clock.Clock
	PollInterval time.Duration
	Logger       Logger
}

// Adapter is the context shared by every connection controlling one
// wireless interface.
type Adapter struct {
	network      network.Network
	profiles     *network.ProfileStore
	pipeline     *network.Pipeline
	link         Link
	certs        *certs.Manager
	status       *connectivity.StatusReporter
	clock        clock.Clock
	pollInterval time.Duration
	log          Logger

	// activation serializes everything rewriting the configuration file
	activation sync.Mutex

	enabledMtx sync.Mutex
	enabled    bool

	clientMtx    sync.Mutex
	clients      map[uint32]*Client
	nextClientID uint32
}

func New(config *Config) *Adapter {
	a := &Adapter{
		network:      config.Network,
		profiles:     config.Profiles,
		pipeline:     config.Pipeline,
		link:         config.Link,
		certs:        config.Certs,
		status:       config.Status,
		clock:        config.Clock,
		pollInterval: config.PollInterval,
		enabled:      true,
		clients:      make(map[uint32]*Client),
	}

	if a.status == nil {
		a.status = connectivity.NewReporter()
	}

	if a.clock == nil {
		a.clock = clock.WallClock
	}

	if a.pollInterval <= 0 {
		a.pollInterval = DefaultPollInterval
	}

	if config.Logger != nil {
		a.log = config.Logger
	} else {
		a.log = noopLogger{}
	}

	return a
}

// Status exposes the connection state of the adapter.
func (a *Adapter) Status() connectivity.Reporter {
	return a.status
}

func (a *Adapter) Enabled() bool {
	a.enabledMtx.Lock()
	defer a.enabledMtx.Unlock()

	return a.enabled
}

func (a *Adapter) setEnabled(enabled bool) {
	a.enabledMtx.Lock()
	defer a.enabledMtx.Unlock()

	a.enabled = enabled
}

// Run polls connection and station info until ctx is done. Nothing is
// polled while wifi is disabled or nobody listens.
func (a *Adapter) Run(ctx context.Context) error {
	a.log.Infof("Polling connection info every %v", a.pollInterval)

	for {
		select {
		case <-a.clock.After(a.pollInterval):
			a.poll()
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *Adapter) poll() {
	if !a.Enabled() || a.subscribers() == 0 {
		return
	}

	info, err := a.network.ConnectionInfo()
	if err != nil {
		a.log.Debugf("Could not poll connection info: %v", err)
	} else {
		a.notify(&protocol.Notification{
			Kind: protocol.ConnectionInfoUpdate,
			Info: info,
		})
	}

	stations, err := a.network.Stations()
	if err != nil {
		a.log.Debugf("Could not read stations: %v", err)
	} else {
		a.notify(&protocol.Notification{
			Kind:    protocol.StationInfoUpdate,
			Station: &network.StationInfo{Station: stations},
		})
	}
}

func (a *Adapter) setStatus(state connectivity.State, wifi *network.Wifi) {
	if !a.status.Set(state, wifi) {
		return
	}

	a.log.Infof("Connection status is %v", state)

	a.notify(&protocol.Notification{
		Kind: protocol.StatusChange,
		Connection: &protocol.ConnectionStatus{
			Status:  state.String(),
			Network: withoutSecrets(wifi),
		},
	})
}

// withoutSecrets copies wifi with every credential cleared.
func withoutSecrets(wifi *network.Wifi) *network.Wifi {
	if wifi == nil {
		return nil
	}

	c := *wifi
	c.Psk = ""
	c.Wep = ""
	c.WepKey0 = ""
	c.WepKey1 = ""
	c.WepKey2 = ""
	c.WepKey3 = ""
	c.Pin = ""

	return &c
}

// StatusNetwork returns the network the connection status refers to.
func (a *Adapter) StatusNetwork() *network.Wifi {
	return withoutSecrets(a.status.Network())
}
