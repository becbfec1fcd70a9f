package network

import (
	"context"
	"sync"

	"github.com/go-errors/errors"
)

// check MockNetworks compliance to its interface during compile time
var _ Network = (*MockNetwork)(nil)

// MockNetwork is an in-memory Network that serves a fixed set of scan
// results. It backs --net=mock and tests.
type MockNetwork struct {
	mu      sync.Mutex
	log     Logger
	started bool
	wifis   []*Wifi
	forgot  []string
	wps     *WpsInfo
	info    *ConnectionInfo
	station int

	// ScanErr, when set, makes Scan fail.
	ScanErr error
}

func NewMockNetwork(logger Logger, wifis ...*Wifi) *MockNetwork {
	n := &MockNetwork{
		wifis: wifis,
		info: &ConnectionInfo{
			SignalStrength:    -60,
			RelSignalStrength: RelativeSignalStrength(-60),
			LinkSpeed:         72,
		},
	}

	if logger != nil {
		n.log = logger
	} else {
		n.log = noopLogger{}
	}

	if len(n.wifis) == 0 {
		n.wifis = []*Wifi{
			{Ssid: "home", Bssid: "00:11:22:33:44:55", Frequency: 2412, Security: []string{"WPA2-PSK"}, SignalStrength: formatSignal(-48), RelSignalStrength: RelativeSignalStrength(-48)},
			{Ssid: "cafe", Bssid: "66:77:88:99:aa:bb", Frequency: 5180, SignalStrength: formatSignal(-71), RelSignalStrength: RelativeSignalStrength(-71)},
		}
	}

	return n
}

func (n *MockNetwork) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.log.Infof("Starting mock network")
	n.started = true

	return nil
}

func (n *MockNetwork) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.started = false

	return nil
}

func (n *MockNetwork) Scan(ctx context.Context) ([]*Wifi, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ScanErr != nil {
		return nil, n.ScanErr
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("scan interrupted: %v", err)
	}

	wifis := make([]*Wifi, 0, len(n.wifis))
	for _, w := range n.wifis {
		c := *w
		wifis = append(wifis, &c)
	}

	return wifis, nil
}

func (n *MockNetwork) Forget(ssid string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.forgot = append(n.forgot, ssid)

	return nil
}

func (n *MockNetwork) Forgotten() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.forgot...)
}

func (n *MockNetwork) StartWps(info *WpsInfo) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	c := *info
	n.wps = &c

	return nil
}

func (n *MockNetwork) CancelWps() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.wps = nil

	return nil
}

// Wps returns the running WPS session, if any.
func (n *MockNetwork) Wps() *WpsInfo {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.wps
}

func (n *MockNetwork) ConnectionInfo() (*ConnectionInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	c := *n.info

	return &c, nil
}

func (n *MockNetwork) SetConnectionInfo(info *ConnectionInfo) {
	n.mu.Lock()
	defer n.mu.Unlock()

	c := *info
	n.info = &c
}

func (n *MockNetwork) Stations() (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.station, nil
}

func (n *MockNetwork) SetStations(count int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.station = count
}
