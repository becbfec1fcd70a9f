package network

import (
	"context"
	"net"
	"time"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/wifid/network/wpa"
)

// check WpaNetworks compliance to its interface during compile time
var _ Network = (*WpaNetwork)(nil)

const DefaultScanTimeout = 10 * time.Second

type Config struct {
	Interface   string
	ScanTimeout time.Duration
	Logger      Logger
}

// WpaNetwork drives a wireless interface through wpa_supplicant over D-Bus.
type WpaNetwork struct {
	log         Logger
	wpa         *wpa.Wpa
	ifname      string
	iface       *wpa.Interface
	scanTimeout time.Duration
}

func NewWpaNetwork(config *Config) *WpaNetwork {
	n := &WpaNetwork{
		ifname:      config.Interface,
		wpa:         wpa.New(),
		scanTimeout: config.ScanTimeout,
	}

	if n.scanTimeout <= 0 {
		n.scanTimeout = DefaultScanTimeout
	}

	if config.Logger != nil {
		n.log = config.Logger
	} else {
		n.log = noopLogger{}
	}

	return n
}

func (n *WpaNetwork) Start() error {
	err := n.wpa.Start()
	if err != nil {
		return errors.Errorf("could not start wpa: %v", err)
	}

	iface, err := n.wpa.GetInterface(n.ifname)
	if err != nil {
		_ = n.Stop()
		return errors.Errorf("could not find interface %v: %v", n.ifname, err)
	}

	n.iface = iface

	return nil
}

func (n *WpaNetwork) Stop() error {
	err := n.wpa.Stop()
	if err != nil {
		return errors.Errorf("could not stop wpa: %v", err)
	}

	return nil
}

// Scan triggers an active scan and returns the BSSs known once the scan
// finished or the scan timeout elapsed.
func (n *WpaNetwork) Scan(ctx context.Context) ([]*Wifi, error) {
	if n.iface == nil {
		return nil, errors.New("network not started")
	}

	doneClient, err := n.iface.ScanDone()
	if err != nil {
		return nil, errors.Errorf("unable to listen to scan completion: %v", err)
	}
	defer doneClient.Cancel()

	err = n.iface.Scan()
	if err != nil {
		return nil, errors.Errorf("unable to scan: %v", err)
	}

	timeout := time.NewTimer(n.scanTimeout)
	defer timeout.Stop()

	select {
	case ok := <-doneClient.ScanDone:
		if !ok {
			n.log.Warnf("Scan on %v reported failure, using cached results", n.ifname)
		}
	case <-timeout.C:
		n.log.Warnf("Scan on %v timed out after %v", n.ifname, n.scanTimeout)
	case <-ctx.Done():
		return nil, errors.Errorf("scan interrupted: %v", ctx.Err())
	}

	bsss, err := n.iface.BSSs()
	if err != nil {
		return nil, errors.Errorf("unable to get BSSs: %v", err)
	}

	var wifis []*Wifi

	for _, bss := range bsss {
		b, err := bss.GetAll()
		if err != nil {
			n.log.Debugf("Skipping %v: %v", bss, err)
			continue
		}

		wifis = append(wifis, &Wifi{
			Ssid:              b.Ssid,
			Bssid:             b.Bssid,
			Frequency:         b.Frequency,
			Security:          b.Security(),
			Hidden:            b.Ssid == "",
			SignalStrength:    formatSignal(b.Signal),
			RelSignalStrength: RelativeSignalStrength(b.Signal),
		})
	}

	return wifis, nil
}

func (n *WpaNetwork) Forget(ssid string) error {
	if n.iface == nil {
		return errors.New("network not started")
	}

	networks, err := n.iface.Networks()
	if err != nil {
		return errors.Errorf("unable to list networks: %v", err)
	}

	for _, network := range networks {
		s, err := network.Ssid()
		if err != nil {
			n.log.Debugf("Skipping %v: %v", network, err)
			continue
		}

		if s != ssid {
			continue
		}

		err = n.iface.RemoveNetwork(network)
		if err != nil {
			return errors.Errorf("unable to remove %v: %v", ssid, err)
		}
	}

	return nil
}

func (n *WpaNetwork) StartWps(info *WpsInfo) error {
	if n.iface == nil {
		return errors.New("network not started")
	}

	var bssid []byte

	if info.Bssid != "" {
		b, err := wpa.ParseBssid(info.Bssid)
		if err != nil {
			return err
		}

		bssid = b
	}

	return n.iface.StartWps(info.Method, info.Pin, bssid)
}

func (n *WpaNetwork) CancelWps() error {
	if n.iface == nil {
		return errors.New("network not started")
	}

	return n.iface.CancelWps()
}

func (n *WpaNetwork) ConnectionInfo() (*ConnectionInfo, error) {
	if n.iface == nil {
		return nil, errors.New("network not started")
	}

	signal, err := n.iface.SignalPoll()
	if err != nil {
		return nil, err
	}

	return &ConnectionInfo{
		SignalStrength:    signal.Rssi,
		RelSignalStrength: RelativeSignalStrength(signal.Rssi),
		LinkSpeed:         signal.LinkSpeed,
		IpAddress:         interfaceAddress(n.ifname),
	}, nil
}

func (n *WpaNetwork) Stations() (int, error) {
	if n.iface == nil {
		return 0, errors.New("network not started")
	}

	return n.iface.Stations()
}

// interfaceAddress returns the first IPv4 address of the interface or an
// empty string.
func interfaceAddress(ifname string) string {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return ""
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return ""
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}

	return ""
}
