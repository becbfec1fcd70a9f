package adapter

import (
	"context"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/wifid/certs"
	"github.com/the-lightning-land/wifid/connectivity"
	"github.com/the-lightning-land/wifid/network"
	"github.com/the-lightning-land/wifid/protocol"
)

func (a *Adapter) SetWifiEnabled(ctx context.Context, enable bool) error {
	a.log.Infof("Setting wifi enabled to %v", enable)

	err := a.link.SetEnabled(ctx, enable)
	if err != nil {
		return protocol.Fail(protocol.FailureEnable, err)
	}

	a.setEnabled(enable)

	if enable {
		a.notify(&protocol.Notification{Kind: protocol.Enabled})
	} else {
		a.setStatus(connectivity.Disconnected, nil)
		a.notify(&protocol.Notification{Kind: protocol.Disabled})
	}

	return nil
}

// Networks scans and returns the visible networks by ssid. Of several
// access points sharing an ssid the strongest wins.
func (a *Adapter) Networks(ctx context.Context) (map[string]*network.Wifi, error) {
	wifis, err := a.network.Scan(ctx)
	if err != nil {
		return nil, protocol.Fail(protocol.FailureScan, err)
	}

	known := make(map[string]bool)

	profiles, err := a.profiles.Profiles()
	if err != nil {
		a.log.Warnf("Could not read known networks: %v", err)
	}

	for _, p := range profiles {
		known[p.Ssid] = true
	}

	var current string
	if a.status.CurrentState() == connectivity.Connected {
		if w := a.status.Network(); w != nil {
			current = w.Ssid
		}
	}

	networks := make(map[string]*network.Wifi)

	for _, wifi := range wifis {
		if wifi.Ssid == "" {
			continue
		}

		if existing, ok := networks[wifi.Ssid]; ok && existing.RelSignalStrength >= wifi.RelSignalStrength {
			continue
		}

		wifi.Known = known[wifi.Ssid]
		wifi.Connected = wifi.Ssid == current
		networks[wifi.Ssid] = wifi
	}

	a.log.Debugf("Found %v networks", len(networks))

	return networks, nil
}

func (a *Adapter) KnownNetworks(ctx context.Context) (map[string]*network.Wifi, error) {
	profiles, err := a.profiles.Profiles()
	if err != nil {
		return nil, protocol.Fail(protocol.FailureRead, err)
	}

	networks := make(map[string]*network.Wifi)

	for _, p := range profiles {
		networks[p.Ssid] = withoutSecrets(p)
	}

	return networks, nil
}

// Associate runs the activation pipeline. Only one activation runs per
// adapter at a time.
func (a *Adapter) Associate(ctx context.Context, wifi *network.Wifi) error {
	if wifi == nil {
		return protocol.Fail(protocol.FailureInvalid, errors.New("missing network"))
	}

	a.activation.Lock()
	defer a.activation.Unlock()

	a.log.Infof("Associating with %v", wifi.Ssid)

	return a.pipeline.Activate(ctx, wifi, func(from, to network.State) {
		switch to {
		case network.StateConfigWritten:
			a.setStatus(connectivity.Connecting, wifi)
		case network.StateServiceStarted:
			a.setStatus(connectivity.Associated, wifi)
		case network.StateLeaseAcquired:
			a.setStatus(connectivity.Connected, wifi)
		case network.StateFailed:
			a.setStatus(connectivity.Disconnected, wifi)
		}
	})
}

func (a *Adapter) Forget(ctx context.Context, wifi *network.Wifi) error {
	if wifi == nil || wifi.Ssid == "" {
		return protocol.Fail(protocol.FailureInvalid, errors.New("missing ssid"))
	}

	a.activation.Lock()
	defer a.activation.Unlock()

	a.log.Infof("Forgetting %v", wifi.Ssid)

	_, err := a.profiles.RemoveProfile(wifi.Ssid)
	if err != nil {
		return protocol.Fail(protocol.FailureForget, err)
	}

	err = a.network.Forget(wifi.Ssid)
	if err != nil {
		a.log.Warnf("Could not remove %v from supplicant: %v", wifi.Ssid, err)
	}

	if current := a.status.Network(); current != nil && current.Ssid == wifi.Ssid {
		a.setStatus(connectivity.Disconnected, nil)
	}

	return nil
}

func (a *Adapter) Wps(ctx context.Context, detail *network.WpsInfo) error {
	if detail == nil {
		return protocol.FailureWpsMethod
	}

	var err error

	switch detail.Method {
	case network.WpsCancel:
		a.log.Infof("Cancelling WPS")
		err = a.network.CancelWps()
	case network.WpsPbc, network.WpsPin:
		a.log.Infof("Starting WPS with %v", detail.Method)
		err = a.network.StartWps(detail)
	default:
		return protocol.FailureWpsMethod
	}

	if err != nil {
		return protocol.Fail(protocol.FailureWps, err)
	}

	return nil
}

func (a *Adapter) SetPowerSavingMode(ctx context.Context, enable bool) error {
	a.log.Infof("Setting power saving to %v", enable)

	err := a.link.SetPowerSave(ctx, enable)
	if err != nil {
		return protocol.Fail(protocol.FailurePowerSaving, err)
	}

	return nil
}

func (a *Adapter) SetStaticIpMode(ctx context.Context, wifi *network.Wifi, info *network.IpConfig) error {
	if info == nil {
		return protocol.Fail(protocol.FailureInvalid, errors.New("missing ip configuration"))
	}

	if info.Enabled {
		a.log.Infof("Setting static address %v/%v", info.IpAddr, info.MaskLength)
	} else {
		a.log.Infof("Switching back to DHCP")
	}

	err := a.link.SetIpConfig(ctx, info)
	if err != nil {
		return protocol.Fail(protocol.FailureStaticIp, err)
	}

	return nil
}

// SetHttpProxy validates its input but cannot apply it: a proxy belongs to
// a stored network profile and profiles other than the supplicant file are
// not kept.
func (a *Adapter) SetHttpProxy(ctx context.Context, wifi *network.Wifi, info *network.ProxyInfo) error {
	if wifi == nil || wifi.Ssid == "" {
		return protocol.Fail(protocol.FailureInvalid, errors.New("missing ssid"))
	}

	if info != nil && (info.Host == "" || info.Port < 0 || info.Port > 65535) {
		return protocol.Fail(protocol.FailureInvalid, errors.Errorf("invalid proxy %v:%v", info.Host, info.Port))
	}

	return protocol.FailureNotImplemented
}

func (a *Adapter) ImportCert(ctx context.Context, blob []byte, password string, nickname string) (*protocol.CertInfo, error) {
	imported, err := a.certs.Import(blob, password, nickname)
	switch {
	case err == certs.ErrInvalidCert:
		return nil, protocol.FailureInvalidCert
	case err == certs.ErrDuplicate:
		return nil, protocol.FailureDuplicate
	case err == certs.ErrAlreadyImported:
		return nil, protocol.FailureImported
	case err != nil:
		return nil, protocol.Fail(protocol.FailureImport, err)
	}

	return &protocol.CertInfo{
		Nickname: imported.Nickname,
		Usage:    imported.Usage,
	}, nil
}

func (a *Adapter) ImportedCerts(ctx context.Context) (map[string][]string, error) {
	index, err := a.certs.List()
	if err != nil {
		return nil, protocol.Fail(protocol.FailureRead, err)
	}

	return index, nil
}

func (a *Adapter) DeleteCert(ctx context.Context, nickname string) error {
	err := a.certs.Delete(nickname)
	switch {
	case err == certs.ErrUnknownNickname:
		return protocol.FailureNickname
	case err != nil:
		return protocol.Fail(protocol.FailureDelete, err)
	}

	return nil
}
