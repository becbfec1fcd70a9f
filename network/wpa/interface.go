package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

const interfaceIface = service + ".Interface"

type Interface struct {
	wpa *Wpa
	obj dbus.BusObject
}

func (i *Interface) Scan() error {
	call := i.obj.Call(interfaceIface+".Scan", 0, map[string]interface{}{
		"Type": "active",
	})
	if call.Err != nil {
		return errors.Errorf("could not scan: %v", call.Err)
	}

	return nil
}

type ScanDoneClient struct {
	ScanDone <-chan bool
	Cancel   func()
}

// ScanDone subscribes to scan completion signals of this interface until
// Cancel is called.
func (i *Interface) ScanDone() (*ScanDoneClient, error) {
	conn := i.wpa.conn
	match := []dbus.MatchOption{
		dbus.WithMatchInterface(interfaceIface),
		dbus.WithMatchMember("ScanDone"),
		dbus.WithMatchObjectPath(i.obj.Path()),
	}

	err := conn.AddMatchSignal(match...)
	if err != nil {
		return nil, errors.Errorf("could not add signal: %v", err)
	}

	doneChan := make(chan bool, 1)
	signalChan := make(chan *dbus.Signal, 10)
	cancelChan := make(chan struct{})

	conn.Signal(signalChan)

	go func() {
		for {
			select {
			case signal := <-signalChan:
				if signal.Name != interfaceIface+".ScanDone" || signal.Path != i.obj.Path() {
					continue
				}

				success, _ := signal.Body[0].(bool)

				select {
				case doneChan <- success:
				case <-cancelChan:
					return
				}
			case <-cancelChan:
				return
			}
		}
	}()

	return &ScanDoneClient{
		ScanDone: doneChan,
		Cancel: func() {
			conn.RemoveSignal(signalChan)
			_ = conn.RemoveMatchSignal(match...)
			close(cancelChan)
		},
	}, nil
}

func (i *Interface) BSSs() ([]*BSS, error) {
	v, err := i.obj.GetProperty(interfaceIface + ".BSSs")
	if err != nil {
		return nil, errors.Errorf("could not get bsss: %v", err)
	}

	objectPaths, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, errors.Errorf("could not convert bsss: %v", v)
	}

	var bsss []*BSS

	for _, objectPath := range objectPaths {
		bsss = append(bsss, &BSS{
			obj: i.wpa.conn.Object(service, objectPath),
		})
	}

	return bsss, nil
}

func (i *Interface) Networks() ([]*Network, error) {
	v, err := i.obj.GetProperty(interfaceIface + ".Networks")
	if err != nil {
		return nil, errors.Errorf("could not get networks: %v", err)
	}

	objectPaths, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, errors.Errorf("could not convert networks: %v", v)
	}

	var networks []*Network

	for _, objectPath := range objectPaths {
		networks = append(networks, &Network{
			wpa: i.wpa,
			obj: i.wpa.conn.Object(service, objectPath),
		})
	}

	return networks, nil
}

func (i *Interface) RemoveNetwork(net *Network) error {
	call := i.obj.Call(interfaceIface+".RemoveNetwork", 0, net.obj.Path())
	if call.Err != nil {
		return errors.Errorf("could not remove network: %v", call.Err)
	}

	return nil
}

// StartWps starts an enrollee WPS session. pin and bssid are optional; an
// empty pin with wpsType "pin" lets wpa_supplicant generate one.
func (i *Interface) StartWps(wpsType string, pin string, bssid []byte) error {
	args := map[string]interface{}{
		"Role": "enrollee",
		"Type": wpsType,
	}

	if pin != "" {
		args["Pin"] = pin
	}

	if len(bssid) > 0 {
		args["Bssid"] = bssid
	}

	call := i.obj.Call(interfaceIface+".WPS.Start", 0, args)
	if call.Err != nil {
		return errors.Errorf("could not start wps: %v", call.Err)
	}

	return nil
}

func (i *Interface) CancelWps() error {
	call := i.obj.Call(interfaceIface+".WPS.Cancel", 0)
	if call.Err != nil {
		return errors.Errorf("could not cancel wps: %v", call.Err)
	}

	return nil
}

type Signal struct {
	Rssi      int
	LinkSpeed int
}

func (i *Interface) SignalPoll() (*Signal, error) {
	var props map[string]dbus.Variant

	err := i.obj.Call(interfaceIface+".SignalPoll", 0).Store(&props)
	if err != nil {
		return nil, errors.Errorf("could not poll signal: %v", err)
	}

	signal := &Signal{}

	if v, ok := props["rssi"]; ok {
		if rssi, ok := v.Value().(int32); ok {
			signal.Rssi = int(rssi)
		}
	}

	if v, ok := props["linkspeed"]; ok {
		if speed, ok := v.Value().(int32); ok {
			signal.LinkSpeed = int(speed)
		}
	}

	return signal, nil
}

// Stations returns the number of stations associated while the interface
// runs as an access point.
func (i *Interface) Stations() (int, error) {
	v, err := i.obj.GetProperty(interfaceIface + ".Stations")
	if err != nil {
		return 0, errors.Errorf("could not get stations: %v", err)
	}

	objectPaths, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return 0, errors.Errorf("could not convert stations: %v", v)
	}

	return len(objectPaths), nil
}
