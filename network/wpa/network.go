package wpa

import (
	"strings"

	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

type Network struct {
	wpa *Wpa
	obj dbus.BusObject
}

func (n *Network) String() string {
	return string(n.obj.Path())
}

// Ssid reads the configured ssid of the network, without quotes.
func (n *Network) Ssid() (string, error) {
	v, err := n.obj.GetProperty(service + ".Network.Properties")
	if err != nil {
		return "", errors.Errorf("could not get network properties: %v", err)
	}

	props, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return "", errors.Errorf("could not convert network properties: %v", v)
	}

	ssid, ok := props["ssid"]
	if !ok {
		return "", errors.New("network has no ssid")
	}

	s, _ := ssid.Value().(string)

	return strings.Trim(s, "\""), nil
}
