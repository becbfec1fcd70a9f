package wpa

import (
	"encoding/hex"
	"strings"

	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

type BSS struct {
	obj dbus.BusObject
}

func (b *BSS) String() string {
	return string(b.obj.Path())
}

type Bss struct {
	Ssid       string
	Bssid      string
	Signal     int
	Frequency  int
	Privacy    bool
	RsnKeyMgmt []string
	WpaKeyMgmt []string
}

// Security derives a coarse list of security modes from the advertised
// key management suites.
func (b *Bss) Security() []string {
	var security []string

	for _, suite := range []struct {
		prefix  string
		keyMgmt []string
	}{{"WPA2", b.RsnKeyMgmt}, {"WPA", b.WpaKeyMgmt}} {
		for _, km := range suite.keyMgmt {
			switch {
			case strings.Contains(km, "psk"):
				security = appendOnce(security, suite.prefix+"-PSK")
			case strings.Contains(km, "eap"):
				security = appendOnce(security, suite.prefix+"-EAP")
			}
		}
	}

	if len(security) == 0 && b.Privacy {
		security = append(security, "WEP")
	}

	return security
}

func appendOnce(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}

	return append(list, v)
}

func (b *BSS) GetAll() (*Bss, error) {
	call := b.obj.Call("org.freedesktop.DBus.Properties.GetAll", 0, service+".BSS")
	if call.Err != nil {
		return nil, errors.Errorf("could not get all properties: %v", call.Err)
	}

	props, ok := call.Body[0].(map[string]dbus.Variant)
	if !ok {
		return nil, errors.Errorf("could not convert output")
	}

	bss := Bss{}

	if val, ok := props["SSID"]; ok {
		if ssid, ok := val.Value().([]byte); ok {
			bss.Ssid = string(ssid)
		} else {
			return nil, errors.Errorf("could not convert SSID to string: %v", val)
		}
	} else {
		return nil, errors.Errorf("mandatory property SSID was missing")
	}

	if val, ok := props["BSSID"]; ok {
		if bssid, ok := val.Value().([]byte); ok {
			bss.Bssid = formatBssid(bssid)
		} else {
			return nil, errors.Errorf("could not convert BSSID to string: %v", val)
		}
	} else {
		return nil, errors.Errorf("mandatory property BSSID was missing")
	}

	if val, ok := props["Signal"]; ok {
		if signal, ok := val.Value().(int16); ok {
			bss.Signal = int(signal)
		}
	}

	if val, ok := props["Frequency"]; ok {
		if freq, ok := val.Value().(uint16); ok {
			bss.Frequency = int(freq)
		}
	}

	if val, ok := props["Privacy"]; ok {
		bss.Privacy, _ = val.Value().(bool)
	}

	bss.RsnKeyMgmt = keyMgmt(props["RSN"])
	bss.WpaKeyMgmt = keyMgmt(props["WPA"])

	return &bss, nil
}

func keyMgmt(v dbus.Variant) []string {
	dict, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return nil
	}

	km, ok := dict["KeyMgmt"]
	if !ok {
		return nil
	}

	suites, _ := km.Value().([]string)

	return suites
}

func formatBssid(b []byte) string {
	parts := make([]string, len(b))
	for i := range b {
		parts[i] = hex.EncodeToString(b[i : i+1])
	}

	return strings.Join(parts, ":")
}

// ParseBssid reverses the colon separated notation used for BSSIDs.
func ParseBssid(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.ReplaceAll(s, ":", ""))
	if err != nil || len(b) != 6 {
		return nil, errors.Errorf("invalid bssid %q", s)
	}

	return b, nil
}
