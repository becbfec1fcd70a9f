package network

import (
	"context"
	"strconv"
)

// Wifi describes a wireless network as seen by a scan, as stored in the
// adapter configuration file, or as handed in by a caller to connect to it.
// It is an input parameter only; nothing retains it beyond one operation.
type Wifi struct {
	Ssid              string   `json:"ssid"`
	Mode              int      `json:"mode,omitempty"`
	Frequency         int      `json:"frequency,omitempty"`
	Security          []string `json:"security,omitempty"`
	Capabilities      []string `json:"capabilities,omitempty"`
	Known             bool     `json:"known"`
	Connected         bool     `json:"connected"`
	Hidden            bool     `json:"hidden"`
	Bssid             string   `json:"bssid,omitempty"`
	SignalStrength    string   `json:"signalStrength,omitempty"`
	RelSignalStrength int      `json:"relSignalStrength,omitempty"`

	Psk               string `json:"psk,omitempty"`
	Wep               string `json:"wep,omitempty"`
	WepKey0           string `json:"wep_key0,omitempty"`
	WepKey1           string `json:"wep_key1,omitempty"`
	WepKey2           string `json:"wep_key2,omitempty"`
	WepKey3           string `json:"wep_key3,omitempty"`
	WepTxKeyIdx       int    `json:"wep_tx_keyidx,omitempty"`
	Priority          int    `json:"priority,omitempty"`
	ScanSsid          int    `json:"scan_ssid,omitempty"`
	KeyManagement     string `json:"keyManagement,omitempty"`
	Identity          string `json:"identity,omitempty"`
	Phase1            string `json:"phase1,omitempty"`
	Phase2            string `json:"phase2,omitempty"`
	Eap               string `json:"eap,omitempty"`
	Pin               string `json:"pin,omitempty"`
	DontConnect       bool   `json:"dontConnect,omitempty"`
	ServerCertificate string `json:"serverCertificate,omitempty"`
	SubjectMatch      string `json:"subjectMatch,omitempty"`
	UserCertificate   string `json:"userCertificate,omitempty"`

	IpConfig  *IpConfig  `json:"ipConfig,omitempty"`
	HttpProxy *ProxyInfo `json:"httpProxy,omitempty"`
}

// WpsMethod selects how Wi-Fi Protected Setup is driven.
type WpsMethod = string

const (
	WpsPbc    WpsMethod = "pbc"
	WpsPin    WpsMethod = "pin"
	WpsCancel WpsMethod = "cancel"
)

type WpsInfo struct {
	Method WpsMethod `json:"method"`
	Pin    string    `json:"pin,omitempty"`
	Bssid  string    `json:"bssid,omitempty"`
}

// IpConfig switches a network between DHCP and a static address.
type IpConfig struct {
	Enabled    bool   `json:"enabled"`
	IpAddr     string `json:"ipaddr,omitempty"`
	Proxy      string `json:"proxy,omitempty"`
	MaskLength int    `json:"maskLength,omitempty"`
	Gateway    string `json:"gateway,omitempty"`
	Dns1       string `json:"dns1,omitempty"`
	Dns2       string `json:"dns2,omitempty"`
}

// ProxyInfo configures an http proxy for a network.
type ProxyInfo struct {
	Host string `json:"httpProxyHost"`
	Port int    `json:"httpProxyPort"`
}

type ConnectionInfo struct {
	SignalStrength    int    `json:"signalStrength"`
	RelSignalStrength int    `json:"relSignalStrength"`
	LinkSpeed         int    `json:"linkSpeed"`
	IpAddress         string `json:"ipAddress,omitempty"`
}

type StationInfo struct {
	Station int `json:"station"`
}

// Network is the link-negotiation backend of one wireless interface.
type Network interface {
	Start() error
	Stop() error
	Scan(ctx context.Context) ([]*Wifi, error)
	Forget(ssid string) error
	StartWps(info *WpsInfo) error
	CancelWps() error
	ConnectionInfo() (*ConnectionInfo, error)
	Stations() (int, error)
}

// RelativeSignalStrength maps an RSSI in dBm onto 0..100.
func RelativeSignalStrength(rssi int) int {
	switch {
	case rssi <= -100:
		return 0
	case rssi >= -55:
		return 100
	default:
		return (rssi + 100) * 100 / 45
	}
}

func formatSignal(rssi int) string {
	return strconv.Itoa(rssi) + " dBm"
}
