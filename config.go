package main

import (
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/the-lightning-land/wifid/network"
)

const (
	defaultListen       = ":8080"
	defaultDataDir      = "/data/misc/wifid"
	defaultNet          = "wpa"
	defaultInterface    = "wlan0"
	defaultWpaConfig    = "/data/misc/wifi/wpa_supplicant.conf"
	defaultService      = "wpa_supplicant"
	defaultServiceStop  = "/system/bin/stop"
	defaultServiceStart = "/system/bin/start"
	defaultDhcp         = "/system/bin/dhcpcd -p"
)

type config struct {
	ConfigFile  string `long:"configfile" description:"Path to an INI configuration file"`
	ShowVersion bool   `long:"version" description:"Display version information and exit"`
	Debug       bool   `long:"debug" description:"Start in debug mode"`
	Profiling   string `long:"profiling" description:"Listen address of the profiling server, disabled if empty"`

	Listen  string `long:"listen" description:"Address the control server listens on"`
	WebRoot string `long:"webroot" description:"Directory of static files served next to the control endpoint"`
	DataDir string `long:"datadir" description:"Directory of the certificate database"`
	Net     string `long:"net" description:"Network backend" choice:"wpa" choice:"mock"`

	Interface    string        `long:"interface" description:"Wireless interface"`
	WpaConfig    string        `long:"wpaconfig" description:"wpa_supplicant configuration file rewritten on associate"`
	Service      string        `long:"service" description:"Name of the supplicant service"`
	ServiceStop  string        `long:"servicestop" description:"Command stopping a service, the service name is appended"`
	ServiceStart string        `long:"servicestart" description:"Command starting a service, the service name is appended"`
	Dhcp         string        `long:"dhcp" description:"DHCP client command, the interface is appended"`
	Ip           string        `long:"ip" description:"Path of the ip tool"`
	Iw           string        `long:"iw" description:"Path of the iw tool"`
	ResolvConf   string        `long:"resolvconf" description:"Resolver file written for static DNS servers, skipped if empty"`
	Settle       time.Duration `long:"settle" description:"Wait after stopping and after starting the supplicant"`
	ScanTimeout  time.Duration `long:"scantimeout" description:"Longest wait for a scan to finish"`
	PollInterval time.Duration `long:"pollinterval" description:"Interval of connection info updates"`
	SsidField    string        `long:"ssidfield" description:"Network field rendered as ssid into the supplicant configuration" choice:"ssid" choice:"bssid"`
}

// loadConfig reads defaults, then the optional config file, then the
// command line, each overriding the previous one.
func loadConfig() (*config, error) {
	defaultCfg := config{
		Listen:       defaultListen,
		DataDir:      defaultDataDir,
		Net:          defaultNet,
		Interface:    defaultInterface,
		WpaConfig:    defaultWpaConfig,
		Service:      defaultService,
		ServiceStop:  defaultServiceStop,
		ServiceStart: defaultServiceStart,
		Dhcp:         defaultDhcp,
		Ip:           "ip",
		Iw:           "iw",
		Settle:       network.DefaultSettleDelay,
		ScanTimeout:  network.DefaultScanTimeout,
		PollInterval: 5 * time.Second,
		SsidField:    string(network.SsidFromSsid),
	}

	preCfg := defaultCfg
	if _, err := flags.Parse(&preCfg); err != nil {
		return nil, err
	}

	cfg := defaultCfg

	if preCfg.ConfigFile != "" {
		err := flags.NewIniParser(flags.NewParser(&cfg, flags.Default)).ParseFile(preCfg.ConfigFile)
		if err != nil {
			if _, ok := err.(*os.PathError); !ok {
				return nil, errors.Errorf("could not parse %v: %v", preCfg.ConfigFile, err)
			}
		}
	}

	if _, err := flags.Parse(&cfg); err != nil {
		return nil, err
	}

	for name, command := range map[string]string{
		"servicestop":  cfg.ServiceStop,
		"servicestart": cfg.ServiceStart,
		"dhcp":         cfg.Dhcp,
	} {
		if len(strings.Fields(command)) == 0 {
			return nil, errors.Errorf("--%v must not be empty", name)
		}
	}

	return &cfg, nil
}
