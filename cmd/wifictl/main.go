package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/the-lightning-land/wifid/client"
	"github.com/the-lightning-land/wifid/network"
	"github.com/the-lightning-land/wifid/protocol"
)

type options struct {
	Url     string        `long:"url" default:"ws://localhost:8080/WifiManager" description:"Control endpoint of wifid"`
	Timeout time.Duration `long:"timeout" default:"30s" description:"Longest wait for a reply"`
	Debug   bool          `long:"debug" description:"Log every frame"`
}

var opts options

// invoke dials wifid, issues one command through send and waits for its
// callback. The returned value is printed as JSON.
func invoke(send func(c *client.Conn, done func(interface{}), fail client.ErrorFunc) error) error {
	return session(client.NotificationHandlers{}, func(ctx context.Context, c *client.Conn) error {
		result := make(chan interface{}, 1)
		failure := make(chan error, 1)

		err := send(c, func(v interface{}) { result <- v }, func(err error) { failure <- err })
		if err != nil {
			return err
		}

		select {
		case v := <-result:
			return printJSON(v)
		case err := <-failure:
			return err
		case <-time.After(opts.Timeout):
			return errors.New("timed out waiting for a reply")
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func session(handlers client.NotificationHandlers, fn func(ctx context.Context, c *client.Conn) error) error {
	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	}

	ctx, cancel := signalContext()
	defer cancel()

	c, err := client.Dial(ctx, opts.Url, &client.Config{
		Notifications: handlers,
		Logger:        log.New().WithField("system", "client"),
	})
	if err != nil {
		return err
	}

	defer func() {
		_ = c.Close()
	}()

	go func() {
		err := c.Run(ctx)
		if err != nil {
			log.Errorf("Connection failed: %v", err)
		}
	}()

	return fn(ctx, c)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func printJSON(v interface{}) error {
	if v == nil {
		fmt.Println("ok")
		return nil
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not format result")
	}

	fmt.Println(string(out))

	return nil
}

type enableCommand struct {
	Args struct {
		State string `positional-arg-name:"on|off" required:"yes"`
	} `positional-args:"yes"`
}

func parseSwitch(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, errors.Errorf("expected on or off, got %q", s)
	}
}

func (cmd *enableCommand) Execute(_ []string) error {
	enable, err := parseSwitch(cmd.Args.State)
	if err != nil {
		return err
	}

	return invoke(func(c *client.Conn, done func(interface{}), fail client.ErrorFunc) error {
		return c.SetWifiEnabled(enable, func() { done(nil) }, fail)
	})
}

type scanCommand struct {
	Known bool `long:"known" description:"List configured networks instead of scanning"`
}

func (cmd *scanCommand) Execute(_ []string) error {
	return invoke(func(c *client.Conn, done func(interface{}), fail client.ErrorFunc) error {
		onSuccess := func(wifis map[string]*network.Wifi) { done(wifis) }

		if cmd.Known {
			return c.GetKnownNetworks(onSuccess, fail)
		}

		return c.GetNetworks(onSuccess, fail)
	})
}

// associateCommand connects with DHCP. Use staticip afterwards for a fixed
// address.
type associateCommand struct {
	Ssid string `long:"ssid" required:"yes" description:"Network name"`
	Psk  string `long:"psk" description:"Pre-shared key"`
}

func (cmd *associateCommand) Execute(_ []string) error {
	wifi := &network.Wifi{
		Ssid: cmd.Ssid,
		Psk:  cmd.Psk,
	}

	return invoke(func(c *client.Conn, done func(interface{}), fail client.ErrorFunc) error {
		return c.Associate(wifi, func(ok bool) { done(ok) }, fail)
	})
}

func splitCidr(s string) (string, int, error) {
	ip, ipNet, err := net.ParseCIDR(s)
	if err != nil || ip.To4() == nil {
		return "", 0, errors.Errorf("expected an IPv4 address as ip/masklength, got %q", s)
	}

	mask, _ := ipNet.Mask.Size()

	return ip.String(), mask, nil
}

type forgetCommand struct {
	Ssid string `long:"ssid" required:"yes" description:"Network name"`
}

func (cmd *forgetCommand) Execute(_ []string) error {
	return invoke(func(c *client.Conn, done func(interface{}), fail client.ErrorFunc) error {
		return c.Forget(&network.Wifi{Ssid: cmd.Ssid}, func() { done(nil) }, fail)
	})
}

type wpsCommand struct {
	Method string `long:"method" default:"pbc" choice:"pbc" choice:"pin" choice:"cancel" description:"WPS method"`
	Pin    string `long:"pin" description:"Enrollee pin"`
	Bssid  string `long:"bssid" description:"Access point to enroll with"`
}

func (cmd *wpsCommand) Execute(_ []string) error {
	detail := &network.WpsInfo{
		Method: cmd.Method,
		Pin:    cmd.Pin,
		Bssid:  cmd.Bssid,
	}

	return invoke(func(c *client.Conn, done func(interface{}), fail client.ErrorFunc) error {
		return c.Wps(detail, func() { done(nil) }, fail)
	})
}

type powerSaveCommand struct {
	Args struct {
		State string `positional-arg-name:"on|off" required:"yes"`
	} `positional-args:"yes"`
}

func (cmd *powerSaveCommand) Execute(_ []string) error {
	enable, err := parseSwitch(cmd.Args.State)
	if err != nil {
		return err
	}

	return invoke(func(c *client.Conn, done func(interface{}), fail client.ErrorFunc) error {
		return c.SetPowerSavingMode(enable, func() { done(nil) }, fail)
	})
}

type staticIpCommand struct {
	Ssid    string   `long:"ssid" required:"yes" description:"Network name"`
	Address string   `long:"address" description:"Address as ip/masklength, DHCP if empty"`
	Gateway string   `long:"gateway" description:"Default gateway"`
	Dns     []string `long:"dns" description:"DNS server, may be given twice"`
}

func (cmd *staticIpCommand) Execute(_ []string) error {
	info := &network.IpConfig{
		Enabled: cmd.Address != "",
		Gateway: cmd.Gateway,
	}

	if info.Enabled {
		ip, mask, err := splitCidr(cmd.Address)
		if err != nil {
			return err
		}

		info.IpAddr = ip
		info.MaskLength = mask
	}

	if len(cmd.Dns) > 0 {
		info.Dns1 = cmd.Dns[0]
	}

	if len(cmd.Dns) > 1 {
		info.Dns2 = cmd.Dns[1]
	}

	return invoke(func(c *client.Conn, done func(interface{}), fail client.ErrorFunc) error {
		return c.SetStaticIpMode(&network.Wifi{Ssid: cmd.Ssid}, info, func() { done(nil) }, fail)
	})
}

type importCertCommand struct {
	Password string `long:"password" description:"Password of a PKCS#12 bundle"`
	Nickname string `long:"nickname" required:"yes" description:"Name the certificate is referenced by"`
	Args     struct {
		File string `positional-arg-name:"file" required:"yes"`
	} `positional-args:"yes"`
}

func (cmd *importCertCommand) Execute(_ []string) error {
	blob, err := os.ReadFile(cmd.Args.File)
	if err != nil {
		return errors.Wrapf(err, "could not read %v", cmd.Args.File)
	}

	return invoke(func(c *client.Conn, done func(interface{}), fail client.ErrorFunc) error {
		return c.ImportCert(blob, cmd.Password, cmd.Nickname, func(info *protocol.CertInfo) { done(info) }, fail)
	})
}

type certsCommand struct{}

func (cmd *certsCommand) Execute(_ []string) error {
	return invoke(func(c *client.Conn, done func(interface{}), fail client.ErrorFunc) error {
		return c.GetImportedCerts(func(certs map[string][]string) { done(certs) }, fail)
	})
}

type deleteCertCommand struct {
	Args struct {
		Nickname string `positional-arg-name:"nickname" required:"yes"`
	} `positional-args:"yes"`
}

func (cmd *deleteCertCommand) Execute(_ []string) error {
	return invoke(func(c *client.Conn, done func(interface{}), fail client.ErrorFunc) error {
		return c.DeleteCert(cmd.Args.Nickname, func() { done(nil) }, fail)
	})
}

// watchCommand prints notifications until interrupted.
type watchCommand struct{}

func (cmd *watchCommand) Execute(_ []string) error {
	handlers := client.NotificationHandlers{
		OnStatusChange: func(status string, wifi *network.Wifi) {
			if wifi != nil {
				fmt.Printf("status %v (%v)\n", status, wifi.Ssid)
			} else {
				fmt.Printf("status %v\n", status)
			}
		},
		OnConnectionInfoUpdate: func(info *network.ConnectionInfo) {
			fmt.Printf("signal %d dBm (%d%%), %d Mbps, %v\n",
				info.SignalStrength, info.RelSignalStrength, info.LinkSpeed, info.IpAddress)
		},
		OnEnabled: func() {
			fmt.Println("enabled")
		},
		OnDisabled: func() {
			fmt.Println("disabled")
		},
		OnStationInfoUpdate: func(info *network.StationInfo) {
			fmt.Printf("stations %d\n", info.Station)
		},
	}

	return session(handlers, func(ctx context.Context, c *client.Conn) error {
		<-ctx.Done()
		return nil
	})
}

func newParser(options flags.Options) (*flags.Parser, error) {
	parser := flags.NewParser(&opts, options)

	commands := []struct {
		name  string
		short string
		data  interface{}
	}{
		{"enable", "Switch wifi on or off", &enableCommand{}},
		{"scan", "List networks in range", &scanCommand{}},
		{"associate", "Connect to a network", &associateCommand{}},
		{"forget", "Remove a configured network", &forgetCommand{}},
		{"wps", "Run or cancel Wi-Fi Protected Setup", &wpsCommand{}},
		{"powersave", "Switch power saving on or off", &powerSaveCommand{}},
		{"staticip", "Configure a static address for a network", &staticIpCommand{}},
		{"importcert", "Import a certificate", &importCertCommand{}},
		{"certs", "List imported certificates", &certsCommand{}},
		{"deletecert", "Delete an imported certificate", &deleteCertCommand{}},
		{"watch", "Print notifications until interrupted", &watchCommand{}},
	}

	for _, cmd := range commands {
		_, err := parser.AddCommand(cmd.name, cmd.short, "", cmd.data)
		if err != nil {
			return nil, errors.Errorf("could not add command %v: %v", cmd.name, err)
		}
	}

	return parser, nil
}

func main() {
	parser, err := newParser(flags.Default)
	if err != nil {
		log.Fatal(err)
	}

	if _, err := parser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return
		}

		os.Exit(1)
	}
}
