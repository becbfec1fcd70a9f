package adapter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-lightning-land/wifid/certs"
	"github.com/the-lightning-land/wifid/connectivity"
	"github.com/the-lightning-land/wifid/network"
	"github.com/the-lightning-land/wifid/protocol"
	"github.com/the-lightning-land/wifid/wifidb"
)

type fakeRunner struct {
	mu       sync.Mutex
	commands []string
	fail     string
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	command := strings.Join(append([]string{name}, args...), " ")
	r.commands = append(r.commands, command)

	if r.fail != "" && strings.HasPrefix(command, r.fail) {
		return fmt.Errorf("%v exited with code 1", name)
	}

	return nil
}

func (r *fakeRunner) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.commands...)
}

type fixture struct {
	adapter *Adapter
	network *network.MockNetwork
	runner  *fakeRunner
	clock   *testclock.Clock
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	runner := &fakeRunner{}
	dhcp := &network.Dhcpcd{Runner: runner, Command: []string{"dhcpcd", "-p"}}
	profiles := network.NewProfileStore(filepath.Join(dir, "wpa_supplicant.conf"), network.SsidFromSsid)

	db, err := wifidb.Open(dir)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	mock := network.NewMockNetwork(nil)
	clk := testclock.NewClock(time.Now())

	a := New(&Config{
		Network:  mock,
		Profiles: profiles,
		Pipeline: network.NewPipeline(&network.ActivationConfig{
			Profiles:    profiles,
			Services:    &network.ServiceControl{Runner: runner, StopCommand: []string{"stop"}, StartCommand: []string{"start"}},
			Dhcp:        dhcp,
			Service:     "wpa_supplicant",
			Interface:   "wlan0",
			SettleDelay: time.Millisecond,
		}),
		Link: &network.Link{
			Runner:    runner,
			Interface: "wlan0",
			Ip:        "ip",
			Iw:        "iw",
			Dhcp:      dhcp,
		},
		Certs: certs.New(&certs.Config{Store: db}),
		Clock: clk,
	})

	return &fixture{
		adapter: a,
		network: mock,
		runner:  runner,
		clock:   clk,
	}
}

func drain(client *Client) []*protocol.Notification {
	var notifications []*protocol.Notification

	for {
		select {
		case n := <-client.Notifications:
			notifications = append(notifications, n)
		default:
			return notifications
		}
	}
}

func statuses(notifications []*protocol.Notification) []string {
	var s []string

	for _, n := range notifications {
		if n.Kind == protocol.StatusChange {
			s = append(s, n.Connection.Status)
		}
	}

	return s
}

func TestAssociate(t *testing.T) {
	f := newFixture(t)
	client := f.adapter.Subscribe()
	defer client.Cancel()

	ctx := context.Background()

	err := f.adapter.Associate(ctx, &network.Wifi{Ssid: "home", Psk: "secret123"})
	require.NoError(t, err)

	assert.Equal(t, []string{"stop wpa_supplicant", "start wpa_supplicant", "dhcpcd -p wlan0"}, f.runner.Commands())

	notifications := drain(client)
	assert.Equal(t, []string{"connecting", "associated", "connected"}, statuses(notifications))

	for _, n := range notifications {
		assert.Empty(t, n.Connection.Network.Psk)
	}

	assert.Equal(t, connectivity.Connected, f.adapter.Status().CurrentState())

	known, err := f.adapter.KnownNetworks(ctx)
	require.NoError(t, err)
	require.Contains(t, known, "home")
	assert.True(t, known["home"].Known)
	assert.Empty(t, known["home"].Psk)

	networks, err := f.adapter.Networks(ctx)
	require.NoError(t, err)
	require.Len(t, networks, 2)
	assert.True(t, networks["home"].Known)
	assert.True(t, networks["home"].Connected)
	assert.False(t, networks["cafe"].Known)
}

func TestAssociateFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.fail = "start"

	client := f.adapter.Subscribe()
	defer client.Cancel()

	err := f.adapter.Associate(context.Background(), &network.Wifi{Ssid: "home", Psk: "secret123"})
	require.Error(t, err)
	assert.Equal(t, "start error", protocol.PublicMessage(err, protocol.FailureInternal))

	// no rollback: the dhcp step never ran
	assert.Equal(t, []string{"stop wpa_supplicant", "start wpa_supplicant"}, f.runner.Commands())
	assert.Equal(t, []string{"connecting", "disconnected"}, statuses(drain(client)))
}

func TestForget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.adapter.Associate(ctx, &network.Wifi{Ssid: "home", Psk: "secret123"}))
	require.NoError(t, f.adapter.Forget(ctx, &network.Wifi{Ssid: "home"}))

	known, err := f.adapter.KnownNetworks(ctx)
	require.NoError(t, err)
	assert.Empty(t, known)
	assert.Equal(t, []string{"home"}, f.network.Forgotten())
	assert.Equal(t, connectivity.Disconnected, f.adapter.Status().CurrentState())

	err = f.adapter.Forget(ctx, &network.Wifi{})
	assert.Equal(t, "Invalid argument", protocol.PublicMessage(err, protocol.FailureInternal))
}

func TestWps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.adapter.Wps(ctx, &network.WpsInfo{Method: network.WpsPin, Pin: "12345670"}))
	assert.Equal(t, "12345670", f.network.Wps().Pin)

	require.NoError(t, f.adapter.Wps(ctx, &network.WpsInfo{Method: network.WpsCancel}))
	assert.Nil(t, f.network.Wps())

	err := f.adapter.Wps(ctx, &network.WpsInfo{Method: "push"})
	assert.Equal(t, "Invalid WPS method", protocol.PublicMessage(err, protocol.FailureInternal))

	err = f.adapter.Wps(ctx, nil)
	assert.Equal(t, "Invalid WPS method", protocol.PublicMessage(err, protocol.FailureInternal))
}

func TestSetWifiEnabled(t *testing.T) {
	f := newFixture(t)
	client := f.adapter.Subscribe()
	defer client.Cancel()

	ctx := context.Background()

	require.NoError(t, f.adapter.SetWifiEnabled(ctx, false))
	assert.False(t, f.adapter.Enabled())

	require.NoError(t, f.adapter.SetWifiEnabled(ctx, true))
	assert.True(t, f.adapter.Enabled())

	var kinds []protocol.NotificationKind
	for _, n := range drain(client) {
		kinds = append(kinds, n.Kind)
	}

	assert.Equal(t, []protocol.NotificationKind{protocol.Disabled, protocol.Enabled}, kinds)
	assert.Equal(t, []string{"ip link set wlan0 down", "ip link set wlan0 up"}, f.runner.Commands())

	f.runner.fail = "ip"
	err := f.adapter.SetWifiEnabled(ctx, false)
	assert.Equal(t, "enable error", protocol.PublicMessage(err, protocol.FailureInternal))
	assert.True(t, f.adapter.Enabled())
}

func TestLinkSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.adapter.SetPowerSavingMode(ctx, false))
	require.NoError(t, f.adapter.SetStaticIpMode(ctx, &network.Wifi{Ssid: "home"}, &network.IpConfig{Enabled: false}))

	assert.Equal(t, []string{"iw dev wlan0 set power_save off", "dhcpcd -p wlan0"}, f.runner.Commands())

	err := f.adapter.SetStaticIpMode(ctx, &network.Wifi{Ssid: "home"}, &network.IpConfig{Enabled: true})
	assert.Equal(t, "static IP error", protocol.PublicMessage(err, protocol.FailureInternal))

	f.runner.fail = "iw"
	err = f.adapter.SetPowerSavingMode(ctx, true)
	assert.Equal(t, "power saving error", protocol.PublicMessage(err, protocol.FailureInternal))
}

func TestSetHttpProxy(t *testing.T) {
	f := newFixture(t)

	info := &network.ProxyInfo{Host: "proxy"}
	err := f.adapter.SetHttpProxy(context.Background(), &network.Wifi{Ssid: "home"}, info)
	assert.Equal(t, "Not implemented", protocol.PublicMessage(err, protocol.FailureInternal))
	assert.Equal(t, &network.ProxyInfo{Host: "proxy"}, info)

	err = f.adapter.SetHttpProxy(context.Background(), &network.Wifi{Ssid: "home"}, nil)
	assert.Equal(t, "Not implemented", protocol.PublicMessage(err, protocol.FailureInternal))

	for _, bad := range []*network.ProxyInfo{{Port: 3128}, {Host: "proxy", Port: 70000}} {
		err = f.adapter.SetHttpProxy(context.Background(), &network.Wifi{Ssid: "home"}, bad)
		assert.Equal(t, "Invalid argument", protocol.PublicMessage(err, protocol.FailureInternal))
	}
}

func TestScanFailure(t *testing.T) {
	f := newFixture(t)
	f.network.ScanErr = fmt.Errorf("dbus: timeout")

	_, err := f.adapter.Networks(context.Background())
	assert.Equal(t, "scan error", protocol.PublicMessage(err, protocol.FailureInternal))
}

func TestCertOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.adapter.ImportCert(ctx, []byte("garbage"), "", "ca")
	assert.Equal(t, "Invalid certificate", protocol.PublicMessage(err, protocol.FailureInternal))

	index, err := f.adapter.ImportedCerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, index)

	err = f.adapter.DeleteCert(ctx, "ca")
	assert.Equal(t, "Unknown nickname", protocol.PublicMessage(err, protocol.FailureInternal))
}

func TestMonitorPolls(t *testing.T) {
	f := newFixture(t)
	f.network.SetStations(2)

	client := f.adapter.Subscribe()
	defer client.Cancel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.adapter.Run(ctx)
	}()

	require.NoError(t, f.clock.WaitAdvance(DefaultPollInterval, 5*time.Second, 1))

	info := <-client.Notifications
	assert.Equal(t, protocol.ConnectionInfoUpdate, info.Kind)
	assert.Equal(t, 72, info.Info.LinkSpeed)

	station := <-client.Notifications
	assert.Equal(t, protocol.StationInfoUpdate, station.Kind)
	assert.Equal(t, 2, station.Station.Station)

	cancel()
	require.NoError(t, <-done)
}

func TestMonitorSkipsWhileDisabled(t *testing.T) {
	f := newFixture(t)
	client := f.adapter.Subscribe()
	defer client.Cancel()

	require.NoError(t, f.adapter.SetWifiEnabled(context.Background(), false))
	drain(client)

	f.adapter.poll()
	assert.Empty(t, drain(client))
}

func TestNotifyNeverBlocks(t *testing.T) {
	f := newFixture(t)
	client := f.adapter.Subscribe()

	for i := 0; i < notificationBuffer*2; i++ {
		f.adapter.notify(&protocol.Notification{Kind: protocol.Enabled})
	}

	assert.Len(t, client.Notifications, notificationBuffer)

	client.Cancel()
	client.Cancel()
	assert.Equal(t, 0, f.adapter.subscribers())
}
