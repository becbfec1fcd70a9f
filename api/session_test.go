package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-lightning-land/wifid/adapter"
	"github.com/the-lightning-land/wifid/certs"
	"github.com/the-lightning-land/wifid/client"
	"github.com/the-lightning-land/wifid/network"
	"github.com/the-lightning-land/wifid/protocol"
	"github.com/the-lightning-land/wifid/wifidb"
)

type okRunner struct{}

func (okRunner) Run(context.Context, string, ...string) error {
	return nil
}

// recordingRunner fails like a real process would once ctx is cancelled.
type recordingRunner struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingRunner) Run(ctx context.Context, name string, _ ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.names = append(r.names, name)

	return ctx.Err()
}

func (r *recordingRunner) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.names...)
}

func newTestServer(t *testing.T) (*httptest.Server, *adapter.Adapter) {
	return newTestServerWith(t, okRunner{}, time.Millisecond)
}

func newTestServerWith(t *testing.T, runner network.Runner, settle time.Duration) (*httptest.Server, *adapter.Adapter) {
	dir := t.TempDir()
	dhcp := &network.Dhcpcd{Runner: runner, Command: []string{"dhcpcd"}}
	profiles := network.NewProfileStore(filepath.Join(dir, "wpa_supplicant.conf"), network.SsidFromSsid)

	db, err := wifidb.Open(dir)
	require.NoError(t, err)

	a := adapter.New(&adapter.Config{
		Network:  network.NewMockNetwork(nil),
		Profiles: profiles,
		Pipeline: network.NewPipeline(&network.ActivationConfig{
			Profiles:    profiles,
			Services:    &network.ServiceControl{Runner: runner, StopCommand: []string{"stop"}, StartCommand: []string{"start"}},
			Dhcp:        dhcp,
			Service:     "wpa_supplicant",
			Interface:   "wlan0",
			SettleDelay: settle,
		}),
		Link:  &network.Link{Runner: runner, Interface: "wlan0", Ip: "ip", Iw: "iw", Dhcp: dhcp},
		Certs: certs.New(&certs.Config{Store: db}),
	})

	registry := prometheus.NewRegistry()

	server := httptest.NewServer(New(&Config{
		Adapter:    a,
		Registerer: registry,
		Gatherer:   registry,
	}))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return server, a
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + WifiManagerPath
}

func waitFor(t *testing.T, ch <-chan string) string {
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out")
		return ""
	}
}

func TestSessionEndToEnd(t *testing.T) {
	server, _ := newTestServer(t)

	events := make(chan string, 32)
	statuses := make(chan string, 32)

	conn, err := client.Dial(context.Background(), wsURL(server), &client.Config{
		Notifications: client.NotificationHandlers{
			OnStatusChange: func(status string, wifi *network.Wifi) {
				statuses <- status
			},
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() {
		runDone <- conn.Run(ctx)
	}()

	fail := func(name string) client.ErrorFunc {
		return func(err error) { events <- name + ":" + err.Error() }
	}

	// three pipelined commands resolve in send order
	require.NoError(t, conn.Associate(&network.Wifi{Ssid: "home", Psk: "secret123"}, func(ok bool) {
		events <- "associate"
	}, fail("associate")))
	require.NoError(t, conn.GetKnownNetworks(func(networks map[string]*network.Wifi) {
		events <- "known:" + networks["home"].Ssid
	}, fail("known")))
	require.NoError(t, conn.SetHttpProxy(&network.Wifi{Ssid: "home"}, nil, func() {
		events <- "proxy"
	}, fail("proxy")))

	assert.Equal(t, "associate", waitFor(t, events))
	assert.Equal(t, "known:home", waitFor(t, events))
	assert.Equal(t, "proxy:setHttpProxy failed: Not implemented", waitFor(t, events))

	assert.Equal(t, "connecting", waitFor(t, statuses))
	assert.Equal(t, "associated", waitFor(t, statuses))
	assert.Equal(t, "connected", waitFor(t, statuses))

	require.NoError(t, conn.DeleteCert("missing", func() {
		events <- "deleted"
	}, fail("delete")))
	assert.Equal(t, "delete:deleteCert failed: Unknown nickname", waitFor(t, events))
	assert.Equal(t, 0, conn.Pending())

	cancel()
	require.NoError(t, <-runDone)
}

func TestAssociateCompletesAfterDisconnect(t *testing.T) {
	runner := &recordingRunner{}
	server, _ := newTestServerWith(t, runner, 300*time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.NoError(t, err)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"class":"command","body":{"id":1,"type":"associate","network":{"ssid":"home","psk":"secret123"}}}`)))

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, ws.Close())

	assert.Eventually(t, func() bool {
		return len(runner.Names()) == 3
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"stop", "start", "dhcpcd"}, runner.Names())
}

func TestSessionAnswersUnknownCommands(t *testing.T) {
	server, _ := newTestServer(t)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"class":"command","body":{"id":1,"type":"reboot"}}`)))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"class":"command","body":{"id":2,"type":"getImportedCerts"}}`)))

	var frames []string
	for len(frames) < 2 {
		_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)

		frame, err := protocol.Decode(data)
		require.NoError(t, err)

		if frame.Class == protocol.ClassReply {
			frames = append(frames, string(frame.Body))
		}
	}

	assert.JSONEq(t, `{"id":1,"type":"reboot","error":"Unknown command type"}`, frames[0])
	assert.JSONEq(t, `{"id":2,"type":"getImportedCerts","result":{}}`, frames[1])
}

func TestStatusAndMetricsRoutes(t *testing.T) {
	server, _ := newTestServer(t)

	res, err := http.Get(server.URL + "/api/v1/status")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
