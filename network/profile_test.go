package network

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProfile(t *testing.T) {
	tests := []struct {
		name  string
		wifi  *Wifi
		field SsidField
		want  string
	}{{
		name:  "open",
		wifi:  &Wifi{Ssid: "cafe"},
		field: SsidFromSsid,
		want:  "network={\n\tssid=\"cafe\"\n\tscan_ssid=1\n\tkey_mgmt=NONE\n}\n",
	}, {
		name:  "psk",
		wifi:  &Wifi{Ssid: "home", Bssid: "00:11:22:33:44:55", Psk: "secret123"},
		field: SsidFromSsid,
		want: "network={\n\tssid=\"home\"\n\tscan_ssid=1\n\tproto=RSN WPA\n\tkey_mgmt=WPA-PSK\n" +
			"\tpairwise=CCMP TKIP\n\tgroup=CCMP TKIP\n\tpsk=\"secret123\"\n}\n",
	}, {
		name:  "psk from bssid",
		wifi:  &Wifi{Ssid: "home", Bssid: "00:11:22:33:44:55", Psk: "secret123"},
		field: SsidFromBssid,
		want: "network={\n\tssid=\"00:11:22:33:44:55\"\n\tscan_ssid=1\n\tproto=RSN WPA\n\tkey_mgmt=WPA-PSK\n" +
			"\tpairwise=CCMP TKIP\n\tgroup=CCMP TKIP\n\tpsk=\"secret123\"\n}\n",
	}, {
		name:  "wep",
		wifi:  &Wifi{Ssid: "old", WepKey0: "0123456789", WepKey1: "abcde", WepTxKeyIdx: 1, Priority: 3},
		field: SsidFromSsid,
		want: "network={\n\tssid=\"old\"\n\tscan_ssid=1\n\tkey_mgmt=NONE\n\twep_key0=0123456789\n" +
			"\twep_key1=\"abcde\"\n\twep_tx_keyidx=1\n\tpriority=3\n}\n",
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := RenderProfile(test.wifi, test.field)
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestRenderProfileRejects(t *testing.T) {
	_, err := RenderProfile(&Wifi{}, SsidFromSsid)
	assert.Error(t, err)

	_, err = RenderProfile(&Wifi{Ssid: "home"}, SsidFromBssid)
	assert.Error(t, err)

	_, err = RenderProfile(&Wifi{Ssid: "home", Psk: "a\"b"}, SsidFromSsid)
	assert.Error(t, err)

	_, err = RenderProfile(&Wifi{Ssid: "ho\nme"}, SsidFromSsid)
	assert.Error(t, err)
}

func TestParseProfilesRoundTrip(t *testing.T) {
	psk, err := RenderProfile(&Wifi{Ssid: "home", Psk: "secret123"}, SsidFromSsid)
	require.NoError(t, err)

	open, err := RenderProfile(&Wifi{Ssid: "cafe", Priority: 2}, SsidFromSsid)
	require.NoError(t, err)

	wifis := ParseProfiles("ctrl_interface=wlan0\n\n" + psk + open)
	require.Len(t, wifis, 2)

	assert.Equal(t, "home", wifis[0].Ssid)
	assert.Equal(t, "secret123", wifis[0].Psk)
	assert.Equal(t, []string{"WPA-PSK"}, wifis[0].Security)
	assert.True(t, wifis[0].Known)
	assert.True(t, wifis[0].Hidden)

	assert.Equal(t, "cafe", wifis[1].Ssid)
	assert.Equal(t, 2, wifis[1].Priority)
	assert.Empty(t, wifis[1].Security)
}

func TestRemoveProfileKeepsOthers(t *testing.T) {
	content := "ctrl_interface=wlan0\n" +
		"network={\n\tssid=\"home\"\n\tkey_mgmt=NONE\n}\n" +
		"network={\n\tssid=\"cafe\"\n\tkey_mgmt=NONE\n}\n"

	updated, removed := RemoveProfile(content, "home")
	assert.True(t, removed)
	assert.Equal(t, "ctrl_interface=wlan0\nnetwork={\n\tssid=\"cafe\"\n\tkey_mgmt=NONE\n}\n", updated)

	unchanged, removed := RemoveProfile(content, "missing")
	assert.False(t, removed)
	assert.Equal(t, content, unchanged)
}

func TestProfileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wpa_supplicant.conf")
	store := NewProfileStore(path, "")
	assert.Equal(t, path, store.Path())

	wifis, err := store.Profiles()
	require.NoError(t, err)
	assert.Empty(t, wifis)

	require.NoError(t, store.WriteProfile(&Wifi{Ssid: "home", Psk: "secret123"}))
	require.NoError(t, store.WriteProfile(&Wifi{Ssid: "cafe"}))

	// each write replaces the whole file
	wifis, err = store.Profiles()
	require.NoError(t, err)
	require.Len(t, wifis, 1)
	assert.Equal(t, "cafe", wifis[0].Ssid)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	removed, err := store.RemoveProfile("cafe")
	require.NoError(t, err)
	assert.True(t, removed)

	wifis, err = store.Profiles()
	require.NoError(t, err)
	assert.Empty(t, wifis)
}

func TestParseSsidField(t *testing.T) {
	f, err := ParseSsidField("bssid")
	require.NoError(t, err)
	assert.Equal(t, SsidFromBssid, f)

	_, err = ParseSsidField("name")
	assert.Error(t, err)
}
