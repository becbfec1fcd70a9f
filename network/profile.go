package network

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-errors/errors"
)

// SsidField selects the record field rendered into a profile's ssid= line.
type SsidField string

const (
	SsidFromSsid SsidField = "ssid"

	// SsidFromBssid reproduces older firmware, which rendered the bssid
	// field into the ssid= line.
	SsidFromBssid SsidField = "bssid"
)

func ParseSsidField(s string) (SsidField, error) {
	switch SsidField(s) {
	case SsidFromSsid, SsidFromBssid:
		return SsidField(s), nil
	default:
		return "", errors.Errorf("unknown ssid field %q", s)
	}
}

// RenderProfile renders a single network={} block for wpa_supplicant.
func RenderProfile(wifi *Wifi, field SsidField) (string, error) {
	ssid := wifi.Ssid
	if field == SsidFromBssid {
		ssid = wifi.Bssid
	}

	if ssid == "" {
		return "", errors.New("missing ssid")
	}

	for _, v := range []string{ssid, wifi.Psk, wifi.WepKey0, wifi.WepKey1, wifi.WepKey2, wifi.WepKey3} {
		if strings.ContainsAny(v, "\"\n\r") {
			return "", errors.New("profile value contains forbidden characters")
		}
	}

	var b strings.Builder

	b.WriteString("network={\n")
	fmt.Fprintf(&b, "\tssid=\"%s\"\n", ssid)
	b.WriteString("\tscan_ssid=1\n")

	switch {
	case wifi.Psk != "":
		b.WriteString("\tproto=RSN WPA\n")
		b.WriteString("\tkey_mgmt=WPA-PSK\n")
		b.WriteString("\tpairwise=CCMP TKIP\n")
		b.WriteString("\tgroup=CCMP TKIP\n")
		fmt.Fprintf(&b, "\tpsk=\"%s\"\n", wifi.Psk)
	case wifi.WepKey0 != "" || wifi.WepKey1 != "" || wifi.WepKey2 != "" || wifi.WepKey3 != "":
		b.WriteString("\tkey_mgmt=NONE\n")
		for i, key := range []string{wifi.WepKey0, wifi.WepKey1, wifi.WepKey2, wifi.WepKey3} {
			if key != "" {
				fmt.Fprintf(&b, "\twep_key%d=%s\n", i, wepKeyValue(key))
			}
		}
		fmt.Fprintf(&b, "\twep_tx_keyidx=%d\n", wifi.WepTxKeyIdx)
	default:
		b.WriteString("\tkey_mgmt=NONE\n")
	}

	if wifi.Priority > 0 {
		fmt.Fprintf(&b, "\tpriority=%d\n", wifi.Priority)
	}

	b.WriteString("}\n")

	return b.String(), nil
}

// wep keys of 10 or 26 hex digits are written bare, everything else as an
// ascii passphrase.
func wepKeyValue(key string) string {
	if (len(key) == 10 || len(key) == 26) && isHex(key) {
		return key
	}

	return strconv.Quote(key)
}

func isHex(s string) bool {
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}

	return true
}

// profileBlock is one network={} block together with its raw text.
type profileBlock struct {
	raw    string
	fields map[string]string
}

// segment is either a block or a run of text outside any block.
type segment struct {
	text  string
	block *profileBlock
}

func parseSegments(content string) []segment {
	var segments []segment
	var current *profileBlock
	var raw strings.Builder
	var outside strings.Builder

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if current == nil {
			if strings.HasPrefix(trimmed, "network={") {
				if outside.Len() > 0 {
					segments = append(segments, segment{text: outside.String()})
					outside.Reset()
				}

				current = &profileBlock{fields: make(map[string]string)}
				raw.Reset()
				raw.WriteString(line + "\n")
				continue
			}

			outside.WriteString(line + "\n")
			continue
		}

		raw.WriteString(line + "\n")

		if trimmed == "}" {
			current.raw = raw.String()
			segments = append(segments, segment{block: current})
			current = nil
			continue
		}

		if key, value, ok := strings.Cut(trimmed, "="); ok {
			current.fields[strings.TrimSpace(key)] = unquote(strings.TrimSpace(value))
		}
	}

	// an unterminated block is kept verbatim
	if current != nil {
		outside.WriteString(raw.String())
	}

	if outside.Len() > 0 {
		segments = append(segments, segment{text: outside.String()})
	}

	return segments
}

func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}

	return v
}

func (b *profileBlock) wifi() *Wifi {
	f := b.fields

	wifi := &Wifi{
		Ssid:          f["ssid"],
		Known:         true,
		Psk:           f["psk"],
		KeyManagement: f["key_mgmt"],
		WepKey0:       f["wep_key0"],
		WepKey1:       f["wep_key1"],
		WepKey2:       f["wep_key2"],
		WepKey3:       f["wep_key3"],
	}

	wifi.ScanSsid, _ = strconv.Atoi(f["scan_ssid"])
	wifi.Priority, _ = strconv.Atoi(f["priority"])
	wifi.WepTxKeyIdx, _ = strconv.Atoi(f["wep_tx_keyidx"])
	wifi.Hidden = wifi.ScanSsid == 1

	switch {
	case strings.Contains(wifi.KeyManagement, "WPA-PSK"):
		wifi.Security = []string{"WPA-PSK"}
	case strings.Contains(wifi.KeyManagement, "WPA-EAP"):
		wifi.Security = []string{"WPA-EAP"}
	case wifi.WepKey0 != "" || wifi.WepKey1 != "" || wifi.WepKey2 != "" || wifi.WepKey3 != "":
		wifi.Security = []string{"WEP"}
	}

	return wifi
}

// ParseProfiles reads all network={} blocks of a wpa_supplicant configuration.
func ParseProfiles(content string) []*Wifi {
	var wifis []*Wifi

	for _, s := range parseSegments(content) {
		if s.block != nil {
			wifis = append(wifis, s.block.wifi())
		}
	}

	return wifis
}

// RemoveProfile drops every block whose ssid matches and reports whether
// anything was removed.
func RemoveProfile(content string, ssid string) (string, bool) {
	var b strings.Builder
	removed := false

	for _, s := range parseSegments(content) {
		if s.block == nil {
			b.WriteString(s.text)
			continue
		}

		if s.block.fields["ssid"] == ssid {
			removed = true
			continue
		}

		b.WriteString(s.block.raw)
	}

	return b.String(), removed
}

// ProfileStore is the adapter configuration file. Each WriteProfile
// replaces its whole content.
type ProfileStore struct {
	path  string
	field SsidField
}

func NewProfileStore(path string, field SsidField) *ProfileStore {
	if field == "" {
		field = SsidFromSsid
	}

	return &ProfileStore{
		path:  path,
		field: field,
	}
}

func (s *ProfileStore) Path() string {
	return s.path
}

func (s *ProfileStore) WriteProfile(wifi *Wifi) error {
	profile, err := RenderProfile(wifi, s.field)
	if err != nil {
		return errors.Errorf("could not render profile: %v", err)
	}

	err = os.WriteFile(s.path, []byte(profile), 0600)
	if err != nil {
		return errors.Errorf("could not write %v: %v", s.path, err)
	}

	return nil
}

func (s *ProfileStore) Profiles() ([]*Wifi, error) {
	content, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Errorf("could not read %v: %v", s.path, err)
	}

	return ParseProfiles(string(content)), nil
}

func (s *ProfileStore) RemoveProfile(ssid string) (bool, error) {
	content, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, errors.Errorf("could not read %v: %v", s.path, err)
	}

	updated, removed := RemoveProfile(string(content), ssid)
	if !removed {
		return false, nil
	}

	err = os.WriteFile(s.path, []byte(updated), 0600)
	if err != nil {
		return false, errors.Errorf("could not write %v: %v", s.path, err)
	}

	return true, nil
}
