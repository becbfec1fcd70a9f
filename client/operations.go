package client

import (
	"encoding/json"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/wifid/network"
	"github.com/the-lightning-land/wifid/protocol"
)

// Every operation returns an error only if the command could not be sent,
// in which case none of its callbacks fire.

func decodeResult(op protocol.Operation, raw json.RawMessage, v interface{}, onError ErrorFunc) bool {
	err := json.Unmarshal(raw, v)
	if err != nil {
		if onError != nil {
			onError(errors.Errorf("could not decode %v result: %v", op, err))
		}
		return false
	}

	return true
}

func noPayload(onSuccess func()) func(json.RawMessage) {
	return func(json.RawMessage) {
		if onSuccess != nil {
			onSuccess()
		}
	}
}

func (c *Client) SetWifiEnabled(enable bool, onSuccess func(), onError ErrorFunc) error {
	return c.send(&protocol.Command{
		Type:   protocol.SetWifiEnabled,
		Enable: &enable,
	}, noPayload(onSuccess), onError)
}

func (c *Client) networks(op protocol.Operation, onSuccess func(map[string]*network.Wifi), onError ErrorFunc) error {
	return c.send(&protocol.Command{Type: op}, func(raw json.RawMessage) {
		networks := make(map[string]*network.Wifi)
		if decodeResult(op, raw, &networks, onError) && onSuccess != nil {
			onSuccess(networks)
		}
	}, onError)
}

func (c *Client) GetNetworks(onSuccess func(map[string]*network.Wifi), onError ErrorFunc) error {
	return c.networks(protocol.GetNetworks, onSuccess, onError)
}

func (c *Client) GetKnownNetworks(onSuccess func(map[string]*network.Wifi), onError ErrorFunc) error {
	return c.networks(protocol.GetKnownNetworks, onSuccess, onError)
}

func (c *Client) Associate(wifi *network.Wifi, onSuccess func(bool), onError ErrorFunc) error {
	if wifi == nil || wifi.Ssid == "" {
		return errors.New("network needs an ssid")
	}

	return c.send(&protocol.Command{
		Type:    protocol.Associate,
		Network: wifi,
	}, func(raw json.RawMessage) {
		var ok bool
		if decodeResult(protocol.Associate, raw, &ok, onError) && onSuccess != nil {
			onSuccess(ok)
		}
	}, onError)
}

func (c *Client) Forget(wifi *network.Wifi, onSuccess func(), onError ErrorFunc) error {
	if wifi == nil || wifi.Ssid == "" {
		return errors.New("network needs an ssid")
	}

	return c.send(&protocol.Command{
		Type:    protocol.Forget,
		Network: &network.Wifi{Ssid: wifi.Ssid},
	}, noPayload(onSuccess), onError)
}

func (c *Client) Wps(detail *network.WpsInfo, onSuccess func(), onError ErrorFunc) error {
	if detail == nil {
		return errors.New("missing wps detail")
	}

	switch detail.Method {
	case network.WpsPbc, network.WpsPin, network.WpsCancel:
	default:
		return errors.Errorf("invalid wps method %q", detail.Method)
	}

	return c.send(&protocol.Command{
		Type:   protocol.Wps,
		Detail: detail,
	}, noPayload(onSuccess), onError)
}

func (c *Client) SetPowerSavingMode(enable bool, onSuccess func(), onError ErrorFunc) error {
	return c.send(&protocol.Command{
		Type:   protocol.SetPowerSavingMode,
		Enable: &enable,
	}, noPayload(onSuccess), onError)
}

func (c *Client) SetStaticIpMode(wifi *network.Wifi, info *network.IpConfig, onSuccess func(), onError ErrorFunc) error {
	if info == nil {
		return errors.New("missing ip configuration")
	}

	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}

	return c.send(&protocol.Command{
		Type:    protocol.SetStaticIpMode,
		Network: wifi,
		Info:    raw,
	}, noPayload(onSuccess), onError)
}

// SetHttpProxy clears the proxy when info is nil.
func (c *Client) SetHttpProxy(wifi *network.Wifi, info *network.ProxyInfo, onSuccess func(), onError ErrorFunc) error {
	raw := json.RawMessage("null")

	if info != nil {
		var err error

		raw, err = json.Marshal(info)
		if err != nil {
			return err
		}
	}

	return c.send(&protocol.Command{
		Type:    protocol.SetHttpProxy,
		Network: wifi,
		Info:    raw,
	}, noPayload(onSuccess), onError)
}

func (c *Client) ImportCert(blob []byte, password string, nickname string, onSuccess func(*protocol.CertInfo), onError ErrorFunc) error {
	if nickname == "" {
		return errors.New("missing nickname")
	}

	return c.send(&protocol.Command{
		Type:         protocol.ImportCert,
		CertBlob:     blob,
		CertPassword: password,
		CertNickname: nickname,
	}, func(raw json.RawMessage) {
		info := &protocol.CertInfo{}
		if decodeResult(protocol.ImportCert, raw, info, onError) && onSuccess != nil {
			onSuccess(info)
		}
	}, onError)
}

func (c *Client) GetImportedCerts(onSuccess func(map[string][]string), onError ErrorFunc) error {
	return c.send(&protocol.Command{Type: protocol.GetImportedCerts}, func(raw json.RawMessage) {
		index := make(map[string][]string)
		if decodeResult(protocol.GetImportedCerts, raw, &index, onError) && onSuccess != nil {
			onSuccess(index)
		}
	}, onError)
}

func (c *Client) DeleteCert(nickname string, onSuccess func(), onError ErrorFunc) error {
	if nickname == "" {
		return errors.New("missing nickname")
	}

	return c.send(&protocol.Command{
		Type:         protocol.DeleteCert,
		CertNickname: nickname,
	}, noPayload(onSuccess), onError)
}
