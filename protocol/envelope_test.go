package protocol

import (
	"encoding/json"
	"testing"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-lightning-land/wifid/network"
)

func TestReplyCarriesExactlyOneOutcome(t *testing.T) {
	tests := []struct {
		name  string
		reply *Reply
		want  string
	}{{
		name:  "result without payload",
		reply: &Reply{ID: 1, Type: SetWifiEnabled},
		want:  `{"id":1,"type":"setWifiEnabled","result":null}`,
	}, {
		name:  "result",
		reply: &Reply{ID: 2, Type: Associate, Result: json.RawMessage(`true`)},
		want:  `{"id":2,"type":"associate","result":true}`,
	}, {
		name:  "error",
		reply: NewError(3, Associate, "write error"),
		want:  `{"id":3,"type":"associate","error":"write error"}`,
	}, {
		name:  "error without payload",
		reply: &Reply{Type: Forget, IsError: true},
		want:  `{"type":"forget","error":null}`,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data, err := json.Marshal(test.reply)
			require.NoError(t, err)
			assert.JSONEq(t, test.want, string(data))
		})
	}
}

func TestReplyDecodeByErrorKey(t *testing.T) {
	reply := &Reply{}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"forget","error":null}`), reply))
	assert.True(t, reply.IsError)
	assert.Equal(t, Forget, reply.Type)

	reply = &Reply{}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"getNetworks","result":{"home":{"ssid":"home"}}}`), reply))
	assert.False(t, reply.IsError)
	assert.Zero(t, reply.ID)

	var networks map[string]*network.Wifi
	require.NoError(t, json.Unmarshal(reply.Result, &networks))
	assert.Equal(t, "home", networks["home"].Ssid)

	// a reply without result key is a success without payload
	reply = &Reply{}
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"type":"deleteCert"}`), reply))
	assert.False(t, reply.IsError)
	assert.Equal(t, uint64(7), reply.ID)
	assert.Equal(t, json.RawMessage("null"), reply.Result)

	assert.Error(t, json.Unmarshal([]byte(`{"result":true}`), &Reply{}))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &Reply{}))
}

func TestReplyErrorMessage(t *testing.T) {
	assert.Equal(t, "stop error", NewError(0, Associate, "stop error").ErrorMessage())
	assert.Equal(t, `{"code":1}`, (&Reply{Error: json.RawMessage(`{"code":1}`)}).ErrorMessage())
}

func TestCommandInfo(t *testing.T) {
	cmd := &Command{}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"setHttpProxy","network":{"ssid":"home"},"info":null}`), cmd))

	proxy, err := cmd.ProxyInfo()
	require.NoError(t, err)
	assert.Nil(t, proxy)

	cmd = &Command{}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"setStaticIpMode","info":{"enabled":true,"ipaddr":"10.0.0.2","maskLength":8}}`), cmd))

	ip, err := cmd.IpConfig()
	require.NoError(t, err)
	assert.Equal(t, &network.IpConfig{Enabled: true, IpAddr: "10.0.0.2", MaskLength: 8}, ip)

	_, err = (&Command{Type: SetStaticIpMode}).IpConfig()
	assert.Error(t, err)
}

func TestCommandCertBlobIsBase64(t *testing.T) {
	data, err := json.Marshal(&Command{ID: 1, Type: ImportCert, CertBlob: []byte{0x30, 0x82}, CertNickname: "ca"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"type":"importCert","certBlob":"MII=","certNickname":"ca"}`, string(data))
}

func TestNotificationValid(t *testing.T) {
	assert.True(t, (&Notification{Kind: Enabled}).Valid())
	assert.True(t, (&Notification{Kind: StatusChange, Connection: &ConnectionStatus{Status: "connected"}}).Valid())
	assert.False(t, (&Notification{Kind: StatusChange}).Valid())
	assert.False(t, (&Notification{Kind: ConnectionInfoUpdate}).Valid())
	assert.False(t, (&Notification{Kind: "rebooted"}).Valid())
}

func TestFrames(t *testing.T) {
	data, err := Encode(ClassNotification, &Notification{Kind: Disabled})
	require.NoError(t, err)
	assert.JSONEq(t, `{"class":"notification","body":{"kind":"disabled"}}`, string(data))

	frame, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, ClassNotification, frame.Class)

	_, err = Decode([]byte(`{"class":"event","body":{}}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestOperationsKnown(t *testing.T) {
	assert.Len(t, Operations, 12)
	assert.True(t, GetImportedCerts.Known())
	assert.False(t, Operation("reboot").Known())
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "scan error", PublicMessage(Fail(FailureScan, errors.New("dbus: no reply")), FailureInternal))
	assert.Equal(t, "Not implemented", PublicMessage(FailureNotImplemented, FailureInternal))
	assert.Equal(t, "Internal error", PublicMessage(errors.New("exit status 1"), FailureInternal))

	activation := &network.ActivationError{Stage: network.StateServiceStarted, Err: errors.New("dhcpcd exited")}
	assert.Equal(t, "DHCP error", PublicMessage(activation, FailureInternal))
}
