package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/wifid/network"
)

// Command is sent by a client. It must not be modified once sent.
type Command struct {
	ID           uint64           `json:"id,omitempty"`
	Type         Operation        `json:"type"`
	Enable       *bool            `json:"enable,omitempty"`
	Network      *network.Wifi    `json:"network,omitempty"`
	Detail       *network.WpsInfo `json:"detail,omitempty"`
	Info         json.RawMessage  `json:"info,omitempty"`
	CertBlob     []byte           `json:"certBlob,omitempty"`
	CertPassword string           `json:"certPassword,omitempty"`
	CertNickname string           `json:"certNickname,omitempty"`
}

// IpConfig decodes the info field of a setStaticIpMode command.
func (c *Command) IpConfig() (*network.IpConfig, error) {
	if isNull(c.Info) {
		return nil, errors.New("missing ip configuration")
	}

	info := &network.IpConfig{}

	err := json.Unmarshal(c.Info, info)
	if err != nil {
		return nil, errors.Errorf("could not decode ip configuration: %v", err)
	}

	return info, nil
}

// ProxyInfo decodes the info field of a setHttpProxy command. A null info
// clears the proxy and yields nil.
func (c *Command) ProxyInfo() (*network.ProxyInfo, error) {
	if isNull(c.Info) {
		return nil, nil
	}

	info := &network.ProxyInfo{}

	err := json.Unmarshal(c.Info, info)
	if err != nil {
		return nil, errors.Errorf("could not decode proxy info: %v", err)
	}

	return info, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Reply answers exactly one command. On the wire it carries either a result
// or an error key, never both.
type Reply struct {
	ID      uint64
	Type    Operation
	Result  json.RawMessage
	Error   json.RawMessage
	IsError bool
}

type resultReply struct {
	ID     uint64          `json:"id,omitempty"`
	Type   Operation       `json:"type"`
	Result json.RawMessage `json:"result"`
}

type errorReply struct {
	ID    uint64          `json:"id,omitempty"`
	Type  Operation       `json:"type"`
	Error json.RawMessage `json:"error"`
}

var null = json.RawMessage("null")

func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return null
	}

	return raw
}

func (r *Reply) MarshalJSON() ([]byte, error) {
	if r.IsError {
		return json.Marshal(&errorReply{ID: r.ID, Type: r.Type, Error: orNull(r.Error)})
	}

	return json.Marshal(&resultReply{ID: r.ID, Type: r.Type, Result: orNull(r.Result)})
}

// UnmarshalJSON decides success or failure by the presence of the error
// key, whatever its value.
func (r *Reply) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage

	err := json.Unmarshal(data, &fields)
	if err != nil {
		return err
	}

	if fields == nil {
		return errors.New("reply is not an object")
	}

	*r = Reply{}

	if raw, ok := fields["id"]; ok && !isNull(raw) {
		err = json.Unmarshal(raw, &r.ID)
		if err != nil {
			return errors.Errorf("invalid reply id: %v", err)
		}
	}

	raw, ok := fields["type"]
	if !ok {
		return errors.New("reply has no type")
	}

	err = json.Unmarshal(raw, &r.Type)
	if err != nil {
		return errors.Errorf("invalid reply type: %v", err)
	}

	if raw, ok := fields["error"]; ok {
		r.IsError = true
		r.Error = raw
		return nil
	}

	r.Result = orNull(fields["result"])

	return nil
}

// NewResult builds the success reply for a command.
func NewResult(id uint64, op Operation, result interface{}) (*Reply, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Errorf("could not encode result: %v", err)
	}

	return &Reply{ID: id, Type: op, Result: raw}, nil
}

// NewError builds the failure reply for a command.
func NewError(id uint64, op Operation, message string) *Reply {
	raw, _ := json.Marshal(message)

	return &Reply{ID: id, Type: op, Error: raw, IsError: true}
}

// ErrorMessage renders the error payload of a reply. String payloads are
// returned unquoted.
func (r *Reply) ErrorMessage() string {
	var s string
	if json.Unmarshal(r.Error, &s) == nil {
		return s
	}

	return string(r.Error)
}

type NotificationKind string

const (
	StatusChange         NotificationKind = "statusChange"
	ConnectionInfoUpdate NotificationKind = "connectionInfoUpdate"
	Enabled              NotificationKind = "enabled"
	Disabled             NotificationKind = "disabled"
	StationInfoUpdate    NotificationKind = "stationInfoUpdate"
)

type ConnectionStatus struct {
	Status  string        `json:"status"`
	Network *network.Wifi `json:"network,omitempty"`
}

// Notification is pushed by the server at any time and is never answered.
type Notification struct {
	Kind       NotificationKind        `json:"kind"`
	Connection *ConnectionStatus       `json:"connection,omitempty"`
	Info       *network.ConnectionInfo `json:"info,omitempty"`
	Station    *network.StationInfo    `json:"station,omitempty"`
}

// Valid reports whether the kind is known and its payload present.
func (n *Notification) Valid() bool {
	switch n.Kind {
	case StatusChange:
		return n.Connection != nil && n.Connection.Status != ""
	case ConnectionInfoUpdate:
		return n.Info != nil
	case StationInfoUpdate:
		return n.Station != nil
	case Enabled, Disabled:
		return true
	default:
		return false
	}
}

// CertInfo is the result of a certificate import.
type CertInfo struct {
	Nickname string   `json:"nickname"`
	Usage    []string `json:"usage"`
}
