package client

import (
	"encoding/json"
	"sync"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/wifid/network"
	"github.com/the-lightning-land/wifid/protocol"
)

// Sender transmits one encoded frame.
type Sender interface {
	Send(frame []byte) error
}

// NotificationHandlers are the extension points for server pushed events.
// Unset handlers ignore their events.
type NotificationHandlers struct {
	OnStatusChange         func(status string, wifi *network.Wifi)
	OnConnectionInfoUpdate func(info *network.ConnectionInfo)
	OnEnabled              func()
	OnDisabled             func()
	OnStationInfoUpdate    func(info *network.StationInfo)
}

type Config struct {
	Sender        Sender
	Notifications NotificationHandlers
	Logger        Logger
}

// Client correlates replies with sent commands by their order.
type Client struct {
	sender   Sender
	handlers NotificationHandlers
	log      Logger

	// sendMtx keeps transmission order and queue order identical
	sendMtx sync.Mutex
	queue   Queue
	nextID  uint64
}

func New(config *Config) *Client {
	c := &Client{
		sender:   config.Sender,
		handlers: config.Notifications,
	}

	if config.Logger != nil {
		c.log = config.Logger
	} else {
		c.log = noopLogger{}
	}

	return c
}

// Pending returns the number of commands awaiting a reply.
func (c *Client) Pending() int {
	return c.queue.Len()
}

// send transmits cmd and queues it. When it returns an error no callback
// will fire for cmd.
func (c *Client) send(cmd *protocol.Command, onSuccess func(json.RawMessage), onError ErrorFunc) error {
	c.sendMtx.Lock()
	defer c.sendMtx.Unlock()

	c.nextID++
	cmd.ID = c.nextID

	data, err := protocol.Encode(protocol.ClassCommand, cmd)
	if err != nil {
		return err
	}

	err = c.sender.Send(data)
	if err != nil {
		return errors.Errorf("could not send %v: %v", cmd.Type, err)
	}

	c.queue.Push(&PendingCommand{
		Command:   cmd,
		OnSuccess: onSuccess,
		OnError:   onError,
	})

	return nil
}

// HandleFrame processes one received frame. A returned error is a
// *protocol.ProtocolError and the connection must be dropped.
func (c *Client) HandleFrame(data []byte) error {
	frame, err := protocol.Decode(data)
	if err != nil {
		c.log.Warnf("Ignoring frame: %v", err)
		return nil
	}

	switch frame.Class {
	case protocol.ClassReply:
		return c.OnReply(frame.Body)
	case protocol.ClassNotification:
		c.OnNotification(frame.Body)
	default:
		c.log.Warnf("Ignoring %v frame", frame.Class)
	}

	return nil
}

// OnReply matches a reply with the oldest pending command and fires
// exactly one of its callbacks.
func (c *Client) OnReply(body json.RawMessage) error {
	reply := &protocol.Reply{}

	err := json.Unmarshal(body, reply)
	if err != nil {
		return protocol.NewProtocolError("undecodable reply: %v", err)
	}

	// wait for a concurrent send to finish queueing
	c.sendMtx.Lock()
	pending, ok := c.queue.Pop()
	c.sendMtx.Unlock()

	if !ok {
		return protocol.NewProtocolError("%v reply without pending command", reply.Type)
	}

	var desync *protocol.ProtocolError

	switch {
	case reply.Type != pending.Command.Type:
		desync = protocol.NewProtocolError("%v reply for pending %v command", reply.Type, pending.Command.Type)
	case reply.ID != 0 && pending.Command.ID != 0 && reply.ID != pending.Command.ID:
		desync = protocol.NewProtocolError("reply %v for pending command %v", reply.ID, pending.Command.ID)
	}

	if desync != nil {
		// the popped command is out of the queue, so Abort cannot reach it
		if pending.OnError != nil {
			pending.OnError(desync)
		}

		return desync
	}

	if reply.IsError {
		if pending.OnError != nil {
			pending.OnError(&protocol.RemoteError{
				Operation: reply.Type,
				Message:   reply.ErrorMessage(),
			})
		}

		return nil
	}

	if pending.OnSuccess != nil {
		pending.OnSuccess(reply.Result)
	}

	return nil
}

// OnNotification delivers a notification to its handler. Malformed or
// unknown notifications are dropped.
func (c *Client) OnNotification(body json.RawMessage) {
	n := &protocol.Notification{}

	err := json.Unmarshal(body, n)
	if err != nil || !n.Valid() {
		c.log.Debugf("Ignoring notification %s", body)
		return
	}

	h := c.handlers

	switch n.Kind {
	case protocol.StatusChange:
		if h.OnStatusChange != nil {
			h.OnStatusChange(n.Connection.Status, n.Connection.Network)
		}
	case protocol.ConnectionInfoUpdate:
		if h.OnConnectionInfoUpdate != nil {
			h.OnConnectionInfoUpdate(n.Info)
		}
	case protocol.Enabled:
		if h.OnEnabled != nil {
			h.OnEnabled()
		}
	case protocol.Disabled:
		if h.OnDisabled != nil {
			h.OnDisabled()
		}
	case protocol.StationInfoUpdate:
		if h.OnStationInfoUpdate != nil {
			h.OnStationInfoUpdate(n.Station)
		}
	}
}

// Abort fails every pending command with err. It is used once the
// connection is gone and no reply can arrive anymore.
func (c *Client) Abort(err error) {
	c.sendMtx.Lock()
	pending := c.queue.Drain()
	c.sendMtx.Unlock()

	for _, p := range pending {
		if p.OnError != nil {
			p.OnError(err)
		}
	}
}
