package adapter

import (
	"sync"

	"github.com/the-lightning-land/wifid/protocol"
)

// Client receives every notification of the adapter until it is cancelled.
type Client struct {
	Notifications chan *protocol.Notification
	Id            uint32
	adapter       *Adapter
	cancelOnce    sync.Once
}

func (a *Adapter) Subscribe() *Client {
	client := &Client{
		Notifications: make(chan *protocol.Notification, notificationBuffer),
		adapter:       a,
	}

	a.clientMtx.Lock()
	client.Id = a.nextClientID
	a.nextClientID++
	a.clients[client.Id] = client
	a.clientMtx.Unlock()

	return client
}

// Cancel unsubscribes the client and closes its channel.
func (c *Client) Cancel() {
	c.cancelOnce.Do(func() {
		c.adapter.clientMtx.Lock()
		delete(c.adapter.clients, c.Id)
		close(c.Notifications)
		c.adapter.clientMtx.Unlock()
	})
}

func (a *Adapter) subscribers() int {
	a.clientMtx.Lock()
	defer a.clientMtx.Unlock()

	return len(a.clients)
}

// notify never blocks. A client that does not keep up misses
// notifications.
func (a *Adapter) notify(n *protocol.Notification) {
	a.clientMtx.Lock()
	defer a.clientMtx.Unlock()

	for _, client := range a.clients {
		select {
		case client.Notifications <- n:
		default:
			a.log.Warnf("Dropped %v notification for client %v", n.Kind, client.Id)
		}
	}
}
