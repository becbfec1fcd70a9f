package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var ErrClosed = errors.New("connection closed")

// Conn is a Client speaking over a websocket.
type Conn struct {
	*Client

	ws      *websocket.Conn
	writeMu sync.Mutex
}

type wsSender struct {
	conn *Conn
}

func (s *wsSender) Send(frame []byte) error {
	s.conn.writeMu.Lock()
	defer s.conn.writeMu.Unlock()

	_ = s.conn.ws.SetWriteDeadline(time.Now().Add(writeWait))

	return s.conn.ws.WriteMessage(websocket.TextMessage, frame)
}

// Dial connects to the websocket endpoint at url, for example
// ws://device/WifiManager. Call Run to start receiving.
func Dial(ctx context.Context, url string, config *Config) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		return nil, errors.Errorf("could not dial %v: %v", url, err)
	}

	conn := &Conn{ws: ws}

	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	cfg.Sender = &wsSender{conn: conn}

	conn.Client = New(&cfg)

	return conn, nil
}

// Run reads frames until the connection fails, ctx is done, or the reply
// stream desyncs. Commands still pending afterwards fail with ErrClosed or
// the protocol error.
func (c *Conn) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.Abort(ErrClosed)

			if ctx.Err() != nil {
				return nil
			}

			return errors.Errorf("could not read: %v", err)
		}

		err = c.HandleFrame(data)
		if err != nil {
			c.log.Errorf("Dropping connection: %v", err)
			_ = c.Close()
			c.Abort(err)

			return err
		}
	}
}

func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()

	return c.ws.Close()
}
