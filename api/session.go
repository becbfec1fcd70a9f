package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/the-lightning-land/wifid/adapter"
	"github.com/the-lightning-land/wifid/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1 << 20

	// commands received but not yet answered
	commandBuffer = 32
)

// session serves one websocket connection. Commands are executed one at a
// time in arrival order so replies leave in the same order.
type session struct {
	id       string
	conn     *websocket.Conn
	api      *Api
	commands chan json.RawMessage
	send     chan []byte
	closed   chan struct{}
	log      Logger
}

func (a *Api) handleWifiManager() http.HandlerFunc {
	upgrader := &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			a.log.Errorf("Could not upgrade connection: %v", err)
			return
		}

		s := &session{
			id:       uuid.NewString(),
			conn:     c,
			api:      a,
			commands: make(chan json.RawMessage, commandBuffer),
			send:     make(chan []byte, commandBuffer),
			closed:   make(chan struct{}),
			log:      a.log,
		}

		s.run()
	}
}

func (s *session) run() {
	s.log.Infof("Session %v connected from %v", s.id, s.conn.RemoteAddr())

	s.api.metrics.activeSessions.Inc()
	defer s.api.metrics.activeSessions.Dec()

	// cancelled on disconnect, which interrupts a running activation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := s.api.adapter.Subscribe()
	defer client.Cancel()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.work(ctx)
	}()

	go func() {
		defer wg.Done()
		s.writePump(ctx, client)
	}()

	s.readPump()

	cancel()
	wg.Wait()

	_ = s.conn.Close()

	s.log.Infof("Session %v disconnected", s.id)
}

func (s *session) readPump() {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Errorf("Unexpected websocket closure of %v: %v", s.id, err)
			}
			return
		}

		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		frame, err := protocol.Decode(data)
		if err != nil {
			s.log.Warnf("Ignoring frame from %v: %v", s.id, err)
			continue
		}

		if frame.Class != protocol.ClassCommand {
			s.log.Warnf("Ignoring %v frame from %v", frame.Class, s.id)
			continue
		}

		select {
		case s.commands <- frame.Body:
		case <-s.closed:
			return
		}
	}
}

// work answers commands strictly one after another.
func (s *session) work(ctx context.Context) {
	for {
		select {
		case body := <-s.commands:
			reply := s.api.dispatcher.Dispatch(ctx, body)

			data, err := protocol.Encode(protocol.ClassReply, reply)
			if err != nil {
				s.log.Errorf("Could not encode reply: %v", err)
				continue
			}

			select {
			case s.send <- data:
			case <-s.closed:
				return
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) writePump(ctx context.Context, client *adapter.Client) {
	defer close(s.closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	// a failed write closes the connection, which ends the read pump
	write := func(messageType int, data []byte) bool {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))

		err := s.conn.WriteMessage(messageType, data)
		if err != nil {
			s.log.Debugf("Could not write to %v: %v", s.id, err)
			_ = s.conn.Close()
			return false
		}

		return true
	}

	for {
		select {
		case data := <-s.send:
			if !write(websocket.TextMessage, data) {
				return
			}
		case n, ok := <-client.Notifications:
			if !ok {
				return
			}

			data, err := protocol.Encode(protocol.ClassNotification, n)
			if err != nil {
				s.log.Errorf("Could not encode notification: %v", err)
				continue
			}

			if !write(websocket.TextMessage, data) {
				return
			}

			s.api.metrics.notificationsTotal.WithLabelValues(string(n.Kind)).Inc()
		case <-ticker.C:
			if !write(websocket.PingMessage, nil) {
				return
			}
		case <-ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
