package api

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	"github.com/the-lightning-land/wifid/protocol"
)

// HandlerFunc executes one command. The result is sent as the reply
// payload; an error is reduced to its public message.
type HandlerFunc func(ctx context.Context, cmd *protocol.Command) (interface{}, error)

// Dispatcher answers every command it is given with exactly one reply.
type Dispatcher struct {
	handlers map[protocol.Operation]HandlerFunc
	metrics  *metrics
	log      Logger
}

func NewDispatcher(handlers map[protocol.Operation]HandlerFunc, m *metrics, log Logger) *Dispatcher {
	if m == nil {
		m = newMetrics(nil)
	}

	if log == nil {
		log = noopLogger{}
	}

	return &Dispatcher{
		handlers: handlers,
		metrics:  m,
		log:      log,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, body json.RawMessage) *protocol.Reply {
	var header struct {
		ID   uint64             `json:"id"`
		Type protocol.Operation `json:"type"`
	}

	err := json.Unmarshal(body, &header)
	if err != nil {
		d.log.Warnf("Could not decode command: %v", err)
		d.metrics.commandsTotal.WithLabelValues("", "error").Inc()

		return protocol.NewError(0, "", string(protocol.FailureMalformedCommand))
	}

	cmd := &protocol.Command{}

	start := time.Now()

	err = json.Unmarshal(body, cmd)
	cmd.ID, cmd.Type = header.ID, header.Type

	var reply *protocol.Reply
	if err != nil && cmd.Type.Known() {
		// id and type are intact, so the caller can still match the reply
		d.log.Infof("Invalid %v arguments: %v", cmd.Type, err)
		reply = protocol.NewError(cmd.ID, cmd.Type, string(protocol.FailureInvalid))
	} else {
		reply = d.handle(ctx, cmd)
	}

	outcome := "success"
	if reply.IsError {
		outcome = "error"
	}

	label := string(cmd.Type)
	if !cmd.Type.Known() {
		label = "unknown"
	}

	d.metrics.commandsTotal.WithLabelValues(label, outcome).Inc()
	d.metrics.commandDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	return reply
}

func (d *Dispatcher) handle(ctx context.Context, cmd *protocol.Command) (reply *protocol.Reply) {
	handler, ok := d.handlers[cmd.Type]
	if !ok {
		d.log.Warnf("Invalid command type %q", cmd.Type)
		return protocol.NewError(cmd.ID, cmd.Type, string(protocol.FailureUnknownCommand))
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("Handler for %v panicked: %v\n%s", cmd.Type, r, debug.Stack())
			reply = protocol.NewError(cmd.ID, cmd.Type, string(protocol.FailureInternal))
		}
	}()

	result, err := handler(ctx, cmd)
	if err != nil {
		d.log.Infof("%v failed: %v", cmd.Type, err)
		return protocol.NewError(cmd.ID, cmd.Type, protocol.PublicMessage(err, protocol.FailureInternal))
	}

	reply, err = protocol.NewResult(cmd.ID, cmd.Type, result)
	if err != nil {
		d.log.Errorf("Could not encode %v result: %v", cmd.Type, err)
		return protocol.NewError(cmd.ID, cmd.Type, string(protocol.FailureInternal))
	}

	return reply
}
