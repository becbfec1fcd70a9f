package protocol

import (
	"encoding/json"

	"github.com/go-errors/errors"
)

// Class separates the three message streams sharing one connection.
type Class string

const (
	ClassCommand      Class = "command"
	ClassReply        Class = "reply"
	ClassNotification Class = "notification"
)

type Frame struct {
	Class Class           `json:"class"`
	Body  json.RawMessage `json:"body"`
}

func Encode(class Class, body interface{}) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Errorf("could not encode %v: %v", class, err)
	}

	return json.Marshal(&Frame{Class: class, Body: raw})
}

func Decode(data []byte) (*Frame, error) {
	frame := &Frame{}

	err := json.Unmarshal(data, frame)
	if err != nil {
		return nil, errors.Errorf("could not decode frame: %v", err)
	}

	switch frame.Class {
	case ClassCommand, ClassReply, ClassNotification:
	default:
		return nil, errors.Errorf("unknown frame class %q", frame.Class)
	}

	return frame, nil
}
