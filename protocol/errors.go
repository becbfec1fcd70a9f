package protocol

import (
	"fmt"
)

// Failure is a coarse error message that is safe to send to a client.
type Failure string

func (f Failure) Error() string {
	return string(f)
}

const (
	FailureUnknownCommand   Failure = "Unknown command type"
	FailureMalformedCommand Failure = "Malformed command"
	FailureInternal         Failure = "Internal error"
	FailureNotImplemented   Failure = "Not implemented"

	FailureEnable      Failure = "enable error"
	FailureScan        Failure = "scan error"
	FailureRead        Failure = "read error"
	FailureForget      Failure = "forget error"
	FailureWps         Failure = "wps error"
	FailureWpsMethod   Failure = "Invalid WPS method"
	FailurePowerSaving Failure = "power saving error"
	FailureStaticIp    Failure = "static IP error"
	FailureInvalidCert Failure = "Invalid certificate"
	FailureDuplicate   Failure = "Duplicate nickname"
	FailureImported    Failure = "Certificate already imported"
	FailureImport      Failure = "import error"
	FailureNickname    Failure = "Unknown nickname"
	FailureDelete      Failure = "delete error"
	FailureInvalid     Failure = "Invalid argument"
)

// PublicError is implemented by errors that carry their own client facing
// message.
type PublicError interface {
	error
	PublicMessage() string
}

// OpError pairs a public failure with the detailed cause, which stays on
// the server.
type OpError struct {
	Failure Failure
	Err     error
}

func Fail(failure Failure, err error) *OpError {
	return &OpError{Failure: failure, Err: err}
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return string(e.Failure)
	}

	return fmt.Sprintf("%s: %v", e.Failure, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func (e *OpError) PublicMessage() string {
	return string(e.Failure)
}

// PublicMessage finds the client facing message of err. Anything without
// one is reported as fallback so no internal detail leaks.
func PublicMessage(err error, fallback Failure) string {
	for err != nil {
		switch e := err.(type) {
		case PublicError:
			return e.PublicMessage()
		case Failure:
			return string(e)
		}

		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}

		err = u.Unwrap()
	}

	return string(fallback)
}

// ProtocolError means the reply stream no longer lines up with the sent
// commands. The connection cannot be used any further.
type ProtocolError struct {
	Reason string
}

func NewProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ProtocolError) Error() string {
	return "protocol desync: " + e.Reason
}

// RemoteError is an operation failure reported by the server.
type RemoteError struct {
	Operation Operation
	Message   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%v failed: %v", e.Operation, e.Message)
}
