package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrNotSettable    = errors.New("property is not settable")
	ErrNotConnected   = errors.New("not connected")
)

// ConnectionError is a broker level failure. The connection is unusable and
// must be re-established.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolError is a malformed bus message. The connection stays usable.
type ProtocolError struct {
	Topic string
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on %s: %v", e.Topic, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err should trigger a reconnect backoff.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
