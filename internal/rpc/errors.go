package rpc

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var (
	ErrFrame             = errors.New("rpc: invalid frame")
	ErrMalformedEnvelope = errors.New("rpc: malformed envelope")
	ErrNoResponse        = errors.New("rpc: no response")
	ErrTimeout           = errors.New("rpc: timeout")
	ErrBusy              = errors.New("rpc: link busy")
	ErrNotConnected      = errors.New("rpc: transport is not connected")
)

// ShortReadError reports a raw read that ended before the buffer was full.
type ShortReadError struct {
	Read int
	Want int
	Err  error
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("rpc: short raw read: got %d of %d bytes: %v", e.Read, e.Want, e.Err)
}

func (e *ShortReadError) Unwrap() error {
	return e.Err
}

func (e *ShortReadError) Is(target error) bool {
	return target == ErrTimeout && isTimeout(e.Err)
}

func (e *ShortReadError) BytesRead() int {
	return e.Read
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }

	return errors.As(err, &netErr) && netErr.Timeout()
}
