package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const DefaultCallTimeout = time.Second

// Client issues calls over a Transport. A link carries one exchange at a
// time; overlapping use is rejected with ErrBusy rather than interleaved.
type Client struct {
	transport   Transport
	logger      *slog.Logger
	callTimeout time.Duration

	inFlight sync.Mutex
	seq      uint8
}

func NewClient(transport Transport, logger *slog.Logger, callTimeout time.Duration) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}

	return &Client{
		transport:   transport,
		logger:      logger.With("link", transport.Name()),
		callTimeout: callTimeout,
	}
}

func (c *Client) Transport() Transport {
	return c.transport
}

// Call runs the named procedure on the device and returns its result bytes.
// A timeout, a "no result" reply or a link failure all surface as ErrNoResponse.
func (c *Client) Call(ctx context.Context, name string, args []byte) ([]byte, error) {
	if !c.inFlight.TryLock() {
		return nil, ErrBusy
	}
	defer c.inFlight.Unlock()

	c.seq++
	seq := c.seq
	payload, err := encodeRequest(request{seq: seq, name: name, args: args})
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	if err := c.transport.Connect(callCtx); err != nil {
		return nil, fmt.Errorf("%w: %s: connect: %w", ErrNoResponse, name, err)
	}
	if err := c.transport.WriteFrame(callCtx, payload); err != nil {
		// A write cut off by its deadline can leave half a frame on the link,
		// so any write failure drops the connection.
		if !errors.Is(err, ErrNotConnected) {
			c.closeLink(err)
		}

		return nil, fmt.Errorf("%w: %s: %w", ErrNoResponse, name, err)
	}

	for {
		raw, err := c.transport.ReadFrame(callCtx)
		if err != nil {
			if isTimeout(err) {
				c.logger.Debug("call timed out", "procedure", name, "seq", seq, "timeout", c.callTimeout)

				return nil, fmt.Errorf("%w: %s: %w", ErrNoResponse, name, ErrTimeout)
			}
			c.dropOnFailure(err)

			return nil, fmt.Errorf("%w: %s: %w", ErrNoResponse, name, err)
		}
		resp, err := decodeResponse(raw)
		if err != nil {
			c.logger.Debug("discarding undecodable frame", "procedure", name, "error", err)
			continue
		}
		if resp.seq != seq {
			c.logger.Debug("discarding stale response", "procedure", name, "seq", resp.seq, "want_seq", seq)
			continue
		}

		switch resp.status {
		case statusOK:
			return resp.data, nil
		case statusNoResult:
			return nil, fmt.Errorf("%w: %s: device returned no result", ErrNoResponse, name)
		default:
			return nil, fmt.Errorf("%w: %s: unknown status 0x%02x", ErrNoResponse, name, resp.status)
		}
	}
}

// ReadBytes fills buf with raw bytes streamed by the device, failing with a
// *ShortReadError when timeout elapses first.
func (c *Client) ReadBytes(ctx context.Context, buf []byte, timeout time.Duration) error {
	if !c.inFlight.TryLock() {
		return ErrBusy
	}
	defer c.inFlight.Unlock()

	if len(buf) == 0 {
		return nil
	}
	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n, err := c.transport.ReadRaw(readCtx, buf)
	if err == nil && n == len(buf) {
		return nil
	}
	if err == nil {
		err = ErrTimeout
	}
	if !isTimeout(err) {
		c.dropOnFailure(err)
	}
	c.logger.Debug("raw read ended early", "read", n, "want", len(buf), "error", err)

	return &ShortReadError{Read: n, Want: len(buf), Err: err}
}

func (c *Client) Close() error {
	return c.transport.Close()
}

// dropOnFailure closes the transport after a hard I/O error so the next call
// reconnects. Timeouts leave the link open.
func (c *Client) dropOnFailure(err error) {
	if isTimeout(err) || errors.Is(err, ErrNotConnected) {
		return
	}
	c.closeLink(err)
}

func (c *Client) closeLink(err error) {
	c.logger.Warn("link failure, closing transport", "error", err)
	_ = c.transport.Close()
}
