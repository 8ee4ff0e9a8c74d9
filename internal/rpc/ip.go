package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	DefaultTCPPort = 2217
	dialTimeout    = 6 * time.Second
)

// IPTransport carries the link over a TCP socket, e.g. a serial-to-network
// bridge in front of the camera, or a pre-connected net.Conn.
type IPTransport struct {
	name string
	host string
	port int

	mu      sync.Mutex
	conn    net.Conn
	writeMu sync.Mutex
}

func NewIPTransport(host string, port int) *IPTransport {
	if port == 0 {
		port = DefaultTCPPort
	}

	return &IPTransport{name: "tcp", host: host, port: port}
}

// NewConnTransport wraps an already established connection. Once closed it
// cannot reconnect.
func NewConnTransport(name string, conn net.Conn) *IPTransport {
	return &IPTransport{name: name, conn: conn}
}

func (t *IPTransport) Name() string {
	return t.name
}

func (t *IPTransport) SetHost(host string, port int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.host = host
	if port != 0 {
		t.port = port
	}
}

func (t *IPTransport) StatusTarget() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.targetLocked()
}

func (t *IPTransport) targetLocked() string {
	if t.host == "" {
		return ""
	}

	return net.JoinHostPort(t.host, strconv.Itoa(t.port))
}

func (t *IPTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.conn != nil
}

func (t *IPTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	target := t.targetLocked()
	logger := linkLogger(t.name, "target", target)
	if t.conn != nil {
		return nil
	}
	if target == "" {
		logger.Warn("connect failed: host is empty")

		return fmt.Errorf("%w: host is empty", ErrNotConnected)
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	logger.Info("connecting")
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		logger.Warn("connect failed", "error", err)

		return fmt.Errorf("dial tcp: %w", err)
	}
	t.conn = conn
	logger.Info("connected", "remote", conn.RemoteAddr().String())

	return nil
}

func (t *IPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	logger := linkLogger(t.name, "target", t.targetLocked())
	if err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Warn("close failed", "error", err)

		return err
	}
	logger.Info("closed")

	return nil
}

func (t *IPTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	conn, err := t.currentConn()
	if err != nil {
		return nil, err
	}
	setReadDeadline(ctx, conn)

	payload, err := readFrame(ioReadFullFunc(conn))
	if err != nil {
		linkLogger(t.name).Debug("read frame failed", "error", err)

		return nil, err
	}

	return payload, nil
}

func (t *IPTransport) WriteFrame(ctx context.Context, payload []byte) error {
	conn, err := t.currentConn()
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Time{})
	}

	frame, err := encodeFrame(payload)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := conn.Write(frame); err != nil {
		linkLogger(t.name).Warn("write frame failed", "frame_len", len(frame), "error", err)

		return fmt.Errorf("write frame: %w", err)
	}

	return nil
}

func (t *IPTransport) ReadRaw(ctx context.Context, buf []byte) (int, error) {
	conn, err := t.currentConn()
	if err != nil {
		return 0, err
	}
	setReadDeadline(ctx, conn)

	return io.ReadFull(conn, buf)
}

func (t *IPTransport) currentConn() (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil, ErrNotConnected
	}

	return t.conn, nil
}

func setReadDeadline(ctx context.Context, conn net.Conn) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	} else {
		_ = conn.SetReadDeadline(time.Time{})
	}
}
