package devicesim

import (
	"context"
	"sync"

	"github.com/richbai90/mvcapture/internal/rpc"
)

// Transport is an rpc.Transport backed by an in-process device. Every
// Connect starts a fresh in-memory link to the same device.
type Transport struct {
	device *Device

	mu   sync.Mutex
	conn *rpc.IPTransport
	stop func()
}

func NewTransport(d *Device) *Transport {
	return &Transport{device: d}
}

func (t *Transport) Name() string {
	return "sim"
}

func (t *Transport) StatusTarget() string {
	return "simulated camera"
}

func (t *Transport) Device() *Device {
	return t.device
}

func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.conn != nil
}

func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	host, stop := Pipe(context.Background(), t.device)
	t.conn = rpc.NewConnTransport(t.Name(), host)
	t.stop = stop

	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	conn, stop := t.conn, t.stop
	t.conn, t.stop = nil, nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	stop()

	return err
}

func (t *Transport) ReadFrame(ctx context.Context) ([]byte, error) {
	conn, err := t.current()
	if err != nil {
		return nil, err
	}

	return conn.ReadFrame(ctx)
}

func (t *Transport) WriteFrame(ctx context.Context, payload []byte) error {
	conn, err := t.current()
	if err != nil {
		return err
	}

	return conn.WriteFrame(ctx, payload)
}

func (t *Transport) ReadRaw(ctx context.Context, buf []byte) (int, error) {
	conn, err := t.current()
	if err != nil {
		return 0, err
	}

	return conn.ReadRaw(ctx, buf)
}

func (t *Transport) current() (*rpc.IPTransport, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil, rpc.ErrNotConnected
	}

	return t.conn, nil
}
