package rpc

import "context"

// Transport moves framed request/response traffic and, for bulk transfers,
// raw unframed bytes over a single link to the device.
type Transport interface {
	Name() string
	Connect(ctx context.Context) error
	Close() error
	ReadFrame(ctx context.Context) ([]byte, error)
	WriteFrame(ctx context.Context, payload []byte) error
	// ReadRaw fills buf with unframed bytes and reports how many arrived.
	ReadRaw(ctx context.Context, buf []byte) (int, error)
}

type StatusTargetResolver interface {
	StatusTarget() string
}
