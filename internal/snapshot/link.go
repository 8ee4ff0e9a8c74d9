package snapshot

import (
	"context"
	"time"
)

const (
	ProcSnapshot = "jpeg_image_snapshot"
	ProcRead     = "jpeg_image_read"
)

// Link is the request/response connection to the device. *rpc.Client
// implements it.
type Link interface {
	Call(ctx context.Context, name string, args []byte) ([]byte, error)
	ReadBytes(ctx context.Context, buf []byte, timeout time.Duration) error
}
