package snapshot

import (
	"context"
	"errors"
	"time"
)

const DefaultRawTimeout = 5 * time.Second

// Cutthrough asks the device to stream the whole payload and reads it as one
// unchecked raw transfer.
type Cutthrough struct {
	Timeout time.Duration
}

func (c Cutthrough) Name() string {
	return "cutthrough"
}

func (c Cutthrough) Retrieve(ctx context.Context, link Link, buf []byte, obs Observer) (Stats, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultRawTimeout
	}
	stats := Stats{Requests: 1}

	if _, err := link.Call(ctx, ProcRead, nil); err != nil {
		return stats, &TransferError{Stage: "sync", Want: len(buf), Err: err}
	}
	// The device starts streaming as soon as it has answered.
	if err := link.ReadBytes(ctx, buf, timeout); err != nil {
		read := 0
		var short interface{ BytesRead() int }
		if errors.As(err, &short) {
			read = short.BytesRead()
		}

		return stats, &TransferError{Stage: "bulk read", Read: read, Want: len(buf), Err: err}
	}
	obs.Observe(Event{Kind: EventBulk, Strategy: c.Name(), Size: len(buf)})

	return stats, nil
}
