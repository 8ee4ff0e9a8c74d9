package snapshot

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

const DefaultWindow = 32768

// Chunked pulls the payload in consecutive windows, retrying each window on
// its own budget.
type Chunked struct {
	Window int
	Retry  RetryPolicy
}

func (c Chunked) Name() string {
	return "chunked"
}

func (c Chunked) Retrieve(ctx context.Context, link Link, buf []byte, obs Observer) (Stats, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	window := c.Window
	if window <= 0 {
		window = DefaultWindow
	}
	attempts := c.Retry.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	var rng *rand.Rand
	if c.Retry.Backoff.Jitter {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) // #nosec G404 -- jitter only
	}

	var stats Stats
	for _, chunk := range PlanChunks(len(buf), window) {
		var lastErr error
		done := false
		for attempt := 1; attempt <= attempts && !done; attempt++ {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			stats.Requests++
			data, err := link.Call(ctx, ProcRead, chunk.Args())
			if err == nil && len(data) != int(chunk.Length) {
				err = fmt.Errorf("chunk response has %d bytes, want %d", len(data), chunk.Length)
			}
			if err == nil {
				copy(buf[chunk.Offset:chunk.End()], data)
				obs.Observe(Event{Kind: EventChunk, Strategy: c.Name(), Size: len(buf), Chunk: chunk, Attempt: attempt})
				done = true

				continue
			}

			lastErr = err
			obs.Observe(Event{Kind: EventRetry, Strategy: c.Name(), Size: len(buf), Chunk: chunk, Attempt: attempt, Err: err})
			if attempt < attempts {
				stats.Retries++
				if !sleepWithContext(ctx, c.Retry.Backoff.Delay(attempt, rng)) {
					return stats, ctx.Err()
				}
			}
		}
		if !done {
			return stats, &ChunkError{Chunk: chunk, Attempts: attempts, Err: lastErr}
		}
	}

	return stats, nil
}
