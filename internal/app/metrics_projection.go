package app

import (
	"context"

	"github.com/richbai90/mvcapture/internal/bus"
	"github.com/richbai90/mvcapture/internal/connectors"
	"github.com/richbai90/mvcapture/internal/metrics"
)

// startCaptureMetrics records finished captures. Fetch level metrics come
// straight from the fetcher observer.
func startCaptureMetrics(ctx context.Context, b bus.MessageBus) {
	sub := b.Subscribe(connectors.TopicCaptureResult)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub:
				if !ok {
					return
				}
				if result, ok := raw.(connectors.CaptureResult); ok {
					metrics.RecordCapture(result.Duration, result.Succeeded())
				}
			}
		}
	}()
}
