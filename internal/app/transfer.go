package app

import (
	"log/slog"
	"time"

	"github.com/richbai90/mvcapture/internal/bus"
	"github.com/richbai90/mvcapture/internal/config"
	"github.com/richbai90/mvcapture/internal/connectors"
	"github.com/richbai90/mvcapture/internal/metrics"
	"github.com/richbai90/mvcapture/internal/snapshot"
)

// StrategyFromConfig builds the retrieval strategy selected by cfg.Mode.
func StrategyFromConfig(cfg config.TransferConfig) snapshot.Strategy {
	if cfg.Mode == config.TransferChunked {
		return chunkedFromConfig(cfg)
	}

	return snapshot.Cutthrough{Timeout: cfg.RawTimeout()}
}

func chunkedFromConfig(cfg config.TransferConfig) snapshot.Chunked {
	return snapshot.Chunked{Window: cfg.Window, Retry: cfg.RetryPolicy()}
}

// NewFetcher wires a fetcher whose progress events reach the bus and the
// metrics collectors.
func NewFetcher(cfg config.TransferConfig, logger *slog.Logger, b bus.MessageBus) *snapshot.Fetcher {
	opts := []snapshot.Option{
		snapshot.WithLogger(logger),
		snapshot.WithMaxPayload(cfg.MaxPayload),
		snapshot.WithObserver(snapshot.Observers{
			snapshot.ObserverFunc(metrics.Observe),
			NewFetchEventPublisher(b),
		}),
	}
	if cfg.FallbackToChunked && cfg.Mode != config.TransferChunked {
		opts = append(opts, snapshot.WithFallback(chunkedFromConfig(cfg)))
	}

	return snapshot.NewFetcher(opts...)
}

// NewFetchEventPublisher mirrors snapshot progress events onto the bus.
func NewFetchEventPublisher(b bus.MessageBus) snapshot.Observer {
	return snapshot.ObserverFunc(func(e snapshot.Event) {
		if b == nil {
			return
		}
		ev := connectors.FetchEvent{
			Kind:        string(e.Kind),
			Strategy:    e.Strategy,
			Size:        e.Size,
			ChunkOffset: e.Chunk.Offset,
			ChunkLength: e.Chunk.Length,
			Attempt:     e.Attempt,
			Elapsed:     e.Elapsed,
			Timestamp:   time.Now(),
		}
		if e.Err != nil {
			ev.Err = e.Err.Error()
		}
		b.Publish(connectors.TopicFetchEvent, ev)
	})
}
