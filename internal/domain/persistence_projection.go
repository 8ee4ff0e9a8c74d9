package domain

import (
	"context"

	"github.com/richbai90/mvcapture/internal/bus"
	"github.com/richbai90/mvcapture/internal/connectors"
)

// WriteQueue serializes persistence writes from async domain events.
type WriteQueue interface {
	Enqueue(name string, fn func(context.Context) error)
}

// StartPersistenceProjection stores session and capture events. Both topics
// share one subscription so a session row is queued before its captures.
// The returned channel closes once the projection has stopped, either on ctx
// or after the bus closed and every delivered event was queued.
func StartPersistenceProjection(ctx context.Context, b bus.MessageBus, queue WriteQueue, sessionRepo SessionRepository, captureRepo CaptureRepository) <-chan struct{} {
	sub := b.Subscribe(connectors.TopicSessionState, connectors.TopicCaptureResult)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				b.Unsubscribe(sub)

				return
			case raw, ok := <-sub:
				if !ok {
					// Closed bus; nothing left to unsubscribe from.
					return
				}
				switch event := raw.(type) {
				case connectors.SessionState:
					session := SessionFromState(event)
					queue.Enqueue("upsert_session", func(writeCtx context.Context) error {
						return sessionRepo.Upsert(writeCtx, session)
					})
				case connectors.CaptureResult:
					record := CaptureFromResult(event)
					queue.Enqueue("insert_capture", func(writeCtx context.Context) error {
						return captureRepo.Insert(writeCtx, record)
					})
				}
			}
		}
	}()

	return done
}
