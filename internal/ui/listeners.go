package ui

import (
	"fmt"
	"sync"

	"github.com/richbai90/mvcapture/internal/bus"
	"github.com/richbai90/mvcapture/internal/connectors"
)

func startUIEventListeners(
	messageBus bus.MessageBus,
	onConnStatus func(connectors.ConnectionStatus),
	onCaptureResult func(connectors.CaptureResult),
) func() {
	if messageBus == nil {
		appLogger.Debug("skipping UI event listeners: message bus is nil")

		return func() {}
	}

	sub := messageBus.Subscribe(connectors.TopicConnStatus, connectors.TopicCaptureResult)
	appLogger.Debug(
		"subscribed to UI bus topics",
		"topics", []string{connectors.TopicConnStatus, connectors.TopicCaptureResult},
	)
	done := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		for {
			select {
			case <-done:
				return
			case raw, ok := <-sub:
				if !ok {
					appLogger.Debug("UI subscription closed")

					return
				}
				select {
				case <-done:
					return
				default:
				}
				switch event := raw.(type) {
				case connectors.ConnectionStatus:
					if onConnStatus != nil {
						onConnStatus(event)
					}
				case connectors.CaptureResult:
					if onCaptureResult != nil {
						onCaptureResult(event)
					}
				default:
					appLogger.Debug("ignoring unexpected UI payload", "payload_type", fmt.Sprintf("%T", raw))
				}
			}
		}
	}()

	return func() {
		stopOnce.Do(func() {
			appLogger.Debug("stopping UI event listeners")
			close(done)
			messageBus.Unsubscribe(sub, connectors.TopicConnStatus, connectors.TopicCaptureResult)
		})
	}
}
