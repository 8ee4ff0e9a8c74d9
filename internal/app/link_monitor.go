package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/richbai90/mvcapture/internal/bus"
	"github.com/richbai90/mvcapture/internal/connectors"
)

const (
	linkInitialBackoff = time.Second
	linkMaxBackoff     = 15 * time.Second
	linkPollInterval   = time.Second
)

// MonitoredLink is the part of a transport the monitor drives.
type MonitoredLink interface {
	Name() string
	StatusTarget() string
	Connect(ctx context.Context) error
	Connected() bool
}

// LinkMonitor keeps the device link open and publishes its state. The rpc
// client closes the transport on hard I/O errors; the monitor notices and
// reconnects with backoff.
type LinkMonitor struct {
	logger *slog.Logger
	bus    bus.MessageBus
	link   MonitoredLink
	poll   time.Duration
}

func NewLinkMonitor(logger *slog.Logger, b bus.MessageBus, link MonitoredLink) *LinkMonitor {
	if logger == nil {
		logger = slog.Default()
	}

	return &LinkMonitor{logger: logger, bus: b, link: link, poll: linkPollInterval}
}

func (m *LinkMonitor) Start(ctx context.Context) {
	go m.run(ctx)
}

func (m *LinkMonitor) run(ctx context.Context) {
	backoff := linkInitialBackoff
	for {
		if err := ctx.Err(); err != nil {
			return
		}

		m.publish(connectors.ConnectionStateConnecting, nil)
		if err := m.link.Connect(ctx); err != nil {
			m.publish(connectors.ConnectionStateDisconnected, err)
			m.logger.Warn("link connect failed", "target", m.link.StatusTarget(), "error", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			if backoff < linkMaxBackoff {
				backoff *= 2
			}
			continue
		}

		backoff = linkInitialBackoff
		m.publish(connectors.ConnectionStateConnected, nil)
		if !m.waitForDrop(ctx) {
			return
		}
		m.logger.Info("link dropped", "target", m.link.StatusTarget())
		m.publish(connectors.ConnectionStateDisconnected, nil)
		if !sleepWithContext(ctx, backoff) {
			return
		}
	}
}

func (m *LinkMonitor) waitForDrop(ctx context.Context) bool {
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if !m.link.Connected() {
				return true
			}
		}
	}
}

func (m *LinkMonitor) publish(state connectors.ConnectionState, err error) {
	if m.bus == nil {
		return
	}
	status := connectors.ConnectionStatus{
		State:         state,
		TransportName: m.link.Name(),
		Target:        m.link.StatusTarget(),
		Timestamp:     time.Now(),
	}
	if err != nil {
		status.Err = err.Error()
	}
	m.bus.Publish(connectors.TopicConnStatus, status)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
