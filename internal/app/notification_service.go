package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/richbai90/mvcapture/internal/bus"
	"github.com/richbai90/mvcapture/internal/config"
	"github.com/richbai90/mvcapture/internal/connectors"
	"github.com/richbai90/mvcapture/internal/notifications"
)

const (
	notificationTitleCaptureFailed   = "Capture failed"
	notificationTitleSessionFinished = "Capture session finished"
	notificationTitleSessionAborted  = "Capture session aborted"
)

// NotificationService listens to bus events and emits user-facing notifications.
type NotificationService struct {
	bus           bus.MessageBus
	currentConfig func() config.AppConfig
	sender        notifications.Sender
	logger        *slog.Logger

	connStatusMu     sync.Mutex
	lastConnState    connectors.ConnectionState
	lastConnStateSet bool
}

func NewNotificationService(
	messageBus bus.MessageBus,
	currentConfig func() config.AppConfig,
	sender notifications.Sender,
	logger *slog.Logger,
) *NotificationService {
	if logger == nil {
		logger = slog.Default().With("component", "app.notifications")
	}

	return &NotificationService{
		bus:           messageBus,
		currentConfig: currentConfig,
		sender:        sender,
		logger:        logger,
	}
}

func (s *NotificationService) Start(ctx context.Context) {
	if s == nil || s.bus == nil || s.sender == nil {
		return
	}

	sub := s.bus.Subscribe(connectors.TopicCaptureResult, connectors.TopicSessionState, connectors.TopicConnStatus)

	go func() {
		for {
			select {
			case <-ctx.Done():
				s.bus.Unsubscribe(sub)

				return
			case raw, ok := <-sub:
				if !ok {
					return
				}
				switch event := raw.(type) {
				case connectors.CaptureResult:
					s.handleCaptureResult(event)
				case connectors.SessionState:
					s.handleSessionState(event)
				case connectors.ConnectionStatus:
					s.handleConnectionStatus(event)
				}
			}
		}
	}()
}

func (s *NotificationService) handleCaptureResult(result connectors.CaptureResult) {
	prefs := s.notificationPrefs()
	if result.Succeeded() || !shouldNotify(prefs, prefs.Events.CaptureFailed) {
		return
	}

	s.send(notifications.Payload{
		Title:   notificationTitleCaptureFailed,
		Content: fmt.Sprintf("Slide %d: %s", result.SlideIndex, result.Err),
	})
}

func (s *NotificationService) handleSessionState(state connectors.SessionState) {
	prefs := s.notificationPrefs()
	if !shouldNotify(prefs, prefs.Events.SessionFinished) {
		return
	}

	var title string
	switch state.Status {
	case connectors.SessionStatusFinished:
		title = notificationTitleSessionFinished
	case connectors.SessionStatusAborted:
		title = notificationTitleSessionAborted
	default:
		return
	}

	content := fmt.Sprintf("%d of %d slides captured", state.Captured, state.Slides)
	if dir := strings.TrimSpace(state.OutputDir); dir != "" {
		content += " in " + dir
	}
	s.send(notifications.Payload{Title: title, Content: content})
}

func (s *NotificationService) handleConnectionStatus(status connectors.ConnectionStatus) {
	prefs := s.notificationPrefs()
	if status.State == "" {
		return
	}

	s.connStatusMu.Lock()
	if s.lastConnStateSet && s.lastConnState == status.State {
		s.connStatusMu.Unlock()

		return
	}
	s.lastConnState = status.State
	s.lastConnStateSet = true
	s.connStatusMu.Unlock()

	if status.State != connectors.ConnectionStateConnected &&
		status.State != connectors.ConnectionStateDisconnected {
		return
	}
	if !shouldNotify(prefs, prefs.Events.ConnectionStatus) {
		return
	}

	transport := notificationTransportName(status.TransportName)
	if transport == "" {
		transport = "Unknown"
	}
	details := strings.TrimSpace(status.Target)
	if details == "" {
		details = "No connection details"
	}
	if status.State == connectors.ConnectionStateDisconnected {
		if errText := strings.TrimSpace(status.Err); errText != "" {
			details = fmt.Sprintf("%s (error: %s)", details, errText)
		}
	}

	s.send(notifications.Payload{
		Title:   fmt.Sprintf("Camera %s - %s", transport, status.State),
		Content: details,
	})
}

func shouldNotify(prefs config.NotificationConfig, kindEnabled bool) bool {
	return prefs.Enabled && kindEnabled
}

func (s *NotificationService) notificationPrefs() config.NotificationConfig {
	cfg := config.Default()
	if s.currentConfig != nil {
		cfg = s.currentConfig()
	}

	return cfg.Notifications
}

func (s *NotificationService) send(notification notifications.Payload) {
	title := strings.TrimSpace(notification.Title)
	content := strings.TrimSpace(notification.Content)
	if title == "" && content == "" {
		return
	}
	s.logger.Debug("sending notification", "title", title)
	s.sender.Send(notifications.Payload{
		Title:   title,
		Content: content,
	})
}

func notificationTransportName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tcp":
		return "TCP"
	case "serial":
		return "Serial"
	case "sim":
		return "Simulator"
	default:
		return strings.TrimSpace(name)
	}
}
