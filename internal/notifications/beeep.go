package notifications

import (
	"log/slog"
	"strings"

	"github.com/gen2brain/beeep"
)

// BeeepSender sends desktop notifications without a GUI toolkit, for the
// command line tools.
type BeeepSender struct {
	logger *slog.Logger
	notify func(title, message string) error
}

func NewBeeepSender(logger *slog.Logger) *BeeepSender {
	if logger == nil {
		logger = slog.Default()
	}

	return &BeeepSender{
		logger: logger.With("component", "notifications.beeep"),
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

func (s *BeeepSender) Send(payload Payload) {
	if s == nil || s.notify == nil {
		return
	}

	title := strings.TrimSpace(payload.Title)
	content := strings.TrimSpace(payload.Content)
	if title == "" && content == "" {
		return
	}
	if err := s.notify(title, content); err != nil {
		s.logger.Debug("desktop notification failed", "error", err)
	}
}
