package ui

import (
	"testing"

	fynetest "fyne.io/fyne/v2/test"

	"github.com/richbai90/mvcapture/internal/notifications"
)

func TestFyneNotificationSenderNilSafe(t *testing.T) {
	var sender *FyneNotificationSender
	sender.Send(notifications.Payload{Title: "x"})

	NewFyneNotificationSender(nil).Send(notifications.Payload{Title: "x"})
}

func TestFyneNotificationSenderSkipsEmptyPayload(t *testing.T) {
	app := fynetest.NewApp()
	t.Cleanup(app.Quit)

	NewFyneNotificationSender(app).Send(notifications.Payload{Title: "  ", Content: "\n"})
	NewFyneNotificationSender(app).Send(notifications.Payload{Title: "Capture failed", Content: "Slide 2: no frame"})
}
