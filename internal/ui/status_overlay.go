package ui

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"

	"github.com/richbai90/mvcapture/internal/connectors"
)

var (
	overlayTextColor  = color.NRGBA{R: 0xb0, G: 0xb0, B: 0xb0, A: 0xff}
	overlayErrorColor = color.NRGBA{R: 0xe0, G: 0x60, B: 0x50, A: 0xff}
)

// statusOverlay draws link and capture status in the corner of the slide.
// Its setters must run on the fyne goroutine.
type statusOverlay struct {
	conn    *canvas.Text
	capture *canvas.Text
	content fyne.CanvasObject
}

func newStatusOverlay(initial connectors.ConnectionStatus) *statusOverlay {
	o := &statusOverlay{
		conn:    canvas.NewText("", overlayTextColor),
		capture: canvas.NewText("", overlayTextColor),
	}
	o.conn.TextSize = 12
	o.capture.TextSize = 12
	o.content = container.NewVBox(
		layout.NewSpacer(),
		container.NewHBox(container.NewVBox(o.capture, o.conn), layout.NewSpacer()),
	)
	o.SetStatus(initial)

	return o
}

func (o *statusOverlay) Content() fyne.CanvasObject {
	return o.content
}

func (o *statusOverlay) SetStatus(status connectors.ConnectionStatus) {
	o.conn.Text = formatConnStatus(status)
	o.conn.Color = overlayTextColor
	if status.State == connectors.ConnectionStateDisconnected && status.Err != "" {
		o.conn.Color = overlayErrorColor
	}
	o.conn.Refresh()
}

func (o *statusOverlay) SetCapture(result connectors.CaptureResult) {
	o.capture.Text = formatCaptureResult(result)
	o.capture.Color = overlayTextColor
	if !result.Succeeded() {
		o.capture.Color = overlayErrorColor
	}
	o.capture.Refresh()
}

func formatConnStatus(status connectors.ConnectionStatus) string {
	text := string(status.State)
	if name := transportDisplayName(status.TransportName); name != "" {
		text = name + " " + text
	}
	if target := strings.TrimSpace(status.Target); target != "" {
		text += " (" + target + ")"
	}
	if status.Err != "" {
		text += " (" + status.Err + ")"
	}

	return text
}

func formatCaptureResult(result connectors.CaptureResult) string {
	if !result.Succeeded() {
		return fmt.Sprintf("Slide %d: capture failed", result.SlideIndex)
	}

	return fmt.Sprintf("Slide %d: %d frames in %s", result.SlideIndex, result.FramesOK, result.Duration.Round(time.Millisecond))
}

func transportDisplayName(name string) string {
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
