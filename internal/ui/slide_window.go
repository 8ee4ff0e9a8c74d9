package ui

import (
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

// slideWindow is the slideshow.Display backed by a fullscreen image.
type slideWindow struct {
	image *canvas.Image
}

func newSlideWindow() *slideWindow {
	img := &canvas.Image{FillMode: canvas.ImageFillContain}

	return &slideWindow{image: img}
}

// Show swaps the displayed image. It may be called from any goroutine.
func (w *slideWindow) Show(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("open slide: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("open slide: %s is a directory", path)
	}

	appLogger.Debug("showing slide", "path", path)
	fyne.Do(func() {
		w.image.Resource = nil
		w.image.File = path
		w.image.Refresh()
	})

	return nil
}
