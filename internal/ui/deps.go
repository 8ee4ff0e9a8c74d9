package ui

import (
	"context"

	"github.com/richbai90/mvcapture/internal/bus"
	"github.com/richbai90/mvcapture/internal/config"
	"github.com/richbai90/mvcapture/internal/connectors"
	"github.com/richbai90/mvcapture/internal/slideshow"
)

// Dependencies is what the slideshow window needs from the runtime.
type Dependencies struct {
	Bus           bus.MessageBus
	CurrentConfig func() config.AppConfig
	InitialStatus connectors.ConnectionStatus
	// Play drives the slideshow on display; the window closes when it
	// returns. ctx ends when the user quits.
	Play   func(ctx context.Context, display slideshow.Display) error
	OnQuit func()
}
