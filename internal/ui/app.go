// Package ui shows the slideshow fullscreen with fyne.
package ui

import (
	"context"
	"errors"
	"image/color"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"

	mvapp "github.com/richbai90/mvcapture/internal/app"
	"github.com/richbai90/mvcapture/internal/connectors"
)

const appID = "io.github.richbai90.mvcapture"

var newFyneApp = func() fyne.App {
	return fyneapp.NewWithID(appID)
}

// Run opens the fullscreen slideshow window and blocks until the slideshow
// ends or the user quits. Play has returned by the time Run does.
func Run(dep Dependencies) error {
	return runWithApp(dep, newFyneApp())
}

func runWithApp(dep Dependencies, fyApp fyne.App) error {
	appLogger.Info("starting UI runtime", "version", mvapp.BuildVersion())

	window := fyApp.NewWindow(mvapp.Name)
	window.SetPadded(false)
	window.SetFullScreen(true)

	slides := newSlideWindow()
	overlay := newStatusOverlay(dep.InitialStatus)
	window.SetContent(container.NewStack(
		canvas.NewRectangle(color.Black),
		slides.image,
		overlay.Content(),
	))

	notifCtx, stopNotifCtx := context.WithCancel(context.Background())
	if dep.CurrentConfig != nil {
		mvapp.NewNotificationService(
			dep.Bus,
			dep.CurrentConfig,
			NewFyneNotificationSender(fyApp),
			appLogger.With("component", "ui.notifications"),
		).Start(notifCtx)
	}
	stopListeners := startUIEventListeners(
		dep.Bus,
		func(status connectors.ConnectionStatus) {
			fyne.Do(func() { overlay.SetStatus(status) })
		},
		func(result connectors.CaptureResult) {
			fyne.Do(func() { overlay.SetCapture(result) })
		},
	)

	playCtx, stopPlay := context.WithCancel(context.Background())
	rt := newUIRuntime(fyApp, window, stopPlay, stopNotifCtx, stopListeners, dep.OnQuit)
	rt.BindCloseIntercept()
	bindEscapeToQuit(window, rt.Quit)
	configureSystemTray(fyApp, window, rt.Quit)

	if dep.Play != nil {
		fyApp.Lifecycle().SetOnStarted(func() {
			rt.Go(func() {
				err := dep.Play(playCtx, slides)
				if err != nil && !errors.Is(err, context.Canceled) {
					appLogger.Error("slideshow stopped", "error", err)
				}
				if playCtx.Err() == nil {
					fyne.Do(rt.Quit)
				}
			})
		})
	}

	rt.Run()

	return nil
}

func bindEscapeToQuit(window fyne.Window, quit func()) {
	window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			appLogger.Debug("escape pressed: quitting")
			quit()
		}
	})
}
