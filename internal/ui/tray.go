package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"

	mvapp "github.com/richbai90/mvcapture/internal/app"
)

// configureSystemTray reports whether the app supports a tray.
func configureSystemTray(fyApp fyne.App, window fyne.Window, quit func()) bool {
	desk, ok := fyApp.(desktop.App)
	if !ok {
		return false
	}

	desk.SetSystemTrayIcon(theme.MediaPhotoIcon())
	desk.SetSystemTrayMenu(fyne.NewMenu(mvapp.Name,
		fyne.NewMenuItem("Show slideshow", func() {
			appLogger.Debug("system tray show action invoked")
			window.Show()
			window.SetFullScreen(true)
			window.RequestFocus()
		}),
		fyne.NewMenuItem("Stop", func() {
			appLogger.Debug("system tray stop action invoked")
			if quit != nil {
				quit()
			}
		}),
	))

	return true
}
