// Package tray shows the system tray icon with its menu.
package tray

import (
	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"
)

// Config describes the tray entry. Callbacks run on the tray goroutine.
type Config struct {
	Title   string
	Tooltip string
	OnShow  func()
	OnQuit  func()
	// OnReady runs once the icon is installed.
	OnReady func()
}

// Run installs the icon and blocks until Quit. It must be called from the main goroutine.
func Run(cfg Config) {
	systray.Run(func() { onReady(cfg) }, func() {
		logrus.Debug("Tray exited")
	})
}

// Quit removes the icon and makes Run return.
func Quit() {
	systray.Quit()
}

// UpdateTooltip changes the hover text.
func UpdateTooltip(text string) {
	systray.SetTooltip(text)
}

func onReady(cfg Config) {
	systray.SetIcon(Icon())
	systray.SetTitle(cfg.Title)
	systray.SetTooltip(cfg.Tooltip)

	mShow := systray.AddMenuItem("Show history", "Show the clipboard history")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit the application")

	go func() {
		for {
			select {
			case <-mShow.ClickedCh:
				logrus.Debug("Tray: show clicked")
				if cfg.OnShow != nil {
					cfg.OnShow()
				}
			case <-mQuit.ClickedCh:
				logrus.Debug("Tray: quit clicked")
				if cfg.OnQuit != nil {
					cfg.OnQuit()
				}
				return
			}
		}
	}()

	logrus.Info("Tray icon ready")
	if cfg.OnReady != nil {
		cfg.OnReady()
	}
}
