// Package runtimeinit assembles the server process once this instance owns the endpoint.
package runtimeinit

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"infinitecopy/src/clipboard"
	"infinitecopy/src/commands"
	"infinitecopy/src/config"
	"infinitecopy/src/eventloop"
	"infinitecopy/src/formats"
	"infinitecopy/src/hotkey"
	"infinitecopy/src/messages"
	"infinitecopy/src/paste"
	"infinitecopy/src/plugin"
	"infinitecopy/src/singleinstance"
	"infinitecopy/src/store"
	"infinitecopy/src/tray"
	"infinitecopy/src/ui"
)

// Deps replace platform collaborators. Zero values select the real ones.
type Deps struct {
	// Backend is the clipboard. When nil the system clipboard is used if monitoring or
	// pasting is enabled.
	Backend clipboard.Backend
	Window  ui.Window
	// Paster overrides the clipboard-and-keystroke paster.
	Paster commands.Paster
}

// Serve runs the server until a quit command, a tray quit, a signal or ctx ends. It takes
// ownership of srv.
func Serve(ctx context.Context, cfg *config.Config, srv singleinstance.Server, deps Deps) error {
	log := logrus.WithField("session", cfg.Session)

	if err := config.EnsureDataDir(cfg); err != nil {
		_ = srv.Close()
		return err
	}
	items, err := store.Open(ctx, config.DatabasePath(cfg), store.Options{MaxItems: cfg.MaxItems})
	if err != nil {
		_ = srv.Close()
		return errors.Wrap(err, "open item store")
	}
	defer items.Close()

	chain, err := plugin.Load(cfg.Plugins)
	if err != nil {
		_ = srv.Close()
		return err
	}

	backend := deps.Backend
	if backend == nil && (cfg.Monitor || cfg.EnablePaste) {
		if backend, err = clipboard.NewSystemBackend(); err != nil {
			log.WithError(err).Warn("Clipboard unavailable; monitoring and pasting disabled")
			backend = nil
		}
	}

	var loop *eventloop.Loop
	var monitor *clipboard.Monitor
	if backend != nil {
		monitor = clipboard.NewMonitor(backend, clipboard.Options{
			ClipboardDelay: cfg.ClipboardDelay,
			SelectionDelay: cfg.SelectionDelay,
		}, func(data formats.Payloads) {
			loop.Post(messages.ClipboardChanged{Data: data})
		})
	}

	paster := deps.Paster
	if paster == nil && cfg.EnablePaste && monitor != nil {
		paster = paste.New(monitor, 0)
	}
	if !cfg.EnablePaste {
		paster = nil
	}

	var setTooltip func(string)
	if cfg.EnableTray {
		setTooltip = tray.UpdateTooltip
	}

	loop = eventloop.New(eventloop.Options{
		Server:     srv,
		Store:      items,
		Window:     deps.Window,
		Paster:     paster,
		Plugins:    chain,
		SetTooltip: setTooltip,
	})

	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if monitor != nil && cfg.Monitor {
		go monitor.Run(ctx)
	}

	if cfg.Hotkey != "" {
		combo := cfg.Hotkey
		stop, err := hotkey.Listen(combo, func() {
			loop.Post(messages.HotkeyPressed{Combo: combo})
		})
		if err != nil {
			log.WithError(err).Warn("Hotkey disabled")
		} else {
			defer stop()
		}
	}

	if cfg.EnableTray {
		go tray.Run(tray.Config{
			Title:   "InfiniteCopy",
			Tooltip: "InfiniteCopy",
			OnShow:  func() { loop.Post(messages.TrayMenuClicked{Action: messages.ActionShow}) },
			OnQuit:  func() { loop.Post(messages.TrayMenuClicked{Action: messages.ActionQuit}) },
		})
		defer tray.Quit()
	}

	log.WithFields(logrus.Fields{
		"db":      config.DatabasePath(cfg),
		"plugins": chain.Names(),
		"paste":   paster != nil,
	}).Info("Server started")
	return loop.Run(ctx)
}
