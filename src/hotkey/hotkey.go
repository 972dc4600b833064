// Package hotkey registers the global shortcut that toggles the history window.
package hotkey

import (
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	mu      sync.Mutex
	running bool
)

// Listen registers combo (e.g. "Ctrl+Shift+V") and calls callback from the hook
// goroutine whenever it is pressed. The returned function stops the hook.
func Listen(combo string, callback func()) (stop func(), err error) {
	keys, err := Parse(combo)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	if running {
		return nil, errors.New("hotkey: a listener is already running")
	}

	gohook.Register(gohook.KeyDown, keys, func(gohook.Event) {
		logrus.WithField("hotkey", combo).Debug("Hotkey pressed")
		if callback != nil {
			callback()
		}
	})

	events := gohook.Start()
	running = true
	logrus.WithField("hotkey", combo).Info("Hotkey listener started")

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithField("panic", r).Error("Hotkey listener crashed")
			}
		}()
		<-gohook.Process(events)
		logrus.Debug("Hotkey listener stopped")
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			gohook.End()
			mu.Lock()
			running = false
			mu.Unlock()
		})
	}, nil
}

// Parse converts a combination like "Ctrl+Alt+q" to the key names the hook understands.
func Parse(combo string) ([]string, error) {
	keys := parseHotkey(combo)
	if len(keys) == 0 {
		return nil, errors.Errorf("hotkey: empty combination %q", combo)
	}
	for _, k := range keys {
		if _, ok := gohook.Keycode[k]; !ok {
			return nil, errors.Errorf("hotkey: unknown key %q in %q", k, combo)
		}
	}
	return keys, nil
}

// parseHotkey normalizes modifier aliases and drops empty parts.
func parseHotkey(combo string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(combo), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			part = "ctrl"
		case "win", "super", "meta":
			part = "cmd"
		case "return":
			part = "enter"
		case "escape":
			part = "esc"
		}
		keys = append(keys, part)
	}
	return keys
}
