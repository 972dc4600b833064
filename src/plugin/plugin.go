// Package plugin runs clipboard captures and key events through an ordered chain of
// handlers that may veto or consume them.
package plugin

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"infinitecopy/src/formats"
)

// KeyEvent is a key combination seen by the server.
type KeyEvent struct {
	Combo string
}

// Plugin reacts to captures and key events.
type Plugin interface {
	Name() string
	// OnClipboardChanged returns false to keep the capture out of the history.
	OnClipboardChanged(data formats.Payloads) bool
	// OnKeyEvent returns true when it consumed the event.
	OnKeyEvent(ev KeyEvent) bool
}

// Base accepts every capture and consumes no key events. Embed it to implement only
// the hooks a plugin needs.
type Base struct{}

func (Base) OnClipboardChanged(formats.Payloads) bool { return true }
func (Base) OnKeyEvent(KeyEvent) bool                 { return false }

// Chain calls plugins in order.
type Chain []Plugin

// OnClipboardChanged reports whether every plugin accepted the capture. It stops at the
// first veto.
func (c Chain) OnClipboardChanged(data formats.Payloads) bool {
	for _, p := range c {
		if !p.OnClipboardChanged(data) {
			logrus.WithFields(logrus.Fields{"plugin": p.Name(), "source": data.Source()}).Debug("Capture vetoed")
			return false
		}
	}
	return true
}

// OnKeyEvent reports whether a plugin consumed ev. It stops at the first consumer.
func (c Chain) OnKeyEvent(ev KeyEvent) bool {
	for _, p := range c {
		if p.OnKeyEvent(ev) {
			logrus.WithFields(logrus.Fields{"plugin": p.Name(), "combo": ev.Combo}).Debug("Key event consumed")
			return true
		}
	}
	return false
}

// Names lists the chain in order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, p := range c {
		names[i] = p.Name()
	}
	return names
}

var registry = map[string]func() Plugin{
	"no-autoadd":       func() Plugin { return noAutoAdd{} },
	"ignore-selection": func() Plugin { return ignoreSelection{} },
	"ignore-secrets":   func() Plugin { return ignoreSecrets{} },
}

// Load builds the chain for the configured names, in order. An unknown name is an error.
func Load(names []string) (Chain, error) {
	var chain Chain
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		factory, ok := registry[name]
		if !ok {
			return nil, errors.Errorf("unknown plugin %q", name)
		}
		chain = append(chain, factory())
		logrus.WithField("plugin", name).Debug("Plugin loaded")
	}
	return chain, nil
}
