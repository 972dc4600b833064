// Package ui defines the window the history is shown in. Rendering lives outside this
// module; the server only drives visibility.
package ui

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Window is the history view.
type Window interface {
	Show()
	Hide()
	Toggle()
	// IsActive reports whether the window holds input focus.
	IsActive() bool
}

// Headless tracks visibility for a server running without a graphical front end.
// A visible headless window counts as active.
type Headless struct {
	mu      sync.Mutex
	visible bool
	// OnChange, if set, is called with the new visibility after every change.
	OnChange func(visible bool)
}

// NewHeadless returns a hidden window.
func NewHeadless() *Headless { return &Headless{} }

func (h *Headless) Show()   { h.set(func(bool) bool { return true }) }
func (h *Headless) Hide()   { h.set(func(bool) bool { return false }) }
func (h *Headless) Toggle() { h.set(func(v bool) bool { return !v }) }

func (h *Headless) IsActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visible
}

func (h *Headless) set(next func(bool) bool) {
	h.mu.Lock()
	h.visible = next(h.visible)
	visible := h.visible
	cb := h.OnChange
	h.mu.Unlock()

	logrus.WithField("visible", visible).Debug("Window visibility changed")
	if cb != nil {
		cb(visible)
	}
}
