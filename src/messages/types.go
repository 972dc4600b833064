// Package messages defines the events posted into the server's event loop.
package messages

import (
	"infinitecopy/src/formats"
)

// Message is the base interface for all event loop messages
type Message interface {
	Type() string
}

// MessageType constants for type identification
const (
	TypeClipboardChanged = "ClipboardChanged"
	TypeHotkeyPressed    = "HotkeyPressed"
	TypeTrayMenuClicked  = "TrayMenuClicked"
	TypeJobComplete      = "JobComplete"
	TypeQuit             = "Quit"
)

// ClipboardChanged - sent by the clipboard monitor after a source settled on new content
type ClipboardChanged struct {
	Data formats.Payloads
}

func (m ClipboardChanged) Type() string { return TypeClipboardChanged }

// HotkeyPressed - sent by the hotkey listener when the combination is detected
type HotkeyPressed struct {
	Combo string // e.g., "Ctrl+Alt+V"
}

func (m HotkeyPressed) Type() string { return TypeHotkeyPressed }

// Tray actions.
const (
	ActionShow = "show"
	ActionQuit = "quit"
)

// TrayMenuClicked - sent by the tray when the user clicks a menu item
type TrayMenuClicked struct {
	Action string // ActionShow or ActionQuit
}

func (m TrayMenuClicked) Type() string { return TypeTrayMenuClicked }

// JobComplete - sent by a worker when a job submitted from the loop finished.
// Done runs on the loop with the job's error.
type JobComplete struct {
	Err  error
	Done func(error)
}

func (m JobComplete) Type() string { return TypeJobComplete }

// Quit - asks the loop to shut down
type Quit struct {
	Reason string
}

func (m Quit) Type() string { return TypeQuit }
