// Package paste types history items into the focused window by placing them on the
// clipboard and sending the platform paste shortcut.
package paste

import (
	"runtime"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultSettle is how long the clipboard is given to publish new content before the
// shortcut is sent.
const DefaultSettle = 150 * time.Millisecond

// Writer puts text on the clipboard. *clipboard.Monitor satisfies it and records the
// write so it is not captured again.
type Writer interface {
	Write(text []byte) error
}

// Paster pastes text into whatever window has focus.
type Paster struct {
	clip   Writer
	settle time.Duration

	sleep func(time.Duration)
	tap   func() error
}

// New returns a Paster that writes through clip. A non-positive settle uses DefaultSettle.
func New(clip Writer, settle time.Duration) *Paster {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Paster{clip: clip, settle: settle, sleep: time.Sleep, tap: tapShortcut}
}

// Paste stops at the first failing step.
func (p *Paster) Paste(text []byte) error {
	if err := p.clip.Write(text); err != nil {
		return errors.Wrap(err, "set clipboard")
	}
	p.sleep(p.settle)
	if err := p.tap(); err != nil {
		return errors.Wrap(err, "send paste shortcut")
	}
	logrus.WithField("bytes", len(text)).Debug("Pasted")
	return nil
}

func tapShortcut() error {
	modifier := "ctrl"
	if runtime.GOOS == "darwin" {
		modifier = "cmd"
	}
	return robotgo.KeyTap("v", modifier)
}
