// Package clipboard watches the system clipboard and reports settled changes.
package clipboard

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.design/x/clipboard"

	"infinitecopy/src/formats"
)

// Change is new content observed on one source.
type Change struct {
	Source string
	Data   formats.Payloads
}

// Backend is a clipboard implementation.
type Backend interface {
	// Watch streams changes until ctx ends.
	Watch(ctx context.Context) <-chan Change
	// Write places text on the clipboard.
	Write(text []byte) error
}

type systemBackend struct {
	writeMu sync.Mutex
}

// NewSystemBackend initializes the platform clipboard. It fails when no display or
// clipboard service is available.
func NewSystemBackend() (Backend, error) {
	if err := clipboard.Init(); err != nil {
		return nil, errors.Wrap(err, "clipboard init")
	}
	return &systemBackend{}, nil
}

// Watch merges the text and image watches. The system clipboard has no separate
// selection buffer here, so every change is reported as the clipboard source.
func (b *systemBackend) Watch(ctx context.Context) <-chan Change {
	out := make(chan Change, 16)
	var wg sync.WaitGroup
	forward := func(format clipboard.Format, name string) {
		defer wg.Done()
		for data := range clipboard.Watch(ctx, format) {
			select {
			case out <- Change{Source: formats.SourceClipboard, Data: formats.Payloads{name: data}}:
			case <-ctx.Done():
				return
			}
		}
	}
	wg.Add(2)
	go forward(clipboard.FmtText, formats.Text)
	go forward(clipboard.FmtImage, formats.PNG)
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func (b *systemBackend) Write(text []byte) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, text)
	logrus.WithField("bytes", len(text)).Debug("Clipboard written")
	return nil
}
