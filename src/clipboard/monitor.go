package clipboard

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/sirupsen/logrus"

	"infinitecopy/src/formats"
)

// Default settle delays per source.
const (
	DefaultClipboardDelay = 500 * time.Millisecond
	DefaultSelectionDelay = 1000 * time.Millisecond
)

// Options tune a monitor.
type Options struct {
	ClipboardDelay time.Duration
	SelectionDelay time.Duration
}

// Monitor debounces backend changes per source and reports the last content of each
// burst. Content written through the monitor itself is not reported.
type Monitor struct {
	backend  Backend
	onChange func(formats.Payloads)
	debounce map[string]func(func())

	mu      sync.Mutex
	pending map[string]formats.Payloads
	owned   []byte
}

// NewMonitor returns a monitor calling onChange from a timer goroutine.
func NewMonitor(backend Backend, opts Options, onChange func(formats.Payloads)) *Monitor {
	if opts.ClipboardDelay <= 0 {
		opts.ClipboardDelay = DefaultClipboardDelay
	}
	if opts.SelectionDelay <= 0 {
		opts.SelectionDelay = DefaultSelectionDelay
	}
	return &Monitor{
		backend:  backend,
		onChange: onChange,
		debounce: map[string]func(func()){
			formats.SourceClipboard: debounce.New(opts.ClipboardDelay),
			formats.SourceSelection: debounce.New(opts.SelectionDelay),
		},
		pending: make(map[string]formats.Payloads),
	}
}

// Run consumes backend changes until ctx ends or the backend stops.
func (m *Monitor) Run(ctx context.Context) {
	logrus.Info("Clipboard monitor started")
	defer logrus.Info("Clipboard monitor stopped")

	changes := m.backend.Watch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-changes:
			if !ok {
				return
			}
			m.observe(ch)
		}
	}
}

func (m *Monitor) observe(ch Change) {
	debounced, ok := m.debounce[ch.Source]
	if !ok {
		logrus.WithField("source", ch.Source).Warn("Ignoring change from unknown source")
		return
	}

	m.mu.Lock()
	if m.owned != nil && bytes.Equal(m.owned, ch.Data[formats.Text]) {
		m.owned = nil
		delete(m.pending, ch.Source)
		m.mu.Unlock()
		logrus.WithField("source", ch.Source).Debug("Ignoring our own clipboard write")
		return
	}
	m.pending[ch.Source] = ch.Data
	m.mu.Unlock()

	source := ch.Source
	debounced(func() { m.fire(source) })
}

func (m *Monitor) fire(source string) {
	m.mu.Lock()
	data, ok := m.pending[source]
	delete(m.pending, source)
	m.mu.Unlock()
	if !ok {
		return
	}

	logrus.WithFields(logrus.Fields{"source": source, "formats": len(data)}).Debug("Clipboard changed")
	if m.onChange != nil {
		m.onChange(data.WithSource(source))
	}
}

// Write places text on the clipboard and remembers it so the resulting change is skipped.
func (m *Monitor) Write(text []byte) error {
	m.mu.Lock()
	m.owned = append([]byte{}, text...)
	m.mu.Unlock()
	return m.backend.Write(text)
}
