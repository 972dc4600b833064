// Package eventloop is the server's single coordinating goroutine. Commands from clients,
// clipboard captures, hotkey presses and tray clicks are all handled on it, so the item
// store is only ever touched from one goroutine. Blocking work goes to a worker pool and
// reports back through the event channel.
package eventloop

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"infinitecopy/src/commands"
	"infinitecopy/src/formats"
	"infinitecopy/src/logutil"
	"infinitecopy/src/messages"
	"infinitecopy/src/plugin"
	"infinitecopy/src/singleinstance"
	"infinitecopy/src/store"
	"infinitecopy/src/ui"
	"infinitecopy/src/worker"
)

// Options wires the loop to its collaborators.
type Options struct {
	// Server must already be started; the loop closes it on exit.
	Server singleinstance.Server
	Store  *store.Store
	// History overrides the view of Store handed to commands.
	History commands.History
	Window  ui.Window
	// Paster is nil when pasting is disabled.
	Paster  commands.Paster
	Plugins plugin.Chain
	Workers int
	// SetTooltip, if set, receives a status line after the history changed.
	SetTooltip func(string)
}

// Loop is the single-threaded coordinator.
type Loop struct {
	srv        singleinstance.Server
	store      *store.Store
	window     ui.Window
	plugins    plugin.Chain
	dispatcher *commands.Dispatcher
	pool       *worker.Pool
	setTooltip func(string)

	events chan messages.Message
	done   chan struct{}

	mu   sync.Mutex
	ctx  context.Context
	stop context.CancelFunc
}

// New creates a loop. Nothing runs until Run.
func New(opts Options) *Loop {
	window := opts.Window
	if window == nil {
		window = ui.NewHeadless()
	}
	history := opts.History
	if history == nil && opts.Store != nil {
		history = commands.FromStore(opts.Store)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	l := &Loop{
		srv:        opts.Server,
		store:      opts.Store,
		window:     window,
		plugins:    opts.Plugins,
		pool:       worker.New(workers),
		setTooltip: opts.SetTooltip,
		events:     make(chan messages.Message, 64),
		done:       make(chan struct{}),
	}
	l.dispatcher = commands.New(&commands.Env{
		Store:  history,
		Window: window,
		Paster: opts.Paster,
		Async:  l.async,
		Quit:   l.Stop,
	})
	return l
}

// Dispatcher exposes the command table, e.g. to register extra commands before Run.
func (l *Loop) Dispatcher() *commands.Dispatcher { return l.dispatcher }

// Post queues an event for the loop. It returns false once the loop has exited.
// Post must not be called from the loop goroutine itself.
func (l *Loop) Post(m messages.Message) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- m:
		return true
	case <-l.done:
		return false
	}
}

// Stop makes Run return. It is safe to call from any goroutine, before or during Run.
func (l *Loop) Stop() {
	l.mu.Lock()
	stop := l.stop
	l.mu.Unlock()
	if stop != nil {
		stop()
		return
	}
	select {
	case l.events <- messages.Quit{Reason: "stopped before start"}:
	default:
	}
}

// Run processes events until ctx ends, a Quit arrives or the server closes. It closes the
// server and drains the worker pool before returning.
func (l *Loop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	l.mu.Lock()
	l.ctx, l.stop = ctx, cancel
	l.mu.Unlock()

	defer func() {
		close(l.done)
		if l.srv != nil {
			_ = l.srv.Close()
		}
		l.pool.Close()
		logrus.Info("Event loop stopped")
	}()

	// Accept in the background so a slow client never blocks event handling.
	reqCh := make(chan singleinstance.Conn, 4)
	if l.srv != nil {
		logrus.WithField("addr", l.srv.Addr()).Info("Server listening")
		go func() {
			defer close(reqCh)
			for {
				conn, err := l.srv.Next(ctx)
				if err != nil {
					logrus.WithError(err).Debug("Accept loop finished")
					return
				}
				select {
				case reqCh <- conn:
				case <-ctx.Done():
					_ = conn.Close()
					return
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case conn, ok := <-reqCh:
			if !ok {
				return nil
			}
			l.handleConn(ctx, conn)
		case m := <-l.events:
			if !l.handle(ctx, m) {
				return nil
			}
		}
	}
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	log := logrus.WithField("conn", conn.ID())
	l.dispatcher.Dispatch(ctx, conn.Command(), conn, log)
}

// handle returns false when the loop should exit.
func (l *Loop) handle(ctx context.Context, m messages.Message) bool {
	switch m := m.(type) {
	case messages.ClipboardChanged:
		l.handleCapture(ctx, m)
	case messages.HotkeyPressed:
		if l.plugins.OnKeyEvent(plugin.KeyEvent{Combo: m.Combo}) {
			return true
		}
		l.window.Toggle()
	case messages.TrayMenuClicked:
		switch m.Action {
		case messages.ActionShow:
			l.window.Show()
		case messages.ActionQuit:
			logrus.Info("Quit from tray")
			return false
		default:
			logrus.WithField("action", m.Action).Warn("Unknown tray action")
		}
	case messages.JobComplete:
		if m.Done != nil {
			m.Done(m.Err)
		}
	case messages.Quit:
		logrus.WithField("reason", m.Reason).Info("Quit requested")
		return false
	default:
		logrus.WithField("type", m.Type()).Warn("Unhandled message")
	}
	return true
}

func (l *Loop) handleCapture(ctx context.Context, m messages.ClipboardChanged) {
	if l.store == nil || !l.plugins.OnClipboardChanged(m.Data) {
		return
	}
	added, err := l.store.AddItem(ctx, m.Data)
	if err != nil {
		logrus.WithError(err).Error("Failed to store clipboard content")
		return
	}
	if !added {
		return
	}
	logrus.WithFields(logrus.Fields{
		"source": m.Data.Source(),
		"text":   logutil.Sanitize(string(m.Data[formats.Text])),
	}).Debug("Captured")
	if l.setTooltip != nil {
		if n, err := l.store.Count(ctx); err == nil {
			l.setTooltip(fmt.Sprintf("InfiniteCopy: %d items", n))
		}
	}
}

// async runs job on the pool and delivers its result back to the loop.
func (l *Loop) async(job func() error, done func(error)) bool {
	l.mu.Lock()
	ctx := l.ctx
	l.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	return l.pool.Submit(ctx, "paste", func(context.Context) error {
		return job()
	}, func(err error) {
		if !l.Post(messages.JobComplete{Err: err, Done: done}) {
			logrus.WithError(err).Debug("Job finished after the loop stopped")
		}
	})
}
