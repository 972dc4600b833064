// Package commands binds command names to their behavior on the server.
//
// A handler runs on the event loop goroutine with the server state in Env and writes its
// reply through the Call. Returning an error relays it to the client as one ERROR frame;
// success closes the connection without an EXIT frame.
package commands

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"infinitecopy/src/ipc"
	"infinitecopy/src/ui"
)

// Responder is the server side of one client connection.
type Responder interface {
	Print(p []byte) error
	Fail(msg string) error
	Exit(code int) error
	Close() error
}

// Paster injects text into the focused application.
type Paster interface {
	Paste(text []byte) error
}

// Env is the server state handlers operate on.
type Env struct {
	Store  History
	Window ui.Window
	// Paster is nil when pasting is unavailable or disabled.
	Paster Paster
	// Async runs job away from the event loop and calls done back on it. It returns false
	// when the job could not be queued. A nil Async runs the job in place.
	Async func(job func() error, done func(error)) bool
	// Quit stops the server.
	Quit func()
}

func (e *Env) async(job func() error, done func(error)) bool {
	if e.Async == nil {
		done(job())
		return true
	}
	return e.Async(job, done)
}

// Handler implements one command.
type Handler func(ctx context.Context, env *Env, call *Call) error

// Call is one command invocation with its reply channel.
type Call struct {
	Name string
	Args [][]byte

	out      Responder
	log      *logrus.Entry
	deferred bool
	finished bool
}

// Print streams bytes to the client's standard output.
func (c *Call) Print(p []byte) error {
	return c.out.Print(p)
}

// PrintString is Print for text.
func (c *Call) PrintString(s string) error {
	return c.out.Print([]byte(s))
}

// Defer keeps the connection open after the handler returns. The returned function
// completes the call exactly like a handler return value would and must be called on the
// event loop goroutine.
func (c *Call) Defer() func(err error) {
	c.deferred = true
	return c.finish
}

func (c *Call) finish(err error) {
	if c.finished {
		return
	}
	c.finished = true
	defer c.out.Close()

	if err == nil {
		c.log.Debug("Command finished")
		return
	}
	if code, ok := exitOnly(err); ok {
		c.log.WithField("code", code).Debug("Command failed")
		if sendErr := c.out.Exit(code); sendErr != nil {
			c.log.WithError(sendErr).Info("Failed to send exit code")
		}
		return
	}
	c.log.WithError(err).Info("Command failed")
	if sendErr := c.out.Fail(err.Error()); sendErr != nil {
		c.log.WithError(sendErr).Info("Failed to send error")
	}
}

// Dispatcher maps names to handlers.
type Dispatcher struct {
	env      *Env
	handlers map[string]Handler
}

// New returns a dispatcher with the built-in commands registered.
func New(env *Env) *Dispatcher {
	d := &Dispatcher{env: env, handlers: make(map[string]Handler)}
	for name, h := range builtins {
		d.Register(name, h)
	}
	return d
}

// Register adds or replaces a command.
func (d *Dispatcher) Register(name string, h Handler) {
	d.handlers[name] = h
}

// Names returns the registered command names, sorted.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs cmd and replies through out. The connection is closed when the handler
// completes, unless it deferred completion.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd *ipc.Command, out Responder, log *logrus.Entry) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	call := &Call{
		Name: cmd.Name,
		Args: cmd.Args,
		out:  out,
		log:  log.WithField("command", cmd.Name),
	}

	h, ok := d.handlers[cmd.Name]
	if !ok {
		call.finish(Errorf("Unknown command: %s", cmd.Name))
		return
	}

	call.log.WithField("args", len(cmd.Args)).Debug("Running command")
	err := d.run(ctx, h, call)
	if call.deferred && err == nil {
		return
	}
	call.finish(err)
}

// run converts a handler panic into a command error so one bad command cannot take the
// server down.
func (d *Dispatcher) run(ctx context.Context, h Handler, call *Call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			call.log.WithField("panic", r).Error("Command panicked")
			err = Errorf("Internal error in %s: %v", call.Name, r)
			call.deferred = false
		}
	}()
	return h(ctx, d.env, call)
}
