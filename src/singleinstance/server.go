package singleinstance

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"infinitecopy/src/ipc"
)

var (
	// ErrAlreadyRunning is returned by Start when another process serves the endpoint.
	ErrAlreadyRunning = errors.New("another instance is already running")
	// ErrServerClosed is returned by Next after Close.
	ErrServerClosed = errors.New("server closed")
)

// ServerOptions tune a server.
type ServerOptions struct {
	// WriteTimeout bounds each frame sent to a client so a stalled client cannot block
	// the caller. Zero disables it.
	WriteTimeout time.Duration
}

// localServer implements Server over a Unix socket or named pipe.
type localServer struct {
	ep   Endpoint
	opts ServerOptions

	mu       sync.Mutex
	lis      net.Listener
	incoming chan *localConn
	done     chan struct{}
	closed   bool
}

func newLocalServer(ep Endpoint, opts ServerOptions) *localServer {
	return &localServer{
		ep:       ep,
		opts:     opts,
		incoming: make(chan *localConn, 8),
		done:     make(chan struct{}),
	}
}

// Start binds the endpoint. If it is served by a live process, ErrAlreadyRunning.
func (s *localServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}
	if s.closed {
		return ErrServerClosed
	}
	lis, err := listen(s.ep)
	if err != nil {
		logrus.WithError(err).WithField("endpoint", s.ep.Address()).Warn("Failed to bind endpoint")
		return err
	}
	s.lis = lis
	logrus.WithField("endpoint", s.ep.Address()).Info("Listening")

	go s.acceptLoop(ctx, lis)
	return nil
}

func (s *localServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return ""
	}
	return s.ep.Address()
}

func (s *localServer) acceptLoop(ctx context.Context, lis net.Listener) {
	for {
		c, err := lis.Accept()
		if err != nil {
			select {
			case <-s.done:
			default:
				logrus.WithError(err).Warn("Accept failed")
			}
			return
		}
		go s.receive(ctx, c)
	}
}

// receive reads a whole command before handing the connection out, so a slow client
// only ever blocks its own goroutine.
func (s *localServer) receive(ctx context.Context, c net.Conn) {
	id := uuid.New().String()
	log := logrus.WithField("conn", id)

	if err := checkPeer(c); err != nil {
		log.WithError(err).Warn("Rejected client")
		_ = c.Close()
		return
	}

	conn := ipc.NewConn(c)
	conn.SetWriteTimeout(s.opts.WriteTimeout)

	cmd, err := conn.ReadCommand()
	if err != nil {
		if ipc.IsClosed(err) {
			log.Debug("Client disconnected before sending a command")
		} else {
			log.WithError(err).Info("Failed to receive command")
		}
		_ = conn.Close()
		return
	}
	log.WithFields(logrus.Fields{"command": cmd.Name, "args": len(cmd.Args)}).Debug("Command received")

	lc := &localConn{id: id, conn: conn, cmd: cmd}
	select {
	case s.incoming <- lc:
	case <-s.done:
		_ = conn.Close()
	case <-ctx.Done():
		_ = conn.Close()
	}
}

func (s *localServer) Next(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrServerClosed
	case lc := <-s.incoming:
		return lc, nil
	}
}

// Close stops accepting and drops connections that were not handed out yet.
func (s *localServer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	var err error
	if s.lis != nil {
		err = s.lis.Close()
	}
	s.mu.Unlock()

	for {
		select {
		case lc := <-s.incoming:
			_ = lc.Close()
		default:
			return err
		}
	}
}

type localConn struct {
	id   string
	conn *ipc.Conn
	cmd  *ipc.Command
}

func (c *localConn) ID() string            { return c.id }
func (c *localConn) Command() *ipc.Command { return c.cmd }
func (c *localConn) Print(p []byte) error  { return c.conn.Send(ipc.KindPrint, p) }
func (c *localConn) Fail(msg string) error { return c.conn.SendString(ipc.KindError, msg) }
func (c *localConn) Exit(code int) error   { return c.conn.SendExit(code) }
func (c *localConn) Close() error          { return c.conn.Close() }
