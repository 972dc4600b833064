package ipc

// This file implements the length-prefixed framing shared by client and server.

import (
	"bufio"
	"encoding/binary"
	"io"
	"sync"
	"time"
)

// Kind tags a frame. The set is closed; adding a kind requires a protocol version bump.
type Kind byte

const (
	KindPrint       Kind = 1
	KindError       Kind = 2
	KindExit        Kind = 3
	KindCommandName Kind = 4
	KindCommandArg  Kind = 5
	KindCommandEnd  Kind = 6
)

const (
	headerSize = 5
	// MaxPayload bounds a single frame so a corrupt header cannot trigger a huge allocation.
	MaxPayload = 512 << 20
)

func (k Kind) String() string {
	switch k {
	case KindPrint:
		return "PRINT"
	case KindError:
		return "ERROR"
	case KindExit:
		return "EXIT"
	case KindCommandName:
		return "COMMAND_NAME"
	case KindCommandArg:
		return "COMMAND_ARG"
	case KindCommandEnd:
		return "COMMAND_END"
	default:
		return "UNKNOWN"
	}
}

func (k Kind) valid() bool { return k >= KindPrint && k <= KindCommandEnd }

// deadliner is implemented by net.Conn and named pipe connections.
type deadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Conn carries frames over an ordered, reliable byte stream.
// Send is safe for concurrent use; Receive must be called from one goroutine at a time.
type Conn struct {
	rwc          io.ReadWriteCloser
	br           *bufio.Reader
	wmu          sync.Mutex
	bw           *bufio.Writer
	writeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps a stream.
func NewConn(rwc io.ReadWriteCloser) *Conn {
	return &Conn{
		rwc: rwc,
		br:  bufio.NewReader(rwc),
		bw:  bufio.NewWriter(rwc),
	}
}

// SetWriteTimeout bounds every Send when the stream supports write deadlines.
func (c *Conn) SetWriteTimeout(d time.Duration) { c.writeTimeout = d }

// Send writes one frame. Header and payload are flushed together under the write lock
// so frames from concurrent senders never interleave.
func (c *Conn) Send(kind Kind, payload []byte) error {
	if !kind.valid() {
		return protocolErrorf("refusing to send unknown kind %d", kind)
	}
	if len(payload) > MaxPayload {
		return protocolErrorf("%s payload of %d bytes exceeds limit", kind, len(payload))
	}

	var header [headerSize]byte
	header[0] = byte(kind)
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if d, ok := c.rwc.(deadliner); ok && c.writeTimeout > 0 {
		_ = d.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if _, err := c.bw.Write(header[:]); err != nil {
		return &TransportError{Op: "write " + kind.String(), Err: err}
	}
	if _, err := c.bw.Write(payload); err != nil {
		return &TransportError{Op: "write " + kind.String(), Err: err}
	}
	if err := c.bw.Flush(); err != nil {
		return &TransportError{Op: "write " + kind.String(), Err: err}
	}
	return nil
}

// SendString is Send for text payloads.
func (c *Conn) SendString(kind Kind, s string) error {
	return c.Send(kind, []byte(s))
}

// ReadFrame blocks until a complete frame arrives. Short reads are accumulated until the
// header and the declared payload length are complete. A disconnect between frames is
// reported as a TransportError wrapping io.EOF; a disconnect inside a frame wraps
// io.ErrUnexpectedEOF.
func (c *Conn) ReadFrame() (Kind, []byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(c.br, header[:]); err != nil {
		return 0, nil, &TransportError{Op: "read frame header", Err: err}
	}

	kind := Kind(header[0])
	size := binary.BigEndian.Uint32(header[1:])
	if !kind.valid() {
		return 0, nil, protocolErrorf("unknown message kind %d", header[0])
	}
	if size > MaxPayload {
		return 0, nil, protocolErrorf("%s payload of %d bytes exceeds limit", kind, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(c.br, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, nil, &TransportError{Op: "read " + kind.String() + " payload", Err: err}
	}
	return kind, payload, nil
}

// Receive reads the next frame and checks it against the expected kinds. A frame of any
// other kind is a protocol error and the connection is closed.
func (c *Conn) Receive(expected ...Kind) (Kind, []byte, error) {
	kind, payload, err := c.ReadFrame()
	if err != nil {
		if IsProtocol(err) {
			_ = c.Close()
		}
		return 0, nil, err
	}
	for _, k := range expected {
		if k == kind {
			return kind, payload, nil
		}
	}
	_ = c.Close()
	return 0, nil, protocolErrorf("unexpected %s message", kind)
}

// Close closes the underlying stream once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.rwc.Close()
	})
	return c.closeErr
}
