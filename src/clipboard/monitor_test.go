package clipboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinitecopy/src/formats"
)

type fakeBackend struct {
	changes chan Change
	written [][]byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{changes: make(chan Change, 16)}
}

func (b *fakeBackend) Watch(context.Context) <-chan Change { return b.changes }

func (b *fakeBackend) Write(text []byte) error {
	b.written = append(b.written, text)
	b.changes <- Change{Source: formats.SourceClipboard, Data: formats.TextPayload(text)}
	return nil
}

type collector struct {
	mu   sync.Mutex
	seen []formats.Payloads
}

func (c *collector) add(p formats.Payloads) {
	c.mu.Lock()
	c.seen = append(c.seen, p)
	c.mu.Unlock()
}

func (c *collector) snapshot() []formats.Payloads {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]formats.Payloads(nil), c.seen...)
}

func text(source, s string) Change {
	return Change{Source: source, Data: formats.TextPayload([]byte(s))}
}

func startMonitor(t *testing.T, b Backend, c *collector) *Monitor {
	t.Helper()
	m := NewMonitor(b, Options{ClipboardDelay: 20 * time.Millisecond, SelectionDelay: 60 * time.Millisecond}, c.add)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go m.Run(ctx)
	return m
}

func TestBurstIsReportedOnce(t *testing.T) {
	b := newFakeBackend()
	c := &collector{}
	startMonitor(t, b, c)

	b.changes <- text(formats.SourceClipboard, "a")
	b.changes <- text(formats.SourceClipboard, "ab")
	b.changes <- text(formats.SourceClipboard, "abc")

	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	seen := c.snapshot()
	require.Len(t, seen, 1)
	assert.Equal(t, "abc", string(seen[0][formats.Text]))
	assert.Equal(t, formats.SourceClipboard, seen[0].Source())
}

func TestSourcesAreDebouncedIndependently(t *testing.T) {
	b := newFakeBackend()
	c := &collector{}
	startMonitor(t, b, c)

	b.changes <- text(formats.SourceSelection, "selected")
	b.changes <- text(formats.SourceClipboard, "copied")

	require.Eventually(t, func() bool { return len(c.snapshot()) == 2 }, 2*time.Second, 5*time.Millisecond)

	seen := c.snapshot()
	// The clipboard delay is shorter, so it settles first.
	assert.Equal(t, formats.SourceClipboard, seen[0].Source())
	assert.Equal(t, "copied", string(seen[0][formats.Text]))
	assert.Equal(t, formats.SourceSelection, seen[1].Source())
}

func TestOwnWriteIsIgnored(t *testing.T) {
	b := newFakeBackend()
	c := &collector{}
	m := startMonitor(t, b, c)

	require.NoError(t, m.Write([]byte("pasted")))
	b.changes <- text(formats.SourceClipboard, "typed later")

	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	seen := c.snapshot()
	require.Len(t, seen, 1)
	assert.Equal(t, "typed later", string(seen[0][formats.Text]))
	assert.Equal(t, [][]byte{[]byte("pasted")}, b.written)
}

func TestUnknownSourceIsDropped(t *testing.T) {
	b := newFakeBackend()
	c := &collector{}
	startMonitor(t, b, c)

	b.changes <- text("primary", "x")
	b.changes <- text(formats.SourceClipboard, "y")

	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "y", string(c.snapshot()[0][formats.Text]))
}
