//go:build !windows

package runtimeinit

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinitecopy/src/clipboard"
	"infinitecopy/src/config"
	"infinitecopy/src/formats"
	"infinitecopy/src/singleinstance"
)

type fakeBackend struct {
	changes chan clipboard.Change
}

func (b *fakeBackend) Watch(context.Context) <-chan clipboard.Change { return b.changes }
func (b *fakeBackend) Write([]byte) error                            { return nil }

func run(t *testing.T, ctx context.Context, ep singleinstance.Endpoint, name string, args ...string) (string, singleinstance.Result) {
	t.Helper()
	c, err := singleinstance.Connect(ctx, ep, time.Second)
	require.NoError(t, err)
	payloads := make([][]byte, len(args))
	for i, a := range args {
		payloads[i] = []byte(a)
	}
	var out bytes.Buffer
	res, err := c.Run(name, payloads, &out)
	require.NoError(t, err)
	return out.String(), res
}

func TestServeCapturesAndAnswers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	sockDir, err := os.MkdirTemp("", "ic")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(sockDir) })
	ep := singleinstance.Endpoint{Name: singleinstance.EndpointName(singleinstance.AppName, "rt", "user"), Dir: sockDir}

	srv := singleinstance.NewServer(ep, singleinstance.ServerOptions{WriteTimeout: 5 * time.Second})
	if err := srv.Start(ctx); err != nil {
		t.Skipf("local socket unavailable in this environment: %v", err)
	}

	cfg := &config.Config{
		Session:        "rt",
		DataDir:        filepath.Join(t.TempDir(), "data"),
		Monitor:        true,
		ClipboardDelay: 10 * time.Millisecond,
		SelectionDelay: 10 * time.Millisecond,
		Plugins:        []string{"ignore-selection"},
	}
	backend := &fakeBackend{changes: make(chan clipboard.Change, 4)}

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg, srv, Deps{Backend: backend}) }()

	backend.changes <- clipboard.Change{Source: formats.SourceSelection, Data: formats.TextPayload([]byte("selected"))}
	backend.changes <- clipboard.Change{Source: formats.SourceClipboard, Data: formats.TextPayload([]byte("copied"))}

	assert.Eventually(t, func() bool {
		out, _ := run(t, ctx, ep, "count")
		return out == "1"
	}, 5*time.Second, 20*time.Millisecond)

	out, res := run(t, ctx, ep, "get", "0")
	assert.Equal(t, "copied", out)
	assert.Equal(t, 0, res.Code())

	_, res = run(t, ctx, ep, "paste", "x")
	assert.True(t, res.HasError, "pasting is disabled in this configuration")

	_, res = run(t, ctx, ep, "quit")
	assert.Equal(t, 0, res.Code())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	_, err = os.Stat(config.DatabasePath(cfg))
	assert.NoError(t, err)
}

func TestServeRejectsUnknownPlugin(t *testing.T) {
	srv := singleinstance.NewServer(singleinstance.Endpoint{Name: "unused", Dir: t.TempDir()}, singleinstance.ServerOptions{})
	cfg := &config.Config{DataDir: t.TempDir(), Plugins: []string{"bogus"}}

	err := Serve(context.Background(), cfg, srv, Deps{Backend: &fakeBackend{changes: make(chan clipboard.Change)}})
	assert.Error(t, err)
}
