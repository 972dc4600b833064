package worker

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsJobAndCallsBack(t *testing.T) {
	p := New(1)
	defer p.Close()

	done := make(chan error, 1)
	ok := p.Submit(context.Background(), "fail", func(context.Context) error {
		return errors.New("no target")
	}, func(err error) { done <- err })
	require.True(t, ok)

	select {
	case err := <-done:
		assert.EqualError(t, err, "no target")
	case <-time.After(5 * time.Second):
		t.Fatal("callback not invoked")
	}
}

func TestSubmitAppliesBackPressure(t *testing.T) {
	p := New(1)
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	block := func(context.Context) error {
		close(started)
		<-release
		return nil
	}
	require.True(t, p.Submit(context.Background(), "block", block, nil))
	<-started

	// Worker busy, queue slot free.
	require.True(t, p.Submit(context.Background(), "queued", func(context.Context) error { return nil }, nil))
	// Queue full.
	assert.False(t, p.Submit(context.Background(), "dropped", func(context.Context) error { return nil }, nil))

	close(release)
}

func TestCancelledJobIsSkipped(t *testing.T) {
	p := New(1)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	done := make(chan error, 1)
	require.True(t, p.Submit(ctx, "late", func(context.Context) error {
		ran = true
		return nil
	}, func(err error) { done <- err }))

	assert.Equal(t, context.Canceled, <-done)
	assert.False(t, ran)
}

func TestPanicIsReported(t *testing.T) {
	p := New(1)
	defer p.Close()

	done := make(chan error, 1)
	require.True(t, p.Submit(context.Background(), "panic", func(context.Context) error {
		panic("boom")
	}, func(err error) { done <- err }))

	err := <-done
	var pe *PanicError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, err.Error(), "boom")
}

func TestSubmitAfterClose(t *testing.T) {
	p := New(1)
	p.Close()
	p.Close()
	assert.False(t, p.Submit(context.Background(), "x", func(context.Context) error { return nil }, nil))
}
