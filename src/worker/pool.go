// Package worker runs blocking jobs, such as keystroke injection, away from the event loop.
package worker

import (
	"context"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// Job is a unit of blocking work.
type Job func(ctx context.Context) error

// ResultCallback is invoked on job completion from a worker goroutine.
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(err error)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	mu     sync.RWMutex
	jobs   chan job
	closed bool
	wg     sync.WaitGroup
}

type job struct {
	ctx  context.Context
	name string
	run  Job
	cb   ResultCallback
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				log := logrus.WithField("job", j.name)
				log.Debug("Job started")
				err := run(j)
				log.WithError(err).Debug("Job finished")
				if j.cb != nil {
					j.cb(err)
				}
			}
		}()
	}
}

// run executes the job unless its context already ended while it was queued.
func run(j job) (err error) {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("job", j.name).WithField("panic", r).Error("Job panicked")
			err = &PanicError{Value: r}
		}
	}()
	return j.run(j.ctx)
}

// Submit enqueues a job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, name string, fn Job, cb ResultCallback) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- job{ctx: ctx, name: name, run: fn, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

// PanicError reports a job that panicked.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return "worker: job panicked: " + fmtValue(e.Value)
}

func fmtValue(v interface{}) string {
	switch v := v.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return "non-error value"
	}
}
