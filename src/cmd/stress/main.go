// Command stress launches concurrent clients against a running server to exercise
// interleaved connections.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"infinitecopy/src/config"
	"infinitecopy/src/singleinstance"
)

type stressOptions struct {
	n        int
	session  string
	deadline time.Duration
	payload  int
}

type counts struct {
	launched int
	ok       int32
	failed   int32
	elapsed  time.Duration
}

func (c counts) String() string {
	return fmt.Sprintf("launched=%d ok=%d err=%d elapsed=%s", c.launched, c.ok, c.failed, c.elapsed)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	return newRootCmd(opts).Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress",
		Short:         "Stress test command delegation",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithOptions(config.LoadOptions{
				Session:    opts.session,
				HasSession: cmd.Flags().Changed("session"),
			})
			if err != nil {
				return err
			}
			ep := singleinstance.NewEndpoint(cfg.Session, cfg.SocketDir)
			if !singleinstance.IsRunning(cmd.Context(), ep, cfg.ConnectTimeout) {
				return singleinstance.ErrNotRunning
			}
			c := runWithOptions(cmd.Context(), ep, *opts)
			fmt.Fprintln(cmd.OutOrStdout(), c)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.session, "session", "", "session of the server under test")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")
	cmd.Flags().IntVar(&opts.payload, "payload", 64, "bytes per added item")

	return cmd
}

// runWithOptions starts every client at once. Each adds a unique item and then counts.
func runWithOptions(ctx context.Context, ep singleinstance.Endpoint, opts stressOptions) counts {
	var wg sync.WaitGroup
	res := counts{launched: opts.n}

	start := time.Now()
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, opts.deadline)
			defer cancel()
			if err := exercise(cctx, ep, i, opts.payload); err != nil {
				atomic.AddInt32(&res.failed, 1)
				return
			}
			atomic.AddInt32(&res.ok, 1)
		}(i)
	}
	wg.Wait()
	res.elapsed = time.Since(start)
	return res
}

func exercise(ctx context.Context, ep singleinstance.Endpoint, i, size int) error {
	item := []byte("stress-" + strconv.Itoa(i) + "-")
	for len(item) < size {
		item = append(item, 'x')
	}
	if err := command(ctx, ep, "add", item); err != nil {
		return err
	}
	return command(ctx, ep, "count")
}

func command(ctx context.Context, ep singleinstance.Endpoint, name string, args ...[]byte) error {
	c, err := singleinstance.Connect(ctx, ep, 0)
	if err != nil {
		return err
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()

	res, err := c.Run(name, args, io.Discard)
	if err != nil {
		return err
	}
	if res.Code() != 0 {
		return errors.Errorf("%s: %s (exit %d)", name, res.Err, res.Code())
	}
	return nil
}
