// Command infinitecopy keeps a clipboard history. The first instance of a session becomes
// the server; later invocations forward one command to it and exit with its result.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"infinitecopy/src/config"
	"infinitecopy/src/logutil"
	"infinitecopy/src/runtimeinit"
	"infinitecopy/src/singleinstance"
)

var version = "dev"

type mainOptions struct {
	session string
	debug   bool
	verbose bool
	noPaste bool
	version bool
}

// streams are the process's standard files.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// serveFunc runs the server side; tests replace it.
type serveFunc func(ctx context.Context, cfg *config.Config, srv singleinstance.Server) error

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], streams{os.Stdin, os.Stdout, os.Stderr}, serve))
}

func serve(ctx context.Context, cfg *config.Config, srv singleinstance.Server) error {
	return runtimeinit.Serve(ctx, cfg, srv, runtimeinit.Deps{})
}

// execute runs the command line and returns the process exit status.
func execute(ctx context.Context, args []string, std streams, serve serveFunc) int {
	opts := &mainOptions{}
	code := 0
	cmd := newRootCmd(opts, func(cmd *cobra.Command, tokens []string) error {
		var err error
		code, err = run(cmd.Context(), opts, cmd.Flags().Changed("session"), tokens, std, serve)
		return err
	})
	cmd.SetArgs(args)
	cmd.SetIn(std.in)
	cmd.SetOut(std.out)
	cmd.SetErr(std.err)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(std.err, "Error: %v\n", err)
		return 1
	}
	return code
}

func newRootCmd(opts *mainOptions, runE func(*cobra.Command, []string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "infinitecopy [COMMAND [ARG...]]",
		Short:         "Clipboard history with a command-line interface",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runE,
	}
	// Everything after the command name belongs to the command.
	cmd.Flags().SetInterspersed(false)

	cmd.Flags().StringVar(&opts.session, "session", "", "Session name; each session has its own server and history")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Log debug messages")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Log informational messages")
	cmd.Flags().BoolVar(&opts.noPaste, "no-paste", false, "Disable pasting into other applications")
	cmd.Flags().BoolVar(&opts.version, "version", false, "Print the version and exit")

	return cmd
}

func run(ctx context.Context, opts *mainOptions, hasSession bool, tokens []string, std streams, serve serveFunc) (int, error) {
	if opts.version {
		fmt.Fprintf(std.out, "%s %s\n", config.AppName, version)
		return 0, nil
	}

	cfg, err := config.LoadWithOptions(config.LoadOptions{
		Session:    opts.session,
		HasSession: hasSession,
		NoPaste:    opts.noPaste,
	})
	if err != nil {
		return 1, errors.Wrap(err, "load configuration")
	}

	closeLog := logutil.Setup(logutil.Options{
		Debug:       opts.debug,
		Verbose:     opts.verbose,
		FileLogging: cfg.EnableFileLogging,
		Dir:         cfg.DataDir,
		Output:      std.err,
	})
	defer closeLog()

	ep := singleinstance.NewEndpoint(cfg.Session, cfg.SocketDir)
	outcome, err := singleinstance.Arbitrate(ctx, singleinstance.Options{
		Endpoint:       ep,
		ConnectTimeout: cfg.ConnectTimeout,
		Server:         singleinstance.ServerOptions{WriteTimeout: cfg.WriteTimeout},
	}, singleinstance.Invocation{
		Tokens: tokens,
		Args:   stdinArgs(std.in),
		Stdout: std.out,
	})
	if err != nil {
		return 1, err
	}

	if outcome.Server != nil {
		logrus.WithField("addr", outcome.Server.Addr()).Debug("Became the server")
		if err := serve(ctx, cfg, outcome.Server); err != nil {
			return 1, err
		}
		return 0, nil
	}

	res := outcome.Result
	if res.HasError {
		msg := res.Err
		if msg != "" && msg[len(msg)-1] != '\n' {
			msg += "\n"
		}
		fmt.Fprint(std.err, msg)
	}
	return res.Code(), nil
}

// stdinArgs turns "-" tokens into the bytes of standard input. Input is read once, on the
// first "-"; later ones repeat the same bytes.
func stdinArgs(in io.Reader) func(tokens []string) ([][]byte, error) {
	var once sync.Once
	var data []byte
	var readErr error
	return func(tokens []string) ([][]byte, error) {
		args := make([][]byte, len(tokens))
		for i, tok := range tokens {
			if tok != "-" {
				args[i] = []byte(tok)
				continue
			}
			once.Do(func() {
				data, readErr = io.ReadAll(in)
				if data == nil {
					data = []byte{}
				}
			})
			if readErr != nil {
				return nil, errors.Wrap(readErr, "read standard input")
			}
			args[i] = bytes.Clone(data)
		}
		return args, nil
	}
}
