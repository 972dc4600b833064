// Command history exports and imports the clipboard history database without a running
// server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"infinitecopy/src/config"
	"infinitecopy/src/formats"
	"infinitecopy/src/store"
)

type cliOptions struct {
	session    string
	dbPath     string
	jsonOutput bool
	limit      int
	importPath string
}

// Entry is one exported item.
type Entry struct {
	Copied string            `json:"copied"`
	Source string            `json:"source,omitempty"`
	Text   string            `json:"text"`
	Data   map[string][]byte `json:"data,omitempty"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &cliOptions{}
	return newRootCmd(opts).Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "history",
		Short:         "Export or import the clipboard history",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveDB(cmd, opts)
			if err != nil {
				return err
			}
			s, err := store.Open(cmd.Context(), path, store.Options{})
			if err != nil {
				return err
			}
			defer s.Close()

			if opts.importPath != "" {
				in, closeIn, err := openInput(cmd, opts.importPath)
				if err != nil {
					return err
				}
				defer closeIn()
				n, err := importEntries(cmd.Context(), s, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "imported %d items\n", n)
				return nil
			}
			return export(cmd.Context(), s, cmd.OutOrStdout(), opts.jsonOutput, opts.limit)
		},
	}

	cmd.Flags().StringVar(&opts.session, "session", "", "Session whose history is used")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "Database file (overrides --session)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Export every format as JSON")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Export at most this many items, newest first")
	cmd.Flags().StringVar(&opts.importPath, "import", "", "Import a JSON export (use '-' for stdin)")

	return cmd
}

func resolveDB(cmd *cobra.Command, opts *cliOptions) (string, error) {
	if opts.dbPath != "" {
		return opts.dbPath, nil
	}
	cfg, err := config.LoadWithOptions(config.LoadOptions{
		Session:    opts.session,
		HasSession: cmd.Flags().Changed("session"),
	})
	if err != nil {
		return "", err
	}
	path := config.DatabasePath(cfg)
	if _, err := os.Stat(path); err != nil {
		return "", errors.Wrap(err, "no history for this session")
	}
	return path, nil
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	return f, func() { _ = f.Close() }, nil
}

// export writes items newest first: their text separated by newlines, or as JSON.
func export(ctx context.Context, s *store.Store, out io.Writer, asJSON bool, limit int) error {
	items, err := s.Items(ctx)
	if err != nil {
		return err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	if !asJSON {
		for i, item := range items {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprint(out, item.Text)
		}
		return nil
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		p, err := s.Payloads(ctx, item.ID)
		if err != nil {
			return err
		}
		e := Entry{
			Copied: item.Created().UTC().Format(time.RFC3339Nano),
			Source: item.Source,
			Text:   item.Text,
		}
		for _, name := range p.Data() {
			if name == formats.Text {
				continue
			}
			if e.Data == nil {
				e.Data = make(map[string][]byte)
			}
			e.Data[name] = p[name]
		}
		entries = append(entries, e)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(entries), "encode JSON output")
}

// importEntries adds an export oldest first so the history keeps its order. It runs in
// one batch: either every entry is imported or none.
func importEntries(ctx context.Context, s *store.Store, in io.Reader) (int, error) {
	var entries []Entry
	if err := json.NewDecoder(in).Decode(&entries); err != nil {
		return 0, errors.Wrap(err, "decode import")
	}

	b, err := s.Begin(ctx)
	if err != nil {
		return 0, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		p := formats.Payloads{}
		if e.Text != "" {
			p[formats.Text] = []byte(e.Text)
		}
		for name, data := range e.Data {
			p[name] = data
		}
		if e.Source != "" {
			p = p.WithSource(e.Source)
		}
		if _, err := b.Add(ctx, p); err != nil {
			_ = b.Rollback()
			return 0, err
		}
	}
	if err := b.Commit(); err != nil {
		return 0, err
	}
	return b.Added(), nil
}
