package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinitecopy/src/formats"
	"infinitecopy/src/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "items.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()
	_, err := s.AddItem(ctx, formats.TextPayload([]byte("first")))
	require.NoError(t, err)
	_, err = s.AddItem(ctx, formats.Payloads{
		formats.Text: []byte("second"),
		formats.HTML: []byte("<b>second</b>"),
	}.WithSource(formats.SourceSelection))
	require.NoError(t, err)
}

func TestExportText(t *testing.T) {
	s := openStore(t)
	seed(t, s)

	var out bytes.Buffer
	require.NoError(t, export(context.Background(), s, &out, false, 0))
	assert.Equal(t, "second\nfirst", out.String())

	out.Reset()
	require.NoError(t, export(context.Background(), s, &out, false, 1))
	assert.Equal(t, "second", out.String())
}

func TestExportJSONRoundTrip(t *testing.T) {
	src := openStore(t)
	seed(t, src)

	var out bytes.Buffer
	require.NoError(t, export(context.Background(), src, &out, true, 0))

	var entries []Entry
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Text)
	assert.Equal(t, formats.SourceSelection, entries[0].Source)
	assert.Equal(t, []byte("<b>second</b>"), entries[0].Data[formats.HTML])

	dst := openStore(t)
	n, err := importEntries(context.Background(), dst, bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var again bytes.Buffer
	require.NoError(t, export(context.Background(), dst, &again, false, 0))
	assert.Equal(t, "second\nfirst", again.String())
}

func TestImportRejectsMalformedInput(t *testing.T) {
	s := openStore(t)
	_, err := importEntries(context.Background(), s, strings.NewReader("{not json"))
	assert.Error(t, err)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRootCmdImportFromStdin(t *testing.T) {
	db := filepath.Join(t.TempDir(), "items.db")
	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs([]string{"--db", db, "--import", "-"})
	cmd.SetIn(strings.NewReader(`[{"copied":"2024-01-01T00:00:00Z","text":"piped"}]`))
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "imported 1 items\n", stderr.String())

	cmd = newRootCmd(&cliOptions{})
	cmd.SetArgs([]string{"--db", db})
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "piped", stdout.String())
}
