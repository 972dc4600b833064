package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinitecopy/src/formats"
)

// ticker returns increasing timestamps so ordering does not depend on clock resolution.
func ticker() func() time.Time {
	t := time.Unix(1700000000, 0)
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

func openTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Now == nil {
		opts.Now = ticker()
	}
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "items.sql"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func addText(t *testing.T, s *Store, texts ...string) {
	t.Helper()
	for _, text := range texts {
		_, err := s.AddItem(context.Background(), formats.TextPayload([]byte(text)))
		require.NoError(t, err)
	}
}

func textsOf(t *testing.T, s *Store) []string {
	t.Helper()
	items, err := s.Items(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Text)
	}
	return out
}

func TestContentHashIgnoresInternalFormats(t *testing.T) {
	base := formats.Payloads{formats.Text: []byte("hello"), formats.HTML: []byte("<b>hello</b>")}
	marked := base.WithSource(formats.SourceSelection)
	marked[formats.Owner] = []byte("me")

	assert.Equal(t, ContentHash(base), ContentHash(marked))
	assert.Equal(t, ContentHash(base), ContentHash(base.Clone()))
	assert.NotEqual(t, ContentHash(base), ContentHash(formats.TextPayload([]byte("hello"))))
}

func TestAddSameContentTwiceStoresOne(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	added, err := s.AddItem(ctx, formats.TextPayload([]byte("same")))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddItem(ctx, formats.TextPayload([]byte("same")).WithSource(formats.SourceClipboard))
	require.NoError(t, err)
	assert.False(t, added)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBlankCaptureIsIgnored(t *testing.T) {
	s := openTestStore(t, Options{})

	for _, p := range []formats.Payloads{
		{},
		formats.TextPayload(nil),
		formats.TextPayload([]byte(" \n\t ")),
		formats.TextPayload(nil).WithSource(formats.SourceClipboard),
	} {
		added, err := s.AddItem(context.Background(), p)
		require.NoError(t, err)
		assert.False(t, added)
	}
	assert.Empty(t, textsOf(t, s))
}

func TestReaddingOlderContentSupersedesIt(t *testing.T) {
	s := openTestStore(t, Options{})
	addText(t, s, "test1", "test2", "test1")

	assert.Equal(t, []string{"test1", "test2"}, textsOf(t, s))
}

func TestItemsAreNewestFirst(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()
	addText(t, s, "test1", "test2", "test3")

	for row, want := range []string{"test3", "test2", "test1"} {
		item, err := s.ItemAt(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, want, item.Text)
	}

	_, err := s.ItemAt(ctx, 3)
	assert.True(t, IsNotFound(err))
	_, err = s.ItemAt(ctx, -1)
	assert.True(t, IsNotFound(err))
}

func TestSameTimestampFallsBackToInsertOrder(t *testing.T) {
	frozen := time.Unix(1700000000, 0)
	s := openTestStore(t, Options{Now: func() time.Time { return frozen }})
	addText(t, s, "a", "b", "c")

	assert.Equal(t, []string{"c", "b", "a"}, textsOf(t, s))
}

func TestRolledBackBatchLeavesNothing(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	b, err := s.Begin(ctx)
	require.NoError(t, err)
	for _, text := range []string{"one", "two", "three"} {
		_, err := b.Add(ctx, formats.TextPayload([]byte(text)))
		require.NoError(t, err)
	}
	require.NoError(t, b.Rollback())

	assert.Empty(t, textsOf(t, s))

	// The rolled back content is not remembered as the last capture.
	added, err := s.AddItem(ctx, formats.TextPayload([]byte("three")))
	require.NoError(t, err)
	assert.True(t, added)
}

func TestBatchCommitsAllItems(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	b, err := s.Begin(ctx)
	require.NoError(t, err)
	for _, text := range []string{"a", "b", "b", "c"} {
		_, err := b.Add(ctx, formats.TextPayload([]byte(text)))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, b.Added())
	require.NoError(t, b.Commit())
	assert.NoError(t, b.Rollback())
	assert.Error(t, b.Commit())

	assert.Equal(t, []string{"c", "b", "a"}, textsOf(t, s))
}

func TestPayloadsRoundTrip(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	png := []byte{0x89, 'P', 'N', 'G', 0, 1, 2}
	p := formats.Payloads{
		formats.Text: []byte("caption"),
		formats.PNG:  png,
		formats.HTML: {},
	}.WithSource(formats.SourceSelection)
	_, err := s.AddItem(ctx, p)
	require.NoError(t, err)

	item, err := s.ItemAt(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, formats.SourceSelection, item.Source)

	got, err := s.Payloads(ctx, item.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{formats.Text, formats.HTML, formats.PNG}, got.Names())
	assert.Equal(t, png, got[formats.PNG])

	data, ok, err := s.Format(ctx, item.ID, formats.HTML)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, data)

	_, ok, err = s.Format(ctx, item.ID, formats.SVG)
	require.NoError(t, err)
	assert.False(t, ok)

	data, ok, err = s.Format(ctx, item.ID, formats.Text)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "caption", string(data))

	_, err = s.Payloads(ctx, item.ID+100)
	assert.True(t, IsNotFound(err))
}

func TestRemoveRowsReindexes(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()
	addText(t, s, "t0", "t1", "t2", "t3", "t4", "t5")

	removed, err := s.RemoveRows(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"t5", "t1", "t0"}, textsOf(t, s))

	removed, err = s.RemoveRows(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = s.RemoveRows(ctx, 5, 1)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRemovingItemDropsItsPayloads(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	_, err := s.AddItem(ctx, formats.Payloads{formats.PNG: []byte{1, 2, 3}})
	require.NoError(t, err)
	item, err := s.ItemAt(ctx, 0)
	require.NoError(t, err)

	_, err = s.RemoveRows(ctx, 0, 1)
	require.NoError(t, err)

	n, err := s.db.NewSelect().Model((*Payload)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, ok, err := s.Format(ctx, item.ID, formats.PNG)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLargeTextIsStoredExactly(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()
	big := bytes.Repeat([]byte("[TEST]"), 50000)

	_, err := s.AddItem(ctx, formats.TextPayload(big))
	require.NoError(t, err)

	item, err := s.ItemAt(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, item.Text, len(big))
	assert.True(t, bytes.Equal(big, []byte(item.Text)))
}

func TestFilterModes(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()
	addText(t, s, "Alpha", "alphabet", "BETA", "gamma")

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "none", filter: Filter{}, want: []string{"gamma", "BETA", "alphabet", "Alpha"}},
		{name: "smart lower", filter: Filter{Text: "alpha"}, want: []string{"alphabet", "Alpha"}},
		{name: "smart upper", filter: Filter{Text: "Alp"}, want: []string{"Alpha"}},
		{name: "sensitive", filter: Filter{Text: "alpha", Case: CaseSensitive}, want: []string{"alphabet"}},
		{name: "insensitive", filter: Filter{Text: "BeT", Case: CaseInsensitive}, want: []string{"BETA", "alphabet"}},
		{name: "no match", filter: Filter{Text: "delta"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.SetFilter(tt.filter)
			assert.Equal(t, tt.want, textsOf(t, s))

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), n)
		})
	}
}

func TestRemoveRowsHonorsFilter(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()
	addText(t, s, "keep", "drop one", "keep too", "drop two")

	s.SetFilter(Filter{Text: "drop"})
	removed, err := s.RemoveRows(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	s.SetFilter(Filter{})
	assert.Equal(t, []string{"keep too", "keep"}, textsOf(t, s))
}

func TestMaxItemsDropsOldest(t *testing.T) {
	s := openTestStore(t, Options{MaxItems: 2})
	addText(t, s, "a", "b", "c", "d")

	assert.Equal(t, []string{"d", "c"}, textsOf(t, s))
}

func TestParseCaseMode(t *testing.T) {
	for name, want := range map[string]CaseMode{
		"":            CaseSmart,
		"smart":       CaseSmart,
		"Sensitive":   CaseSensitive,
		"insensitive": CaseInsensitive,
	} {
		got, ok := ParseCaseMode(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := ParseCaseMode("loud")
	assert.False(t, ok)
}
