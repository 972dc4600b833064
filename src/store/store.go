// Package store persists the clipboard history in a local SQLite database.
//
// Items are content addressed: the hash of their non-internal formats is unique among
// live rows, and adding content that already exists supersedes the older row. The store
// is written by a single goroutine; it keeps one database connection, so a caller must not
// issue queries through the Store while one of its batches is open.
package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"infinitecopy/src/formats"
)

// Options tune a store.
type Options struct {
	// MaxItems bounds the history; older rows are dropped on insert. Zero keeps everything.
	MaxItems int
	// Now stamps new items. Defaults to time.Now.
	Now func() time.Time
}

// Store is the item history.
type Store struct {
	db   *bun.DB
	opts Options

	mu       sync.Mutex
	lastHash string
	filter   Filter
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, wrap(err, "open "+path)
	}
	// Foreign key enforcement is per connection; keep exactly one.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	db.AddQueryHook(queryLogger{})

	s := &Store{db: db, opts: opts}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logrus.WithField("path", path).Debug("Item store opened")
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return wrap(err, "enable foreign keys")
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return wrap(err, "migrate")
		}
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return wrap(s.db.Close(), "close")
}

// SetFilter replaces the filter used by positional access.
func (s *Store) SetFilter(f Filter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

// Filter returns the current filter.
func (s *Store) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// AddItem stores one capture in its own transaction. It returns false when the capture
// was blank or repeated the previous one.
func (s *Store) AddItem(ctx context.Context, p formats.Payloads) (bool, error) {
	b, err := s.Begin(ctx)
	if err != nil {
		return false, err
	}
	added, err := b.Add(ctx, p)
	if err != nil {
		_ = b.Rollback()
		return false, err
	}
	if err := b.Commit(); err != nil {
		return false, err
	}
	return added, nil
}

// Count returns the number of items matching the filter.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().
		Model((*Item)(nil)).
		Apply(s.Filter().apply).
		Count(ctx)
	return n, wrap(err, "count")
}

// ItemAt returns the item at row in the current order. A row past the end yields
// ErrNotFound.
func (s *Store) ItemAt(ctx context.Context, row int) (*Item, error) {
	if row < 0 {
		return nil, ErrNotFound
	}
	item := new(Item)
	err := s.db.NewSelect().
		Model(item).
		Apply(s.Filter().apply).
		OrderExpr(orderNewestFirst).
		Offset(row).
		Limit(1).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap(err, "item at row")
	}
	return item, nil
}

// Items returns every item matching the filter, newest first.
func (s *Store) Items(ctx context.Context) ([]Item, error) {
	var items []Item
	err := s.db.NewSelect().
		Model(&items).
		Apply(s.Filter().apply).
		OrderExpr(orderNewestFirst).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "list items")
	}
	return items, nil
}

// Payloads reconstitutes the format map of the item with the given id.
func (s *Store) Payloads(ctx context.Context, id int64) (formats.Payloads, error) {
	item := new(Item)
	err := s.db.NewSelect().Model(item).Where("item.id = ?", id).Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap(err, "load item")
	}

	var rows []Payload
	err = s.db.NewSelect().
		Model(&rows).
		Where("payload.item_id = ?", id).
		OrderExpr("payload.format").
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "load payloads")
	}

	p := make(formats.Payloads, len(rows)+1)
	if item.Text != "" {
		p[formats.Text] = []byte(item.Text)
	}
	for _, row := range rows {
		p[row.Format] = row.Data
	}
	return p, nil
}

// Format returns one representation of an item. The boolean is false when the item
// does not carry the format, which is distinct from carrying it with no bytes.
func (s *Store) Format(ctx context.Context, id int64, format string) ([]byte, bool, error) {
	if format == formats.Text {
		item := new(Item)
		err := s.db.NewSelect().Model(item).ColumnExpr("item.item_text").Where("item.id = ?", id).Scan(ctx)
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, wrap(err, "load text")
		}
		if item.Text == "" {
			return nil, false, nil
		}
		return []byte(item.Text), true, nil
	}

	row := new(Payload)
	err := s.db.NewSelect().
		Model(row).
		Where("payload.item_id = ?", id).
		Where("payload.format = ?", format).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap(err, "load format")
	}
	if row.Data == nil {
		row.Data = []byte{}
	}
	return row.Data, true, nil
}

// RemoveRows deletes count rows starting at row in the current order and returns how
// many were removed. Payload rows go with their items.
func (s *Store) RemoveRows(ctx context.Context, row, count int) (int, error) {
	if row < 0 || count <= 0 {
		return 0, nil
	}
	filter := s.Filter()

	var removed int
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var ids []int64
		err := tx.NewSelect().
			Model((*Item)(nil)).
			ColumnExpr("item.id").
			Apply(filter.apply).
			OrderExpr(orderNewestFirst).
			Offset(row).
			Limit(count).
			Scan(ctx, &ids)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if _, err := tx.NewDelete().
			Model((*Item)(nil)).
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx); err != nil {
			return err
		}
		removed = len(ids)
		return nil
	})
	if err != nil {
		return 0, wrap(err, "remove rows")
	}

	logrus.WithFields(logrus.Fields{"row": row, "items": removed}).Debug("Removed items")
	return removed, nil
}

func (s *Store) lastAdded() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHash
}

func (s *Store) setLastAdded(hash string) {
	s.mu.Lock()
	s.lastHash = hash
	s.mu.Unlock()
}
