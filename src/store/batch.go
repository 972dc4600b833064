package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"infinitecopy/src/formats"
)

// Batch groups several inserts into one transaction. Nothing it adds is visible to
// other readers until Commit, and Rollback discards all of it.
type Batch struct {
	s        *Store
	tx       bun.Tx
	lastHash string
	added    int
	done     bool
}

// Begin opens a batch.
func (s *Store) Begin(ctx context.Context) (*Batch, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, wrap(err, "begin")
	}
	return &Batch{s: s, tx: tx, lastHash: s.lastAdded()}, nil
}

// Added returns the number of items inserted so far.
func (b *Batch) Added() int { return b.added }

// Add inserts one capture. Blank captures and a repeat of the previously added content
// are skipped and reported as false. Existing content with the same hash is superseded.
func (b *Batch) Add(ctx context.Context, p formats.Payloads) (bool, error) {
	if b.done {
		return false, errors.New("store: batch already finished")
	}
	if isBlank(p) {
		return false, nil
	}
	hash := ContentHash(p)
	if hash == b.lastHash {
		return false, nil
	}

	if _, err := b.tx.NewDelete().
		Model((*Item)(nil)).
		Where("item_hash = ?", hash).
		Exec(ctx); err != nil {
		return false, wrap(err, "supersede item")
	}

	item := &Item{
		CopyTime: b.s.opts.Now().UnixNano(),
		Hash:     hash,
		Text:     string(p[formats.Text]),
		Source:   p.Source(),
	}
	res, err := b.tx.NewInsert().Model(item).Exec(ctx)
	if err != nil {
		return false, wrap(err, "insert item")
	}
	if item.ID == 0 {
		if item.ID, err = res.LastInsertId(); err != nil {
			return false, wrap(err, "insert item")
		}
	}

	var rows []Payload
	for _, format := range p.Data() {
		if format == formats.Text {
			continue
		}
		rows = append(rows, Payload{ItemID: item.ID, Format: format, Data: p[format]})
	}
	if len(rows) > 0 {
		if _, err := b.tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return false, wrap(err, "insert payloads")
		}
	}

	b.lastHash = hash
	b.added++
	return true, nil
}

// Commit makes the batch visible. On failure the transaction is rolled back.
func (b *Batch) Commit() error {
	if b.done {
		return errors.New("store: batch already finished")
	}
	b.done = true

	if b.added > 0 && b.s.opts.MaxItems > 0 {
		if err := b.prune(context.Background()); err != nil {
			_ = b.tx.Rollback()
			return err
		}
	}
	if err := b.tx.Commit(); err != nil {
		_ = b.tx.Rollback()
		return wrap(err, "commit")
	}
	if b.added > 0 {
		b.s.setLastAdded(b.lastHash)
		logrus.WithField("items", b.added).Debug("Items added")
	}
	return nil
}

// Rollback discards the batch. It is a no-op after Commit.
func (b *Batch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	return wrap(b.tx.Rollback(), "rollback")
}

func (b *Batch) prune(ctx context.Context) error {
	newest := b.tx.NewSelect().
		TableExpr("items AS newest").
		ColumnExpr("newest.id").
		OrderExpr("newest.copy_time DESC, newest.id DESC").
		Limit(b.s.opts.MaxItems)

	res, err := b.tx.NewDelete().
		Model((*Item)(nil)).
		Where("id NOT IN (?)", newest).
		Exec(ctx)
	if err != nil {
		return wrap(err, "prune")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logrus.WithField("items", n).Info("Dropped items beyond history limit")
	}
	return nil
}
