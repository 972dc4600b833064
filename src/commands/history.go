package commands

import (
	"context"

	"infinitecopy/src/formats"
	"infinitecopy/src/store"
)

// Batch is an open multi-item insert.
type Batch interface {
	Add(ctx context.Context, p formats.Payloads) (bool, error)
	Commit() error
	Rollback() error
}

// History is the part of the item store commands use.
type History interface {
	Begin(ctx context.Context) (Batch, error)
	Count(ctx context.Context) (int, error)
	ItemAt(ctx context.Context, row int) (*store.Item, error)
	Payloads(ctx context.Context, id int64) (formats.Payloads, error)
	Format(ctx context.Context, id int64, format string) ([]byte, bool, error)
	RemoveRows(ctx context.Context, row, count int) (int, error)
	SetFilter(f store.Filter)
}

type storeHistory struct {
	*store.Store
}

// FromStore adapts the item store to History.
func FromStore(s *store.Store) History {
	return storeHistory{s}
}

func (h storeHistory) Begin(ctx context.Context) (Batch, error) {
	b, err := h.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return b, nil
}
