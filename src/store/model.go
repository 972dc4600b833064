package store

import (
	"time"

	"github.com/uptrace/bun"
)

// Item is one entry of the clipboard history. Only the inline text travels with it;
// other representations live in the payload table.
type Item struct {
	bun.BaseModel `bun:"table:items,alias:item"`

	ID       int64  `bun:"id,pk,autoincrement"`
	CopyTime int64  `bun:"copy_time,notnull"`
	Hash     string `bun:"item_hash,notnull"`
	Text     string `bun:"item_text,notnull"`
	Source   string `bun:"source,notnull"`
}

// Created returns the capture time.
func (i *Item) Created() time.Time {
	return time.Unix(0, i.CopyTime)
}

// Payload is one non-text representation of an item.
type Payload struct {
	bun.BaseModel `bun:"table:item_payloads,alias:payload"`

	ItemID int64  `bun:"item_id,pk"`
	Format string `bun:"format,pk"`
	Data   []byte `bun:"data"`
}
