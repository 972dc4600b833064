package store

// schema holds the DDL statements, executed in order when the store opens.
// Payload rows belong to their item and disappear with it.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS items (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    copy_time INTEGER NOT NULL,
    item_hash TEXT    NOT NULL UNIQUE,
    item_text TEXT    NOT NULL DEFAULT '',
    source    TEXT    NOT NULL DEFAULT ''
)`,
	`CREATE INDEX IF NOT EXISTS idx_items_copy_time ON items(copy_time DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_items_text ON items(item_text)`,
	`CREATE TABLE IF NOT EXISTS item_payloads (
    item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    format  TEXT    NOT NULL,
    data    BLOB,
    PRIMARY KEY (item_id, format)
)`,
}

// orderNewestFirst is the only ordering the history is ever read in.
const orderNewestFirst = "item.copy_time DESC, item.id DESC"
