// Package sqlitekv provides a SQLite-backed record store.
//
// One table keyed by the raw 32-byte address. WAL mode and a single
// writer connection keep the store safe for the daemon's concurrent
// handlers without SQLITE_BUSY churn.
package sqlitekv

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"cairn.systems/objectstate/object"
	"cairn.systems/objectstate/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	addr   BLOB PRIMARY KEY,
	record BLOB NOT NULL
) WITHOUT ROWID;
`

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

type KV struct {
	db *sql.DB
}

var _ storage.KV = (*KV)(nil)

// Open creates or opens the database at path and bootstraps the
// schema. Safe to call repeatedly on the same path.
func Open(path string) (*KV, error) {
	if path == "" {
		return nil, errors.New("sqlitekv: database path is required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitekv: open: %w", err)
	}
	// SQLite supports one writer; a second pooled connection only
	// manufactures lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlitekv: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitekv: schema: %w", err)
	}
	return &KV{db: db}, nil
}

func (k *KV) Close() error {
	if k == nil || k.db == nil {
		return nil
	}
	return k.db.Close()
}

func (k *KV) Create(addr object.Address, record []byte) error {
	if addr.IsZero() {
		return storage.ErrInvalidAddress
	}
	res, err := k.db.Exec(
		`INSERT INTO records (addr, record) VALUES (?, ?) ON CONFLICT (addr) DO NOTHING`,
		addr[:], notNil(record),
	)
	if err != nil {
		return fmt.Errorf("sqlitekv: create: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitekv: create: %w", err)
	}
	if n == 0 {
		return storage.ErrExists
	}
	return nil
}

func (k *KV) Read(addr object.Address) ([]byte, error) {
	if addr.IsZero() {
		return nil, storage.ErrInvalidAddress
	}
	var record []byte
	err := k.db.QueryRow(`SELECT record FROM records WHERE addr = ?`, addr[:]).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitekv: read: %w", err)
	}
	return notNil(record), nil
}

func (k *KV) Write(addr object.Address, record []byte) error {
	if addr.IsZero() {
		return storage.ErrInvalidAddress
	}
	_, err := k.db.Exec(
		`INSERT INTO records (addr, record) VALUES (?, ?)
		 ON CONFLICT (addr) DO UPDATE SET record = excluded.record`,
		addr[:], notNil(record),
	)
	if err != nil {
		return fmt.Errorf("sqlitekv: write: %w", err)
	}
	return nil
}

func (k *KV) Delete(addr object.Address) error {
	if addr.IsZero() {
		return storage.ErrInvalidAddress
	}
	res, err := k.db.Exec(`DELETE FROM records WHERE addr = ?`, addr[:])
	if err != nil {
		return fmt.Errorf("sqlitekv: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitekv: delete: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (k *KV) Has(addr object.Address) bool {
	if addr.IsZero() {
		return false
	}
	var one int
	err := k.db.QueryRow(`SELECT 1 FROM records WHERE addr = ?`, addr[:]).Scan(&one)
	return err == nil
}

// notNil keeps empty records as empty blobs; the column is NOT NULL.
func notNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
