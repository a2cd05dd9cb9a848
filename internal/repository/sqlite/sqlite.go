package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// schema is shared with ledgers written by earlier deployments; the column
// set must stay as is.
const schema = `
CREATE TABLE IF NOT EXISTS photos (
	filename TEXT PRIMARY KEY,
	suggested_at TEXT,
	approved INTEGER DEFAULT 0,
	skipped INTEGER DEFAULT 0,
	caption TEXT,
	score REAL
);
CREATE INDEX IF NOT EXISTS idx_photos_decision ON photos(approved, skipped);
`

// DB wraps the SQLite ledger connection. Writers take Lock, readers RLock.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// New opens (creating if needed) the ledger at dbPath and applies the schema.
func New(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn, path: dbPath}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func dsn(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}

// WithTx runs fn inside a transaction under the write lock. fn's error
// rolls the transaction back.
func (db *DB) WithTx(fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying connection for repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Lock()    { db.mu.Lock() }
func (db *DB) Unlock()  { db.mu.Unlock() }
func (db *DB) RLock()   { db.mu.RLock() }
func (db *DB) RUnlock() { db.mu.RUnlock() }
