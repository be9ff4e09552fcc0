package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultBlobKey is the fixed storage name the forest is saved under.
const DefaultBlobKey = "tasks"

// SQLiteBlob keeps the serialized forest as one row of a key/value table.
type SQLiteBlob struct {
	db  *sql.DB
	key string
}

func NewSQLiteBlob(dsn string) (*SQLiteBlob, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable pragmas for an app server
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteBlob{db: db, key: DefaultBlobKey}, nil
}

// WithKey returns a blob sharing the same database under another key.
func (b *SQLiteBlob) WithKey(key string) *SQLiteBlob {
	return &SQLiteBlob{db: b.db, key: key}
}

func (b *SQLiteBlob) Close() error { return b.db.Close() }

// Load implements Blob.Load
func (b *SQLiteBlob) Load(ctx context.Context) ([]byte, bool, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, `
		SELECT data FROM blobs WHERE key = ?
	`, b.key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Save implements Blob.Save
func (b *SQLiteBlob) Save(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO blobs (key, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, b.key, data, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// Backup copies the current row to <key>.corrupt.<timestamp> and returns the
// new key. A missing row is not an error.
func (b *SQLiteBlob) Backup(ctx context.Context) (string, error) {
	backup := fmt.Sprintf("%s.corrupt.%s", b.key, time.Now().Format("20060102-150405"))
	res, err := b.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO blobs (key, data, updated_at)
		SELECT ?, data, ? FROM blobs WHERE key = ?
	`, backup, time.Now().UTC().Format(time.RFC3339Nano), b.key)
	if err != nil {
		return "", fmt.Errorf("backup %s: %w", b.key, err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return "", err
	}
	return backup, nil
}

// ApplyMigrations ensures schema exists
func (b *SQLiteBlob) ApplyMigrations(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS blobs (
	key TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
	`)
	return err
}

// Helper to build DSN like: file:/absolute/path?_pragma=busy_timeout(5000)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}
