// Package storage provides the SQLite-backed key/value store that holds saved
// product setups on disk.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Simplici0/listprice/internal/setup"
)

// SQLiteBackend implements setup.Backend on the setups table.
type SQLiteBackend struct {
	db         *sql.DB
	quotaBytes int64
}

// NewSQLiteBackend returns a backend over db. A positive quotaBytes caps the
// summed size of stored keys and values.
func NewSQLiteBackend(db *sql.DB, quotaBytes int64) *SQLiteBackend {
	return &SQLiteBackend{db: db, quotaBytes: quotaBytes}
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := b.db.QueryRowContext(ctx, `SELECT value FROM setups WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", setup.ErrNotExist
		}
		return "", mapError("query setup", err)
	}
	return value, nil
}

func (b *SQLiteBackend) Set(ctx context.Context, key, value string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin setup write", err)
	}
	defer tx.Rollback()

	if b.quotaBytes > 0 {
		var used int64
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(LENGTH(CAST(key AS BLOB)) + LENGTH(CAST(value AS BLOB))), 0)
			FROM setups
			WHERE key <> ?
		`, key).Scan(&used)
		if err != nil {
			return mapError("measure setup storage", err)
		}
		if used+int64(len(key)+len(value)) > b.quotaBytes {
			return setup.ErrQuotaExceeded
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO setups (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return mapError("upsert setup", err)
	}

	if err := tx.Commit(); err != nil {
		return mapError("commit setup write", err)
	}
	return nil
}

func (b *SQLiteBackend) Remove(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM setups WHERE key = ?`, key); err != nil {
		return mapError("delete setup", err)
	}
	return nil
}

func (b *SQLiteBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT key
		FROM setups
		WHERE substr(key, 1, ?) = ?
		ORDER BY key
	`, len(prefix), prefix)
	if err != nil {
		return nil, mapError("query setup keys", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, mapError("scan setup key", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError("iterate setup keys", err)
	}

	return keys, nil
}

func (b *SQLiteBackend) Len(ctx context.Context) (int, error) {
	var n int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM setups`).Scan(&n); err != nil {
		return 0, mapError("count setups", err)
	}
	return n, nil
}

// mapError translates SQLite failures into the backend error classes: a full
// disk or database is a quota failure, a closed or unopenable database is
// unavailable storage.
func mapError(op string, err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_FULL:
			return fmt.Errorf("%s: %w: %w", op, setup.ErrQuotaExceeded, err)
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_IOERR:
			return fmt.Errorf("%s: %w: %w", op, setup.ErrUnavailable, err)
		}
	}
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "database is closed") {
		return fmt.Errorf("%s: %w: %w", op, setup.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
