package replay

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteStore persists seen keys in the seen_signatures table created by
// storage.BootstrapSQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore wraps an already bootstrapped database. The caller owns db.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// MarkSeen implements Store. Expired rows for key are replaced; others are
// pruned opportunistically.
func (s *SQLiteStore) MarkSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := s.now().UTC()
	nowMs := now.UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_signatures WHERE expires_at <= ?;`, nowMs); err != nil {
		return false, fmt.Errorf("prune seen_signatures: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
INSERT INTO seen_signatures(key, expires_at, created_at)
VALUES(?, ?, ?)
ON CONFLICT(key) DO NOTHING;
`, key, now.Add(ttl).UnixMilli(), now.Format(time.RFC3339Nano))
	if err != nil {
		return false, fmt.Errorf("insert seen_signature: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return n == 1, nil
}

// Forget implements Store.
func (s *SQLiteStore) Forget(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM seen_signatures WHERE key = ?;`, key); err != nil {
		return fmt.Errorf("delete seen_signature: %w", err)
	}
	return nil
}

// Close implements Store. The database is left open.
func (s *SQLiteStore) Close() error {
	return nil
}
