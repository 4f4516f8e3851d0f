package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"flashbox/internal/adapters/storage"
)

// SQLiteStore implements Store on the session_value table.
// Expiry is stored as unix nanoseconds.
type SQLiteStore struct {
	db  storage.SQLDB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteStore creates a session store over a migrated database.
// PRE: db has the session_value table
func NewSQLiteStore(db storage.SQLDB, ttl time.Duration) *SQLiteStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}
}

// Get returns the value unless it is missing or expired.
// INVARIANT: Store state is not mutated
func (s *SQLiteStore) Get(ctx context.Context, id, key string) ([]byte, bool, error) {
	if err := checkID(id); err != nil {
		return nil, false, err
	}
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM session_value
		WHERE session_id = ? AND key = ? AND expires_at > ?
	`, id, key, s.now().UnixNano()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get session_value: %w", err)
	}
	return value, true, nil
}

// Set upserts the value and refreshes the expiry of the whole session.
// POST: Every row of the session shares the new expiry
func (s *SQLiteStore) Set(ctx context.Context, id, key string, value []byte) error {
	if err := checkID(id); err != nil {
		return err
	}
	now := s.now()
	expires := now.Add(s.ttl).UnixNano()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := purge(ctx, tx, id, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO session_value (session_id, key, value, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET
			value=excluded.value,
			expires_at=excluded.expires_at
	`, id, key, value, expires); err != nil {
		return fmt.Errorf("save session_value: %w", err)
	}
	if err := touch(ctx, tx, id, expires); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes one value and refreshes the expiry of the rest.
func (s *SQLiteStore) Delete(ctx context.Context, id, key string) error {
	if err := checkID(id); err != nil {
		return err
	}
	now := s.now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := purge(ctx, tx, id, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM session_value WHERE session_id = ? AND key = ?
	`, id, key); err != nil {
		return fmt.Errorf("delete session_value: %w", err)
	}
	if err := touch(ctx, tx, id, now.Add(s.ttl).UnixNano()); err != nil {
		return err
	}
	return tx.Commit()
}

// Destroy removes every row of the session.
func (s *SQLiteStore) Destroy(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_value WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// Sweep deletes rows that expired at or before now.
func (s *SQLiteStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_value WHERE expires_at <= ?`, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sweep session_value: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close closes the database when the store owns it.
func (s *SQLiteStore) Close() error {
	if c, ok := s.db.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func touch(ctx context.Context, tx *sql.Tx, id string, expires int64) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE session_value SET expires_at = ? WHERE session_id = ?
	`, expires, id); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// purge drops rows of an expired session so a later write cannot revive them.
func purge(ctx context.Context, tx *sql.Tx, id string, now time.Time) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM session_value WHERE session_id = ? AND expires_at <= ?
	`, id, now.UnixNano()); err != nil {
		return fmt.Errorf("purge session_value: %w", err)
	}
	return nil
}
