package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kailas-cloud/carekb/internal/db"
)

// Get retrieves a value by key. Expired keys read as missing.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	var expiresAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, db.Wrap(backend, db.OpGet, err)
	}
	if expiresAt.Valid && expiresAt.Int64 <= s.now().Unix() {
		return nil, db.ErrKeyNotFound
	}
	return value, nil
}

// Set stores a value at the given key, clearing any expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, expires_at) VALUES (?, ?, NULL)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = NULL`,
		key, value,
	)
	if err != nil {
		return db.Wrap(backend, db.OpSet, err)
	}
	return nil
}

// IncrBy atomically increments an integer counter stored as decimal text.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM kv WHERE key = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
			key, s.now().Unix(),
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv (key, value, expires_at) VALUES (?, CAST(? AS TEXT), NULL)
			 ON CONFLICT(key) DO UPDATE SET value = CAST(CAST(kv.value AS INTEGER) + ? AS TEXT)`,
			key, val, val,
		)
		return err
	})
	if err != nil {
		return db.Wrap(backend, db.OpIncrBy, err)
	}
	return nil
}

// Expire sets TTL on a key. When nx=true, sets TTL only if the key has no expiry yet.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	query := `UPDATE kv SET expires_at = ? WHERE key = ?`
	if nx {
		query += ` AND expires_at IS NULL`
	}
	if _, err := s.db.ExecContext(ctx, query, s.now().Add(ttl).Unix(), key); err != nil {
		return db.Wrap(backend, db.OpExpire, err)
	}
	return nil
}
