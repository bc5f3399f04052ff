package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kailas-cloud/carekb/internal/db"
)

// HSetMulti stores multiple hashes in one transaction.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO hashes (key, field, value) VALUES (?, ?, ?)
			 ON CONFLICT(key, field) DO UPDATE SET value = excluded.value`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, item := range items {
			for f, v := range item.Fields {
				if _, err := stmt.ExecContext(ctx, item.Key, f, []byte(v)); err != nil {
					return fmt.Errorf("key %s: %w", item.Key, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return db.Wrap(backend, db.OpHSet, err)
	}
	return nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT field, value FROM hashes WHERE key = ?`, key)
	if err != nil {
		return nil, db.Wrap(backend, db.OpHGetAll, err)
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var field string
		var value []byte
		if err := rows.Scan(&field, &value); err != nil {
			return nil, db.Wrap(backend, db.OpHGetAll, err)
		}
		m[field] = string(value)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Wrap(backend, db.OpHGetAll, err)
	}
	return m, nil
}

// Del deletes keys of any type.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, k); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM hashes WHERE key = ?`, k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return db.Wrap(backend, db.OpDel, err)
	}
	return nil
}

// Exists checks if a key exists as a live value or a hash.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM kv WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)) +
			(SELECT COUNT(*) FROM hashes WHERE key = ?)`,
		key, s.now().Unix(), key,
	).Scan(&n)
	if err != nil {
		return false, db.Wrap(backend, db.OpExists, err)
	}
	return n > 0, nil
}

// Scan returns keys matching a Redis-style glob pattern (* and ? wildcards), sorted.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE key GLOB ? AND (expires_at IS NULL OR expires_at > ?)
		 UNION
		 SELECT DISTINCT key FROM hashes WHERE key GLOB ?
		 ORDER BY key`,
		globPattern(pattern), s.now().Unix(), globPattern(pattern),
	)
	if err != nil {
		return nil, db.Wrap(backend, db.OpScan, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, db.Wrap(backend, db.OpScan, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Wrap(backend, db.OpScan, err)
	}
	return keys, nil
}

// globPattern escapes bracket characters, which SQLite GLOB treats as classes.
func globPattern(p string) string {
	return strings.NewReplacer("[", "[[]", "]", "[]]").Replace(p)
}
