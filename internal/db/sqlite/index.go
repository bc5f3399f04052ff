package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/carekb/internal/db"
)

// CreateIndex registers an index definition over hashes with the given prefixes.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode index definition: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO indexes (name, definition) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		def.Name, string(raw),
	)
	if err != nil {
		return db.Wrap(backend, db.OpCreateIndex, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return db.ErrIndexExists
	}
	return nil
}

// DropIndex removes the index together with the hashes it covers.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	def, err := s.loadIndex(ctx, name)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, p := range def.Prefixes {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM hashes WHERE substr(key, 1, length(?)) = ?`, p, p,
			); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM indexes WHERE name = ?`, name)
		return err
	})
	if err != nil {
		return db.Wrap(backend, db.OpDropIndex, err)
	}
	return nil
}

// IndexExists reports whether an index definition is registered.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	_, err := s.loadIndex(ctx, name)
	if errors.Is(err, db.ErrIndexNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) loadIndex(ctx context.Context, name string) (*db.IndexDefinition, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT definition FROM indexes WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrIndexNotFound
	}
	if err != nil {
		return nil, db.Wrap(backend, db.OpIndexInfo, err)
	}
	var def db.IndexDefinition
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return nil, db.Wrap(backend, db.OpIndexInfo, fmt.Errorf("decode definition: %w", err))
	}
	return &def, nil
}
