package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/carekb/internal/db"
)

// SearchKNN scores every hash covered by the index against the query vector.
// Hashes whose vector is missing or of the wrong dimension are skipped.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	def, err := s.loadIndex(ctx, q.IndexName)
	if err != nil {
		return nil, err
	}
	field, spec, ok := def.VectorField()
	if !ok {
		return nil, fmt.Errorf("index %s has no vector field", q.IndexName)
	}

	docs, err := s.loadDocs(ctx, def)
	if err != nil {
		return nil, err
	}

	entries := make([]db.SearchEntry, 0, len(docs))
	for _, d := range docs {
		vec, err := db.DecodeVector([]byte(d.fields[field]))
		if err != nil || len(vec) != len(q.Vector) {
			continue
		}
		dist, err := db.Distance(spec.Distance, q.Vector, vec)
		if err != nil {
			continue
		}
		entries = append(entries, db.SearchEntry{
			Key:    d.key,
			Score:  dist,
			Fields: project(d.fields, q.ReturnFields, field),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score < entries[j].Score
		}
		return entries[i].Key < entries[j].Key
	})
	if len(entries) > q.K {
		entries = entries[:q.K]
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// SearchList pages through the documents of an index in key order.
func (s *Store) SearchList(
	ctx context.Context, index string, offset, limit int, fields []string,
) (*db.SearchResult, error) {
	def, err := s.loadIndex(ctx, index)
	if err != nil {
		return nil, err
	}
	docs, err := s.loadDocs(ctx, def)
	if err != nil {
		return nil, err
	}

	total := len(docs)
	if offset > total {
		offset = total
	}
	end := total
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}

	entries := make([]db.SearchEntry, 0, end-offset)
	for _, d := range docs[offset:end] {
		entries = append(entries, db.SearchEntry{Key: d.key, Fields: project(d.fields, fields, "")})
	}
	return &db.SearchResult{Total: total, Entries: entries}, nil
}

// SearchCount returns the number of documents covered by the index.
func (s *Store) SearchCount(ctx context.Context, index string) (int, error) {
	def, err := s.loadIndex(ctx, index)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range def.Prefixes {
		var n int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(DISTINCT key) FROM hashes WHERE substr(key, 1, length(?)) = ?`, p, p,
		).Scan(&n); err != nil {
			return 0, db.Wrap(backend, db.OpSearch, err)
		}
		total += n
	}
	return total, nil
}

type doc struct {
	key    string
	fields map[string]string
}

func (s *Store) loadDocs(ctx context.Context, def *db.IndexDefinition) ([]doc, error) {
	var docs []doc
	for _, p := range def.Prefixes {
		rows, err := s.db.QueryContext(ctx,
			`SELECT key, field, value FROM hashes WHERE substr(key, 1, length(?)) = ? ORDER BY key`, p, p,
		)
		if err != nil {
			return nil, db.Wrap(backend, db.OpSearch, err)
		}
		for rows.Next() {
			var key, field string
			var value []byte
			if err := rows.Scan(&key, &field, &value); err != nil {
				rows.Close()
				return nil, db.Wrap(backend, db.OpSearch, err)
			}
			if len(docs) == 0 || docs[len(docs)-1].key != key {
				docs = append(docs, doc{key: key, fields: make(map[string]string)})
			}
			docs[len(docs)-1].fields[field] = string(value)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, db.Wrap(backend, db.OpSearch, err)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].key < docs[j].key })
	return docs, nil
}

// project keeps the requested fields, or every field except skip when none are requested.
func project(fields map[string]string, want []string, skip string) map[string]string {
	out := make(map[string]string, len(fields))
	if len(want) == 0 {
		for k, v := range fields {
			if k != skip {
				out[k] = v
			}
		}
		return out
	}
	for _, k := range want {
		if v, ok := fields[k]; ok && !strings.EqualFold(k, skip) {
			out[k] = v
		}
	}
	return out
}
