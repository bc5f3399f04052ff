package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/carekb/internal/db"
)

// scoreField is the alias FT.SEARCH uses for the KNN distance.
const scoreField = "__vector_score"

// SearchKNN returns the q.K entries nearest to q.Vector, closest first.
// Scores are the raw distances reported by the index.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("knn: index name is required")
	case len(q.Vector) == 0:
		return nil, errors.New("knn: vector is required")
	case q.K <= 0:
		return nil, fmt.Errorf("knn: k must be positive, got %d", q.K)
	}

	k := strconv.Itoa(q.K)
	args := []string{q.IndexName, "*=>[KNN " + k + " @vector $BLOB AS " + scoreField + "]"}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)+1))
		args = append(append(args, q.ReturnFields...), scoreField)
	}
	args = append(args,
		"SORTBY", scoreField, "ASC",
		"LIMIT", "0", k,
		"PARAMS", "2", "BLOB", string(db.EncodeVector(q.Vector)),
		"DIALECT", "2",
	)
	return s.search(ctx, args, true)
}

// SearchList returns one page of an index in index order.
func (s *Store) SearchList(
	ctx context.Context, index string, offset, limit int, fields []string,
) (*db.SearchResult, error) {
	args := []string{index, "*", "LIMIT", strconv.Itoa(offset), strconv.Itoa(limit)}
	if len(fields) > 0 {
		args = append(append(args, "RETURN", strconv.Itoa(len(fields))), fields...)
	}
	return s.search(ctx, args, false)
}

// SearchCount returns how many hashes the index covers.
func (s *Store) SearchCount(ctx context.Context, index string) (int, error) {
	res, err := s.search(ctx, []string{index, "*", "LIMIT", "0", "0"}, false)
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

func (s *Store) search(ctx context.Context, args []string, knn bool) (*db.SearchResult, error) {
	reply, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, db.Wrap(backend, db.OpSearch, err)
	}
	return decodeReply(reply, knn)
}

// decodeReply reads the RESP2 layout [total, key, [field, value, ...], key, ...].
// Malformed entries are skipped.
func decodeReply(reply []rueidis.RedisMessage, knn bool) (*db.SearchResult, error) {
	if len(reply) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := reply[0].AsInt64()
	if err != nil {
		return nil, db.Wrap(backend, db.OpSearch, fmt.Errorf("reply total: %w", err))
	}

	out := &db.SearchResult{Total: int(total)}
	for i := 1; i+1 < len(reply); i += 2 {
		key, err := reply[i].ToString()
		if err != nil {
			continue
		}
		pairs, err := reply[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{Key: key, Fields: fieldMap(pairs)}
		if raw, ok := entry.Fields[scoreField]; ok && knn {
			entry.Score, _ = strconv.ParseFloat(raw, 64)
			delete(entry.Fields, scoreField)
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

func fieldMap(pairs []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		name, nerr := pairs[i].ToString()
		value, verr := pairs[i+1].ToString()
		if nerr == nil && verr == nil {
			m[name] = value
		}
	}
	return m
}
