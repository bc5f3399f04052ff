package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/carekb/internal/db"
)

var missingIndex = []string{"unknown index name", "no such index"}

// CreateIndex issues FT.CREATE ... ON HASH for def.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := createArgs(def)
	if err != nil {
		return err
	}
	err = s.exec(ctx, db.OpCreateIndex, s.b().Arbitrary("FT.CREATE").Args(args...).Build())
	if serverErrorContains(err, "index already exists") {
		return db.ErrIndexExists
	}
	return err
}

// DropIndex issues FT.DROPINDEX with DD so the indexed hashes go too.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	err := s.exec(ctx, db.OpDropIndex, s.b().Arbitrary("FT.DROPINDEX").Args(name, "DD").Build())
	if serverErrorContains(err, missingIndex...) {
		return db.ErrIndexNotFound
	}
	return err
}

// IndexExists checks for the index with FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	err := s.exec(ctx, db.OpIndexInfo, s.b().Arbitrary("FT.INFO").Args(name).Build())
	switch {
	case err == nil:
		return true, nil
	case serverErrorContains(err, missingIndex...):
		return false, nil
	default:
		return false, err
	}
}

// createArgs renders the FT.CREATE arguments after the command name.
func createArgs(def *db.IndexDefinition) ([]string, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("index %q: %w", def.Name, err)
	}

	args := []string{def.Name, "ON", "HASH"}
	if n := len(def.Prefixes); n > 0 {
		args = append(append(args, "PREFIX", strconv.Itoa(n)), def.Prefixes...)
	}
	args = append(args, "SCHEMA")
	for _, f := range def.Fields {
		schema, err := fieldSchema(f)
		if err != nil {
			return nil, err
		}
		args = append(append(args, f.Name), schema...)
	}
	return args, nil
}

func fieldSchema(f db.IndexField) ([]string, error) {
	switch f.Kind {
	case db.FieldNumeric:
		return []string{"NUMERIC"}, nil
	case db.FieldText:
		return []string{"TEXT"}, nil
	case db.FieldTag:
		return []string{"TAG"}, nil
	case db.FieldVector:
		if f.Vector == nil {
			return nil, fmt.Errorf("field %q: missing vector spec", f.Name)
		}
		return vectorSchema(*f.Vector), nil
	default:
		return nil, fmt.Errorf("field %q: unsupported kind %d", f.Name, f.Kind)
	}
}

// vectorSchema renders VECTOR <algo> <nargs> <attrs...>. Unset algorithm and
// distance fall back to FLAT and COSINE.
func vectorSchema(spec db.VectorSpec) []string {
	algo := spec.Algorithm
	if algo == "" {
		algo = db.VectorFlat
	}
	distance := spec.Distance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(spec.Dim),
		"DISTANCE_METRIC", string(distance),
	}
	if algo == db.VectorHNSW {
		if spec.M > 0 {
			attrs = append(attrs, "M", strconv.Itoa(spec.M))
		}
		if spec.EFConstruction > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(spec.EFConstruction))
		}
	}
	return append([]string{"VECTOR", string(algo), strconv.Itoa(len(attrs))}, attrs...)
}
