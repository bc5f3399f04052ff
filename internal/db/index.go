package db

import (
	"errors"
	"fmt"
)

// DistanceMetric is how an index compares vectors.
type DistanceMetric string

// Supported metrics. Chunk indexes use cosine.
const (
	DistanceL2     DistanceMetric = "L2"
	DistanceIP     DistanceMetric = "IP"
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorAlgorithm selects exact (FLAT) or approximate (HNSW) neighbour search.
type VectorAlgorithm string

// Supported algorithms.
const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// FieldKind is the type of an indexed hash field.
type FieldKind int

// Field kinds.
const (
	FieldNumeric FieldKind = iota + 1
	FieldTag
	FieldText
	FieldVector
)

// VectorSpec configures a vector field. M and EFConstruction only apply to
// HNSW; zero leaves the backend default.
type VectorSpec struct {
	Algorithm      VectorAlgorithm `json:"algorithm"`
	Dim            int             `json:"dim"`
	Distance       DistanceMetric  `json:"distance"`
	M              int             `json:"m,omitempty"`
	EFConstruction int             `json:"ef_construction,omitempty"`
}

// HNSW describes an approximate vector field.
func HNSW(dim int, distance DistanceMetric, m, efConstruction int) VectorSpec {
	return VectorSpec{Algorithm: VectorHNSW, Dim: dim, Distance: distance, M: m, EFConstruction: efConstruction}
}

// Flat describes an exact vector field.
func Flat(dim int, distance DistanceMetric) VectorSpec {
	return VectorSpec{Algorithm: VectorFlat, Dim: dim, Distance: distance}
}

// IndexField is one field of an index schema. Vector is set only for FieldVector.
type IndexField struct {
	Name   string      `json:"name"`
	Kind   FieldKind   `json:"kind"`
	Vector *VectorSpec `json:"vector,omitempty"`
}

// IndexDefinition indexes every hash whose key starts with one of Prefixes.
type IndexDefinition struct {
	Name     string       `json:"name"`
	Prefixes []string     `json:"prefixes"`
	Fields   []IndexField `json:"fields"`
}

// Validate rejects definitions no backend can create: a bad name, no or
// duplicate fields, a vector field without dimension, or more than one vector field.
func (d *IndexDefinition) Validate() error {
	if d.Name == "" {
		return errors.New("index name is required")
	}
	if !validIndexName(d.Name) {
		return fmt.Errorf("index name %q contains invalid characters", d.Name)
	}
	if len(d.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]struct{}, len(d.Fields))
	vectors := 0
	for i, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %d has no name", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field name %q", f.Name)
		}
		seen[f.Name] = struct{}{}

		if f.Kind != FieldVector {
			continue
		}
		if f.Vector == nil || f.Vector.Dim <= 0 {
			return fmt.Errorf("vector field %q needs a positive dimension", f.Name)
		}
		vectors++
	}
	if vectors > 1 {
		return errors.New("at most one vector field is supported")
	}
	return nil
}

// VectorField returns the name and spec of the vector field, if any.
func (d *IndexDefinition) VectorField() (string, VectorSpec, bool) {
	for _, f := range d.Fields {
		if f.Kind == FieldVector && f.Vector != nil {
			return f.Name, *f.Vector, true
		}
	}
	return "", VectorSpec{}, false
}

// validIndexName accepts [A-Za-z0-9_:-]+.
func validIndexName(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == ':', r == '-':
		default:
			return false
		}
	}
	return s != ""
}

// IndexBuilder assembles an IndexDefinition field by field.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts a definition named name.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix adds key prefixes covered by the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Numeric adds a NUMERIC field.
func (b *IndexBuilder) Numeric(name string) *IndexBuilder { return b.field(name, FieldNumeric, nil) }

// Tag adds a TAG field.
func (b *IndexBuilder) Tag(name string) *IndexBuilder { return b.field(name, FieldTag, nil) }

// Text adds a full-text field.
func (b *IndexBuilder) Text(name string) *IndexBuilder { return b.field(name, FieldText, nil) }

// Vector adds a vector field.
func (b *IndexBuilder) Vector(name string, spec VectorSpec) *IndexBuilder {
	return b.field(name, FieldVector, &spec)
}

func (b *IndexBuilder) field(name string, kind FieldKind, spec *VectorSpec) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Kind: kind, Vector: spec})
	return b
}

// Build validates and returns the definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	def := b.def
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("index %q: %w", def.Name, err)
	}
	return &def, nil
}

// MustBuild is Build for definitions fixed at compile time. It panics on an invalid definition.
func (b *IndexBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}
