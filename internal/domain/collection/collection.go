package collection

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kailas-cloud/carekb/internal/domain"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Kind distinguishes the document shape a domain is built from.
type Kind string

const (
	// KindGeneral is built from free-text guides with headings.
	KindGeneral Kind = "general"
	// KindStructured is built from record-list documents.
	KindStructured Kind = "structured"
)

// IsValid checks if the kind is supported.
func (k Kind) IsValid() bool {
	return k == KindGeneral || k == KindStructured
}

// ValidateName checks a domain name: alphanumeric, underscores and hyphens, 1-64 chars.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("collection name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("collection name must be alphanumeric with underscores and hyphens")
	}
	return nil
}

// Collection is a snapshot of one topic-scoped index (immutable value object).
type Collection struct {
	name       string
	kind       Kind
	state      State
	indexName  string
	chunkCount int
	vectorDim  int
	lastErr    string
	updatedAt  int64
}

// New creates an uninitialized collection for a configured domain.
func New(name string, kind Kind) (Collection, error) {
	if err := ValidateName(name); err != nil {
		return Collection{}, err
	}
	if !kind.IsValid() {
		return Collection{}, fmt.Errorf("invalid collection kind %q", kind)
	}
	return Collection{name: name, kind: kind, state: StateUninitialized}, nil
}

// Name returns the domain name.
func (c Collection) Name() string { return c.name }

// Kind returns the document kind.
func (c Collection) Kind() Kind { return c.kind }

// State returns the lifecycle state.
func (c Collection) State() State { return c.state }

// IndexName returns the active index generation ("" until READY).
func (c Collection) IndexName() string { return c.indexName }

// ChunkCount returns the number of chunks in the active index.
func (c Collection) ChunkCount() int { return c.chunkCount }

// VectorDim returns the embedding dimension of the active index.
func (c Collection) VectorDim() int { return c.vectorDim }

// LastError returns the last failure message, if any.
func (c Collection) LastError() string { return c.lastErr }

// UpdatedAt returns the time of the last transition (unix millis).
func (c Collection) UpdatedAt() int64 { return c.updatedAt }

// Ready reports whether the collection can serve queries.
func (c Collection) Ready() bool { return c.state == StateReady }

// Transition returns a copy moved to next, or ErrInvalidState.
func (c Collection) Transition(next State) (Collection, error) {
	if !c.state.CanTransition(next) {
		return c, fmt.Errorf("%s: %s -> %s: %w", c.name, c.state, next, domain.ErrInvalidState)
	}
	c.state = next
	c.updatedAt = time.Now().UnixMilli()
	if next != StateFailed {
		c.lastErr = ""
	}
	return c, nil
}

// Activate returns a READY copy bound to the given index generation.
func (c Collection) Activate(indexName string, chunkCount, vectorDim int) (Collection, error) {
	next, err := c.Transition(StateReady)
	if err != nil {
		return c, err
	}
	next.indexName = indexName
	next.chunkCount = chunkCount
	next.vectorDim = vectorDim
	return next, nil
}

// Fail returns a FAILED copy recording cause.
func (c Collection) Fail(cause error) (Collection, error) {
	next, err := c.Transition(StateFailed)
	if err != nil {
		return c, err
	}
	if cause != nil {
		next.lastErr = cause.Error()
	}
	return next, nil
}

// WithLastError records cause without changing state. Used when a rebuild
// fails but the previous generation keeps serving.
func (c Collection) WithLastError(cause error) Collection {
	if cause != nil {
		c.lastErr = cause.Error()
	}
	return c
}
