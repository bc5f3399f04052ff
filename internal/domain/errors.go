package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrUnknownDomain signals a collection domain that is not configured.
	ErrUnknownDomain = errors.New("unknown collection domain")
	// ErrCollectionNotReady signals a collection that cannot serve queries yet.
	ErrCollectionNotReady = errors.New("collection not ready")
	// ErrNoDocuments signals a domain whose corpus produced zero chunks.
	ErrNoDocuments = errors.New("no documents")
	// ErrNoVectors signals a rebuild where every embedding batch failed.
	ErrNoVectors = errors.New("no vectors embedded")
	// ErrEmptyQuery signals a search request without query text.
	ErrEmptyQuery = errors.New("empty query")
	// ErrQueryTooLong signals query text over the request length limit.
	ErrQueryTooLong = errors.New("query too long")
	// ErrInvalidState signals a forbidden collection state transition.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrInvalidConfig signals a configuration that cannot be used.
	ErrInvalidConfig = errors.New("invalid config")
)

// DomainError carries the failing collection domain alongside the cause.
type DomainError struct {
	Domain string
	Err    error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain %s: %s", e.Domain, e.Err.Error())
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError wraps err with the collection domain name.
func NewDomainError(name string, err error) error {
	return &DomainError{Domain: name, Err: err}
}
