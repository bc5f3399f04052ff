package chi

import (
	"time"

	"github.com/kailas-cloud/carekb/internal/domain/chunk"
	domcol "github.com/kailas-cloud/carekb/internal/domain/collection"
	"github.com/kailas-cloud/carekb/internal/domain/profile"
	"github.com/kailas-cloud/carekb/internal/domain/search/result"
	"github.com/kailas-cloud/carekb/internal/domain/usage/budget"
	usageuc "github.com/kailas-cloud/carekb/internal/usecase/usage"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeUnknownDomain    ErrorCode = "unknown_domain"
	ErrorCodeNotReady         ErrorCode = "collection_not_ready"
	ErrorCodeConflict         ErrorCode = "conflict"
	ErrorCodeQuotaExceeded    ErrorCode = "embedding_quota_exceeded"
	ErrorCodeProviderError    ErrorCode = "embedding_provider_error"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query   string           `json:"query"`
	Profile *profile.Profile `json:"profile,omitempty"`
	K       *int             `json:"k,omitempty"`
	Mode    *string          `json:"mode,omitempty"`
}

// SearchHit is one ranked chunk.
type SearchHit struct {
	Content      string         `json:"content"`
	Metadata     chunk.Metadata `json:"metadata"`
	Collection   string         `json:"collection"`
	VectorScore  float64        `json:"vector_score"`
	KeywordScore float64        `json:"keyword_score"`
	FusedScore   float64        `json:"fused_score"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Results []SearchHit `json:"results"`
	Context string      `json:"context,omitempty"`
}

// CollectionStatus describes one domain's lifecycle.
type CollectionStatus struct {
	Name      string     `json:"name"`
	Kind      string     `json:"kind"`
	State     string     `json:"state"`
	Index     string     `json:"index,omitempty"`
	Chunks    int        `json:"chunks"`
	VectorDim int        `json:"vector_dimensions,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// CollectionListResponse is the body of GET /v1/collections.
type CollectionListResponse struct {
	Items []CollectionStatus `json:"items"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// BudgetStatus is one budget window. A zero limit means unlimited and
// remaining is then -1.
type BudgetStatus struct {
	Period    string `json:"period"`
	Limit     int64  `json:"tokens_limit"`
	Used      int64  `json:"tokens_used"`
	Remaining int64  `json:"tokens_remaining"`
	Exhausted bool   `json:"is_exhausted"`
	ResetsAt  int64  `json:"resets_at"`
}

// UsageResponse is the body of GET /v1/usage.
type UsageResponse struct {
	Provider string       `json:"provider"`
	Model    string       `json:"model"`
	Daily    BudgetStatus `json:"daily"`
	Monthly  BudgetStatus `json:"monthly"`
}

func budgetToAPI(b budget.Budget) BudgetStatus {
	return BudgetStatus{
		Period:    string(b.Period()),
		Limit:     b.TokensLimit(),
		Used:      b.TokensUsed(),
		Remaining: b.TokensRemaining(),
		Exhausted: b.IsExhausted(),
		ResetsAt:  b.ResetsAt(),
	}
}

func usageToAPI(r usageuc.Report) UsageResponse {
	return UsageResponse{
		Provider: r.Provider,
		Model:    r.Model,
		Daily:    budgetToAPI(r.Daily),
		Monthly:  budgetToAPI(r.Monthly),
	}
}

func hitToAPI(s result.Scored) SearchHit {
	md := s.Chunk().Metadata()
	if md == nil {
		md = chunk.Metadata{}
	}
	return SearchHit{
		Content:      s.Chunk().Content(),
		Metadata:     md,
		Collection:   s.Collection(),
		VectorScore:  s.VectorScore(),
		KeywordScore: s.KeywordScore(),
		FusedScore:   s.FusedScore(),
	}
}

func collectionToAPI(c domcol.Collection) CollectionStatus {
	out := CollectionStatus{
		Name:      c.Name(),
		Kind:      string(c.Kind()),
		State:     string(c.State()),
		Index:     c.IndexName(),
		Chunks:    c.ChunkCount(),
		VectorDim: c.VectorDim(),
		LastError: c.LastError(),
	}
	if c.UpdatedAt() > 0 {
		t := time.UnixMilli(c.UpdatedAt()).UTC()
		out.UpdatedAt = &t
	}
	return out
}
