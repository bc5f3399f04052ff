package batch

// Status is the outcome of one provider call in the embedding pipeline.
type Status string

// Batch status values.
const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Result is the outcome of one flushed batch.
type Result struct {
	index  int
	size   int
	tokens int
	status Status
	err    error
}

// NewOK creates a successful batch result.
func NewOK(index, size, tokens int) Result {
	return Result{index: index, size: size, tokens: tokens, status: StatusOK}
}

// NewError creates a failed batch result.
func NewError(index, size, tokens int, err error) Result {
	return Result{index: index, size: size, tokens: tokens, status: StatusError, err: err}
}

// Index returns the batch ordinal within one pipeline run.
func (r Result) Index() int { return r.index }

// Size returns the number of texts in the batch.
func (r Result) Size() int { return r.size }

// Tokens returns the estimated token count of the batch.
func (r Result) Tokens() int { return r.tokens }

// Status returns the processing outcome.
func (r Result) Status() Status { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }
