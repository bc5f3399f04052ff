package usage

import "github.com/kailas-cloud/carekb/internal/domain/usage/budget"

// BudgetReader provides read-only access to token budget state.
type BudgetReader interface {
	Snapshot() (daily, monthly budget.Budget)
}
