// Package usage reports embedding token consumption against the budget.
package usage

import (
	"time"

	"github.com/kailas-cloud/carekb/internal/domain/usage/budget"
)

// Report is the embedding usage of the current day and month.
type Report struct {
	Provider string
	Model    string
	Daily    budget.Budget
	Monthly  budget.Budget
}

// Service handles usage reporting.
type Service struct {
	br       BudgetReader
	provider string
	model    string
	now      func() time.Time
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader, provider, model string) *Service {
	return &Service{
		br:       br,
		provider: provider,
		model:    model,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Report returns the current budgets. Without a tracker both windows are
// unlimited and report no usage.
func (s *Service) Report() Report {
	r := Report{Provider: s.provider, Model: s.model}
	if s.br != nil {
		r.Daily, r.Monthly = s.br.Snapshot()
		return r
	}

	now := s.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	r.Daily = budget.New(budget.PeriodDaily, 0, 0, day.AddDate(0, 0, 1).UnixMilli())
	r.Monthly = budget.New(budget.PeriodMonthly, 0, 0, month.AddDate(0, 1, 0).UnixMilli())
	return r
}
