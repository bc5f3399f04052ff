package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carekb/internal/domain"
	"github.com/kailas-cloud/carekb/internal/domain/usage/budget"
)

// BudgetAction selects what happens once a token budget is spent.
type BudgetAction string

const (
	// BudgetActionWarn logs and lets the call through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject fails the call with ErrEmbeddingQuotaExceeded.
	BudgetActionReject BudgetAction = "reject"
)

const persistTimeout = 2 * time.Second

// BudgetStore persists window counters. IncrBy must be safe to repeat.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// window counts tokens spent in one calendar day or month (UTC).
type window struct {
	period budget.Period
	limit  int64
	used   int64
	start  time.Time
}

func startOf(p budget.Period, t time.Time) time.Time {
	t = t.UTC()
	if p == budget.PeriodDaily {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (w *window) roll(now time.Time) {
	if s := startOf(w.period, now); s.After(w.start) {
		w.start, w.used = s, 0
	}
}

func (w *window) end() time.Time {
	if w.period == budget.PeriodDaily {
		return w.start.AddDate(0, 0, 1)
	}
	return w.start.AddDate(0, 1, 0)
}

func (w *window) snapshot() budget.Budget {
	return budget.New(w.period, w.limit, w.used, w.end().UnixMilli())
}

// BudgetTracker enforces daily and monthly token limits (0 = unlimited).
// Check is answered from memory. Record updates memory, then writes the
// delta through to the optional store.
type BudgetTracker struct {
	mu       sync.Mutex
	provider string
	action   BudgetAction
	daily    window
	monthly  window
	store    BudgetStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewBudgetTracker creates a tracker for provider.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	b := &BudgetTracker{
		provider: provider,
		action:   action,
		daily:    window{period: budget.PeriodDaily, limit: dailyLimit},
		monthly:  window{period: budget.PeriodMonthly, limit: monthlyLimit},
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	b.rollAll()
	return b
}

func (b *BudgetTracker) windows() [2]*window {
	return [2]*window{&b.daily, &b.monthly}
}

// rollAll zeroes every window whose period has ended. Caller holds mu.
func (b *BudgetTracker) rollAll() {
	now := b.now()
	for _, w := range b.windows() {
		w.roll(now)
	}
}

// WithStore attaches s and seeds the current windows from it. Load
// failures leave the counters at zero.
func (b *BudgetTracker) WithStore(ctx context.Context, s BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = s
	b.rollAll()
	for _, w := range b.windows() {
		key := b.key(w.period, w.start)
		used, err := s.Get(ctx, key)
		if err != nil {
			b.logger.Warn("Failed to load token budget", zap.String("key", key), zap.Error(err))
			continue
		}
		w.used = used
	}

	b.logger.Info("Token budget restored",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("monthly_used", b.monthly.used),
	)
	return b
}

// key is carekb:budget:{provider}:{period}:{window}.
func (b *BudgetTracker) key(p budget.Period, t time.Time) string {
	stamp := t.UTC().Format("2006-01")
	if p == budget.PeriodDaily {
		stamp = t.UTC().Format(time.DateOnly)
	}
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, b.provider, p, stamp)
}

// Check reports whether another provider call is allowed.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollAll()

	var spent *window
	for _, w := range b.windows() {
		if w.snapshot().IsExhausted() {
			spent = w
			break
		}
	}
	if spent == nil {
		return nil
	}
	if b.action == BudgetActionReject {
		return fmt.Errorf("%s %s budget: %w", b.provider, spent.period, domain.ErrEmbeddingQuotaExceeded)
	}

	b.logger.Warn("Token budget exceeded, allowing call",
		zap.String("provider", b.provider),
		zap.String("period", string(spent.period)),
		zap.Int64("used", spent.used),
		zap.Int64("limit", spent.limit),
	)
	return nil
}

// Record adds tokens to both windows.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.rollAll()
	keys := make([]string, 0, 2)
	for _, w := range b.windows() {
		w.used += tokens
		keys = append(keys, b.key(w.period, w.start))
	}
	s := b.store
	b.mu.Unlock()

	if s == nil {
		return
	}

	// Detached so usage from a cancelled request is still persisted.
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	for _, key := range keys {
		if err := s.IncrBy(ctx, key, tokens); err != nil {
			b.logger.Warn("Failed to persist token budget", zap.String("key", key), zap.Error(err))
		}
	}
}

// Snapshot returns the daily and monthly budgets.
func (b *BudgetTracker) Snapshot() (daily, monthly budget.Budget) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollAll()
	return b.daily.snapshot(), b.monthly.snapshot()
}

// RemainingDaily returns tokens left today, -1 when unlimited.
func (b *BudgetTracker) RemainingDaily() int64 {
	d, _ := b.Snapshot()
	return d.TokensRemaining()
}

// RemainingMonthly returns tokens left this month, -1 when unlimited.
func (b *BudgetTracker) RemainingMonthly() int64 {
	_, m := b.Snapshot()
	return m.TokensRemaining()
}
