// Package budget persists embedding token counters so budgets survive restarts.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/carekb/internal/db"
	"github.com/kailas-cloud/carekb/internal/domain/usage/budget"
)

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store keeps one expiring integer per provider and budget window.
// Keys have the form carekb:budget:{provider}:{period}:{window}.
type Store struct {
	store store
	ttls  map[budget.Period]time.Duration
}

// New creates a budget store. Each window key outlives its window by its
// TTL (recommended: 48h daily, 62 days monthly).
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{
		store: s,
		ttls: map[budget.Period]time.Duration{
			budget.PeriodDaily:   dailyTTL,
			budget.PeriodMonthly: monthTTL,
		},
	}
}

// IncrBy adds val to the window counter. The first increment of a window sets its TTL.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget incr %s: %w", key, err)
	}
	if err := s.store.Expire(ctx, key, s.ttl(key), true); err != nil {
		return fmt.Errorf("budget expire %s: %w", key, err)
	}
	return nil
}

// Get returns the window counter, 0 when the window has no usage yet.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget get %s: parse %q: %w", key, data, err)
	}
	return val, nil
}

// ttl reads the period segment of key. Unknown periods get the monthly TTL.
func (s *Store) ttl(key string) time.Duration {
	parts := strings.Split(key, ":")
	if len(parts) >= 2 {
		if d, ok := s.ttls[budget.Period(parts[len(parts)-2])]; ok {
			return d
		}
	}
	return s.ttls[budget.PeriodMonthly]
}
