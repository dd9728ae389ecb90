package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/molda-invest/api/internal/categories"
)

// TypeSummary aggregates one transaction type group.
type TypeSummary struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// Statistics summarises an owner's movements over an optional date range.
type Statistics struct {
	Income            TypeSummary     `json:"income"`
	Expenses          TypeSummary     `json:"expenses"`
	Investments       TypeSummary     `json:"investments"`
	Balance           decimal.Decimal `json:"balance"`
	TotalTransactions int             `json:"total_transactions"`
}

// StatsService computes movement statistics, with a short-lived redis
// cache in front of the aggregation queries.
type StatsService struct {
	repo  Repository
	cache *redis.Client
	ttl   time.Duration
}

// NewStatsService constructs a StatsService. cache may be nil to disable
// caching.
func NewStatsService(repo Repository, cache *redis.Client, ttl time.Duration) *StatsService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatsService{repo: repo, cache: cache, ttl: ttl}
}

func statsCacheKey(ownerID int64, from, to *time.Time) string {
	f, t := "", ""
	if from != nil {
		f = from.Format("2006-01-02")
	}
	if to != nil {
		t = to.Format("2006-01-02")
	}
	return fmt.Sprintf("ledger:stats:%d:%s:%s", ownerID, f, t)
}

// Statistics returns income/expense/investment totals and counts plus the
// net balance over the range. The three aggregations run concurrently.
func (s *StatsService) Statistics(ctx context.Context, ownerID int64, from, to *time.Time) (Statistics, error) {
	key := statsCacheKey(ownerID, from, to)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var cached Statistics
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	filter := ListFilter{DateFrom: from, DateTo: to}
	var income, expenses, investments TypeSummary

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, count, err := s.repo.Aggregate(gctx, ownerID, categories.TypeIncome, filter)
		income = TypeSummary{Total: total, Count: count}
		return err
	})
	g.Go(func() error {
		total, count, err := s.repo.Aggregate(gctx, ownerID, categories.TypeExpense, filter)
		expenses = TypeSummary{Total: total, Count: count}
		return err
	})
	g.Go(func() error {
		total, count, err := s.repo.Aggregate(gctx, ownerID, categories.TypeInvestment, filter)
		investments = TypeSummary{Total: total, Count: count}
		return err
	})
	if err := g.Wait(); err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		Income:            income,
		Expenses:          expenses,
		Investments:       investments,
		Balance:           income.Total.Sub(expenses.Total).Sub(investments.Total),
		TotalTransactions: income.Count + expenses.Count + investments.Count,
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			_ = s.cache.Set(ctx, key, raw, s.ttl).Err()
		}
	}
	return stats, nil
}

// Invalidate drops cached statistics for an owner after a mutation.
func (s *StatsService) Invalidate(ctx context.Context, ownerID int64) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("ledger:stats:%d:*", ownerID)
	iter := s.cache.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		_ = s.cache.Del(ctx, iter.Val()).Err()
	}
}
