package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"payment-dispatcher/internal/models"
)

const ledgerKey = "payments:ledger"

// Store is the ledger: an append-only sorted set of confirmed dispatches,
// scored by the dispatch timestamp in epoch milliseconds. Summaries are
// range scans over it; there is no separate counter to drift out of sync.
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Append(ctx context.Context, rec models.DispatchRecord) error {
	member, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch record: %w", err)
	}

	err = s.rdb.ZAdd(ctx, ledgerKey, redis.Z{
		Score:  float64(rec.RequestedAt.UnixMilli()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to ledger: %w", err)
	}
	return nil
}

// Records returns every dispatch record with score in [from, to]. A nil
// bound is unbounded on that side.
func (s *Store) Records(ctx context.Context, from, to *time.Time) ([]models.DispatchRecord, error) {
	min := "-inf"
	if from != nil {
		min = strconv.FormatInt(from.UnixMilli(), 10)
	}
	max := "+inf"
	if to != nil {
		max = strconv.FormatInt(to.UnixMilli(), 10)
	}

	members, err := s.rdb.ZRangeByScore(ctx, ledgerKey, &redis.ZRangeBy{Min: min, Max: max}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger: %w", err)
	}

	records := make([]models.DispatchRecord, 0, len(members))
	for _, member := range members {
		var rec models.DispatchRecord
		if err := json.Unmarshal([]byte(member), &rec); err != nil {
			log.Printf("skipping unreadable ledger member: %v", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Store) Summary(ctx context.Context, from, to *time.Time) (models.PaymentsSummary, error) {
	records, err := s.Records(ctx, from, to)
	if err != nil {
		return models.PaymentsSummary{}, err
	}
	return Summarize(records), nil
}

// Summarize partitions records by processor and totals them with exact
// decimal arithmetic.
func Summarize(records []models.DispatchRecord) models.PaymentsSummary {
	var summary models.PaymentsSummary
	for _, rec := range records {
		switch rec.Processor {
		case models.ProcessorDefault:
			summary.Default.TotalRequests++
			summary.Default.TotalAmount = summary.Default.TotalAmount.Add(rec.Amount)
		case models.ProcessorFallback:
			summary.Fallback.TotalRequests++
			summary.Fallback.TotalAmount = summary.Fallback.TotalAmount.Add(rec.Amount)
		default:
			log.Printf("skipping ledger record with unknown processor '%s'", rec.Processor)
		}
	}
	return summary
}

func (s *Store) Purge(ctx context.Context) error {
	if err := s.rdb.Del(ctx, ledgerKey).Err(); err != nil {
		return fmt.Errorf("failed to purge ledger: %w", err)
	}
	return nil
}
