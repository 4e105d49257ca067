package thumbnail

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// budgetTarget is the fraction of the byte budget the budget phase shrinks
// the cache down to, leaving headroom before the next sweep.
const budgetTarget = 0.8

// Sweeper applies the byte-budget and TTL eviction policies over the cache
// metadata store. Sweeps are mutually excluded with pregeneration batches via
// the shared maintenance mutex.
type Sweeper struct {
	meta     *MetaStore
	resolve  func(key string) string
	budget   int64
	ttl      time.Duration
	maintain *sync.Mutex
	logger   *zap.Logger
}

// SweepStats summarizes one sweep for logging.
type SweepStats struct {
	Pruned  int
	Budget  int
	Expired int
}

// NewSweeper creates a sweeper. resolve maps a cache key to its file path.
func NewSweeper(meta *MetaStore, resolve func(string) string, budget int64, ttl time.Duration, maintain *sync.Mutex, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		meta:     meta,
		resolve:  resolve,
		budget:   budget,
		ttl:      ttl,
		maintain: maintain,
		logger:   logger,
	}
}

// Sweep runs one maintenance pass: prune entries whose backing file is gone,
// evict down to the budget target when over budget, then expire entries idle
// past the TTL regardless of budget pressure. The updated metadata is
// persisted atomically; a persist failure is logged and retried next cycle.
func (s *Sweeper) Sweep(ctx context.Context) SweepStats {
	s.maintain.Lock()
	defer s.maintain.Unlock()

	var stats SweepStats
	entries := s.meta.Entries()

	for key := range entries {
		if err := ctx.Err(); err != nil {
			return stats
		}
		if _, err := os.Stat(s.resolve(key)); os.IsNotExist(err) {
			s.meta.Remove(key)
			delete(entries, key)
			stats.Pruned++
		}
	}

	total := s.meta.TotalSize()
	if s.budget > 0 && total > s.budget {
		stats.Budget = s.evictToBudget(entries, total)
	}

	if s.ttl > 0 {
		cutoff := time.Now().Add(-s.ttl)
		for key, e := range entries {
			if e.LastAccessedAt.Before(cutoff) {
				s.evict(key)
				delete(entries, key)
				stats.Expired++
			}
		}
	}

	if err := s.meta.Persist(); err != nil {
		s.logger.Warn("failed to persist cache metadata, retrying next sweep", zap.Error(err))
	}

	s.logger.Info("cache sweep complete",
		zap.Int("pruned", stats.Pruned),
		zap.Int("budget_evictions", stats.Budget),
		zap.Int("ttl_evictions", stats.Expired),
		zap.Int64("bytes", s.meta.TotalSize()),
	)
	return stats
}

// evictToBudget deletes the least-used, then oldest entries until the cache
// shrinks to the budget target.
func (s *Sweeper) evictToBudget(entries map[string]Entry, total int64) int {
	type ranked struct {
		key string
		e   Entry
	}
	order := make([]ranked, 0, len(entries))
	for key, e := range entries {
		order = append(order, ranked{key: key, e: e})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].e.AccessCount != order[j].e.AccessCount {
			return order[i].e.AccessCount < order[j].e.AccessCount
		}
		return order[i].e.LastAccessedAt.Before(order[j].e.LastAccessedAt)
	})

	target := int64(float64(s.budget) * budgetTarget)
	evicted := 0
	for _, r := range order {
		if total <= target {
			break
		}
		s.evict(r.key)
		delete(entries, r.key)
		total -= r.e.ByteSize
		evicted++
	}
	return evicted
}

// evict removes one thumbnail file and its metadata entry.
func (s *Sweeper) evict(key string) {
	if err := os.Remove(s.resolve(key)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove thumbnail", zap.String("key", key), zap.Error(err))
	}
	s.meta.Remove(key)
}
