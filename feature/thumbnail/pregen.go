package thumbnail

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Target is one inventory item queued for pregeneration.
type Target struct {
	Source     string
	RelativeID string
}

// Pregenerator warms the cache during idle periods: a FIFO queue seeded from
// the inventory is drained in small batches, but only while no recent cache
// activity is observed, shifting generation cost off the interactive path.
type Pregenerator struct {
	gen      *Generator
	meta     *MetaStore
	maintain *sync.Mutex
	logger   *zap.Logger

	idleWindow time.Duration
	batchSize  int

	qmu     sync.Mutex
	queue   []Target
	lastRun time.Time
}

// NewPregenerator creates an idle pregeneration driver sharing the
// maintenance mutex with the eviction sweeper.
func NewPregenerator(gen *Generator, meta *MetaStore, maintain *sync.Mutex, idleWindow time.Duration, batchSize int, logger *zap.Logger) *Pregenerator {
	if batchSize <= 0 {
		batchSize = 8
	}
	return &Pregenerator{
		gen:        gen,
		meta:       meta,
		maintain:   maintain,
		logger:     logger,
		idleWindow: idleWindow,
		batchSize:  batchSize,
	}
}

// Seed replaces the queue with the given targets.
func (p *Pregenerator) Seed(targets []Target) {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	p.queue = append([]Target(nil), targets...)
}

// Pending returns the queue length.
func (p *Pregenerator) Pending() int {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	return len(p.queue)
}

// Step runs at most one batch and returns the number of thumbnails
// generated. It does nothing unless the cache has been idle for the
// configured window; activity caused by the previous batch does not count.
func (p *Pregenerator) Step(ctx context.Context) int {
	p.qmu.Lock()
	if len(p.queue) == 0 {
		p.qmu.Unlock()
		return 0
	}
	last := p.meta.LastActivity()
	if last.After(p.lastRun) && time.Since(last) < p.idleWindow {
		p.qmu.Unlock()
		return 0
	}
	n := p.batchSize
	if n > len(p.queue) {
		n = len(p.queue)
	}
	batch := p.queue[:n]
	p.queue = p.queue[n:]
	p.qmu.Unlock()

	p.maintain.Lock()
	defer p.maintain.Unlock()

	generated := 0
	for _, t := range batch {
		for _, tier := range Tiers {
			if err := ctx.Err(); err != nil {
				return generated
			}
			key := Key(t.Source, t.RelativeID, tier)
			if p.meta.Has(key) {
				if _, err := os.Stat(p.gen.CachePath(key)); err == nil {
					continue
				}
			}
			if _, err := p.gen.Thumbnail(ctx, t.Source, t.RelativeID, tier); err != nil {
				if !errors.Is(err, context.Canceled) {
					p.logger.Debug("pregeneration skipped item",
						zap.String("source", t.Source),
						zap.String("item", t.RelativeID),
						zap.Error(err),
					)
				}
				break
			}
			generated++
		}
	}

	if err := p.meta.Persist(); err != nil {
		p.logger.Warn("failed to persist cache metadata after batch", zap.Error(err))
	}

	p.qmu.Lock()
	p.lastRun = time.Now()
	p.qmu.Unlock()
	return generated
}

// Run drives Step on the given interval until the context ends. The interval
// doubles as the delay between batches so disk I/O is never saturated.
func (p *Pregenerator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Step(ctx)
		}
	}
}
