package thumbnail

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SeedFunc supplies the pregeneration targets from the current inventory.
type SeedFunc func(ctx context.Context) ([]Target, error)

// Feature wires the thumbnail generator, its HTTP surface, and the background
// maintenance tasks (eviction sweep, idle pregeneration) into the
// application.
type Feature struct {
	cfg    Config
	logger *zap.Logger
	roots  func() map[string]string
	seed   SeedFunc

	meta   *MetaStore
	gen    *Generator
	sweep  *Sweeper
	pregen *Pregenerator

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFeature creates the thumbnail feature. roots is resolved at load time so
// the inventory feature can finish its bootstrap first; seed may be nil to
// disable pregeneration regardless of configuration.
func NewFeature(cfg Config, roots func() map[string]string, seed SeedFunc, logger *zap.Logger) *Feature {
	return &Feature{
		cfg:    cfg,
		logger: logger,
		roots:  roots,
		seed:   seed,
	}
}

func (f *Feature) Name() string {
	return "thumbnail"
}

func (f *Feature) IsEnabled() bool {
	return f.cfg.Enabled
}

// Load restores the cache metadata, registers routes, and starts the sweep
// and pregeneration drivers.
func (f *Feature) Load(app fiber.Router) error {
	f.meta = NewMetaStore(f.cfg.MetadataPath)
	if err := f.meta.Load(); err != nil {
		// A broken metadata file costs regeneration work, not correctness.
		f.logger.Warn("cache metadata unreadable, starting cold", zap.Error(err))
	}

	f.gen = NewGenerator(f.roots(), f.cfg.CacheDir, f.cfg.JPEGQuality, f.meta, f.logger)

	maintain := &sync.Mutex{}
	budget := int64(f.cfg.BudgetMB) * 1024 * 1024
	ttl := time.Duration(f.cfg.TTLHours) * time.Hour
	f.sweep = NewSweeper(f.meta, f.gen.CachePath, budget, ttl, maintain, f.logger)

	NewHandler(f.gen, f.logger).RegisterRoutes(app)

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		interval := time.Duration(f.cfg.SweepIntervalHours) * time.Hour
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.sweep.Sweep(ctx)
			}
		}
	}()

	if f.cfg.PregenEnabled && f.seed != nil {
		idle := time.Duration(f.cfg.PregenIdleSeconds) * time.Second
		f.pregen = NewPregenerator(f.gen, f.meta, maintain, idle, f.cfg.PregenBatchSize, f.logger)

		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			targets, err := f.seed(ctx)
			if err != nil {
				f.logger.Warn("pregeneration seed failed", zap.Error(err))
				return
			}
			f.pregen.Seed(targets)
			f.pregen.Run(ctx, time.Duration(f.cfg.PregenIntervalSeconds)*time.Second)
		}()
	}

	return nil
}

// Stop halts the background tasks and persists the metadata one last time.
func (f *Feature) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
	if f.meta != nil {
		if err := f.meta.Persist(); err != nil {
			f.logger.Warn("failed to persist cache metadata on shutdown", zap.Error(err))
		}
	}
}

// Sweeper exposes the sweeper for the one-shot maintenance command.
func (f *Feature) Sweeper() *Sweeper {
	return f.sweep
}
