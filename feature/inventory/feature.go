package inventory

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"picture-manager/core/storage"
)

// Feature wires the inventory service, its HTTP surface, and the background
// change watcher into the application.
type Feature struct {
	service *Service
	cfg     Config
	logger  *zap.Logger

	watcher *Watcher
	cancel  context.CancelFunc
}

// NewFeature creates the inventory feature.
func NewFeature(db *gorm.DB, client storage.Client, cfg Config, logger *zap.Logger) *Feature {
	return &Feature{
		service: NewService(db, client, cfg, logger),
		cfg:     cfg,
		logger:  logger,
	}
}

// Service returns the inventory service for collaborating features.
func (f *Feature) Service() *Service {
	return f.service
}

func (f *Feature) Name() string {
	return "inventory"
}

func (f *Feature) IsEnabled() bool {
	return f.cfg.Enabled
}

// Load migrates the schema, bootstraps server sources, registers routes, and
// starts the watcher plus the optional boot scan.
func (f *Feature) Load(app fiber.Router) error {
	if err := Migrate(f.service.store.db); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	if err := f.service.Bootstrap(ctx); err != nil {
		cancel()
		return err
	}

	NewHandler(f.service, f.logger).RegisterRoutes(app)

	if f.cfg.ScanOnStart {
		go func() {
			if err := f.service.ScanServer(ctx); err != nil && ctx.Err() == nil {
				f.logger.Error("boot scan failed", zap.Error(err))
			}
		}()
	}

	if f.cfg.WatchEnabled {
		roots := make([]string, 0, len(f.service.mounts))
		for _, m := range f.service.mounts {
			roots = append(roots, m.Root)
		}
		if len(roots) > 0 {
			delay := time.Duration(f.cfg.DebounceSeconds) * time.Second
			f.watcher = NewWatcher(roots, delay, func() {
				if err := f.service.ScanServer(ctx); err != nil && ctx.Err() == nil {
					f.logger.Error("watched rescan failed", zap.Error(err))
				}
			}, f.logger)
			if err := f.watcher.Start(); err != nil {
				f.logger.Warn("change watcher unavailable", zap.Error(err))
				f.watcher = nil
			}
		}
	}

	return nil
}

// Stop halts the watcher and any in-flight background scan.
func (f *Feature) Stop() {
	if f.watcher != nil {
		f.watcher.Stop()
	}
	if f.cancel != nil {
		f.cancel()
	}
}
