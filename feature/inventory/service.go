package inventory

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"picture-manager/core/storage"
	"picture-manager/feature/inventory/models"
	"picture-manager/feature/inventory/reconcile"
	"picture-manager/feature/inventory/walker"
)

// Service orchestrates reconciliation passes and inventory queries.
type Service struct {
	store   *Store
	engine  *reconcile.Engine
	storage storage.Client
	cfg     Config
	logger  *zap.Logger

	mounts   []SourceMount
	scanning atomic.Bool
}

// NewService creates the inventory service. The storage client may be nil
// when no bucket sources are configured.
func NewService(db *gorm.DB, client storage.Client, cfg Config, logger *zap.Logger) *Service {
	s := &Service{
		store:   NewStore(db),
		storage: client,
		cfg:     cfg,
		logger:  logger,
	}
	s.engine = reconcile.NewEngine(s.buildWalker, logger)
	return s
}

// Store exposes the persistence collaborator.
func (s *Service) Store() *Store {
	return s.store
}

// buildWalker selects the walking strategy for a source.
func (s *Service) buildWalker(src *models.DataSource) (walker.Walker, error) {
	switch src.Kind {
	case models.SourceLocal:
		return walker.NewLocalWalker(src), nil
	case models.SourceServer:
		return walker.NewServerWalker(src), nil
	case models.SourceRemote:
		return walker.NewRemoteWalker(src, nil), nil
	case models.SourceBucket:
		if s.storage == nil {
			return nil, fmt.Errorf("no storage client configured for bucket source %s", src.Name)
		}
		return walker.NewBucketWalker(src, s.storage), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

// Bootstrap resolves the server source mapping, upserts the matching source
// records, and restores the inventory snapshot when the database holds no
// pictures for them yet.
func (s *Service) Bootstrap(ctx context.Context) error {
	mounts := ParseSourceMapping(s.cfg.Sources)
	if len(mounts) == 0 {
		discovered, err := DiscoverMounts(s.cfg.MountRoot)
		if err != nil {
			s.logger.Warn("mount root not readable, no server sources",
				zap.String("root", s.cfg.MountRoot),
				zap.Error(err),
			)
		}
		mounts = discovered
	}
	s.mounts = mounts

	sources, err := s.store.EnsureServerSources(ctx, mounts)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return nil
	}

	return s.restoreSnapshot(ctx, sources)
}

// restoreSnapshot seeds empty server sources from the snapshot file so a
// fresh boot can serve the inventory before the first rescan completes.
func (s *Service) restoreSnapshot(ctx context.Context, sources []models.DataSource) error {
	bySource, err := LoadSnapshot(s.cfg.SnapshotPath)
	if err != nil {
		s.logger.Warn("inventory snapshot unreadable", zap.Error(err))
		return nil
	}
	if len(bySource) == 0 {
		return nil
	}

	cs := &reconcile.Changeset{}
	for _, src := range sources {
		if src.PictureCount > 0 {
			continue
		}
		for _, pic := range bySource[src.Name] {
			pic.ID = 0
			pic.SourceID = src.ID
			cs.Adds = append(cs.Adds, pic)
		}
	}
	if cs.Empty() {
		return nil
	}
	if err := s.store.Apply(ctx, cs); err != nil {
		return fmt.Errorf("failed to restore inventory snapshot: %w", err)
	}
	s.logger.Info("inventory snapshot restored", zap.Int("pictures", len(cs.Adds)))
	return nil
}

// Scan runs one reconciliation pass over the given scope and applies the
// resulting changeset. Per-source errors are returned, not fatal.
func (s *Service) Scan(ctx context.Context, scope []uint) (*reconcile.Changeset, []reconcile.SourceError, error) {
	sources, err := s.store.Sources(ctx)
	if err != nil {
		return nil, nil, err
	}
	// The snapshot intentionally spans all sources; the engine's scope
	// isolation keeps out-of-scope records untouched.
	snapshot, err := s.store.Snapshot(ctx, nil)
	if err != nil {
		return nil, nil, err
	}

	cs, srcErrs, err := s.engine.Reconcile(ctx, scope, sources, snapshot, func(ev reconcile.Event) {
		if p, ok := ev.(reconcile.ProgressEvent); ok {
			s.logger.Debug("scan progress",
				zap.Int("percent", p.Percent),
				zap.String("status", p.Detail),
			)
		}
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.store.Apply(ctx, cs); err != nil {
		return nil, srcErrs, err
	}

	s.persistServerSnapshot(ctx)
	return cs, srcErrs, nil
}

// ScanServer runs a pass over all server sources. A scan already in progress
// suppresses the trigger instead of queueing it.
func (s *Service) ScanServer(ctx context.Context) error {
	if !s.scanning.CompareAndSwap(false, true) {
		s.logger.Debug("rescan suppressed, scan in progress")
		return nil
	}
	defer s.scanning.Store(false)

	sources, err := s.store.Sources(ctx, models.SourceServer)
	if err != nil {
		return err
	}
	scope := make([]uint, 0, len(sources))
	for _, src := range sources {
		scope = append(scope, src.ID)
	}
	if len(scope) == 0 {
		return nil
	}

	cs, srcErrs, err := s.Scan(ctx, scope)
	if err != nil {
		return err
	}
	for _, se := range srcErrs {
		s.logger.Warn("server source failed", zap.String("source", se.Source), zap.Error(se.Err))
	}
	s.logger.Info("server scan complete",
		zap.Int("adds", len(cs.Adds)),
		zap.Int("updates", len(cs.Updates)),
		zap.Int("deletes", len(cs.Deletes)),
	)
	return nil
}

// persistServerSnapshot writes the current server inventory to the snapshot
// file. Failures are logged; the next scan retries.
func (s *Service) persistServerSnapshot(ctx context.Context) {
	sources, err := s.store.Sources(ctx, models.SourceServer)
	if err != nil || len(sources) == 0 {
		return
	}
	bySource := map[string][]models.Picture{}
	for _, src := range sources {
		pics, perr := s.store.Snapshot(ctx, []uint{src.ID})
		if perr != nil {
			s.logger.Warn("failed to snapshot source", zap.String("source", src.Name), zap.Error(perr))
			return
		}
		bySource[src.Name] = pics
	}
	if err := SaveSnapshot(s.cfg.SnapshotPath, bySource); err != nil {
		s.logger.Warn("failed to persist inventory snapshot", zap.Error(err))
	}
}

// ListPictures returns one page of picture metadata sorted by recency.
func (s *Service) ListPictures(ctx context.Context, sourceIDs []uint, offset, limit int, searchTerm string) ([]models.Picture, int64, error) {
	return s.store.List(ctx, sourceIDs, offset, limit, searchTerm)
}

// Mounts returns the resolved server source mapping (name to root).
func (s *Service) Mounts() map[string]string {
	out := make(map[string]string, len(s.mounts))
	for _, m := range s.mounts {
		out[m.Name] = m.Root
	}
	return out
}
