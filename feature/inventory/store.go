package inventory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"picture-manager/feature/inventory/models"
	"picture-manager/feature/inventory/reconcile"
)

// Store is the persistence collaborator: it applies changesets
// transactionally to the durable picture table and answers paginated queries.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store on an existing connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the inventory tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.DataSource{}, &models.Picture{})
}

// Sources returns all data sources, optionally filtered by kind.
func (s *Store) Sources(ctx context.Context, kinds ...models.SourceKind) ([]models.DataSource, error) {
	q := s.db.WithContext(ctx)
	if len(kinds) > 0 {
		q = q.Where("kind IN ?", kinds)
	}
	var sources []models.DataSource
	if err := q.Order("id").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	return sources, nil
}

// EnsureServerSources upserts one server source per mount, keyed by name.
// Roots are refreshed on every boot so remounts take effect.
func (s *Store) EnsureServerSources(ctx context.Context, mounts []SourceMount) ([]models.DataSource, error) {
	var out []models.DataSource
	for _, m := range mounts {
		var src models.DataSource
		err := s.db.WithContext(ctx).
			Where("kind = ? AND name = ?", models.SourceServer, m.Name).
			First(&src).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			src = models.DataSource{
				Kind:      models.SourceServer,
				Name:      m.Name,
				Enabled:   true,
				Root:      m.Root,
				Recursive: true,
			}
			if cerr := s.db.WithContext(ctx).Create(&src).Error; cerr != nil {
				return nil, fmt.Errorf("failed to create server source %s: %w", m.Name, cerr)
			}
		case err != nil:
			return nil, fmt.Errorf("failed to look up server source %s: %w", m.Name, err)
		default:
			if src.Root != m.Root || !src.Enabled {
				src.Root = m.Root
				src.Enabled = true
				if uerr := s.db.WithContext(ctx).Save(&src).Error; uerr != nil {
					return nil, fmt.Errorf("failed to update server source %s: %w", m.Name, uerr)
				}
			}
		}
		out = append(out, src)
	}
	return out, nil
}

// Snapshot returns the current picture records for the given sources, or for
// all sources when ids is empty. The reconciliation engine treats this as a
// read-only snapshot.
func (s *Store) Snapshot(ctx context.Context, sourceIDs []uint) ([]models.Picture, error) {
	q := s.db.WithContext(ctx)
	if len(sourceIDs) > 0 {
		q = q.Where("source_id IN ?", sourceIDs)
	}
	var pics []models.Picture
	if err := q.Find(&pics).Error; err != nil {
		return nil, fmt.Errorf("failed to snapshot inventory: %w", err)
	}
	return pics, nil
}

// Apply writes a changeset in one transaction and recomputes the derived
// picture count of every touched source.
func (s *Store) Apply(ctx context.Context, cs *reconcile.Changeset) error {
	if cs.Empty() {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(cs.Adds) > 0 {
			if err := tx.CreateInBatches(cs.Adds, 200).Error; err != nil {
				return fmt.Errorf("failed to insert records: %w", err)
			}
		}
		for i := range cs.Updates {
			if err := tx.Save(&cs.Updates[i]).Error; err != nil {
				return fmt.Errorf("failed to update record %s: %w", cs.Updates[i].RelativeID, err)
			}
		}
		for _, id := range cs.Deletes {
			if err := tx.Where("source_id = ? AND relative_id = ?", id.SourceID, id.RelativeID).
				Delete(&models.Picture{}).Error; err != nil {
				return fmt.Errorf("failed to delete record %s: %w", id.RelativeID, err)
			}
		}

		for _, sourceID := range cs.SourceIDs() {
			var count int64
			if err := tx.Model(&models.Picture{}).Where("source_id = ?", sourceID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to count source %d: %w", sourceID, err)
			}
			if err := tx.Model(&models.DataSource{}).Where("id = ?", sourceID).
				Update("picture_count", count).Error; err != nil {
				return fmt.Errorf("failed to update count for source %d: %w", sourceID, err)
			}
		}
		return nil
	})
}

// DeleteSource removes a source and cascades to all its picture records.
func (s *Store) DeleteSource(ctx context.Context, sourceID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_id = ?", sourceID).Delete(&models.Picture{}).Error; err != nil {
			return fmt.Errorf("failed to delete pictures of source %d: %w", sourceID, err)
		}
		if err := tx.Delete(&models.DataSource{}, sourceID).Error; err != nil {
			return fmt.Errorf("failed to delete source %d: %w", sourceID, err)
		}
		return nil
	})
}

// List returns one recency-sorted page of picture metadata plus the total
// match count.
func (s *Store) List(ctx context.Context, sourceIDs []uint, offset, limit int, searchTerm string) ([]models.Picture, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Picture{})
	if len(sourceIDs) > 0 {
		q = q.Where("source_id IN ?", sourceIDs)
	}
	if searchTerm != "" {
		q = q.Where("name LIKE ?", "%"+searchTerm+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count pictures: %w", err)
	}

	var pics []models.Picture
	if err := q.Order("modified_at DESC").Offset(offset).Limit(limit).Find(&pics).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list pictures: %w", err)
	}
	return pics, total, nil
}
