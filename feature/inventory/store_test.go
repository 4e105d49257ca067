package inventory_test

import (
	"context"
	"testing"
	"time"

	"picture-manager/core/database"
	"picture-manager/feature/inventory"
	"picture-manager/feature/inventory/models"
	"picture-manager/feature/inventory/reconcile"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	assert.NoError(t, err)
	assert.NoError(t, inventory.Migrate(db))
	return db
}

func pic(sourceID uint, rel string, modified time.Time) models.Picture {
	return models.Picture{
		SourceID:   sourceID,
		RelativeID: rel,
		Name:       rel,
		ModifiedAt: modified,
		ByteSize:   100,
	}
}

func TestStore_EnsureServerSources(t *testing.T) {
	ctx := context.Background()
	store := inventory.NewStore(testDB(t))

	mounts := []inventory.SourceMount{
		{Name: "Holidays", Root: "/mnt/holidays"},
		{Name: "Family", Root: "/mnt/family"},
	}
	sources, err := store.EnsureServerSources(ctx, mounts)
	assert.NoError(t, err)
	assert.Len(t, sources, 2)
	assert.Equal(t, models.SourceServer, sources[0].Kind)
	assert.True(t, sources[0].Recursive)

	// Second boot with a remounted root updates in place, no duplicate rows.
	mounts[0].Root = "/mnt/holidays-new"
	again, err := store.EnsureServerSources(ctx, mounts)
	assert.NoError(t, err)
	assert.Len(t, again, 2)
	assert.Equal(t, sources[0].ID, again[0].ID)
	assert.Equal(t, "/mnt/holidays-new", again[0].Root)

	all, err := store.Sources(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_SourcesFilteredByKind(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	store := inventory.NewStore(db)

	assert.NoError(t, db.Create(&models.DataSource{Kind: models.SourceLocal, Name: "local-1", Enabled: true}).Error)
	assert.NoError(t, db.Create(&models.DataSource{Kind: models.SourceServer, Name: "server-1", Enabled: true}).Error)

	servers, err := store.Sources(ctx, models.SourceServer)
	assert.NoError(t, err)
	assert.Len(t, servers, 1)
	assert.Equal(t, "server-1", servers[0].Name)
}

func TestStore_ApplyChangeset(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	store := inventory.NewStore(db)

	src := models.DataSource{Kind: models.SourceServer, Name: "srv", Enabled: true}
	assert.NoError(t, db.Create(&src).Error)

	t0 := time.Unix(1000, 0)
	cs := &reconcile.Changeset{
		Adds: []models.Picture{
			pic(src.ID, "a.jpg", t0),
			pic(src.ID, "b.jpg", t0),
		},
	}
	assert.NoError(t, store.Apply(ctx, cs))

	var refreshed models.DataSource
	assert.NoError(t, db.First(&refreshed, src.ID).Error)
	assert.Equal(t, int64(2), refreshed.PictureCount)

	// Update one record and delete the other.
	snap, err := store.Snapshot(ctx, []uint{src.ID})
	assert.NoError(t, err)
	assert.Len(t, snap, 2)

	var aRec models.Picture
	assert.NoError(t, db.Where("relative_id = ?", "a.jpg").First(&aRec).Error)
	aRec.ByteSize = 999

	cs2 := &reconcile.Changeset{
		Updates: []models.Picture{aRec},
		Deletes: []models.Identity{{SourceID: src.ID, RelativeID: "b.jpg"}},
	}
	assert.NoError(t, store.Apply(ctx, cs2))

	snap, err = store.Snapshot(ctx, []uint{src.ID})
	assert.NoError(t, err)
	assert.Len(t, snap, 1)
	assert.Equal(t, "a.jpg", snap[0].RelativeID)
	assert.Equal(t, int64(999), snap[0].ByteSize)

	assert.NoError(t, db.First(&refreshed, src.ID).Error)
	assert.Equal(t, int64(1), refreshed.PictureCount)
}

func TestStore_ApplyEmptyChangesetIsNoop(t *testing.T) {
	store := inventory.NewStore(testDB(t))
	assert.NoError(t, store.Apply(context.Background(), &reconcile.Changeset{}))
}

func TestStore_DeleteSourceCascades(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	store := inventory.NewStore(db)

	src := models.DataSource{Kind: models.SourceLocal, Name: "gone", Enabled: true}
	assert.NoError(t, db.Create(&src).Error)
	assert.NoError(t, store.Apply(ctx, &reconcile.Changeset{
		Adds: []models.Picture{pic(src.ID, "a.jpg", time.Unix(1000, 0))},
	}))

	assert.NoError(t, store.DeleteSource(ctx, src.ID))

	var pics int64
	assert.NoError(t, db.Model(&models.Picture{}).Where("source_id = ?", src.ID).Count(&pics).Error)
	assert.Zero(t, pics)

	var sources int64
	assert.NoError(t, db.Model(&models.DataSource{}).Count(&sources).Error)
	assert.Zero(t, sources)
}

func TestStore_ListPaginationAndSearch(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	store := inventory.NewStore(db)

	src := models.DataSource{Kind: models.SourceServer, Name: "srv", Enabled: true}
	assert.NoError(t, db.Create(&src).Error)

	base := time.Unix(1000, 0)
	adds := []models.Picture{
		pic(src.ID, "sunset.jpg", base.Add(3*time.Hour)),
		pic(src.ID, "sunrise.jpg", base.Add(2*time.Hour)),
		pic(src.ID, "cat.jpg", base.Add(1*time.Hour)),
	}
	assert.NoError(t, store.Apply(ctx, &reconcile.Changeset{Adds: adds}))

	// Newest first.
	pics, total, err := store.List(ctx, nil, 0, 2, "")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, pics, 2)
	assert.Equal(t, "sunset.jpg", pics[0].RelativeID)
	assert.Equal(t, "sunrise.jpg", pics[1].RelativeID)

	// Second page.
	pics, _, err = store.List(ctx, nil, 2, 2, "")
	assert.NoError(t, err)
	assert.Len(t, pics, 1)
	assert.Equal(t, "cat.jpg", pics[0].RelativeID)

	// Name filter.
	pics, total, err = store.List(ctx, nil, 0, 10, "sun")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, pics, 2)
}
