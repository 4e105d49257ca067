package thumbnail

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testPregenerator(t *testing.T, idleWindow time.Duration, batchSize int) (*Pregenerator, *Generator, string) {
	t.Helper()
	root := t.TempDir()
	cacheDir := t.TempDir()
	meta := NewMetaStore(filepath.Join(cacheDir, "meta.json"))
	gen := NewGenerator(map[string]string{"photos": root}, cacheDir, 80, meta, zap.NewNop())
	p := NewPregenerator(gen, meta, &sync.Mutex{}, idleWindow, batchSize, zap.NewNop())
	return p, gen, root
}

func TestPregenerator_GeneratesAllTiersWhenIdle(t *testing.T) {
	p, gen, root := testPregenerator(t, time.Hour, 8)
	writeJPEG(t, filepath.Join(root, "a.jpg"), 2000, 1000)

	p.Seed([]Target{{Source: "photos", RelativeID: "a.jpg"}})
	generated := p.Step(context.Background())

	assert.Equal(t, len(Tiers), generated)
	assert.Zero(t, p.Pending())
	for _, tier := range Tiers {
		key := Key("photos", "a.jpg", tier)
		_, err := os.Stat(gen.CachePath(key))
		assert.NoError(t, err, "tier %d missing", tier)
	}
}

func TestPregenerator_SkipsAlreadyCachedTiers(t *testing.T) {
	p, gen, root := testPregenerator(t, time.Hour, 8)
	writeJPEG(t, filepath.Join(root, "a.jpg"), 2000, 1000)

	// Warm one tier interactively, then age the activity past the idle window.
	_, err := gen.Thumbnail(context.Background(), "photos", "a.jpg", 400)
	assert.NoError(t, err)
	p.meta.mu.Lock()
	p.meta.lastActivity = time.Now().Add(-2 * time.Hour)
	p.meta.mu.Unlock()

	p.Seed([]Target{{Source: "photos", RelativeID: "a.jpg"}})
	generated := p.Step(context.Background())
	assert.Equal(t, len(Tiers)-1, generated)
}

func TestPregenerator_RecentActivityBlocksBatch(t *testing.T) {
	p, gen, root := testPregenerator(t, time.Hour, 8)
	writeJPEG(t, filepath.Join(root, "a.jpg"), 800, 600)

	// An interactive request just happened.
	_, err := gen.Thumbnail(context.Background(), "photos", "a.jpg", 800)
	assert.NoError(t, err)

	p.Seed([]Target{{Source: "photos", RelativeID: "b.jpg"}})
	assert.Zero(t, p.Step(context.Background()))
	assert.Equal(t, 1, p.Pending())
}

func TestPregenerator_OwnActivityDoesNotStallNextBatch(t *testing.T) {
	p, _, root := testPregenerator(t, time.Hour, 1)
	writeJPEG(t, filepath.Join(root, "a.jpg"), 600, 400)
	writeJPEG(t, filepath.Join(root, "b.jpg"), 600, 400)

	p.Seed([]Target{
		{Source: "photos", RelativeID: "a.jpg"},
		{Source: "photos", RelativeID: "b.jpg"},
	})

	// The first batch records cache activity; that activity must not count as
	// interactive load against the second batch.
	assert.Equal(t, len(Tiers), p.Step(context.Background()))
	assert.Equal(t, len(Tiers), p.Step(context.Background()))
	assert.Zero(t, p.Pending())
}

func TestPregenerator_BatchSizeBoundsWork(t *testing.T) {
	p, _, root := testPregenerator(t, time.Hour, 2)
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		writeJPEG(t, filepath.Join(root, name), 500, 500)
	}

	p.Seed([]Target{
		{Source: "photos", RelativeID: "a.jpg"},
		{Source: "photos", RelativeID: "b.jpg"},
		{Source: "photos", RelativeID: "c.jpg"},
	})

	p.Step(context.Background())
	assert.Equal(t, 1, p.Pending())
}

func TestPregenerator_UnreadableItemDoesNotAbortBatch(t *testing.T) {
	p, gen, root := testPregenerator(t, time.Hour, 8)
	writeJPEG(t, filepath.Join(root, "good.jpg"), 500, 500)

	p.Seed([]Target{
		{Source: "photos", RelativeID: "missing.jpg"},
		{Source: "photos", RelativeID: "good.jpg"},
	})

	generated := p.Step(context.Background())
	assert.Equal(t, len(Tiers), generated)
	key := Key("photos", "good.jpg", Tiers[0])
	_, err := os.Stat(gen.CachePath(key))
	assert.NoError(t, err)
}

func TestPregenerator_EmptyQueueIsNoop(t *testing.T) {
	p, _, _ := testPregenerator(t, time.Hour, 8)
	assert.Zero(t, p.Step(context.Background()))
}
