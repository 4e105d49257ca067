package reconcile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"picture-manager/feature/inventory/models"
	"picture-manager/feature/inventory/walker"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeWalker yields a fixed item list, or fails after yielding a prefix of it.
type fakeWalker struct {
	sourceID  uint
	items     []walker.Item
	failAfter int // -1: never fail
}

func (f *fakeWalker) SourceID() uint { return f.sourceID }

func (f *fakeWalker) Walk(ctx context.Context, yield func(walker.Item) error) error {
	for i, item := range f.items {
		if f.failAfter >= 0 && i >= f.failAfter {
			return fmt.Errorf("%w: boom", walker.ErrSourceUnreachable)
		}
		if err := yield(item); err != nil {
			return err
		}
	}
	return nil
}

func fakeFactory(walkers map[uint]*fakeWalker) WalkerFactory {
	return func(src *models.DataSource) (walker.Walker, error) {
		w, ok := walkers[src.ID]
		if !ok {
			return nil, fmt.Errorf("no walker for source %d", src.ID)
		}
		return w, nil
	}
}

func item(rel string, modified time.Time, size int64) walker.Item {
	return walker.Item{RelativeID: rel, Name: rel, ModifiedAt: modified, ByteSize: size}
}

func record(sourceID uint, rel string, modified time.Time, size int64) models.Picture {
	return models.Picture{SourceID: sourceID, RelativeID: rel, Name: rel, ModifiedAt: modified, ByteSize: size}
}

func TestReconcile_AddUpdateDelete(t *testing.T) {
	t0 := time.Unix(1000, 0)
	t1 := time.Unix(2000, 0)

	// Existing: A (unchanged), B (modified), C (gone). Observed: A, B, D.
	snapshot := []models.Picture{
		record(1, "a.jpg", t0, 10),
		record(1, "b.jpg", t0, 20),
		record(1, "c.jpg", t0, 30),
	}
	walkers := map[uint]*fakeWalker{
		1: {sourceID: 1, failAfter: -1, items: []walker.Item{
			item("a.jpg", t0, 10),
			item("b.jpg", t1, 25),
			item("d.jpg", t1, 40),
		}},
	}
	sources := []models.DataSource{{ID: 1, Name: "one", Enabled: true}}

	e := NewEngine(fakeFactory(walkers), zap.NewNop())
	cs, srcErrs, err := e.Reconcile(context.Background(), []uint{1}, sources, snapshot, nil)
	assert.NoError(t, err)
	assert.Empty(t, srcErrs)

	assert.Len(t, cs.Adds, 1)
	assert.Equal(t, "d.jpg", cs.Adds[0].RelativeID)

	assert.Len(t, cs.Updates, 1)
	assert.Equal(t, "b.jpg", cs.Updates[0].RelativeID)
	assert.Equal(t, int64(25), cs.Updates[0].ByteSize)

	assert.Len(t, cs.Deletes, 1)
	assert.Equal(t, models.Identity{SourceID: 1, RelativeID: "c.jpg"}, cs.Deletes[0])
}

func TestReconcile_ScopeIsolation(t *testing.T) {
	t0 := time.Unix(1000, 0)

	// Source 2 is outside the scope; its records must never become deletes
	// even though no walker observes them.
	snapshot := []models.Picture{
		record(1, "a.jpg", t0, 10),
		record(2, "x.jpg", t0, 10),
		record(2, "y.jpg", t0, 10),
	}
	walkers := map[uint]*fakeWalker{
		1: {sourceID: 1, failAfter: -1, items: nil},
	}
	sources := []models.DataSource{
		{ID: 1, Name: "one", Enabled: true},
		{ID: 2, Name: "two", Enabled: true},
	}

	e := NewEngine(fakeFactory(walkers), zap.NewNop())
	cs, srcErrs, err := e.Reconcile(context.Background(), []uint{1}, sources, snapshot, nil)
	assert.NoError(t, err)
	assert.Empty(t, srcErrs)

	assert.Len(t, cs.Deletes, 1)
	assert.Equal(t, uint(1), cs.Deletes[0].SourceID)
	for _, id := range cs.Deletes {
		assert.NotEqual(t, uint(2), id.SourceID)
	}
}

func TestReconcile_FingerprintShortCircuit(t *testing.T) {
	t0 := time.Unix(1000, 0)

	snapshot := []models.Picture{record(1, "a.jpg", t0, 10)}
	walkers := map[uint]*fakeWalker{
		1: {sourceID: 1, failAfter: -1, items: []walker.Item{item("a.jpg", t0, 10)}},
	}
	sources := []models.DataSource{{ID: 1, Name: "one", Enabled: true}}

	e := NewEngine(fakeFactory(walkers), zap.NewNop())
	cs, srcErrs, err := e.Reconcile(context.Background(), []uint{1}, sources, snapshot, nil)
	assert.NoError(t, err)
	assert.Empty(t, srcErrs)
	assert.True(t, cs.Empty())
}

func TestReconcile_SecondPassIsEmpty(t *testing.T) {
	t0 := time.Unix(1000, 0)

	walkers := map[uint]*fakeWalker{
		1: {sourceID: 1, failAfter: -1, items: []walker.Item{
			item("a.jpg", t0, 10),
			item("b.jpg", t0, 20),
		}},
	}
	sources := []models.DataSource{{ID: 1, Name: "one", Enabled: true}}

	e := NewEngine(fakeFactory(walkers), zap.NewNop())
	cs, _, err := e.Reconcile(context.Background(), []uint{1}, sources, nil, nil)
	assert.NoError(t, err)
	assert.Len(t, cs.Adds, 2)

	// Applying the adds and reconciling again proposes nothing.
	next := cs.Adds
	cs2, _, err := e.Reconcile(context.Background(), []uint{1}, sources, next, nil)
	assert.NoError(t, err)
	assert.True(t, cs2.Empty())
}

func TestReconcile_SourceErrorIsolation(t *testing.T) {
	t0 := time.Unix(1000, 0)

	// Source 1 fails mid-walk after observing one of its two records; source 2
	// completes. Only source 2 may contribute deletes.
	snapshot := []models.Picture{
		record(1, "a.jpg", t0, 10),
		record(1, "b.jpg", t0, 20),
		record(2, "x.jpg", t0, 10),
	}
	walkers := map[uint]*fakeWalker{
		1: {sourceID: 1, failAfter: 1, items: []walker.Item{
			item("a.jpg", t0, 10),
			item("b.jpg", t0, 20),
		}},
		2: {sourceID: 2, failAfter: -1, items: nil},
	}
	sources := []models.DataSource{
		{ID: 1, Name: "flaky", Enabled: true},
		{ID: 2, Name: "stable", Enabled: true},
	}

	e := NewEngine(fakeFactory(walkers), zap.NewNop())
	cs, srcErrs, err := e.Reconcile(context.Background(), []uint{1, 2}, sources, snapshot, nil)
	assert.NoError(t, err)

	assert.Len(t, srcErrs, 1)
	assert.Equal(t, uint(1), srcErrs[0].SourceID)
	assert.ErrorIs(t, srcErrs[0].Err, walker.ErrSourceUnreachable)

	assert.Len(t, cs.Deletes, 1)
	assert.Equal(t, models.Identity{SourceID: 2, RelativeID: "x.jpg"}, cs.Deletes[0])
}

func TestReconcile_FactoryErrorIsReported(t *testing.T) {
	sources := []models.DataSource{{ID: 9, Name: "ghost", Enabled: true}}

	e := NewEngine(fakeFactory(nil), zap.NewNop())
	cs, srcErrs, err := e.Reconcile(context.Background(), []uint{9}, sources, nil, nil)
	assert.NoError(t, err)
	assert.Len(t, srcErrs, 1)
	assert.True(t, cs.Empty())
}

func TestReconcile_DisabledSourceSkipped(t *testing.T) {
	t0 := time.Unix(1000, 0)

	snapshot := []models.Picture{record(1, "a.jpg", t0, 10)}
	walkers := map[uint]*fakeWalker{
		1: {sourceID: 1, failAfter: -1, items: nil},
	}
	sources := []models.DataSource{{ID: 1, Name: "off", Enabled: false}}

	e := NewEngine(fakeFactory(walkers), zap.NewNop())
	cs, srcErrs, err := e.Reconcile(context.Background(), []uint{1}, sources, snapshot, nil)
	assert.NoError(t, err)
	assert.Empty(t, srcErrs)
	assert.True(t, cs.Empty())
}

func TestReconcile_ProgressMonotonic(t *testing.T) {
	t0 := time.Unix(1000, 0)

	items := make([]walker.Item, 0, 120)
	for i := 0; i < 120; i++ {
		items = append(items, item(fmt.Sprintf("pic-%03d.jpg", i), t0, int64(i)))
	}
	walkers := map[uint]*fakeWalker{
		1: {sourceID: 1, failAfter: -1, items: items[:60]},
		2: {sourceID: 2, failAfter: -1, items: items[60:]},
	}
	sources := []models.DataSource{
		{ID: 1, Name: "one", Enabled: true},
		{ID: 2, Name: "two", Enabled: true},
	}

	var percents []int
	e := NewEngine(fakeFactory(walkers), zap.NewNop())
	_, _, err := e.Reconcile(context.Background(), []uint{1, 2}, sources, nil, func(ev Event) {
		if p, ok := ev.(ProgressEvent); ok {
			percents = append(percents, p.Percent)
		}
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
	assert.Equal(t, 100, percents[len(percents)-1])
}

func TestReconcile_Cancellation(t *testing.T) {
	t0 := time.Unix(1000, 0)

	walkers := map[uint]*fakeWalker{
		1: {sourceID: 1, failAfter: -1, items: []walker.Item{item("a.jpg", t0, 10)}},
	}
	sources := []models.DataSource{{ID: 1, Name: "one", Enabled: true}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(fakeFactory(walkers), zap.NewNop())
	cs, _, err := e.Reconcile(ctx, []uint{1}, sources, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, cs)
}

func TestRun_EmitsCompleteAndCloses(t *testing.T) {
	t0 := time.Unix(1000, 0)

	walkers := map[uint]*fakeWalker{
		1: {sourceID: 1, failAfter: -1, items: []walker.Item{item("a.jpg", t0, 10)}},
	}
	sources := []models.DataSource{{ID: 1, Name: "one", Enabled: true}}

	e := NewEngine(fakeFactory(walkers), zap.NewNop())
	events := e.Run(context.Background(), []uint{1}, sources, nil)

	var complete *CompleteEvent
	for ev := range events {
		if c, ok := ev.(CompleteEvent); ok {
			assert.Nil(t, complete, "expected exactly one complete event")
			complete = &c
		}
	}
	assert.NotNil(t, complete)
	assert.Len(t, complete.Changeset.Adds, 1)
}

func TestChangeset_SourceIDs(t *testing.T) {
	cs := &Changeset{
		Adds:    []models.Picture{{SourceID: 1}},
		Updates: []models.Picture{{SourceID: 2}},
		Deletes: []models.Identity{{SourceID: 2, RelativeID: "x"}},
	}
	ids := cs.SourceIDs()
	assert.ElementsMatch(t, []uint{1, 2}, ids)
}
