// Package reconcile drives source walkers over a scan scope and diffs the
// observed items against the existing inventory, producing a minimal
// source-scoped changeset.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"picture-manager/feature/inventory/models"
	"picture-manager/feature/inventory/walker"
)

// WalkerFactory builds the walker matching a source's kind.
type WalkerFactory func(source *models.DataSource) (walker.Walker, error)

// Engine performs reconciliation passes.
type Engine struct {
	factory WalkerFactory
	logger  *zap.Logger
}

// NewEngine creates a reconciliation engine.
func NewEngine(factory WalkerFactory, logger *zap.Logger) *Engine {
	return &Engine{factory: factory, logger: logger}
}

// progressEvery bounds how often within-source progress events are emitted.
const progressEvery = 25

// Run executes a pass asynchronously and returns the event channel. The
// channel is closed after the CompleteEvent (or after the context error).
func (e *Engine) Run(ctx context.Context, scope []uint, sources []models.DataSource, snapshot []models.Picture) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		cs, errs, err := e.Reconcile(ctx, scope, sources, snapshot, func(ev Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
		if err != nil {
			// Cancellation: no complete event, no partial result.
			return
		}
		events <- CompleteEvent{Changeset: cs, Errors: errs}
	}()
	return events
}

// Reconcile executes a pass synchronously. emit may be nil. The returned
// error is non-nil only for cancellation; per-source failures are isolated
// and returned as SourceErrors.
//
// Deletion eligibility is computed strictly within the scanned scope: a
// record is a delete candidate only if its source was walked to completion in
// this pass and the walk did not observe it. Records of sources outside the
// scope are never touched.
func (e *Engine) Reconcile(ctx context.Context, scope []uint, sources []models.DataSource, snapshot []models.Picture, emit func(Event)) (*Changeset, []SourceError, error) {
	if emit == nil {
		emit = func(Event) {}
	}

	scopeSet := make(map[uint]struct{}, len(scope))
	for _, id := range scope {
		scopeSet[id] = struct{}{}
	}

	// Existing records partitioned per source id.
	index := make(map[uint]map[string]*models.Picture)
	for i := range snapshot {
		p := &snapshot[i]
		bySource, ok := index[p.SourceID]
		if !ok {
			bySource = make(map[string]*models.Picture)
			index[p.SourceID] = bySource
		}
		bySource[p.RelativeID] = p
	}

	var inScope []models.DataSource
	for _, src := range sources {
		if _, ok := scopeSet[src.ID]; ok && src.Enabled {
			inScope = append(inScope, src)
		}
	}

	cs := &Changeset{}
	var srcErrs []SourceError
	maxPercent := 0

	progress := func(percent int, source, detail string) {
		if percent > 100 {
			percent = 100
		}
		if percent < maxPercent {
			percent = maxPercent
		}
		maxPercent = percent
		emit(ProgressEvent{Percent: percent, Source: source, Detail: detail})
	}

	for i, src := range inScope {
		base := i * 100 / max(len(inScope), 1)
		progress(base, src.Name, fmt.Sprintf("Scanning %s", src.Name))

		w, err := e.factory(&src)
		if err != nil {
			se := SourceError{SourceID: src.ID, Source: src.Name, Err: err}
			srcErrs = append(srcErrs, se)
			emit(SourceErrorEvent{se})
			continue
		}

		seen := make(map[string]struct{})
		err = e.walkSource(ctx, w, &src, index[src.ID], seen, cs, func(count int) {
			if count%progressEvery == 0 {
				progress(base, src.Name, fmt.Sprintf("%s (#%d)", src.Name, count))
			}
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, nil, err
			}
			// An interrupted walk did not observe everything; proposing
			// deletes from it would drop live records.
			se := SourceError{SourceID: src.ID, Source: src.Name, Err: err}
			srcErrs = append(srcErrs, se)
			emit(SourceErrorEvent{se})
			e.logger.Warn("source walk failed",
				zap.String("source", src.Name),
				zap.Error(err),
			)
			continue
		}

		for relID, prev := range index[src.ID] {
			if _, ok := seen[relID]; !ok {
				cs.Deletes = append(cs.Deletes, prev.Identity())
			}
		}
	}

	// Deterministic output order for the persistence collaborator.
	sort.Slice(cs.Deletes, func(a, b int) bool {
		if cs.Deletes[a].SourceID != cs.Deletes[b].SourceID {
			return cs.Deletes[a].SourceID < cs.Deletes[b].SourceID
		}
		return cs.Deletes[a].RelativeID < cs.Deletes[b].RelativeID
	})

	progress(100, "", "Done")
	return cs, srcErrs, nil
}

// walkSource walks one source, accumulating its seen set and appending adds
// and updates to the changeset.
func (e *Engine) walkSource(ctx context.Context, w walker.Walker, src *models.DataSource, existing map[string]*models.Picture, seen map[string]struct{}, cs *Changeset, tick func(count int)) error {
	prober, _ := w.(walker.Prober)
	count := 0

	return w.Walk(ctx, func(item walker.Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[item.RelativeID] = struct{}{}
		count++
		tick(count)

		prev, exists := existing[item.RelativeID]
		observed := models.Fingerprint{ModifiedUnix: item.ModifiedAt.Unix(), ByteSize: item.ByteSize}
		if exists && prev.Fingerprint() == observed {
			// Fast path: unchanged fingerprint, no metadata re-extraction.
			return nil
		}

		pic := models.Picture{
			SourceID:   src.ID,
			RelativeID: item.RelativeID,
			Name:       item.Name,
			ModifiedAt: item.ModifiedAt,
			ByteSize:   item.ByteSize,
		}

		if prober != nil && item.AbsPath != "" {
			det, perr := prober.Probe(ctx, item)
			if perr != nil {
				// Best effort: the item is recorded with degraded fields.
				e.logger.Debug("probe failed",
					zap.String("source", src.Name),
					zap.String("item", item.RelativeID),
					zap.Error(perr),
				)
			} else {
				pic.Width = det.Width
				pic.Height = det.Height
				pic.Meta = det.Meta
			}
		}

		if exists {
			pic.ID = prev.ID
			pic.CreatedAt = prev.CreatedAt
			cs.Updates = append(cs.Updates, pic)
		} else {
			cs.Adds = append(cs.Adds, pic)
		}
		return nil
	})
}
