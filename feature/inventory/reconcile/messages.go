package reconcile

import "picture-manager/feature/inventory/models"

// Event is the typed message union emitted while a reconciliation pass runs.
// Exactly one CompleteEvent ends every run; the walking context and the
// consuming context share no mutable state.
type Event interface {
	event()
}

// ProgressEvent reports monotonically increasing progress plus a status text
// keyed to the source name and item index.
type ProgressEvent struct {
	// Percent is in [0, 100] and never decreases within one run.
	Percent int
	// Source is the display name of the source currently being walked.
	Source string
	// Detail is a human-readable status, e.g. "Holidays (#120)".
	Detail string
}

// SourceError reports a per-source failure. It never aborts sibling sources.
type SourceError struct {
	SourceID uint
	Source   string
	Err      error
}

// SourceErrorEvent wraps a SourceError for the event channel.
type SourceErrorEvent struct {
	SourceError
}

// CompleteEvent carries the final changeset; results are only applied after
// this event, so a cancelled run leaves no partial writes.
type CompleteEvent struct {
	Changeset *Changeset
	Errors    []SourceError
}

func (ProgressEvent) event()    {}
func (SourceErrorEvent) event() {}
func (CompleteEvent) event()    {}

// Changeset is the minimal set of operations a reconciliation pass proposes.
type Changeset struct {
	Adds    []models.Picture
	Updates []models.Picture
	Deletes []models.Identity
}

// Empty reports whether the changeset proposes no operations.
func (c *Changeset) Empty() bool {
	return len(c.Adds) == 0 && len(c.Updates) == 0 && len(c.Deletes) == 0
}

// SourceIDs returns the set of source ids touched by the changeset.
func (c *Changeset) SourceIDs() []uint {
	set := map[uint]struct{}{}
	for _, p := range c.Adds {
		set[p.SourceID] = struct{}{}
	}
	for _, p := range c.Updates {
		set[p.SourceID] = struct{}{}
	}
	for _, id := range c.Deletes {
		set[id.SourceID] = struct{}{}
	}
	out := make([]uint, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
