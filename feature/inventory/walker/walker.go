// Package walker implements the source walking strategies of the
// reconciliation engine: local directories, paginated remote APIs,
// server-mounted directories, and object storage buckets.
package walker

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

var (
	// ErrPermissionDenied marks a source whose root can no longer be read.
	// Existing records for such a source are retained.
	ErrPermissionDenied = errors.New("source permission denied")
	// ErrSourceUnreachable marks a remote or bucket source whose crawl failed.
	// It halts only that source's walk.
	ErrSourceUnreachable = errors.New("source unreachable")
	// ErrDecodeFailure marks an unreadable or corrupt image. The item is still
	// recorded with degraded dimension/metadata fields.
	ErrDecodeFailure = errors.New("image decode failure")
)

// Item is one picture observed at a source during a walk.
type Item struct {
	// RelativeID is the stable identifier within the source: a relative path
	// for directory-backed sources, an absolute URL for remote sources, an
	// object key for bucket sources.
	RelativeID string
	// Name is the display name.
	Name string
	// ModifiedAt is the cheap change-detection timestamp (zero if unknown).
	ModifiedAt time.Time
	// ByteSize is the cheap change-detection size (zero if unknown).
	ByteSize int64
	// AbsPath is the filesystem location for directory-backed items, empty
	// otherwise.
	AbsPath string
}

// Details carries the fields that are expensive to extract and therefore only
// probed for items whose fingerprint changed.
type Details struct {
	Width  int
	Height int
	// Meta is the serialized metadata block, nil when extraction failed.
	Meta *string
}

// Walker enumerates the items of a single data source.
type Walker interface {
	// SourceID returns the id of the walked source.
	SourceID() uint
	// Walk yields every observed item. Returning an error from yield aborts
	// the walk with that error.
	Walk(ctx context.Context, yield func(Item) error) error
}

// Prober is implemented by walkers that can decode pixel dimensions and
// best-effort metadata for a single observed item.
type Prober interface {
	Probe(ctx context.Context, item Item) (Details, error)
}

// imageExtensions are the file suffixes treated as pictures.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
}

// IsImageFile reports whether the name has a recognized picture extension.
func IsImageFile(name string) bool {
	_, ok := imageExtensions[strings.ToLower(path.Ext(name))]
	return ok
}
