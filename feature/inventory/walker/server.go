package walker

import (
	"context"

	"picture-manager/feature/inventory/models"
)

// ServerWalker enumerates a server-mounted directory. Server sources are
// always walked recursively and carry no exclusion list; the mount itself is
// the trust boundary.
type ServerWalker struct {
	Source *models.DataSource
}

// NewServerWalker creates a walker for a server-mounted source.
func NewServerWalker(source *models.DataSource) *ServerWalker {
	return &ServerWalker{Source: source}
}

func (w *ServerWalker) SourceID() uint {
	return w.Source.ID
}

// Walk enumerates every image file under the mounted root.
func (w *ServerWalker) Walk(ctx context.Context, yield func(Item) error) error {
	return walkTree(ctx, w.Source.Root, true, nil, yield)
}

// Probe decodes image dimensions and best-effort metadata.
func (w *ServerWalker) Probe(ctx context.Context, item Item) (Details, error) {
	return probeFile(item.AbsPath)
}
