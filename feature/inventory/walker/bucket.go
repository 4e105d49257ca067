package walker

import (
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"

	"picture-manager/core/storage"
	"picture-manager/feature/inventory/models"
)

// BucketWalker enumerates image objects in an S3/MinIO-compatible bucket
// under the source's configured prefix. Object listings already carry the
// (modified, size) fingerprint, so bucket items never need a probe.
type BucketWalker struct {
	Source *models.DataSource
	Client storage.Client
}

// NewBucketWalker creates a walker for a bucket source.
func NewBucketWalker(source *models.DataSource, client storage.Client) *BucketWalker {
	return &BucketWalker{Source: source, Client: client}
}

func (w *BucketWalker) SourceID() uint {
	return w.Source.ID
}

// Walk lists the bucket under the configured prefix.
func (w *BucketWalker) Walk(ctx context.Context, yield func(Item) error) error {
	exists, err := w.Client.BucketExists(ctx, w.Source.Bucket)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnreachable, err)
	}
	if !exists {
		return fmt.Errorf("%w: bucket %q does not exist", ErrSourceUnreachable, w.Source.Bucket)
	}

	objects := w.Client.ListObjects(ctx, w.Source.Bucket, minio.ListObjectsOptions{
		Prefix:    w.Source.Prefix,
		Recursive: true,
	})

	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("%w: %v", ErrSourceUnreachable, obj.Err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !IsImageFile(obj.Key) {
			continue
		}
		if err := yield(Item{
			RelativeID: obj.Key,
			Name:       path.Base(obj.Key),
			ModifiedAt: obj.LastModified,
			ByteSize:   obj.Size,
		}); err != nil {
			return err
		}
	}
	return nil
}
