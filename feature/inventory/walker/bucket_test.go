package walker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"picture-manager/core/storage/mocks"
	"picture-manager/feature/inventory/models"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func objectChannel(objects ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(objects))
	for _, obj := range objects {
		ch <- obj
	}
	close(ch)
	return ch
}

func bucketSource() *models.DataSource {
	return &models.DataSource{
		ID:     4,
		Kind:   models.SourceBucket,
		Bucket: "photos",
		Prefix: "albums/",
	}
}

func TestBucketWalker_ListsImageObjects(t *testing.T) {
	modified := time.Unix(5000, 0)
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "photos").Return(true, nil)
	client.On("ListObjects", mock.Anything, "photos", mock.MatchedBy(func(opts minio.ListObjectsOptions) bool {
		return opts.Prefix == "albums/" && opts.Recursive
	})).Return(objectChannel(
		minio.ObjectInfo{Key: "albums/a.jpg", Size: 100, LastModified: modified},
		minio.ObjectInfo{Key: "albums/readme.txt", Size: 5},
		minio.ObjectInfo{Key: "albums/deep/b.png", Size: 200, LastModified: modified},
	))

	w := NewBucketWalker(bucketSource(), client)
	items := collect(t, w)
	assert.ElementsMatch(t, []string{"albums/a.jpg", "albums/deep/b.png"}, relIDs(items))
	for _, it := range items {
		assert.False(t, it.ModifiedAt.IsZero())
		assert.NotZero(t, it.ByteSize)
	}
	client.AssertExpectations(t)
}

func TestBucketWalker_MissingBucket(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "photos").Return(false, nil)

	w := NewBucketWalker(bucketSource(), client)
	err := w.Walk(context.Background(), func(Item) error { return nil })
	assert.ErrorIs(t, err, ErrSourceUnreachable)
}

func TestBucketWalker_ListingError(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "photos").Return(true, nil)
	client.On("ListObjects", mock.Anything, "photos", mock.Anything).Return(objectChannel(
		minio.ObjectInfo{Key: "albums/a.jpg", Size: 100},
		minio.ObjectInfo{Err: fmt.Errorf("connection reset")},
	))

	w := NewBucketWalker(bucketSource(), client)
	var seen []string
	err := w.Walk(context.Background(), func(item Item) error {
		seen = append(seen, item.RelativeID)
		return nil
	})
	assert.ErrorIs(t, err, ErrSourceUnreachable)
	assert.Equal(t, []string{"albums/a.jpg"}, seen)
}
