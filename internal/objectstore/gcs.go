package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore is a Store backed by Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

func NewGCSStore(client *storage.Client) *GCSStore {
	return &GCSStore{client: client}
}

func (s *GCSStore) Scheme() string { return SchemeGCS }

func (s *GCSStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (s *GCSStore) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %w", ErrObjectNotFound, err)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Delete treats a missing object as deleted, matching S3 semantics.
func (s *GCSStore) Delete(ctx context.Context, bucket, key string) error {
	err := s.client.Bucket(bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}
