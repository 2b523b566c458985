package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/documentmetadataflow/internal/objectstore"
)

// NewGCSStore creates a Cloud Storage client and wraps it as an object store.
// The returned client must be closed by the caller.
func NewGCSStore(ctx context.Context) (*objectstore.GCSStore, *storage.Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return objectstore.NewGCSStore(client), client, nil
}
