// Package metadata persists file metadata records keyed by the file's storage URI.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// KeyAttribute is the table's single hash key.
	KeyAttribute = "FileName"
	// MetadataAttribute holds the record.
	MetadataAttribute = "Metadata"
)

// ErrNotFound is returned by Read when no record exists for the key.
var ErrNotFound = errors.New("metadata record not found")

// Store writes and reads one JSON record per file URI. Writes are last-write-wins.
type Store interface {
	Write(ctx context.Context, table, fileURI, metadataJSON string) error
	Read(ctx context.Context, table, fileURI string) (string, error)
}

func decodeMetadata(metadataJSON string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(metadataJSON), &v); err != nil {
		return nil, fmt.Errorf("metadata is not valid JSON: %w", err)
	}
	return v, nil
}
