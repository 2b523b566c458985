package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/documentmetadataflow/internal/config"
	"github.com/Lllllllleong/documentmetadataflow/internal/metadata"
	"github.com/Lllllllleong/documentmetadataflow/internal/models"
	"github.com/Lllllllleong/documentmetadataflow/internal/objectstore"
)

// MetadataReaderFunction returns the stored record for a file URI.
type MetadataReaderFunction struct {
	store metadata.Store
	table string
}

func NewMetadataReader(ctx context.Context) (*MetadataReaderFunction, error) {
	table := config.GetEnv("METADATA_TABLE", "")
	if table == "" {
		return nil, fmt.Errorf("METADATA_TABLE environment variable must be set")
	}
	backendCfg, err := LoadBackendConfig()
	if err != nil {
		return nil, err
	}
	store, err := newBackends(backendCfg).metadataStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata store: %w", err)
	}
	return &MetadataReaderFunction{store: store, table: table}, nil
}

func (f *MetadataReaderFunction) Process(ctx context.Context, req *models.MetadataRequest) (*models.MetadataResponse, error) {
	if _, _, _, err := objectstore.ParseURI(req.FileName); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	logCtx := slog.With("fileName", req.FileName, "table", f.table)

	metadataJSON, err := f.store.Read(ctx, f.table, req.FileName)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			logCtx.Info("No metadata stored for file.")
		} else {
			logCtx.Error("Failed to read metadata", "error", err)
		}
		return nil, err
	}
	return &models.MetadataResponse{FileName: req.FileName, Metadata: json.RawMessage(metadataJSON)}, nil
}
