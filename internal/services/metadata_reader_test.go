package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentmetadataflow/internal/metadata"
	"github.com/Lllllllleong/documentmetadataflow/internal/models"
)

func TestMetadataReader(t *testing.T) {
	store := newMemMetadata()
	store.records["file-metadata|s3://docs/a.pdf"] = `{"summary":"A."}`
	f := &MetadataReaderFunction{store: store, table: "file-metadata"}

	resp, err := f.Process(context.Background(), &models.MetadataRequest{FileName: "s3://docs/a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "s3://docs/a.pdf", resp.FileName)
	assert.JSONEq(t, `{"summary":"A."}`, string(resp.Metadata))

	_, err = f.Process(context.Background(), &models.MetadataRequest{FileName: "s3://docs/missing.pdf"})
	assert.ErrorIs(t, err, metadata.ErrNotFound)

	_, err = f.Process(context.Background(), &models.MetadataRequest{FileName: "docs/a.pdf"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	boom := errors.New("throttled")
	store.err = boom
	_, err = f.Process(context.Background(), &models.MetadataRequest{FileName: "s3://docs/a.pdf"})
	assert.ErrorIs(t, err, boom)
}
