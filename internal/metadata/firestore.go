package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is a Store backed by Firestore. The table name is the collection;
// Firestore creates collections on first write, so there is nothing to provision.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// DocumentID escapes a file URI into a valid Firestore document id.
func DocumentID(fileURI string) string {
	return url.PathEscape(fileURI)
}

func (s *FirestoreStore) Write(ctx context.Context, table, fileURI, metadataJSON string) error {
	logCtx := slog.With("collection", table, "fileName", fileURI)

	v, err := decodeMetadata(metadataJSON)
	if err != nil {
		return err
	}

	logCtx.Info("Writing to collection.")
	_, err = s.client.Collection(table).Doc(DocumentID(fileURI)).Set(ctx, map[string]any{
		KeyAttribute:      fileURI,
		MetadataAttribute: v,
	})
	if err != nil {
		logCtx.Error("Failed to write to collection", "error", err)
		return fmt.Errorf("failed to set metadata document: %w", err)
	}
	logCtx.Info("Completed writing to collection.")
	return nil
}

func (s *FirestoreStore) Read(ctx context.Context, table, fileURI string) (string, error) {
	snap, err := s.client.Collection(table).Doc(DocumentID(fileURI)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", fmt.Errorf("%w: %s", ErrNotFound, fileURI)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata document: %w", err)
	}

	v, ok := snap.Data()[MetadataAttribute]
	if !ok {
		return "", fmt.Errorf("document %s has no %s field", fileURI, MetadataAttribute)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}

// CollectionProvisioner is the Firestore counterpart of TableProvisioner.
type CollectionProvisioner struct {
	client *firestore.Client
}

func NewCollectionProvisioner(client *firestore.Client) *CollectionProvisioner {
	return &CollectionProvisioner{client: client}
}

// EnsureTable is a no-op; the collection appears with its first document.
func (p *CollectionProvisioner) EnsureTable(_ context.Context, name string) error {
	slog.Info("Collection is created on first write. Creation ignored.", "collection", name)
	return nil
}

// DeleteTable deletes every document in the collection. It fails if any
// document delete is rejected.
func (p *CollectionProvisioner) DeleteTable(ctx context.Context, name string) error {
	logCtx := slog.With("collection", name)
	logCtx.Info("Deleting collection.")

	bw := p.client.BulkWriter(ctx)
	refs := p.client.Collection(name).DocumentRefs(ctx)
	var jobs []writeJob
	for {
		ref, err := refs.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bw.End()
			logCtx.Error("Failed to list documents", "error", err)
			return fmt.Errorf("failed to list documents in %s: %w", name, err)
		}
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			return fmt.Errorf("failed to enqueue delete of %s: %w", ref.ID, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	if failed, err := firstJobError(jobs); err != nil {
		logCtx.Error("Failed to delete documents", "failedDocuments", failed, "error", err)
		return fmt.Errorf("failed to delete %d of %d documents in %s: %w", failed, len(jobs), name, err)
	}
	logCtx.Info("Collection does not exist.", "deletedDocuments", len(jobs))
	return nil
}

// writeJob is the result handle of a queued BulkWriter operation.
type writeJob interface {
	Results() (*firestore.WriteResult, error)
}

// firstJobError waits for every job and returns how many failed along with the
// first failure.
func firstJobError(jobs []writeJob) (int, error) {
	failed := 0
	var first error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}
	return failed, first
}
