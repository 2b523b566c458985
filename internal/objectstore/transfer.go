// Package objectstore lists, downloads and deletes objects in a storage bucket.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel object downloads.
const DefaultConcurrency = 10

// ErrObjectNotFound is returned by Store.Open for a key that does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Store is the minimal object storage surface the transfer helper needs.
type Store interface {
	// Scheme is the URI scheme of the backend, "s3" or "gs".
	Scheme() string
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, bucket, key string) error
}

// Transfer moves objects between a Store and the local filesystem.
type Transfer struct {
	store       Store
	concurrency int
}

// NewTransfer wraps store. A concurrency below 1 uses DefaultConcurrency.
func NewTransfer(store Store, concurrency int) *Transfer {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Transfer{store: store, concurrency: concurrency}
}

// Scheme reports the URI scheme of the underlying store.
func (t *Transfer) Scheme() string {
	return t.store.Scheme()
}

// List returns every object key under prefix. An empty prefix lists the whole bucket.
func (t *Transfer) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	keys, err := t.store.List(ctx, bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s://%s/%s: %w", t.store.Scheme(), bucket, prefix, err)
	}
	return keys, nil
}

// Download copies every object under prefix into localDir and returns the local
// paths written, in listing order. A directory-like prefix is stripped from each
// key; a file-like prefix (one with an extension) keeps only the key's base name.
func (t *Transfer) Download(ctx context.Context, localDir, bucket, prefix string) ([]string, error) {
	logCtx := slog.With("bucket", bucket, "prefix", prefix, "localDir", localDir)

	keys, err := t.List(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}

	type job struct{ key, dest string }
	jobs := make([]job, 0, len(keys))
	owners := make(map[string]string, len(keys))
	for _, key := range keys {
		if strings.HasSuffix(key, "/") {
			continue
		}
		dest, err := localPath(localDir, prefix, key)
		if err != nil {
			return nil, err
		}
		if other, ok := owners[dest]; ok {
			return nil, fmt.Errorf("objects %q and %q both map to %s", other, key, dest)
		}
		owners[dest] = key
		jobs = append(jobs, job{key: key, dest: dest})
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(t.concurrency)
	for _, j := range jobs {
		eg.Go(func() error {
			if err := t.downloadFile(gctx, bucket, j.key, j.dest); err != nil {
				return fmt.Errorf("object %s: %w", j.key, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logCtx.Error("Download failed", "error", err)
		return nil, err
	}

	paths := make([]string, len(jobs))
	for i, j := range jobs {
		paths[i] = j.dest
	}
	logCtx.Debug("Downloaded objects.", "fileCount", len(paths))
	return paths, nil
}

// DownloadObject copies exactly one object into localDir under its base name and
// returns the local path. A missing object yields an error wrapping ErrObjectNotFound.
func (t *Transfer) DownloadObject(ctx context.Context, localDir, bucket, key string) (string, error) {
	dest, err := localPath(localDir, "", path.Base(key))
	if err != nil {
		return "", err
	}
	if err := t.downloadFile(ctx, bucket, key, dest); err != nil {
		return "", fmt.Errorf("object %s: %w", key, err)
	}
	return dest, nil
}

func (t *Transfer) downloadFile(ctx context.Context, bucket, key, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}
	reader, err := t.store.Open(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("failed to open object: %w", err)
	}
	defer reader.Close()

	localFile, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", dest, err)
	}
	if _, err := io.Copy(localFile, reader); err != nil {
		localFile.Close()
		return fmt.Errorf("failed to copy object to local file: %w", err)
	}
	return localFile.Close()
}

// localPath maps an object key to its destination under localDir and refuses
// keys that would escape it.
func localPath(localDir, prefix, key string) (string, error) {
	rel := key
	switch {
	case path.Ext(prefix) != "":
		rel = path.Base(key)
	case prefix != "":
		rel = strings.TrimPrefix(key, prefix)
	}
	rel = strings.TrimLeft(rel, "/")

	dest := filepath.Join(localDir, filepath.FromSlash(rel))
	within, err := filepath.Rel(localDir, dest)
	if err != nil || within == "." || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("object key %q does not map to a file under %s", key, localDir)
	}
	return dest, nil
}

// DeleteObject deletes a single object. Deleting an absent object succeeds.
func (t *Transfer) DeleteObject(ctx context.Context, bucket, key string) error {
	logCtx := slog.With("bucket", bucket, "key", key, "scheme", t.store.Scheme())
	logCtx.Info("Deleting object.")
	if err := t.store.Delete(ctx, bucket, key); err != nil {
		logCtx.Error("Failed to delete object", "error", err)
		return fmt.Errorf("failed to delete %s: %w", URI(t.store.Scheme(), bucket, key), err)
	}
	logCtx.Info("Completed deleting object.")
	return nil
}

// DeleteLocalFile removes a local file. A missing file is an error.
func DeleteLocalFile(fileFullPath string) error {
	slog.Info("Deleting local file.", "path", fileFullPath)
	if err := os.Remove(fileFullPath); err != nil {
		return err
	}
	slog.Info("Completed deleting local file.", "path", fileFullPath)
	return nil
}
