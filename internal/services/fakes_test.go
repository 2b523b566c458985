package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Lllllllleong/documentmetadataflow/internal/metadata"
	"github.com/Lllllllleong/documentmetadataflow/internal/objectstore"
)

type memObjects struct {
	scheme  string
	objects map[string]string
	deleted []string
}

func (m *memObjects) Scheme() string { return m.scheme }

func (m *memObjects) List(_ context.Context, _, prefix string) ([]string, error) {
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memObjects) Open(_ context.Context, _, key string) (io.ReadCloser, error) {
	body, ok := m.objects[key]
	if !ok {
		return nil, objectstore.ErrObjectNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (m *memObjects) Delete(_ context.Context, _, key string) error {
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type memMetadata struct {
	records map[string]string
	err     error
}

func newMemMetadata() *memMetadata {
	return &memMetadata{records: map[string]string{}}
}

func (m *memMetadata) Write(_ context.Context, table, fileURI, metadataJSON string) error {
	if m.err != nil {
		return m.err
	}
	m.records[table+"|"+fileURI] = metadataJSON
	return nil
}

func (m *memMetadata) Read(_ context.Context, table, fileURI string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.records[table+"|"+fileURI]
	if !ok {
		return "", fmt.Errorf("%w: %s", metadata.ErrNotFound, fileURI)
	}
	return v, nil
}
