package services

import (
	"encoding/json"
	"fmt"

	"github.com/Lllllllleong/documentmetadataflow/internal/models"
)

// StorageEvent accepts both a Cloud Storage "object finalized" payload and an
// EventBridge "Object Created" event from S3.
type StorageEvent struct {
	Bucket string             `json:"bucket"`
	Name   string             `json:"name"`
	Detail *EventBridgeDetail `json:"detail,omitempty"`
}

type EventBridgeDetail struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key string `json:"key"`
	} `json:"object"`
}

// ParseStorageEvent extracts the bucket and key of the object an event refers to.
func ParseStorageEvent(data []byte) (models.FileTagRequest, error) {
	var e StorageEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return models.FileTagRequest{}, fmt.Errorf("%w: json.Unmarshal: %v", ErrInvalidRequest, err)
	}
	req := models.FileTagRequest{Bucket: e.Bucket, Key: e.Name}
	if e.Detail != nil {
		req = models.FileTagRequest{Bucket: e.Detail.Bucket.Name, Key: e.Detail.Object.Key}
	}
	if req.Bucket == "" || req.Key == "" {
		return models.FileTagRequest{}, fmt.Errorf("%w: event has no bucket or object name", ErrInvalidRequest)
	}
	return req, nil
}
