package objectstore

import (
	"fmt"
	"strings"
)

const (
	SchemeS3  = "s3"
	SchemeGCS = "gs"
)

// URI builds the full storage URI used as the metadata key for an object.
func URI(scheme, bucket, key string) string {
	return fmt.Sprintf("%s://%s/%s", scheme, bucket, strings.TrimPrefix(key, "/"))
}

// ParseURI splits "s3://bucket/key" or "gs://bucket/key".
func ParseURI(uri string) (scheme, bucket, key string, err error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || scheme == "" {
		return "", "", "", fmt.Errorf("storage URI %q has no scheme", uri)
	}
	if scheme != SchemeS3 && scheme != SchemeGCS {
		return "", "", "", fmt.Errorf("storage URI %q has unsupported scheme %q", uri, scheme)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", "", fmt.Errorf("storage URI %q has no bucket", uri)
	}
	return scheme, bucket, key, nil
}
