// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup;
// the MinIO implementation works with any S3-compatible provider (MinIO, Supabase Storage S3, AWS S3).
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage is the interface for uploading, deleting and addressing objects.
type Storage interface {
	// Upload streams data to the store under the given key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Delete removes an object identified by key.
	Delete(ctx context.Context, key string) error
	// PublicURL constructs the browser-accessible URL for a given key.
	PublicURL(key string) string
	// ObjectKey recovers the key from a URL produced by PublicURL.
	// It returns false when the URL does not point into this store.
	ObjectKey(publicURL string) (string, bool)
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName builds the object key for an uploaded file: "{unixMillis}-{random8}-{originalFilename}".
// The random segment keeps same-millisecond uploads of one filename apart. The filename is reduced
// to its base name and characters outside [A-Za-z0-9._-] become "_".
func ObjectName(now time.Time, originalFilename string) string {
	name := path.Base(strings.ReplaceAll(originalFilename, `\`, "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == "/" || name == ".." {
		name = "upload"
	}
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), uuid.NewString()[:8], name)
}

// keyFromURL strips base (no trailing slash) from rawURL.
func keyFromURL(base, rawURL string) (string, bool) {
	prefix := base + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(rawURL, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if key == "" {
		return "", false
	}
	return key, true
}
