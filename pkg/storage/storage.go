// Package storage holds the object stores used for submission files and
// reference images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrObjectNotFound indicates the requested key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object describes a stored item.
type Object struct {
	Key         string
	Size        int64
	ContentType string
}

// ObjectStore persists binary objects and issues time-limited retrieval URLs.
type ObjectStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (Object, error)
	Get(ctx context.Context, key string) ([]byte, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey builds a fresh collision-resistant key under prefix that keeps a
// readable form of the original file name.
func ObjectKey(prefix, fileName string) string {
	name := SanitizeFileName(fileName)
	key := fmt.Sprintf("%d-%s-%s", time.Now().UTC().UnixMilli(), uuid.NewString(), name)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// SanitizeFileName lower-cases a file name and replaces anything outside
// [a-z0-9-_] in its base with dashes.
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" || base == "." {
		base = "upload"
	}
	if ext == "" || ext == "." {
		ext = ".bin"
	}
	return base + ext
}
