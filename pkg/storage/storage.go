package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrObjectNotFound is returned by Delete when the key does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// Object is a single binary payload destined for a blob store.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// BlobStore is the narrow surface the archive needs from an object store.
type BlobStore interface {
	Put(ctx context.Context, obj Object) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
	Ping(ctx context.Context) error
}

// IsNotFound reports whether err signals a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// JoinURL joins a public base and an object key with exactly one slash.
func JoinURL(base, key string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	key = strings.TrimLeft(key, "/")
	if base == "" {
		return key
	}
	return base + "/" + key
}
