// Package objectstore provides the key-value object storage abstraction the
// engine writes through. Keys are caller-owned slash-separated paths; values
// are opaque byte blobs with a content type.
package objectstore

import (
	"context"

	"github.com/strataworks/borevault/internal/errors"
)

// Store is the object storage interface. All persistent state goes through
// it; the metadata document reached via Put with allowOverwrite=false is the
// only concurrency primitive in the system.
type Store interface {
	// Put stores data under key. With allowOverwrite=false, an existing key
	// fails with Kind=OverwriteForbidden and the object is left untouched.
	Put(ctx context.Context, key string, data []byte, contentType string, allowOverwrite bool) error

	// Get retrieves the object at key. Missing keys fail with Kind=NotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Head reports whether key exists without fetching the body.
	Head(ctx context.Context, key string) (bool, error)

	// List returns every key under prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// guardOverwrite implements the shared head-then-reject check used by
// backends without a native conditional put.
func guardOverwrite(ctx context.Context, s Store, key string) error {
	exists, err := s.Head(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return errors.New(errors.KindOverwriteForbidden, "object already exists: %s", key)
	}
	return nil
}
