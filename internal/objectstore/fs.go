package objectstore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/strataworks/borevault/internal/errors"
)

// FSStore maps object keys to files under a root directory. Directories are
// created lazily on write. There is no store-wide lock; the overwrite guard
// relies on exclusive file creation, so writers to independent keys never
// order each other.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem-backed store rooted at root.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, errors.Wrap(err, errors.KindTransport, "create store root %s", root)
	}
	return &FSStore{root: root}, nil
}

func (f *FSStore) path(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}

// Put writes data to the file for key. With allowOverwrite=false the file is
// opened O_CREATE|O_EXCL, so concurrent writers to the same key race on the
// create and exactly one wins.
func (f *FSStore) Put(ctx context.Context, key string, data []byte, contentType string, allowOverwrite bool) error {
	p := f.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return errors.Wrap(err, errors.KindTransport, "create directory for %s", key)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !allowOverwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(p, flags, 0o600)
	if err != nil {
		if !allowOverwrite && os.IsExist(err) {
			return errors.New(errors.KindOverwriteForbidden, "object already exists: %s", key)
		}
		return errors.Wrap(err, errors.KindTransport, "open %s", key)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return errors.Wrap(err, errors.KindTransport, "write %s", key)
	}
	if err := file.Close(); err != nil {
		return errors.Wrap(err, errors.KindTransport, "write %s", key)
	}
	return nil
}

// Get reads the file for key.
func (f *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.KindNotFound, "object not found: %s", key)
		}
		return nil, errors.Wrap(err, errors.KindTransport, "read %s", key)
	}
	return data, nil
}

// Head stats the file for key.
func (f *FSStore) Head(ctx context.Context, key string) (bool, error) {
	if _, err := os.Stat(f.path(key)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.KindTransport, "stat %s", key)
	}
	return true, nil
}

// List walks the tree under prefix and returns file keys in lexical order.
func (f *FSStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.KindTransport, "list prefix %s", prefix)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op for the filesystem store.
func (f *FSStore) Close() error { return nil }

var _ Store = (*FSStore)(nil)

// Root returns the store root, used by the inbox watcher when copying files.
func (f *FSStore) Root() string { return f.root }

// String implements fmt.Stringer for log output.
func (f *FSStore) String() string { return fmt.Sprintf("fs(%s)", f.root) }
