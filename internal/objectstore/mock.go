package objectstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/strataworks/borevault/internal/errors"
)

// MockStore is an in-memory store for tests.
type MockStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string

	// FailPut, when set, makes the next Put to a matching key fail.
	FailPut func(key string) error
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *MockStore) Put(ctx context.Context, key string, data []byte, contentType string, allowOverwrite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPut != nil {
		if err := m.FailPut(key); err != nil {
			return err
		}
	}
	if _, exists := m.objects[key]; exists && !allowOverwrite {
		return errors.New(errors.KindOverwriteForbidden, "object already exists: %s", key)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[key] = cp
	m.types[key] = contentType
	return nil
}

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New(errors.KindNotFound, "object not found: %s", key)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MockStore) Head(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.objects[key]
	return ok, nil
}

func (m *MockStore) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MockStore) Close() error { return nil }

// Delete removes a key, used by tests to simulate partial writes.
func (m *MockStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.types, key)
}

// ContentType returns the stored content type for key.
func (m *MockStore) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.types[key]
}

// Len returns the number of stored objects.
func (m *MockStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

var _ Store = (*MockStore)(nil)
