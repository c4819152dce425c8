package objectstore

import (
	"context"

	"github.com/strataworks/borevault/internal/observability"
)

// instrumentedStore counts operations and failures per backend.
type instrumentedStore struct {
	inner   Store
	backend string
	metrics *observability.Metrics
}

// WithMetrics wraps a store with operation counters. backend labels the
// metrics series, e.g. "s3" or "fs".
func WithMetrics(inner Store, backend string, metrics *observability.Metrics) Store {
	if metrics == nil {
		return inner
	}
	return &instrumentedStore{inner: inner, backend: backend, metrics: metrics}
}

func (s *instrumentedStore) observe(operation string, err error) {
	s.metrics.StoreOperations.WithLabelValues(s.backend, operation).Inc()
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues(s.backend, operation).Inc()
	}
}

func (s *instrumentedStore) Put(ctx context.Context, key string, data []byte, contentType string, allowOverwrite bool) error {
	err := s.inner.Put(ctx, key, data, contentType, allowOverwrite)
	s.observe("put", err)
	return err
}

func (s *instrumentedStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.inner.Get(ctx, key)
	s.observe("get", err)
	return data, err
}

func (s *instrumentedStore) Head(ctx context.Context, key string) (bool, error) {
	exists, err := s.inner.Head(ctx, key)
	s.observe("head", err)
	return exists, err
}

func (s *instrumentedStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.inner.List(ctx, prefix)
	s.observe("list", err)
	return keys, err
}

func (s *instrumentedStore) Close() error {
	return s.inner.Close()
}

var _ Store = (*instrumentedStore)(nil)
