package objectstore

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataworks/borevault/internal/errors"
	"github.com/strataworks/borevault/internal/observability"
)

func TestInstrumentedStoreCounts(t *testing.T) {
	m := observability.NopMetrics()
	store := WithMetrics(NewMockStore(), "mock", m)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a/b", []byte("x"), "text/plain", false))
	_, err := store.Get(ctx, "a/b")
	require.NoError(t, err)
	_, err = store.Get(ctx, "a/missing")
	assert.True(t, errors.IsNotFound(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperations.WithLabelValues("mock", "put")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StoreOperations.WithLabelValues("mock", "get")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrors.WithLabelValues("mock", "get")))
}

func TestWithMetricsNilPassthrough(t *testing.T) {
	inner := NewMockStore()
	assert.Equal(t, Store(inner), WithMetrics(inner, "mock", nil))
}
