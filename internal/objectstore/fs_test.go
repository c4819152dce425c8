package objectstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataworks/borevault/internal/errors"
)

func TestFSStorePutGetRoundTrip(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte(`{"record_id":"bh-1"}`)
	require.NoError(t, store.Put(ctx, "records/p1/borelog/bh-1/metadata.json", data, "application/json", false))

	got, err := store.Get(ctx, "records/p1/borelog/bh-1/metadata.json")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFSStoreOverwriteGuard(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "records/p1/borelog/bh-1/versions/v1.parquet"
	require.NoError(t, store.Put(ctx, key, []byte("a"), "application/octet-stream", false))

	err = store.Put(ctx, key, []byte("b"), "application/octet-stream", false)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindOverwriteForbidden))

	// original object untouched
	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)

	// explicit overwrite allowed
	require.NoError(t, store.Put(ctx, key, []byte("c"), "application/octet-stream", true))
}

func TestFSStoreConcurrentExclusiveCreate(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := "records/p1/borelog/bh-1/versions/v3.parquet"
	const writers = 8
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Put(ctx, key, []byte{byte(i)}, "application/octet-stream", false)
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.True(t, errors.IsKind(err, errors.KindOverwriteForbidden))
		}
	}
	assert.Equal(t, 1, won)
}

func TestFSStoreGetMissing(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "records/none/metadata.json")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestFSStoreHead(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	exists, err := store.Head(ctx, "a/b")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Put(ctx, "a/b", []byte("x"), "text/plain", false))
	exists, err = store.Head(ctx, "a/b")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFSStoreListPrefix(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{
		"records/p1/borelog/bh-1/versions/v2.parquet",
		"records/p1/borelog/bh-1/versions/v1.parquet",
		"records/p1/borelog/bh-1/metadata.json",
		"records/p2/borelog/bh-9/metadata.json",
	} {
		require.NoError(t, store.Put(ctx, key, []byte("x"), "application/octet-stream", false))
	}

	keys, err := store.List(ctx, "records/p1/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"records/p1/borelog/bh-1/metadata.json",
		"records/p1/borelog/bh-1/versions/v1.parquet",
		"records/p1/borelog/bh-1/versions/v2.parquet",
	}, keys)

	keys, err = store.List(ctx, "records/none/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
