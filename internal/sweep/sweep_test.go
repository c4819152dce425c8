package sweep

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataworks/borevault/internal/objectstore"
)

func putRecord(t *testing.T, store *objectstore.MockStore, id string, currentVersion int, versions ...int) {
	t.Helper()
	ctx := context.Background()
	meta := fmt.Sprintf(`{"record_id":%q,"table_name":"borelog_versions","current_version":%d,"status":"draft"}`, id, currentVersion)
	require.NoError(t, store.Put(ctx, "parquet-data/records/"+id+"/metadata.json", []byte(meta), "application/json", false))
	for _, v := range versions {
		key := fmt.Sprintf("parquet-data/records/%s/versions/v%d.parquet", id, v)
		require.NoError(t, store.Put(ctx, key, []byte("pq"), "application/octet-stream", false))
	}
}

func findingsFor(report *Report, id string) []Finding {
	var out []Finding
	for _, f := range report.Findings {
		if f.RecordID == id {
			out = append(out, f)
		}
	}
	return out
}

func TestSweepHealthyStore(t *testing.T) {
	store := objectstore.NewMockStore()
	putRecord(t, store, "p1/borelog/b1", 2, 1, 2)
	putRecord(t, store, "p1/borelog/b2", 1, 1)

	report, err := New(store, "parquet-data", nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.RecordsChecked)
	assert.Empty(t, report.Findings)
}

func TestSweepMissingVersion(t *testing.T) {
	store := objectstore.NewMockStore()
	putRecord(t, store, "p1/borelog/b1", 3, 1, 3)

	report, err := New(store, "parquet-data", nil).Run(context.Background())
	require.NoError(t, err)
	findings := findingsFor(report, "p1/borelog/b1")
	require.Len(t, findings, 1)
	assert.Equal(t, FindingMissingVersion, findings[0].Kind)
	assert.Contains(t, findings[0].Detail, "version 2")
}

func TestSweepOrphanVersion(t *testing.T) {
	store := objectstore.NewMockStore()
	putRecord(t, store, "p1/borelog/b1", 1, 1, 2, 3)

	report, err := New(store, "parquet-data", nil).Run(context.Background())
	require.NoError(t, err)
	findings := findingsFor(report, "p1/borelog/b1")
	require.Len(t, findings, 2)
	assert.Equal(t, FindingOrphanVersion, findings[0].Kind)
	assert.Contains(t, findings[0].Detail, "version 2")
	assert.Contains(t, findings[1].Detail, "version 3")
}

func TestSweepBadMetadata(t *testing.T) {
	store := objectstore.NewMockStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "parquet-data/records/p1/borelog/b1/metadata.json",
		[]byte("not json"), "application/json", false))

	report, err := New(store, "parquet-data", nil).Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, FindingBadMetadata, report.Findings[0].Kind)
}

func TestSweepVersionsWithoutMetadata(t *testing.T) {
	store := objectstore.NewMockStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "parquet-data/records/p1/borelog/b1/versions/v1.parquet",
		[]byte("pq"), "application/octet-stream", false))

	report, err := New(store, "parquet-data", nil).Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, FindingNoMetadata, report.Findings[0].Kind)
}

func TestSweepIgnoresForeignKeys(t *testing.T) {
	store := objectstore.NewMockStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "parquet-data/ingest/stratum_layers/upload_1.parquet",
		[]byte("pq"), "application/octet-stream", false))
	require.NoError(t, store.Put(ctx, "projects/p1/borelogs/b1/parsed/v1/strata.json",
		[]byte("{}"), "application/json", false))

	report, err := New(store, "parquet-data", nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.RecordsChecked)
	assert.Empty(t, report.Findings)
}

func TestSplitVersionKey(t *testing.T) {
	id, v, ok := splitVersionKey("p1/borelog/b1/versions/v12.parquet")
	require.True(t, ok)
	assert.Equal(t, "p1/borelog/b1", id)
	assert.Equal(t, 12, v)

	_, _, ok = splitVersionKey("p1/borelog/b1/versions/v0.parquet")
	assert.False(t, ok)
	_, _, ok = splitVersionKey("p1/borelog/b1/metadata.json")
	assert.False(t, ok)
	_, _, ok = splitVersionKey("p1/borelog/b1/versions/vX.parquet")
	assert.False(t, ok)
}
