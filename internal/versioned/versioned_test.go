package versioned

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataworks/borevault/internal/engine"
	"github.com/strataworks/borevault/internal/errors"
	"github.com/strataworks/borevault/internal/objectstore"
	"github.com/strataworks/borevault/internal/schema"
)

func mustSchema(t *testing.T, name string) *schema.Schema {
	t.Helper()
	s, ok := schema.Lookup(name)
	require.True(t, ok)
	return s
}

func newStorage(t *testing.T) (*Storage, *objectstore.MockStore) {
	t.Helper()
	store := objectstore.NewMockStore()
	eng := engine.New(store, "parquet-data", nil)
	return New(eng), store
}

func projectRows(id string) []engine.Row {
	return []engine.Row{{
		"project_id": id,
		"name":       "Harbour Crossing",
		"location":   nil,
		"created_by": "u1",
		"created_at": time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		"updated_at": nil,
	}}
}

func TestCreateRecord(t *testing.T) {
	s, store := newStorage(t)
	ctx := context.Background()

	meta, err := s.CreateRecord(ctx, "p1/borelog/b1", projectRows("p1"), "projects", "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, meta.CurrentVersion)
	assert.Equal(t, StatusDraft, meta.Status)
	assert.Equal(t, "u1", meta.CreatedBy)
	require.Len(t, meta.History, 1)
	assert.Equal(t, "Initial creation", meta.History[0].Comment)
	assert.Equal(t, StatusDraft, meta.History[0].Status)

	exists, err := store.Head(ctx, "parquet-data/records/p1/borelog/b1/versions/v1.parquet")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateRecordAlreadyExists(t *testing.T) {
	s, _ := newStorage(t)
	ctx := context.Background()

	_, err := s.CreateRecord(ctx, "p1/borelog/b1", projectRows("p1"), "projects", "u1", "")
	require.NoError(t, err)
	_, err = s.CreateRecord(ctx, "p1/borelog/b1", projectRows("p1"), "projects", "u1", "")
	assert.True(t, errors.IsKind(err, errors.KindAlreadyExists))
}

func TestCreateRecordUnknownTable(t *testing.T) {
	s, _ := newStorage(t)
	_, err := s.CreateRecord(context.Background(), "p1/x/1", projectRows("p1"), "no_such_table", "u1", "")
	assert.True(t, errors.IsKind(err, errors.KindMalformedInput))
}

func TestUpdateRecordRetainsPriorVersion(t *testing.T) {
	s, store := newStorage(t)
	ctx := context.Background()

	_, err := s.CreateRecord(ctx, "p1/borelog/b1", projectRows("p1"), "projects", "u1", "")
	require.NoError(t, err)

	v1Before, err := store.Get(ctx, "parquet-data/records/p1/borelog/b1/versions/v1.parquet")
	require.NoError(t, err)

	rows := projectRows("p1")
	rows[0]["name"] = "Harbour Crossing Phase 2"
	meta, err := s.UpdateRecord(ctx, "p1/borelog/b1", rows, "u2", "")
	require.NoError(t, err)
	assert.Equal(t, 2, meta.CurrentVersion)
	assert.Equal(t, StatusDraft, meta.Status)
	require.Len(t, meta.History, 2)
	assert.Equal(t, "Updated to version 2", meta.History[1].Comment)

	v1After, err := store.Get(ctx, "parquet-data/records/p1/borelog/b1/versions/v1.parquet")
	require.NoError(t, err)
	assert.Equal(t, v1Before, v1After)

	tbl, err := s.GetSpecificVersion(ctx, "p1/borelog/b1", 1)
	require.NoError(t, err)
	assert.Equal(t, "Harbour Crossing", tbl.Rows[0]["name"])
}

func TestApproveThenUpdateClearsApproval(t *testing.T) {
	s, _ := newStorage(t)
	ctx := context.Background()

	_, err := s.CreateRecord(ctx, "p1/borelog/b1", projectRows("p1"), "projects", "u1", "")
	require.NoError(t, err)

	meta, err := s.ApproveRecord(ctx, "p1/borelog/b1", "u2", "")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, meta.Status)
	require.NotNil(t, meta.ApprovedBy)
	assert.Equal(t, "u2", *meta.ApprovedBy)
	require.Len(t, meta.History, 2)

	meta, err = s.UpdateRecord(ctx, "p1/borelog/b1", projectRows("p1"), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, meta.Status)
	assert.Nil(t, meta.ApprovedBy)
	assert.Nil(t, meta.ApprovedAt)
}

func TestIllegalTransitions(t *testing.T) {
	s, _ := newStorage(t)
	ctx := context.Background()

	_, err := s.CreateRecord(ctx, "p1/borelog/b1", projectRows("p1"), "projects", "u1", "")
	require.NoError(t, err)
	_, err = s.ApproveRecord(ctx, "p1/borelog/b1", "u2", "")
	require.NoError(t, err)

	// approve twice
	_, err = s.ApproveRecord(ctx, "p1/borelog/b1", "u2", "")
	assert.True(t, errors.IsKind(err, errors.KindIllegalTransition))

	// reject an approved record
	_, err = s.RejectRecord(ctx, "p1/borelog/b1", "u3", "")
	assert.True(t, errors.IsKind(err, errors.KindIllegalTransition))

	// history not double-appended by the failed attempts
	meta, err := s.GetMetadata(ctx, "p1/borelog/b1")
	require.NoError(t, err)
	assert.Len(t, meta.History, 2)
}

func TestRejectedCannotBeApproved(t *testing.T) {
	s, _ := newStorage(t)
	ctx := context.Background()

	_, err := s.CreateRecord(ctx, "p1/borelog/b1", projectRows("p1"), "projects", "u1", "")
	require.NoError(t, err)
	meta, err := s.RejectRecord(ctx, "p1/borelog/b1", "u2", "bad data")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, meta.Status)
	require.NotNil(t, meta.RejectedBy)

	_, err = s.ApproveRecord(ctx, "p1/borelog/b1", "u3", "")
	assert.True(t, errors.IsKind(err, errors.KindIllegalTransition))
}

func TestConcurrentUpdateCollision(t *testing.T) {
	s, store := newStorage(t)
	ctx := context.Background()

	_, err := s.CreateRecord(ctx, "p1/borelog/b1", projectRows("p1"), "projects", "u1", "")
	require.NoError(t, err)

	// Simulate the losing racer: v2 already written by another caller that
	// has not yet bumped metadata.
	other, err := engine.EncodeFile(mustSchema(t, "projects"), projectRows("p1"))
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "parquet-data/records/p1/borelog/b1/versions/v2.parquet", other, "application/octet-stream", false))

	_, err = s.UpdateRecord(ctx, "p1/borelog/b1", projectRows("p1"), "u2", "")
	assert.True(t, errors.IsKind(err, errors.KindOverwriteForbidden))
}

func TestGetAllVersionsSkipsMissing(t *testing.T) {
	s, store := newStorage(t)
	ctx := context.Background()

	_, err := s.CreateRecord(ctx, "p1/borelog/b1", projectRows("p1"), "projects", "u1", "")
	require.NoError(t, err)
	_, err = s.UpdateRecord(ctx, "p1/borelog/b1", projectRows("p1"), "u1", "")
	require.NoError(t, err)

	store.Delete("parquet-data/records/p1/borelog/b1/versions/v1.parquet")

	versions, err := s.GetAllVersions(ctx, "p1/borelog/b1")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, versions)
}

func TestListRecordsFilters(t *testing.T) {
	s, _ := newStorage(t)
	ctx := context.Background()

	_, err := s.CreateRecord(ctx, "p1/borelog/b1", projectRows("p1"), "projects", "u1", "")
	require.NoError(t, err)
	_, err = s.CreateRecord(ctx, "p1/borelog/b2", projectRows("p1"), "projects", "u1", "")
	require.NoError(t, err)
	_, err = s.ApproveRecord(ctx, "p1/borelog/b2", "u2", "")
	require.NoError(t, err)

	all, err := s.ListRecords(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1/borelog/b1", "p1/borelog/b2"}, all)

	approved, err := s.ListRecords(ctx, "", StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1/borelog/b2"}, approved)

	none, err := s.ListRecords(ctx, "borelog_versions", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetLatestVersion(t *testing.T) {
	s, _ := newStorage(t)
	ctx := context.Background()

	_, err := s.CreateRecord(ctx, "p1/borelog/b1", projectRows("p1"), "projects", "u1", "")
	require.NoError(t, err)
	rows := projectRows("p1")
	rows[0]["name"] = "Harbour Crossing v2"
	_, err = s.UpdateRecord(ctx, "p1/borelog/b1", rows, "u1", "")
	require.NoError(t, err)

	tbl, meta, err := s.GetLatestVersion(ctx, "p1/borelog/b1")
	require.NoError(t, err)
	assert.Equal(t, 2, meta.CurrentVersion)
	assert.Equal(t, "Harbour Crossing v2", tbl.Rows[0]["name"])
}

func TestGetMetadataNotFound(t *testing.T) {
	s, _ := newStorage(t)
	_, err := s.GetMetadata(context.Background(), "p9/borelog/none")
	assert.True(t, errors.IsNotFound(err))
}
