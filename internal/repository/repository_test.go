package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataworks/borevault/internal/engine"
	"github.com/strataworks/borevault/internal/errors"
	"github.com/strataworks/borevault/internal/objectstore"
	"github.com/strataworks/borevault/internal/schema"
	"github.com/strataworks/borevault/internal/versioned"
)

func newRepository(t *testing.T) *Repository {
	t.Helper()
	store := objectstore.NewMockStore()
	eng := engine.New(store, "parquet-data", nil)
	return NewRepository(versioned.New(eng))
}

func borelogPayload(id string) map[string]any {
	return map[string]any{
		"borelog_id":        id,
		"version_no":        float64(1),
		"number":            "BH-01",
		"boring_method":     "Rotary",
		"termination_depth": 30.5,
		"commencement_date": "2025-03-01T08:00:00Z",
		"status":            "SUBMITTED",
		"created_at":        "2025-03-02T10:30:00Z",
	}
}

func TestCreateAndGetLatest(t *testing.T) {
	r := newRepository(t)
	ctx := context.Background()

	rec, err := r.Create(ctx, EntityBorelog, "p1", "b1", borelogPayload("b1"), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Version)
	assert.Equal(t, "draft", rec.Metadata.Status)
	assert.Equal(t, "u1", rec.Metadata.CreatedBy)

	got, err := r.GetLatest(ctx, EntityBorelog, "p1", "b1")
	require.NoError(t, err)
	assert.Equal(t, EntityBorelog, got.EntityType)
	assert.Equal(t, "p1", got.ProjectID)
	assert.Equal(t, "b1", got.EntityID)
	assert.Equal(t, "BH-01", got.Data["number"])
	assert.Equal(t, int32(1), got.Data["version_no"])
	assert.Equal(t, 30.5, got.Data["termination_depth"])
	assert.Equal(t, "2025-03-01T08:00:00Z", got.Data["commencement_date"])
	assert.Nil(t, got.Data["msl"])
}

func TestCreateUnknownEntityType(t *testing.T) {
	r := newRepository(t)
	_, err := r.Create(context.Background(), "pile_log", "p1", "x1", map[string]any{}, "u1", "")
	assert.True(t, errors.IsKind(err, errors.KindMalformedInput))
}

func TestCreatePayloadCoercionFailure(t *testing.T) {
	r := newRepository(t)
	payload := borelogPayload("b1")
	payload["version_no"] = "not a number"
	_, err := r.Create(context.Background(), EntityBorelog, "p1", "b1", payload, "u1", "")
	assert.True(t, errors.IsKind(err, errors.KindSchemaValidation))
}

func TestCreateRequiredFieldNull(t *testing.T) {
	r := newRepository(t)
	payload := borelogPayload("b1")
	delete(payload, "status")
	_, err := r.Create(context.Background(), EntityBorelog, "p1", "b1", payload, "u1", "")
	assert.True(t, errors.IsKind(err, errors.KindSchemaValidation))
}

func TestUpdateAndGetVersion(t *testing.T) {
	r := newRepository(t)
	ctx := context.Background()

	_, err := r.Create(ctx, EntityBorelog, "p1", "b1", borelogPayload("b1"), "u1", "")
	require.NoError(t, err)

	payload := borelogPayload("b1")
	payload["number"] = "BH-01R"
	rec, err := r.Update(ctx, EntityBorelog, "p1", "b1", payload, "u2", "")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Version)
	assert.Equal(t, "draft", rec.Metadata.Status)

	v1, err := r.GetVersion(ctx, EntityBorelog, "p1", "b1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, "BH-01", v1.Data["number"])
	assert.Equal(t, 2, v1.Metadata.CurrentVersion)

	history, err := r.GetHistory(ctx, EntityBorelog, "p1", "b1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Created borelog b1 in project p1", history[0].Comment)
	assert.Equal(t, "Updated borelog b1", history[1].Comment)
}

func TestApproveAndReject(t *testing.T) {
	r := newRepository(t)
	ctx := context.Background()

	_, err := r.Create(ctx, EntityBorelog, "p1", "b1", borelogPayload("b1"), "u1", "")
	require.NoError(t, err)

	rec, err := r.Approve(ctx, EntityBorelog, "p1", "b1", "reviewer", "looks complete")
	require.NoError(t, err)
	assert.Equal(t, "approved", rec.Metadata.Status)
	require.NotNil(t, rec.Metadata.ApprovedBy)
	assert.Equal(t, "reviewer", *rec.Metadata.ApprovedBy)

	_, err = r.Reject(ctx, EntityBorelog, "p1", "b1", "reviewer", "")
	assert.True(t, errors.IsKind(err, errors.KindIllegalTransition))
}

func TestListByProject(t *testing.T) {
	r := newRepository(t)
	ctx := context.Background()

	for _, id := range []string{"b1", "b2"} {
		_, err := r.Create(ctx, EntityBorelog, "p1", id, borelogPayload(id), "u1", "")
		require.NoError(t, err)
	}
	_, err := r.Create(ctx, EntityBorelog, "p2", "b9", borelogPayload("b9"), "u1", "")
	require.NoError(t, err)

	records, err := r.ListByProject(ctx, EntityBorelog, "p1", "")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b1", records[0].EntityID)
	assert.Equal(t, "b2", records[1].EntityID)

	_, err = r.Approve(ctx, EntityBorelog, "p1", "b2", "reviewer", "")
	require.NoError(t, err)
	approved, err := r.ListByProject(ctx, EntityBorelog, "p1", versioned.StatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "b2", approved[0].EntityID)
}

func TestGetLatestNotFound(t *testing.T) {
	r := newRepository(t)
	_, err := r.GetLatest(context.Background(), EntityBorelog, "p1", "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestPayloadProjection(t *testing.T) {
	sch, ok := schema.Lookup("projects")
	require.True(t, ok)

	// project_id comes from context, unknown fields drop, absent go null
	row, err := payloadToRow(sch, "p1", map[string]any{
		"name":      "Metro Line 4",
		"unrelated": "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", row["project_id"])
	assert.Equal(t, "Metro Line 4", row["name"])
	assert.Nil(t, row["location"])
	_, present := row["unrelated"]
	assert.False(t, present)
}
