package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataworks/borevault/internal/engine"
	"github.com/strataworks/borevault/internal/objectstore"
	"github.com/strataworks/borevault/internal/repository"
	"github.com/strataworks/borevault/internal/versioned"
)

func newDispatcher(t *testing.T) (*Dispatcher, *objectstore.MockStore) {
	t.Helper()
	store := objectstore.NewMockStore()
	eng := engine.New(store, "parquet-data", nil)
	repo := repository.NewRepository(versioned.New(eng))
	return New(repo, store, nil), store
}

func borelogPayload(id string) map[string]any {
	return map[string]any{
		"borelog_id":        id,
		"version_no":        1,
		"number":            "BH-01",
		"boring_method":     "Rotary",
		"termination_depth": 30.5,
		"status":            "SUBMITTED",
		"created_at":        "2025-03-02T10:30:00Z",
	}
}

func directEvent(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(fields)
	require.NoError(t, err)
	return raw
}

func decodeBody(t *testing.T, resp Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	return body
}

func TestDispatchCreateAndGet(t *testing.T) {
	d, _ := newDispatcher(t)
	ctx := context.Background()

	resp := d.HandleEvent(ctx, directEvent(t, map[string]any{
		"action":      "create",
		"entity_type": "borelog",
		"project_id":  "p1",
		"entity_id":   "b1",
		"payload":     borelogPayload("b1"),
		"user":        "u1",
	}))
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["version"])

	resp = d.HandleEvent(ctx, directEvent(t, map[string]any{
		"action":      "get",
		"entity_type": "borelog",
		"project_id":  "p1",
		"entity_id":   "b1",
	}))
	assert.Equal(t, 200, resp.StatusCode)
	data = decodeBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, "BH-01", data["data"].(map[string]any)["number"])
}

func TestDispatchGatewayEvent(t *testing.T) {
	d, _ := newDispatcher(t)

	// body fields win over path, path over query
	bodyJSON, err := json.Marshal(map[string]any{
		"action":  "create",
		"payload": borelogPayload("b1"),
		"user":    "u1",
	})
	require.NoError(t, err)
	event := directEvent(t, map[string]any{
		"httpMethod":            "POST",
		"body":                  string(bodyJSON),
		"pathParameters":        map[string]any{"project_id": "p1", "entity_id": "b1"},
		"queryStringParameters": map[string]any{"entity_type": "borelog", "project_id": "ignored"},
	})

	resp := d.HandleEvent(context.Background(), event)
	assert.Equal(t, 201, resp.StatusCode)
	data := decodeBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, "p1", data["project_id"])
	assert.Equal(t, "borelog", data["entity_type"])
}

func TestDispatchGatewayBadBody(t *testing.T) {
	d, _ := newDispatcher(t)
	event := directEvent(t, map[string]any{
		"httpMethod":     "POST",
		"body":           "{not json",
		"pathParameters": map[string]any{"action": "get"},
	})
	resp := d.HandleEvent(context.Background(), event)
	// body was unusable, action survived via the path parameters
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "Missing required fields", decodeBody(t, resp)["error"])
}

func TestDispatchMissingAction(t *testing.T) {
	d, _ := newDispatcher(t)
	resp := d.HandleEvent(context.Background(), []byte(`{}`))
	assert.Equal(t, 400, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Missing action field", body["error"])
	assert.Len(t, body["supported_actions"], len(supportedActions))
}

func TestDispatchUnknownAction(t *testing.T) {
	d, _ := newDispatcher(t)
	resp := d.HandleEvent(context.Background(), []byte(`{"action":"destroy"}`))
	assert.Equal(t, 400, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Unknown action: destroy", body["error"])
	assert.NotEmpty(t, body["supported_actions"])
}

func TestDispatchMissingRequiredFields(t *testing.T) {
	d, _ := newDispatcher(t)
	resp := d.HandleEvent(context.Background(), directEvent(t, map[string]any{
		"action":      "create",
		"entity_type": "borelog",
		"project_id":  "p1",
		"entity_id":   "b1",
	}))
	assert.Equal(t, 400, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Missing required fields", body["error"])
	assert.Contains(t, body["required"], "user")
}

func TestDispatchGetNotFound(t *testing.T) {
	d, _ := newDispatcher(t)
	resp := d.HandleEvent(context.Background(), directEvent(t, map[string]any{
		"action":      "get",
		"entity_type": "borelog",
		"project_id":  "p1",
		"entity_id":   "missing",
	}))
	assert.Equal(t, 404, resp.StatusCode)
}

func TestDispatchApproveThenReject(t *testing.T) {
	d, _ := newDispatcher(t)
	ctx := context.Background()

	resp := d.HandleEvent(ctx, directEvent(t, map[string]any{
		"action": "create", "entity_type": "borelog", "project_id": "p1",
		"entity_id": "b1", "payload": borelogPayload("b1"), "user": "u1",
	}))
	require.Equal(t, 201, resp.StatusCode)

	resp = d.HandleEvent(ctx, directEvent(t, map[string]any{
		"action": "approve", "entity_type": "borelog", "project_id": "p1",
		"entity_id": "b1", "approved_by": "reviewer",
	}))
	assert.Equal(t, 200, resp.StatusCode)
	data := decodeBody(t, resp)["data"].(map[string]any)
	meta := data["metadata"].(map[string]any)
	assert.Equal(t, "approved", meta["status"])

	resp = d.HandleEvent(ctx, directEvent(t, map[string]any{
		"action": "reject", "entity_type": "borelog", "project_id": "p1",
		"entity_id": "b1", "rejector": "reviewer",
	}))
	assert.Equal(t, 400, resp.StatusCode)
}

func TestDispatchListWithCount(t *testing.T) {
	d, _ := newDispatcher(t)
	ctx := context.Background()

	for _, id := range []string{"b1", "b2"} {
		resp := d.HandleEvent(ctx, directEvent(t, map[string]any{
			"action": "create", "entity_type": "borelog", "project_id": "p1",
			"entity_id": id, "payload": borelogPayload(id), "user": "u1",
		}))
		require.Equal(t, 201, resp.StatusCode)
	}

	resp := d.HandleEvent(ctx, directEvent(t, map[string]any{
		"action": "list", "entity_type": "borelog", "project_id": "p1",
	}))
	assert.Equal(t, 200, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, float64(2), body["count"])
	assert.Len(t, body["data"], 2)
}

func TestDispatchGetVersionAndHistory(t *testing.T) {
	d, _ := newDispatcher(t)
	ctx := context.Background()

	resp := d.HandleEvent(ctx, directEvent(t, map[string]any{
		"action": "create", "entity_type": "borelog", "project_id": "p1",
		"entity_id": "b1", "payload": borelogPayload("b1"), "user": "u1",
	}))
	require.Equal(t, 201, resp.StatusCode)

	payload := borelogPayload("b1")
	payload["number"] = "BH-01R"
	resp = d.HandleEvent(ctx, directEvent(t, map[string]any{
		"action": "update", "entity_type": "borelog", "project_id": "p1",
		"entity_id": "b1", "payload": payload, "updated_by": "u2",
	}))
	require.Equal(t, 200, resp.StatusCode)

	// numeric version is rendered back to an integer string
	resp = d.HandleEvent(ctx, directEvent(t, map[string]any{
		"action": "get_version", "entity_type": "borelog", "project_id": "p1",
		"entity_id": "b1", "version": 1,
	}))
	assert.Equal(t, 200, resp.StatusCode)
	data := decodeBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, "BH-01", data["data"].(map[string]any)["number"])

	resp = d.HandleEvent(ctx, directEvent(t, map[string]any{
		"action": "get_version", "entity_type": "borelog", "project_id": "p1",
		"entity_id": "b1", "version": "two",
	}))
	assert.Equal(t, 400, resp.StatusCode)

	resp = d.HandleEvent(ctx, directEvent(t, map[string]any{
		"action": "get_history", "entity_type": "borelog", "project_id": "p1",
		"entity_id": "b1",
	}))
	assert.Equal(t, 200, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, float64(2), body["count"])
}

func TestDispatchSaveStratum(t *testing.T) {
	d, store := newDispatcher(t)
	ctx := context.Background()

	resp := d.HandleEvent(ctx, directEvent(t, map[string]any{
		"action":               "save_stratum",
		"borelog_id":           "b1",
		"version_no":           2,
		"stratum_metadata_key": "projects/p1/borelogs/b1/strata/meta.json",
		"stratum_data_key":     "projects/p1/borelogs/b1/strata/data.parquet",
		"layers":               []any{map[string]any{"depth_from": 0.0}, map[string]any{"depth_from": 3.5}},
		"user_id":              "u1",
	}))
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "Stratum saved", decodeBody(t, resp)["message"])

	raw, err := store.Get(ctx, "projects/p1/borelogs/b1/strata/meta.json")
	require.NoError(t, err)
	var manifest map[string]any
	require.NoError(t, json.Unmarshal(raw, &manifest))
	assert.Equal(t, "b1", manifest["borelog_id"])
	assert.Equal(t, float64(2), manifest["version_no"])
	assert.Equal(t, float64(2), manifest["layers_count"])
	assert.Equal(t, "u1", manifest["saved_by"])
	assert.NotEmpty(t, manifest["saved_at"])

	raw, err = store.Get(ctx, "projects/p1/borelogs/b1/strata/data.json")
	require.NoError(t, err)
	var layers map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &layers))
	assert.Len(t, layers["layers"], 2)
}

func TestDispatchSaveStratumMissingFields(t *testing.T) {
	d, _ := newDispatcher(t)
	resp := d.HandleEvent(context.Background(), directEvent(t, map[string]any{
		"action":     "save_stratum",
		"borelog_id": "b1",
	}))
	assert.Equal(t, 400, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Contains(t, body["required"], "stratum_metadata_key")
}

func TestDispatchMalformedEvent(t *testing.T) {
	d, _ := newDispatcher(t)
	resp := d.HandleEvent(context.Background(), []byte("not json"))
	assert.Equal(t, 400, resp.StatusCode)
}

func TestStringField(t *testing.T) {
	fields := map[string]any{
		"a": "  s  ",
		"b": float64(3),
		"c": 3.5,
		"d": nil,
		"e": true,
	}
	assert.Equal(t, "s", stringField(fields, "a"))
	assert.Equal(t, "3", stringField(fields, "b"))
	assert.Equal(t, "3.5", stringField(fields, "c"))
	assert.Equal(t, "", stringField(fields, "d"))
	assert.Equal(t, "true", stringField(fields, "e"))
	assert.Equal(t, "s", stringField(fields, "missing", "a"))
}
