// Package dispatch routes request envelopes onto the entity repository. It
// accepts either a gateway-style event (JSON body plus path and query
// parameters) or a direct invocation payload, and always answers with a
// gateway response envelope.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/strataworks/borevault/internal/errors"
	"github.com/strataworks/borevault/internal/objectstore"
	"github.com/strataworks/borevault/internal/observability"
	"github.com/strataworks/borevault/internal/repository"
	"github.com/strataworks/borevault/internal/versioned"
)

// Supported actions, in routing order.
var supportedActions = []string{
	"create", "update", "get", "approve", "reject",
	"list", "get_version", "get_history", "save_stratum",
}

// Request is the normalized envelope every event reduces to.
type Request struct {
	Action     string
	EntityType string
	ProjectID  string
	EntityID   string
	Payload    map[string]any
	User       string
	Approver   string
	Rejector   string
	Comment    string
	Version    string
	Status     string

	// save_stratum passthrough fields
	BorelogID          string
	VersionNo          json.RawMessage
	StratumMetadataKey string
	StratumDataKey     string
	Layers             []any
	UserID             string
}

// Response is the gateway response envelope.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// Dispatcher routes actions to the repository.
type Dispatcher struct {
	repo    *repository.Repository
	store   objectstore.Store
	metrics *observability.Metrics
	now     func() time.Time
}

// New creates a dispatcher. metrics may be nil.
func New(repo *repository.Repository, store objectstore.Store, metrics *observability.Metrics) *Dispatcher {
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &Dispatcher{repo: repo, store: store, metrics: metrics, now: time.Now}
}

// HandleEvent normalizes and dispatches one raw event.
func (d *Dispatcher) HandleEvent(ctx context.Context, raw []byte) Response {
	req, err := ParseEvent(raw)
	if err != nil {
		return errorResponse(err)
	}
	return d.Dispatch(ctx, req)
}

// Dispatch routes one normalized request.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) Response {
	if req.Action == "" {
		return respond(400, map[string]any{
			"error":             "Missing action field",
			"supported_actions": supportedActions,
		})
	}

	ctx = observability.WithAction(ctx, req.Action)
	if req.ProjectID != "" {
		ctx = observability.WithProjectID(ctx, req.ProjectID)
	}
	if req.EntityID != "" {
		ctx = observability.WithRecordID(ctx, req.EntityID)
	}

	start := d.now()
	defer func() {
		d.metrics.ActionDuration.WithLabelValues(req.Action).Observe(time.Since(start).Seconds())
	}()

	switch req.Action {
	case "create":
		return d.handleCreate(ctx, req)
	case "update":
		return d.handleUpdate(ctx, req)
	case "get":
		return d.handleGet(ctx, req)
	case "approve":
		return d.handleApprove(ctx, req)
	case "reject":
		return d.handleReject(ctx, req)
	case "list":
		return d.handleList(ctx, req)
	case "get_version":
		return d.handleGetVersion(ctx, req)
	case "get_history":
		return d.handleGetHistory(ctx, req)
	case "save_stratum":
		return d.handleSaveStratum(ctx, req)
	default:
		return respond(400, map[string]any{
			"error":             fmt.Sprintf("Unknown action: %s", req.Action),
			"supported_actions": supportedActions,
		})
	}
}

func (d *Dispatcher) handleCreate(ctx context.Context, req *Request) Response {
	if missing := requireFields(req, "entity_type", "project_id", "entity_id", "user"); missing != nil {
		return missingFieldsResponse(missing)
	}
	result, err := d.repo.Create(ctx, req.EntityType, req.ProjectID, req.EntityID, req.Payload, req.User, req.Comment)
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(201, result, nil)
}

func (d *Dispatcher) handleUpdate(ctx context.Context, req *Request) Response {
	if missing := requireFields(req, "entity_type", "project_id", "entity_id", "user"); missing != nil {
		return missingFieldsResponse(missing)
	}
	result, err := d.repo.Update(ctx, req.EntityType, req.ProjectID, req.EntityID, req.Payload, req.User, req.Comment)
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(200, result, nil)
}

func (d *Dispatcher) handleGet(ctx context.Context, req *Request) Response {
	if missing := requireFields(req, "entity_type", "project_id", "entity_id"); missing != nil {
		return missingFieldsResponse(missing)
	}
	result, err := d.repo.GetLatest(ctx, req.EntityType, req.ProjectID, req.EntityID)
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(200, result, nil)
}

func (d *Dispatcher) handleApprove(ctx context.Context, req *Request) Response {
	if missing := requireFields(req, "entity_type", "project_id", "entity_id", "approver"); missing != nil {
		return missingFieldsResponse(missing)
	}
	result, err := d.repo.Approve(ctx, req.EntityType, req.ProjectID, req.EntityID, req.Approver, req.Comment)
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(200, result, nil)
}

func (d *Dispatcher) handleReject(ctx context.Context, req *Request) Response {
	if missing := requireFields(req, "entity_type", "project_id", "entity_id", "rejector"); missing != nil {
		return missingFieldsResponse(missing)
	}
	result, err := d.repo.Reject(ctx, req.EntityType, req.ProjectID, req.EntityID, req.Rejector, req.Comment)
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(200, result, nil)
}

func (d *Dispatcher) handleList(ctx context.Context, req *Request) Response {
	if missing := requireFields(req, "entity_type", "project_id"); missing != nil {
		return missingFieldsResponse(missing)
	}
	results, err := d.repo.ListByProject(ctx, req.EntityType, req.ProjectID, versioned.Status(req.Status))
	if err != nil {
		return errorResponse(err)
	}
	count := len(results)
	return successResponse(200, results, &count)
}

func (d *Dispatcher) handleGetVersion(ctx context.Context, req *Request) Response {
	if missing := requireFields(req, "entity_type", "project_id", "entity_id", "version"); missing != nil {
		return missingFieldsResponse(missing)
	}
	version, err := strconv.Atoi(strings.TrimSpace(req.Version))
	if err != nil {
		return errorResponse(errors.New(errors.KindMalformedInput, "version %q is not an integer", req.Version))
	}
	result, err := d.repo.GetVersion(ctx, req.EntityType, req.ProjectID, req.EntityID, version)
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(200, result, nil)
}

func (d *Dispatcher) handleGetHistory(ctx context.Context, req *Request) Response {
	if missing := requireFields(req, "entity_type", "project_id", "entity_id"); missing != nil {
		return missingFieldsResponse(missing)
	}
	history, err := d.repo.GetHistory(ctx, req.EntityType, req.ProjectID, req.EntityID)
	if err != nil {
		return errorResponse(err)
	}
	count := len(history)
	return successResponse(200, history, &count)
}

// handleSaveStratum writes a stratum save manifest to the caller-provided
// key, plus the layers JSON beside the data key when both are present.
func (d *Dispatcher) handleSaveStratum(ctx context.Context, req *Request) Response {
	if req.BorelogID == "" || len(req.VersionNo) == 0 || req.StratumMetadataKey == "" {
		return respond(400, map[string]any{
			"error":    "Missing required fields for save_stratum",
			"required": []string{"borelog_id", "version_no", "stratum_metadata_key"},
		})
	}

	manifest := map[string]any{
		"borelog_id":   req.BorelogID,
		"version_no":   json.RawMessage(req.VersionNo),
		"layers_count": len(req.Layers),
		"saved_by":     req.UserID,
		"saved_at":     d.now().UTC().Format("2006-01-02T15:04:05.000000") + "Z",
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		return errorResponse(errors.Wrap(err, errors.KindInternal, "marshal stratum manifest"))
	}
	if err := d.store.Put(ctx, req.StratumMetadataKey, data, "application/json", true); err != nil {
		return errorResponse(err)
	}

	if len(req.Layers) > 0 && req.StratumDataKey != "" {
		layersKey := strings.TrimSuffix(req.StratumDataKey, ".parquet") + ".json"
		layersData, err := json.Marshal(map[string]any{"layers": req.Layers})
		if err != nil {
			return errorResponse(errors.Wrap(err, errors.KindInternal, "marshal stratum layers"))
		}
		if err := d.store.Put(ctx, layersKey, layersData, "application/json", true); err != nil {
			return errorResponse(err)
		}
	}

	observability.InfoContext(ctx, "Saved stratum manifest",
		slog.String("record.id", req.BorelogID), slog.String("key", req.StratumMetadataKey))
	return respond(200, map[string]any{"success": true, "message": "Stratum saved"})
}

func requireFields(req *Request, names ...string) []string {
	values := map[string]string{
		"entity_type": req.EntityType,
		"project_id":  req.ProjectID,
		"entity_id":   req.EntityID,
		"user":        req.User,
		"approver":    req.Approver,
		"rejector":    req.Rejector,
		"version":     req.Version,
	}
	for _, name := range names {
		if values[name] == "" {
			return names
		}
	}
	return nil
}

func missingFieldsResponse(required []string) Response {
	return respond(400, map[string]any{
		"error":    "Missing required fields",
		"required": required,
	})
}

func successResponse(status int, data any, count *int) Response {
	body := map[string]any{"success": true, "data": data}
	if count != nil {
		body["count"] = *count
	}
	return respond(status, body)
}

func errorResponse(err error) Response {
	status := errors.HTTPStatus(err)
	if status >= 500 {
		slog.Error("Request failed", "error", err)
	}
	return respond(status, map[string]any{"error": err.Error()})
}

func respond(status int, body map[string]any) Response {
	data, err := json.Marshal(body)
	if err != nil {
		data = []byte(`{"error":"Internal server error"}`)
		status = 500
	}
	return Response{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":                 "application/json",
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Headers": "Content-Type",
			"Access-Control-Allow-Methods": "GET,POST,PUT,DELETE,OPTIONS",
		},
		Body: string(data),
	}
}
