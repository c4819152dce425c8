// Package repository exposes the engine's versioned records as named
// geotechnical entities. Callers speak entity types and JSON payloads; the
// mapping onto tables, record ids and row values lives here.
package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/strataworks/borevault/internal/engine"
	"github.com/strataworks/borevault/internal/errors"
	"github.com/strataworks/borevault/internal/schema"
	"github.com/strataworks/borevault/internal/versioned"
)

// Entity types accepted by the facade.
const (
	EntityBorelog       = "borelog"
	EntityGeologicalLog = "geological_log"
	EntityLabTest       = "lab_test"
)

// entityTableMap binds each entity type to its backing table schema.
var entityTableMap = map[string]string{
	EntityBorelog:       "borelog_versions",
	EntityGeologicalLog: "geological_log",
	EntityLabTest:       "unified_lab_reports",
}

// EntityTypes lists the accepted entity types, sorted.
func EntityTypes() []string {
	types := make([]string, 0, len(entityTableMap))
	for t := range entityTableMap {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// RecordMeta is the approval metadata returned alongside record data.
type RecordMeta struct {
	CurrentVersion int     `json:"current_version"`
	Status         string  `json:"status"`
	CreatedBy      string  `json:"created_by"`
	CreatedAt      string  `json:"created_at"`
	ApprovedBy     *string `json:"approved_by,omitempty"`
	ApprovedAt     *string `json:"approved_at,omitempty"`
	RejectedBy     *string `json:"rejected_by,omitempty"`
	RejectedAt     *string `json:"rejected_at,omitempty"`
}

// Record is the composite result for entity reads and writes.
type Record struct {
	EntityType string         `json:"entity_type"`
	ProjectID  string         `json:"project_id"`
	EntityID   string         `json:"entity_id"`
	Version    int            `json:"version,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Metadata   *RecordMeta    `json:"metadata,omitempty"`
}

// Repository is the entity facade over versioned storage.
type Repository struct {
	storage *versioned.Storage
}

// NewRepository creates the facade.
func NewRepository(storage *versioned.Storage) *Repository {
	return &Repository{storage: storage}
}

func recordID(projectID, entityType, entityID string) string {
	return fmt.Sprintf("%s/%s/%s", projectID, entityType, entityID)
}

func tableFor(entityType string) (string, *schema.Schema, error) {
	table, ok := entityTableMap[entityType]
	if !ok {
		return "", nil, errors.New(errors.KindMalformedInput,
			"unknown entity type %q, expected one of: %s", entityType, strings.Join(EntityTypes(), ", "))
	}
	sch, ok := schema.Lookup(table)
	if !ok {
		return "", nil, errors.New(errors.KindInternal, "no schema registered for table %s", table)
	}
	return table, sch, nil
}

// payloadToRow projects a JSON payload onto the table schema: project_id is
// injected when the table carries it, absent columns become null, values are
// coerced to the column type. Payload fields the schema does not know are
// dropped.
func payloadToRow(sch *schema.Schema, projectID string, payload map[string]any) (engine.Row, error) {
	row := make(engine.Row, len(sch.Fields))
	for _, f := range sch.Fields {
		raw, ok := payload[f.Name]
		if !ok && f.Name == "project_id" {
			raw, ok = projectID, true
		}
		if !ok || raw == nil {
			row[f.Name] = nil
			continue
		}
		v, err := schema.ParseValue(f, raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindSchemaValidation, "field %s", f.Name)
		}
		row[f.Name] = v
	}
	return row, nil
}

// isoTimestamp renders a timestamp for JSON output, UTC with a Z suffix and
// microseconds only when present.
func isoTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04:05") + "Z"
	}
	return t.Format("2006-01-02T15:04:05.000000") + "Z"
}

// rowToPayload is the inverse projection: canonical row values back to
// JSON-friendly ones.
func rowToPayload(sch *schema.Schema, row engine.Row) map[string]any {
	payload := make(map[string]any, len(sch.Fields))
	for _, f := range sch.Fields {
		v := row[f.Name]
		if t, ok := v.(time.Time); ok {
			v = isoTimestamp(t)
		}
		payload[f.Name] = v
	}
	return payload
}

func recordMeta(meta *versioned.Metadata) *RecordMeta {
	return &RecordMeta{
		CurrentVersion: meta.CurrentVersion,
		Status:         string(meta.Status),
		CreatedBy:      meta.CreatedBy,
		CreatedAt:      meta.CreatedAt,
		ApprovedBy:     meta.ApprovedBy,
		ApprovedAt:     meta.ApprovedAt,
		RejectedBy:     meta.RejectedBy,
		RejectedAt:     meta.RejectedAt,
	}
}

// Create writes a new entity as version 1.
func (r *Repository) Create(ctx context.Context, entityType, projectID, entityID string, payload map[string]any, user, comment string) (*Record, error) {
	table, sch, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	row, err := payloadToRow(sch, projectID, payload)
	if err != nil {
		return nil, err
	}
	if comment == "" {
		comment = fmt.Sprintf("Created %s %s in project %s", entityType, entityID, projectID)
	}
	meta, err := r.storage.CreateRecord(ctx, recordID(projectID, entityType, entityID), []engine.Row{row}, table, user, comment)
	if err != nil {
		return nil, err
	}
	return &Record{
		EntityType: entityType,
		ProjectID:  projectID,
		EntityID:   entityID,
		Version:    meta.CurrentVersion,
		Data:       rowToPayload(sch, row),
		Metadata:   recordMeta(meta),
	}, nil
}

// Update appends the next version with a full replacement payload.
func (r *Repository) Update(ctx context.Context, entityType, projectID, entityID string, payload map[string]any, user, comment string) (*Record, error) {
	_, sch, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	row, err := payloadToRow(sch, projectID, payload)
	if err != nil {
		return nil, err
	}
	if comment == "" {
		comment = fmt.Sprintf("Updated %s %s", entityType, entityID)
	}
	meta, err := r.storage.UpdateRecord(ctx, recordID(projectID, entityType, entityID), []engine.Row{row}, user, comment)
	if err != nil {
		return nil, err
	}
	return &Record{
		EntityType: entityType,
		ProjectID:  projectID,
		EntityID:   entityID,
		Version:    meta.CurrentVersion,
		Data:       rowToPayload(sch, row),
		Metadata:   recordMeta(meta),
	}, nil
}

// GetLatest reads the current version of an entity.
func (r *Repository) GetLatest(ctx context.Context, entityType, projectID, entityID string) (*Record, error) {
	_, sch, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	tbl, meta, err := r.storage.GetLatestVersion(ctx, recordID(projectID, entityType, entityID))
	if err != nil {
		return nil, err
	}
	rec := &Record{
		EntityType: entityType,
		ProjectID:  projectID,
		EntityID:   entityID,
		Version:    meta.CurrentVersion,
		Metadata:   recordMeta(meta),
	}
	if len(tbl.Rows) > 0 {
		rec.Data = rowToPayload(sch, tbl.Rows[0])
	}
	return rec, nil
}

// GetVersion reads one historical version of an entity.
func (r *Repository) GetVersion(ctx context.Context, entityType, projectID, entityID string, version int) (*Record, error) {
	_, sch, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	id := recordID(projectID, entityType, entityID)
	meta, err := r.storage.GetMetadata(ctx, id)
	if err != nil {
		return nil, err
	}
	tbl, err := r.storage.GetSpecificVersion(ctx, id, version)
	if err != nil {
		return nil, err
	}
	rec := &Record{
		EntityType: entityType,
		ProjectID:  projectID,
		EntityID:   entityID,
		Version:    version,
		Metadata:   recordMeta(meta),
	}
	if len(tbl.Rows) > 0 {
		rec.Data = rowToPayload(sch, tbl.Rows[0])
	}
	return rec, nil
}

// ListByProject returns the latest version of every entity of one type in a
// project, optionally narrowed to a status.
func (r *Repository) ListByProject(ctx context.Context, entityType, projectID string, status versioned.Status) ([]*Record, error) {
	table, _, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	ids, err := r.storage.ListRecords(ctx, table, status)
	if err != nil {
		return nil, err
	}

	prefix := projectID + "/" + entityType + "/"
	records := make([]*Record, 0, len(ids))
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		rec, err := r.GetLatest(ctx, entityType, projectID, strings.TrimPrefix(id, prefix))
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Approve marks the entity's current version approved.
func (r *Repository) Approve(ctx context.Context, entityType, projectID, entityID, user, comment string) (*Record, error) {
	if _, _, err := tableFor(entityType); err != nil {
		return nil, err
	}
	meta, err := r.storage.ApproveRecord(ctx, recordID(projectID, entityType, entityID), user, comment)
	if err != nil {
		return nil, err
	}
	return &Record{
		EntityType: entityType,
		ProjectID:  projectID,
		EntityID:   entityID,
		Version:    meta.CurrentVersion,
		Metadata:   recordMeta(meta),
	}, nil
}

// Reject marks the entity's current version rejected.
func (r *Repository) Reject(ctx context.Context, entityType, projectID, entityID, user, comment string) (*Record, error) {
	if _, _, err := tableFor(entityType); err != nil {
		return nil, err
	}
	meta, err := r.storage.RejectRecord(ctx, recordID(projectID, entityType, entityID), user, comment)
	if err != nil {
		return nil, err
	}
	return &Record{
		EntityType: entityType,
		ProjectID:  projectID,
		EntityID:   entityID,
		Version:    meta.CurrentVersion,
		Metadata:   recordMeta(meta),
	}, nil
}

// GetHistory returns the append-only audit trail for an entity.
func (r *Repository) GetHistory(ctx context.Context, entityType, projectID, entityID string) ([]versioned.HistoryEntry, error) {
	if _, _, err := tableFor(entityType); err != nil {
		return nil, err
	}
	meta, err := r.storage.GetMetadata(ctx, recordID(projectID, entityType, entityID))
	if err != nil {
		return nil, err
	}
	return meta.History, nil
}

// Storage exposes the underlying versioned storage for collaborators that
// need record-level access.
func (r *Repository) Storage() *versioned.Storage {
	return r.storage
}
