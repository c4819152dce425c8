// Package versioned implements the record state machine over the columnar
// engine: numbered immutable versions, a metadata document per record, and
// an append-only history.
package versioned

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/strataworks/borevault/internal/engine"
	"github.com/strataworks/borevault/internal/errors"
	"github.com/strataworks/borevault/internal/objectstore"
	"github.com/strataworks/borevault/internal/schema"
)

// Status is the record approval state.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// HistoryEntry is one append-only audit line.
type HistoryEntry struct {
	Version   int    `json:"version"`
	Status    Status `json:"status"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
	Comment   string `json:"comment"`
}

// Metadata is the per-record metadata document.
type Metadata struct {
	RecordID       string         `json:"record_id"`
	TableName      string         `json:"table_name"`
	CurrentVersion int            `json:"current_version"`
	Status         Status         `json:"status"`
	CreatedBy      string         `json:"created_by"`
	CreatedAt      string         `json:"created_at"`
	ApprovedBy     *string        `json:"approved_by"`
	ApprovedAt     *string        `json:"approved_at"`
	RejectedBy     *string        `json:"rejected_by"`
	RejectedAt     *string        `json:"rejected_at"`
	History        []HistoryEntry `json:"history"`
}

// Storage composes the engine and the object store into the versioned
// record layout under records/.
type Storage struct {
	eng   *engine.Engine
	store objectstore.Store
	base  string
	now   func() time.Time
}

// New creates versioned storage over eng.
func New(eng *engine.Engine) *Storage {
	return &Storage{
		eng:   eng,
		store: eng.Store(),
		base:  eng.BasePath(),
		now:   time.Now,
	}
}

func (s *Storage) recordPath(recordID string) string {
	return "records/" + recordID
}

func (s *Storage) versionFilePath(recordID string, version int) string {
	return fmt.Sprintf("%s/versions/v%d.parquet", s.recordPath(recordID), version)
}

// VersionFileKey returns the full object key of a record's version data file.
func (s *Storage) VersionFileKey(recordID string, version int) string {
	return s.base + "/" + s.versionFilePath(recordID, version)
}

func (s *Storage) metadataKey(recordID string) string {
	return s.base + "/" + s.recordPath(recordID) + "/metadata.json"
}

func (s *Storage) isoNow() string {
	return s.now().UTC().Format("2006-01-02T15:04:05.000000") + "Z"
}

func (s *Storage) readMetadata(ctx context.Context, recordID string) (*Metadata, error) {
	data, err := s.store.Get(ctx, s.metadataKey(recordID))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.New(errors.KindNotFound, "record %s does not exist", recordID)
		}
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedInput, "metadata for record %s is not parseable", recordID)
	}
	return &meta, nil
}

func (s *Storage) writeMetadata(ctx context.Context, recordID string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshal metadata for %s", recordID)
	}
	return s.store.Put(ctx, s.metadataKey(recordID), data, "application/json", true)
}

func (s *Storage) appendHistory(meta *Metadata, version int, status Status, user, comment string) {
	meta.History = append(meta.History, HistoryEntry{
		Version:   version,
		Status:    status,
		CreatedBy: user,
		CreatedAt: s.isoNow(),
		Comment:   comment,
	})
}

func lookupSchema(tableName string) (*schema.Schema, error) {
	sch, ok := schema.Lookup(tableName)
	if !ok {
		return nil, errors.New(errors.KindMalformedInput, "no schema found for table: %s", tableName)
	}
	return sch, nil
}

// CreateRecord writes version 1 and fresh metadata. Fails with AlreadyExists
// if the record has metadata.
func (s *Storage) CreateRecord(ctx context.Context, recordID string, rows []engine.Row, tableName, createdBy, comment string) (*Metadata, error) {
	if _, err := s.readMetadata(ctx, recordID); err == nil {
		return nil, errors.New(errors.KindAlreadyExists, "record %s already exists", recordID)
	} else if !errors.IsNotFound(err) {
		return nil, err
	}

	sch, err := lookupSchema(tableName)
	if err != nil {
		return nil, err
	}

	// Data file first, metadata second. A crash in between leaves an orphan
	// v1 file that the overwrite guard will surface on the next create.
	tbl := engine.NewTable(sch, rows)
	if _, err := s.eng.WriteExact(ctx, s.versionFilePath(recordID, 1), tbl, sch, false); err != nil {
		return nil, err
	}

	now := s.isoNow()
	meta := &Metadata{
		RecordID:       recordID,
		TableName:      tableName,
		CurrentVersion: 1,
		Status:         StatusDraft,
		CreatedBy:      createdBy,
		CreatedAt:      now,
	}
	if comment == "" {
		comment = "Initial creation"
	}
	s.appendHistory(meta, 1, StatusDraft, createdBy, comment)

	if err := s.writeMetadata(ctx, recordID, meta); err != nil {
		return nil, err
	}
	slog.Info("Created record", "record.id", recordID, "table", tableName)
	return meta, nil
}

// UpdateRecord appends the next version and resets status to draft.
func (s *Storage) UpdateRecord(ctx context.Context, recordID string, rows []engine.Row, updatedBy, comment string) (*Metadata, error) {
	meta, err := s.readMetadata(ctx, recordID)
	if err != nil {
		return nil, err
	}

	sch, err := lookupSchema(meta.TableName)
	if err != nil {
		return nil, err
	}

	newVersion := meta.CurrentVersion + 1
	tbl := engine.NewTable(sch, rows)
	if _, err := s.eng.WriteExact(ctx, s.versionFilePath(recordID, newVersion), tbl, sch, false); err != nil {
		return nil, err
	}

	meta.CurrentVersion = newVersion
	meta.Status = StatusDraft
	meta.ApprovedBy, meta.ApprovedAt = nil, nil
	meta.RejectedBy, meta.RejectedAt = nil, nil
	if comment == "" {
		comment = fmt.Sprintf("Updated to version %d", newVersion)
	}
	s.appendHistory(meta, newVersion, StatusDraft, updatedBy, comment)

	if err := s.writeMetadata(ctx, recordID, meta); err != nil {
		return nil, err
	}
	slog.Info("Updated record", "record.id", recordID, "version", newVersion)
	return meta, nil
}

// ApproveRecord flips status to approved, metadata only.
func (s *Storage) ApproveRecord(ctx context.Context, recordID, approvedBy, comment string) (*Metadata, error) {
	meta, err := s.readMetadata(ctx, recordID)
	if err != nil {
		return nil, err
	}
	switch meta.Status {
	case StatusApproved:
		return nil, errors.New(errors.KindIllegalTransition, "record %s is already approved", recordID)
	case StatusRejected:
		return nil, errors.New(errors.KindIllegalTransition, "record %s is rejected and cannot be approved", recordID)
	}

	now := s.isoNow()
	meta.Status = StatusApproved
	meta.ApprovedBy, meta.ApprovedAt = &approvedBy, &now
	if comment == "" {
		comment = "Record approved"
	}
	s.appendHistory(meta, meta.CurrentVersion, StatusApproved, approvedBy, comment)

	if err := s.writeMetadata(ctx, recordID, meta); err != nil {
		return nil, err
	}
	slog.Info("Approved record", "record.id", recordID, "version", meta.CurrentVersion)
	return meta, nil
}

// RejectRecord flips status to rejected, metadata only.
func (s *Storage) RejectRecord(ctx context.Context, recordID, rejectedBy, comment string) (*Metadata, error) {
	meta, err := s.readMetadata(ctx, recordID)
	if err != nil {
		return nil, err
	}
	switch meta.Status {
	case StatusApproved:
		return nil, errors.New(errors.KindIllegalTransition, "record %s is approved and cannot be rejected", recordID)
	case StatusRejected:
		return nil, errors.New(errors.KindIllegalTransition, "record %s is already rejected", recordID)
	}

	now := s.isoNow()
	meta.Status = StatusRejected
	meta.RejectedBy, meta.RejectedAt = &rejectedBy, &now
	if comment == "" {
		comment = "Record rejected"
	}
	s.appendHistory(meta, meta.CurrentVersion, StatusRejected, rejectedBy, comment)

	if err := s.writeMetadata(ctx, recordID, meta); err != nil {
		return nil, err
	}
	slog.Info("Rejected record", "record.id", recordID, "version", meta.CurrentVersion)
	return meta, nil
}

// GetMetadata returns the metadata document.
func (s *Storage) GetMetadata(ctx context.Context, recordID string) (*Metadata, error) {
	return s.readMetadata(ctx, recordID)
}

// GetLatestVersion reads the current version's rows.
func (s *Storage) GetLatestVersion(ctx context.Context, recordID string) (*engine.Table, *Metadata, error) {
	meta, err := s.readMetadata(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}
	tbl, err := s.GetSpecificVersion(ctx, recordID, meta.CurrentVersion)
	if err != nil {
		return nil, nil, err
	}
	return tbl, meta, nil
}

// GetSpecificVersion reads one version's rows. Absent versions fail with
// NotFound.
func (s *Storage) GetSpecificVersion(ctx context.Context, recordID string, version int) (*engine.Table, error) {
	meta, err := s.readMetadata(ctx, recordID)
	if err != nil {
		return nil, err
	}
	sch, err := lookupSchema(meta.TableName)
	if err != nil {
		return nil, err
	}
	return s.eng.Read(ctx, s.versionFilePath(recordID, version), sch, nil)
}

// GetAllVersions lists the version numbers whose data files exist.
func (s *Storage) GetAllVersions(ctx context.Context, recordID string) ([]int, error) {
	meta, err := s.readMetadata(ctx, recordID)
	if err != nil {
		return nil, err
	}
	var versions []int
	for v := 1; v <= meta.CurrentVersion; v++ {
		exists, err := s.eng.Head(ctx, s.versionFilePath(recordID, v))
		if err != nil {
			return nil, err
		}
		if exists {
			versions = append(versions, v)
		}
	}
	return versions, nil
}

// ListRecords enumerates record ids under records/, optionally filtered by
// table name and status.
func (s *Storage) ListRecords(ctx context.Context, tableName string, status Status) ([]string, error) {
	prefix := s.base + "/records/"
	keys, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var records []string
	for _, key := range keys {
		if !strings.HasSuffix(key, "/metadata.json") {
			continue
		}
		recordID := strings.TrimSuffix(strings.TrimPrefix(key, prefix), "/metadata.json")
		if seen[recordID] {
			continue
		}
		seen[recordID] = true

		if tableName != "" || status != "" {
			meta, err := s.readMetadata(ctx, recordID)
			if err != nil {
				continue
			}
			if tableName != "" && meta.TableName != tableName {
				continue
			}
			if status != "" && meta.Status != status {
				continue
			}
		}
		records = append(records, recordID)
	}
	return records, nil
}
