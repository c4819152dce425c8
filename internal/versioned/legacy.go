package versioned

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/strataworks/borevault/internal/engine"
	"github.com/strataworks/borevault/internal/errors"
	"github.com/strataworks/borevault/internal/objectstore"
	"github.com/strataworks/borevault/internal/schema"
)

// LegacyStore handles the older borelog layout that predates records/:
//
//	projects/{project}/borelogs/{borelog}/metadata.json
//	projects/{project}/borelogs/{borelog}/v{N}/data.parquet
//
// The metadata document carries a versions[] array and a top-level
// latest_approved pointer. Documents are handled as raw maps so fields this
// code does not know about survive a rewrite.
type LegacyStore struct {
	store objectstore.Store
	now   func() time.Time
}

// NewLegacyStore wraps store for legacy-layout access.
func NewLegacyStore(store objectstore.Store) *LegacyStore {
	return &LegacyStore{store: store, now: time.Now}
}

func legacyMetadataKey(projectID, borelogID string) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/metadata.json", projectID, borelogID)
}

func legacyParquetKey(projectID, borelogID string, version int) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/v%d/data.parquet", projectID, borelogID, version)
}

func (l *LegacyStore) readDoc(ctx context.Context, projectID, borelogID string) (map[string]any, error) {
	data, err := l.store.Get(ctx, legacyMetadataKey(projectID, borelogID))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.New(errors.KindNotFound,
				"metadata not found for borelog %s in project %s", borelogID, projectID)
		}
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedInput,
			"legacy metadata for borelog %s is not parseable", borelogID)
	}
	return doc, nil
}

func (l *LegacyStore) writeDoc(ctx context.Context, projectID, borelogID string, doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshal legacy metadata for %s", borelogID)
	}
	return l.store.Put(ctx, legacyMetadataKey(projectID, borelogID), data, "application/json", true)
}

// versionEntry finds the versions[] element for version, nil if absent.
func versionEntry(doc map[string]any, version int) map[string]any {
	versions, _ := doc["versions"].([]any)
	for _, v := range versions {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if n, ok := entry["version"].(float64); ok && int(n) == version {
			return entry
		}
	}
	return nil
}

// ApproveVersion approves one legacy version: metadata only, no data-file
// I/O beyond verifying the version's parquet object exists. The approval is
// stamped on both the version entry and the document root, and
// latest_approved is advanced.
func (l *LegacyStore) ApproveVersion(ctx context.Context, projectID, borelogID string, version int, approvedBy string) (map[string]any, error) {
	doc, err := l.readDoc(ctx, projectID, borelogID)
	if err != nil {
		return nil, err
	}

	exists, err := l.store.Head(ctx, legacyParquetKey(projectID, borelogID, version))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.New(errors.KindNotFound,
			"version %d does not exist for borelog %s in project %s", version, borelogID, projectID)
	}

	entry := versionEntry(doc, version)
	if entry == nil {
		return nil, errors.New(errors.KindNotFound,
			"version %d not found in metadata for borelog %s in project %s", version, borelogID, projectID)
	}

	now := l.now().UTC().Format("2006-01-02T15:04:05.000000") + "Z"
	entry["status"] = "APPROVED"
	entry["approved_by"] = approvedBy
	entry["approved_at"] = now

	doc["latest_approved"] = version
	doc["approved_by"] = approvedBy
	doc["approved_at"] = now

	if err := l.writeDoc(ctx, projectID, borelogID, doc); err != nil {
		return nil, err
	}
	slog.Info("Approved legacy borelog version",
		"project.id", projectID, "record.id", borelogID, "version", version)
	return doc, nil
}

// LatestApproved reads the newest approved version: one metadata read and
// one parquet read. The caller supplies the row schema for the data file.
func (l *LegacyStore) LatestApproved(ctx context.Context, projectID, borelogID string, sch *schema.Schema) ([]engine.Row, int, error) {
	doc, err := l.readDoc(ctx, projectID, borelogID)
	if err != nil {
		return nil, 0, err
	}

	latest, ok := doc["latest_approved"].(float64)
	if !ok || latest < 1 {
		return nil, 0, errors.New(errors.KindNotFound,
			"no approved version for borelog %s in project %s", borelogID, projectID)
	}
	version := int(latest)

	data, err := l.store.Get(ctx, legacyParquetKey(projectID, borelogID, version))
	if err != nil {
		return nil, 0, err
	}
	rows, err := engine.DecodeFile(sch, data)
	if err != nil {
		return nil, 0, err
	}
	return rows, version, nil
}
