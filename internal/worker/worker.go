// Package worker processes asynchronous borelog parse jobs: download the raw
// upload, run the document parser, and persist the parsed strata plus a
// depth index next to the upload.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/strataworks/borevault/internal/borelog"
	"github.com/strataworks/borevault/internal/errors"
	"github.com/strataworks/borevault/internal/objectstore"
	"github.com/strataworks/borevault/internal/observability"
)

// Job statuses reported to the caller.
const (
	StatusOK      = "OK"
	StatusParsed  = "PARSED"
	StatusSkipped = "SKIPPED"
)

// Message is one parse request. Uploading clients are inconsistent about
// key casing, hence the alternate fields.
type Message struct {
	Bucket         string          `json:"bucket"`
	CSVKey         string          `json:"csvKey"`
	Key            string          `json:"key"`
	ProjectID      string          `json:"project_id"`
	BorelogID      string          `json:"borelog_id"`
	UploadID       string          `json:"upload_id"`
	StructureID    *string         `json:"structure_id"`
	SubstructureID *string         `json:"substructure_id"`
	VersionNo      json.RawMessage `json:"version_no"`
	FileType       string          `json:"fileType"`
	FileTypeAlt    string          `json:"file_type"`
	RequestedBy    *string         `json:"requestedBy"`
	RequestedByAlt *string         `json:"requested_by"`
	CSVData        string          `json:"csv_data"`
}

type eventEnvelope struct {
	Records []struct {
		Body string `json:"body"`
	} `json:"Records"`
}

// Result reports one processed message.
type Result struct {
	Status      string `json:"status"`
	StrataCount int    `json:"strata_count,omitempty"`
	StrataKey   string `json:"strata_key,omitempty"`
	IndexKey    string `json:"index_key,omitempty"`
}

// EventResult reports a whole invocation, batched or direct.
type EventResult struct {
	Status      string `json:"status"`
	Processed   int    `json:"processed"`
	StrataCount int    `json:"strata_count,omitempty"`
	StrataKey   string `json:"strata_key,omitempty"`
	IndexKey    string `json:"index_key,omitempty"`
}

// Borehole is the envelope stored with the parsed strata.
type Borehole struct {
	ProjectID      string           `json:"project_id"`
	StructureID    *string          `json:"structure_id"`
	SubstructureID *string          `json:"substructure_id"`
	BorelogID      string           `json:"borelog_id"`
	VersionNo      int              `json:"version_no"`
	UploadID       string           `json:"upload_id"`
	FileType       string           `json:"file_type"`
	RequestedBy    *string          `json:"requested_by"`
	JobCode        any              `json:"job_code"`
	Metadata       borelog.Metadata `json:"metadata"`
	ParsedAt       string           `json:"parsed_at"`
}

// Worker executes parse jobs against the object store. Parsed artifacts live
// under the stable projects/ key schema, independent of the engine's base
// path.
type Worker struct {
	store   objectstore.Store
	metrics *observability.Metrics
	now     func() time.Time
}

// New creates a worker. metrics may be nil.
func New(store objectstore.Store, metrics *observability.Metrics) *Worker {
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &Worker{store: store, metrics: metrics, now: time.Now}
}

// HandleEvent accepts either a batched event whose records each carry a
// serialized message, or one direct message.
func (w *Worker) HandleEvent(ctx context.Context, raw []byte) (*EventResult, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Records) > 0 {
		// Log only the count; record bodies carry upload contents.
		observability.InfoContext(ctx, "Parse worker invoked", slog.Int("recordCount", len(envelope.Records)))
		for i, record := range envelope.Records {
			if record.Body == "" {
				return nil, errors.New(errors.KindMalformedInput, "record %d missing body", i)
			}
			var msg Message
			if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
				return nil, errors.Wrap(err, errors.KindMalformedInput, "decode record %d body", i)
			}
			if _, err := w.Process(ctx, &msg); err != nil {
				return nil, err
			}
		}
		return &EventResult{Status: StatusOK, Processed: len(envelope.Records)}, nil
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedInput, "decode parse event")
	}
	w.logDirectMessage(ctx, &msg)
	result, err := w.Process(ctx, &msg)
	if err != nil {
		return nil, err
	}
	return &EventResult{
		Status:      result.Status,
		Processed:   1,
		StrataCount: result.StrataCount,
		StrataKey:   result.StrataKey,
		IndexKey:    result.IndexKey,
	}, nil
}

func (w *Worker) logDirectMessage(ctx context.Context, msg *Message) {
	key := msg.CSVKey
	if key == "" {
		key = msg.Key
	}
	csvData := msg.CSVData
	if csvData != "" {
		csvData = "***"
	}
	observability.InfoContext(ctx, "Parse worker invoked",
		slog.String("project.id", msg.ProjectID), slog.String("record.id", msg.BorelogID),
		slog.String("upload.id", msg.UploadID), slog.String("key", key),
		slog.String("csv_data", csvData))
}

// Process runs one parse job end to end.
func (w *Worker) Process(ctx context.Context, msg *Message) (*Result, error) {
	key := msg.CSVKey
	if key == "" {
		key = msg.Key
	}
	if key == "" {
		return nil, errors.New(errors.KindMalformedInput, "document key is required to process parse job")
	}
	if msg.ProjectID == "" || msg.BorelogID == "" || msg.UploadID == "" {
		return nil, errors.New(errors.KindMalformedInput,
			"project_id, borelog_id, and upload_id are required in payload")
	}

	versionNo := parseVersionNo(msg.VersionNo)
	fileType := strings.ToLower(msg.FileType)
	if fileType == "" {
		fileType = strings.ToLower(msg.FileTypeAlt)
	}
	if fileType == "" {
		fileType = "csv"
	}

	base := fmt.Sprintf("projects/%s/borelogs/%s/parsed/v%d", msg.ProjectID, msg.BorelogID, versionNo)
	strataKey := base + "/strata.json"
	indexKey := base + "/index.json"

	ctx = observability.WithProjectID(ctx, msg.ProjectID)
	ctx = observability.WithRecordID(ctx, msg.BorelogID)
	ctx = observability.WithUploadID(ctx, msg.UploadID)

	exists, err := w.store.Head(ctx, strataKey)
	if err != nil {
		return nil, err
	}
	if exists {
		observability.InfoContext(ctx, "Parsed output already exists, skipping", slog.Int("version", versionNo))
		w.metrics.WorkerResults.WithLabelValues("skipped").Inc()
		return &Result{Status: StatusSkipped, StrataKey: strataKey, IndexKey: indexKey}, nil
	}

	data, err := w.store.Get(ctx, key)
	if err != nil {
		w.metrics.WorkerResults.WithLabelValues("failed").Inc()
		return nil, err
	}

	var rows borelog.RowReader
	if fileType == "xlsx" || fileType == "xls" {
		sheetRows, err := borelog.ReadXLSXRows(data)
		if err != nil {
			w.metrics.WorkerResults.WithLabelValues("failed").Inc()
			return nil, err
		}
		rows = borelog.NewSliceRowReader(sheetRows)
	} else {
		rows = borelog.NewCSVRowReader(bytes.NewReader(data))
	}

	metadata, strata, err := borelog.ParseDocument(rows)
	if err != nil {
		w.metrics.WorkerResults.WithLabelValues("failed").Inc()
		return nil, err
	}
	observability.InfoContext(ctx, "Parsed borelog document", slog.Int("strata", len(strata)), slog.String("key", key))

	requestedBy := msg.RequestedBy
	if requestedBy == nil {
		requestedBy = msg.RequestedByAlt
	}
	borehole := &Borehole{
		ProjectID:      msg.ProjectID,
		StructureID:    msg.StructureID,
		SubstructureID: msg.SubstructureID,
		BorelogID:      msg.BorelogID,
		VersionNo:      versionNo,
		UploadID:       msg.UploadID,
		FileType:       fileType,
		RequestedBy:    requestedBy,
		JobCode:        metadata["job_code"],
		Metadata:       metadata,
		ParsedAt:       w.now().UTC().Format("2006-01-02T15:04:05.000000") + "Z",
	}

	strataBody := map[string]any{"borehole": borehole, "strata": strata}
	if err := w.putJSON(ctx, strataKey, strataBody); err != nil {
		return nil, err
	}
	if err := w.putJSON(ctx, indexKey, buildDepthIndex(strata)); err != nil {
		return nil, err
	}
	observability.InfoContext(ctx, "Stored parsed output",
		slog.String("strata_key", strataKey), slog.String("index_key", indexKey))

	w.metrics.WorkerResults.WithLabelValues("parsed").Inc()
	return &Result{
		Status:      StatusParsed,
		StrataCount: len(strata),
		StrataKey:   strataKey,
		IndexKey:    indexKey,
	}, nil
}

func (w *Worker) putJSON(ctx context.Context, key string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshal %s", key)
	}
	return w.store.Put(ctx, key, data, "application/json", true)
}

// parseVersionNo tolerates numbers, numeric strings, null, and garbage.
func parseVersionNo(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 1
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

// buildDepthIndex maps "from-to" depth ranges to stratum ordinals for cheap
// range lookups without re-reading the full parse output.
func buildDepthIndex(strata []*borelog.Stratum) map[string]int {
	index := make(map[string]int)
	for i, stratum := range strata {
		if stratum.DepthFrom == nil || stratum.DepthTo == nil {
			continue
		}
		index[fmt.Sprintf("%.3f-%.3f", *stratum.DepthFrom, *stratum.DepthTo)] = i
	}
	return index
}
