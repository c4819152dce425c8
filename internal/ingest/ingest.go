// Package ingest is the bulk CSV entry point: row-by-row validation against
// a table schema, error accumulation, and a single versioned write for the
// rows that survive.
package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/strataworks/borevault/internal/engine"
	"github.com/strataworks/borevault/internal/errors"
	"github.com/strataworks/borevault/internal/observability"
	"github.com/strataworks/borevault/internal/schema"
	"github.com/strataworks/borevault/internal/versioned"
)

// RowError describes one failed cell.
type RowError struct {
	Row   int    `json:"row"`
	Field string `json:"field"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error"`
}

// FieldSummary aggregates errors per field across the whole file.
type FieldSummary struct {
	Count  int      `json:"count"`
	Errors []string `json:"errors"`
}

// Result reports the ingest outcome, partial failures included.
type Result struct {
	TotalRows    int                      `json:"total_rows"`
	ValidRows    int                      `json:"valid_rows"`
	InvalidRows  int                      `json:"invalid_rows"`
	RecordID     string                   `json:"record_id,omitempty"`
	Version      int                      `json:"version,omitempty"`
	FilePath     string                   `json:"file_path,omitempty"`
	Errors       []RowError               `json:"errors"`
	ErrorSummary map[string]*FieldSummary `json:"error_summary"`
}

// Options selects the target table and record.
type Options struct {
	TableName string
	// RecordID selects the versioned record to create or update. Empty means
	// a one-shot unversioned write under ingest/{table}.
	RecordID   string
	CreatedBy string
	Comment   string
	// SkipErrors keeps validating past invalid rows. Without it, validation
	// stops at the first invalid row; rows already validated are still stored.
	SkipErrors bool
}

// Ingestor validates and stores CSV uploads.
type Ingestor struct {
	eng     *engine.Engine
	storage *versioned.Storage
	metrics *observability.Metrics
}

// New creates an ingestor. metrics may be nil.
func New(eng *engine.Engine, storage *versioned.Storage, metrics *observability.Metrics) *Ingestor {
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &Ingestor{eng: eng, storage: storage, metrics: metrics}
}

// IngestFile reads and ingests a CSV file from the local filesystem.
func (in *Ingestor) IngestFile(ctx context.Context, path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedInput, "read %s", path)
	}
	return in.IngestCSV(ctx, data, opts)
}

// IngestCSV parses raw CSV bytes and ingests the rows. Input that is not
// valid UTF-8 is decoded as Windows-1252, the usual spreadsheet export
// fallback.
func (in *Ingestor) IngestCSV(ctx context.Context, data []byte, opts Options) (*Result, error) {
	rows, err := parseCSV(data)
	if err != nil {
		return nil, err
	}
	return in.IngestRows(ctx, rows, opts)
}

// IngestRows validates each row against the table schema, then writes the
// valid rows as one versioned update (or a one-shot file when no record id
// is given). Zero valid rows means zero storage mutation.
func (in *Ingestor) IngestRows(ctx context.Context, rows []map[string]any, opts Options) (*Result, error) {
	sch, ok := schema.Lookup(opts.TableName)
	if !ok {
		return nil, errors.New(errors.KindMalformedInput, "no schema found for table: %s", opts.TableName)
	}

	result := &Result{
		TotalRows:    len(rows),
		Errors:       []RowError{},
		ErrorSummary: map[string]*FieldSummary{},
	}

	var valid []engine.Row
	for i, raw := range rows {
		coerced, rowErrs := coerceRow(sch, i, raw)
		if len(rowErrs) == 0 {
			valid = append(valid, coerced)
			in.metrics.IngestRows.WithLabelValues("valid").Inc()
			continue
		}
		in.metrics.IngestRows.WithLabelValues("invalid").Inc()
		result.InvalidRows++
		for _, re := range rowErrs {
			result.Errors = append(result.Errors, re)
			sum := result.ErrorSummary[re.Field]
			if sum == nil {
				sum = &FieldSummary{}
				result.ErrorSummary[re.Field] = sum
			}
			sum.Count++
			sum.Errors = append(sum.Errors, re.Error)
		}
		if !opts.SkipErrors {
			// Stop at the first invalid row; the valid prefix is still stored
			// and the error entries report what was left behind.
			slog.Warn("CSV upload stopped at first invalid row",
				"table", opts.TableName, "row", i, "error", rowErrs[0].Error)
			break
		}
	}
	result.ValidRows = len(valid)

	if len(valid) == 0 {
		slog.Warn("CSV upload produced no valid rows",
			"table", opts.TableName, "total", result.TotalRows, "errors", len(result.Errors))
		return result, nil
	}

	comment := opts.Comment
	if comment == "" {
		comment = fmt.Sprintf("Bulk CSV upload: %d rows, %d errors", result.ValidRows, result.InvalidRows)
	}

	if opts.RecordID == "" {
		tbl := engine.NewTable(sch, valid)
		path, err := in.eng.Write(ctx, "ingest/"+opts.TableName+"/upload.parquet", tbl, sch)
		if err != nil {
			return result, err
		}
		result.FilePath = path
		return result, nil
	}

	result.RecordID = opts.RecordID
	var meta *versioned.Metadata
	var err error
	if _, err = in.storage.GetMetadata(ctx, opts.RecordID); errors.IsNotFound(err) {
		meta, err = in.storage.CreateRecord(ctx, opts.RecordID, valid, opts.TableName, opts.CreatedBy, comment)
	} else if err == nil {
		meta, err = in.storage.UpdateRecord(ctx, opts.RecordID, valid, opts.CreatedBy, comment)
	}
	if err != nil {
		return result, err
	}
	result.Version = meta.CurrentVersion
	result.FilePath = in.storage.VersionFileKey(opts.RecordID, meta.CurrentVersion)
	slog.Info("Ingested CSV upload", "record.id", opts.RecordID,
		"version", meta.CurrentVersion, "rows", result.ValidRows, "errors", len(result.Errors))
	return result, nil
}

// coerceRow validates and converts one raw row. Empty strings count as null.
// Unparseable cells on nullable fields fall back to null instead of failing
// the row.
func coerceRow(sch *schema.Schema, index int, raw map[string]any) (engine.Row, []RowError) {
	var rowErrs []RowError
	row := make(engine.Row, len(sch.Fields))
	for _, f := range sch.Fields {
		v := raw[f.Name]
		if s, ok := v.(string); ok && s == "" {
			v = nil
		}
		if v == nil {
			if !f.Nullable {
				rowErrs = append(rowErrs, RowError{
					Row: index, Field: f.Name,
					Error: "Required field is missing or null",
				})
				continue
			}
			row[f.Name] = nil
			continue
		}
		parsed, err := schema.ParseValue(f, v)
		if err != nil {
			if f.Nullable {
				row[f.Name] = nil
			}
			rowErrs = append(rowErrs, RowError{
				Row: index, Field: f.Name, Value: v, Error: err.Error(),
			})
			continue
		}
		row[f.Name] = parsed
	}
	return row, rowErrs
}

// parseCSV turns CSV bytes into header-keyed row maps.
func parseCSV(data []byte) ([]map[string]any, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindMalformedInput, "decode CSV input")
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedInput, "read CSV header")
	}

	var rows []map[string]any
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.KindMalformedInput, "read CSV row %d", len(rows)+1)
		}
		row := make(map[string]any, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
