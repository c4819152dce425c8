// Package engine writes and reads schema-validated columnar files against
// the object store. Files are immutable: non-versioned paths get a unique
// timestamp suffix, exact paths rely on the store's overwrite guard.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strataworks/borevault/internal/errors"
	"github.com/strataworks/borevault/internal/objectstore"
	"github.com/strataworks/borevault/internal/observability"
	"github.com/strataworks/borevault/internal/schema"
)

const parquetContentType = "application/octet-stream"

// Engine is the columnar storage engine. All paths it accepts are relative
// to basePath.
type Engine struct {
	store    objectstore.Store
	basePath string
	metrics  *observability.Metrics
	now      func() time.Time
}

// New creates an engine over store with keys prefixed by basePath.
func New(store objectstore.Store, basePath string, metrics *observability.Metrics) *Engine {
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &Engine{
		store:    store,
		basePath: strings.TrimSuffix(basePath, "/"),
		metrics:  metrics,
		now:      time.Now,
	}
}

// Store exposes the underlying object store for layers that manage their own
// non-columnar artifacts (metadata documents, parsed JSON).
func (e *Engine) Store() objectstore.Store { return e.store }

// BasePath returns the configured key prefix.
func (e *Engine) BasePath() string { return e.basePath }

func (e *Engine) key(p string) string {
	return e.basePath + "/" + strings.TrimPrefix(p, "/")
}

// uniquePath appends a UTC timestamp and an 8-char token to the filename so
// repeated writes to the same logical path never collide.
func (e *Engine) uniquePath(p string) string {
	dir := path.Dir(p)
	stem := strings.TrimSuffix(path.Base(p), path.Ext(p))
	if stem == "" || stem == "." {
		stem = "data"
	}
	stem = strings.NewReplacer("/", "_", "\\", "_").Replace(stem)
	ts := e.now().UTC().Format("20060102_150405")
	token := uuid.NewString()[:8]
	return fmt.Sprintf("%s/%s_%s_%s.parquet", dir, stem, ts, token)
}

// Write serializes tbl to a new uniquely-named file under the directory of
// p and returns the full key written.
func (e *Engine) Write(ctx context.Context, p string, tbl *Table, expected *schema.Schema) (string, error) {
	key := e.key(e.uniquePath(p))
	if err := e.writeFile(ctx, key, tbl, expected, false); err != nil {
		return "", err
	}
	return key, nil
}

// WriteExact serializes tbl to exactly the given path. Versioned writes use
// this with allowOverwrite=false so concurrent writers collide on the guard.
func (e *Engine) WriteExact(ctx context.Context, p string, tbl *Table, expected *schema.Schema, allowOverwrite bool) (string, error) {
	key := e.key(p)
	if err := e.writeFile(ctx, key, tbl, expected, allowOverwrite); err != nil {
		return "", err
	}
	return key, nil
}

// WritePartitioned splits tbl by the named columns and writes one file per
// partition value set under dir, laid out as col=value/ segments.
func (e *Engine) WritePartitioned(ctx context.Context, dir string, tbl *Table, expected *schema.Schema, partitionCols []string, allowOverwrite bool) ([]string, error) {
	if len(partitionCols) == 0 {
		return nil, errors.New(errors.KindMalformedInput, "partitioned write requires at least one partition column")
	}
	if err := e.validate(tbl, expected); err != nil {
		return nil, err
	}
	for _, col := range partitionCols {
		if tbl.Schema.Field(col) == nil {
			return nil, errors.New(errors.KindSchemaValidation, "partition column %s not in schema %s", col, tbl.Schema.Name)
		}
	}

	groups := make(map[string][]Row)
	var order []string
	for _, row := range tbl.Rows {
		pk := partitionKey(row, partitionCols)
		if _, seen := groups[pk]; !seen {
			order = append(order, pk)
		}
		groups[pk] = append(groups[pk], row)
	}

	base := strings.TrimSuffix(dir, "/")
	var written []string
	for _, pk := range order {
		key := e.key(fmt.Sprintf("%s/%s/data.parquet", base, pk))
		part := &Table{Schema: tbl.Schema, Rows: groups[pk]}
		if err := e.encode(ctx, key, part, allowOverwrite); err != nil {
			return written, err
		}
		written = append(written, key)
	}
	slog.Debug("Wrote partitioned dataset", "dir", base, "partitions", len(written))
	return written, nil
}

func (e *Engine) writeFile(ctx context.Context, key string, tbl *Table, expected *schema.Schema, allowOverwrite bool) error {
	if err := e.validate(tbl, expected); err != nil {
		return err
	}
	return e.encode(ctx, key, tbl, allowOverwrite)
}

func (e *Engine) validate(tbl *Table, expected *schema.Schema) error {
	if tbl == nil || len(tbl.Rows) == 0 {
		return errors.New(errors.KindMalformedInput, "cannot write empty row set")
	}
	if expected != nil {
		if err := Validate(tbl.Schema, expected); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) encode(ctx context.Context, key string, tbl *Table, allowOverwrite bool) error {
	data, err := encodeRows(tbl.Schema, tbl.Rows)
	if err != nil {
		return err
	}
	if err := e.store.Put(ctx, key, data, parquetContentType, allowOverwrite); err != nil {
		return err
	}
	e.metrics.EngineWrites.WithLabelValues(tbl.Schema.Name).Inc()
	e.metrics.EngineRows.WithLabelValues(tbl.Schema.Name).Add(float64(len(tbl.Rows)))
	slog.Debug("Wrote columnar file", "key", key, "rows", len(tbl.Rows), "table", tbl.Schema.Name)
	return nil
}

// Read fetches the file at p and decodes it with the given table schema,
// applying filters after decode.
func (e *Engine) Read(ctx context.Context, p string, s *schema.Schema, filters []Filter) (*Table, error) {
	data, err := e.store.Get(ctx, e.key(p))
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows(s, data)
	if err != nil {
		return nil, err
	}
	rows = applyFilters(rows, filters)
	return &Table{Schema: s, Rows: rows}, nil
}

// Head reports whether the file at p exists.
func (e *Engine) Head(ctx context.Context, p string) (bool, error) {
	return e.store.Head(ctx, e.key(p))
}
