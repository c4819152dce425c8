// Package sweep walks the record layout and reports integrity problems:
// version files missing below the current version, orphan files above it,
// and metadata documents that do not parse. It never mutates the store.
package sweep

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/strataworks/borevault/internal/objectstore"
	"github.com/strataworks/borevault/internal/observability"
	"github.com/strataworks/borevault/internal/versioned"
)

// Finding kinds.
const (
	FindingMissingVersion = "missing_version"
	FindingOrphanVersion  = "orphan_version"
	FindingBadMetadata    = "bad_metadata"
	FindingNoMetadata     = "no_metadata"
)

// Finding is one integrity problem on one record.
type Finding struct {
	RecordID string `json:"record_id"`
	Kind     string `json:"kind"`
	Detail   string `json:"detail"`
}

// Report summarizes one sweep run.
type Report struct {
	RecordsChecked int       `json:"records_checked"`
	Findings       []Finding `json:"findings"`
}

// Sweeper reads the record layout under one base path.
type Sweeper struct {
	store   objectstore.Store
	base    string
	metrics *observability.Metrics
}

// New creates a sweeper. metrics may be nil.
func New(store objectstore.Store, basePath string, metrics *observability.Metrics) *Sweeper {
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &Sweeper{store: store, base: basePath, metrics: metrics}
}

// recordState is what the listing tells us about one record before any
// metadata is fetched.
type recordState struct {
	hasMetadata bool
	versions    map[int]bool
}

// Run walks every record once. The listing drives everything; metadata
// documents are fetched only for records that have one.
func (s *Sweeper) Run(ctx context.Context) (*Report, error) {
	prefix := s.base + "/records/"
	keys, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	records := make(map[string]*recordState)
	state := func(id string) *recordState {
		st, ok := records[id]
		if !ok {
			st = &recordState{versions: make(map[int]bool)}
			records[id] = st
		}
		return st
	}

	for _, key := range keys {
		rest := strings.TrimPrefix(key, prefix)
		if id, ok := strings.CutSuffix(rest, "/metadata.json"); ok {
			state(id).hasMetadata = true
			continue
		}
		if id, v, ok := splitVersionKey(rest); ok {
			state(id).versions[v] = true
		}
	}

	report := &Report{RecordsChecked: len(records)}
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		report.Findings = append(report.Findings, s.checkRecord(ctx, id, records[id])...)
	}

	for range report.Findings {
		s.metrics.SweepFindings.Inc()
	}
	observability.InfoContext(ctx, "Sweep finished",
		slog.Int("records", report.RecordsChecked), slog.Int("findings", len(report.Findings)))
	return report, nil
}

func (s *Sweeper) checkRecord(ctx context.Context, id string, st *recordState) []Finding {
	if !st.hasMetadata {
		return []Finding{{
			RecordID: id,
			Kind:     FindingNoMetadata,
			Detail:   fmt.Sprintf("%d version file(s) with no metadata document", len(st.versions)),
		}}
	}

	raw, err := s.store.Get(ctx, s.base+"/records/"+id+"/metadata.json")
	if err != nil {
		return []Finding{{RecordID: id, Kind: FindingBadMetadata, Detail: err.Error()}}
	}
	var meta versioned.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return []Finding{{RecordID: id, Kind: FindingBadMetadata, Detail: err.Error()}}
	}

	var findings []Finding
	for v := 1; v <= meta.CurrentVersion; v++ {
		if !st.versions[v] {
			findings = append(findings, Finding{
				RecordID: id,
				Kind:     FindingMissingVersion,
				Detail:   fmt.Sprintf("version %d of %d is missing", v, meta.CurrentVersion),
			})
		}
	}
	orphans := make([]int, 0)
	for v := range st.versions {
		if v > meta.CurrentVersion {
			orphans = append(orphans, v)
		}
	}
	sort.Ints(orphans)
	for _, v := range orphans {
		findings = append(findings, Finding{
			RecordID: id,
			Kind:     FindingOrphanVersion,
			Detail:   fmt.Sprintf("version %d is beyond current version %d", v, meta.CurrentVersion),
		})
	}
	return findings
}

// splitVersionKey parses "recordID/versions/vN.parquet" relative keys.
func splitVersionKey(rest string) (string, int, bool) {
	idx := strings.LastIndex(rest, "/versions/v")
	if idx < 0 || !strings.HasSuffix(rest, ".parquet") {
		return "", 0, false
	}
	num := strings.TrimSuffix(rest[idx+len("/versions/v"):], ".parquet")
	v, err := strconv.Atoi(num)
	if err != nil || v < 1 {
		return "", 0, false
	}
	return rest[:idx], v, true
}
