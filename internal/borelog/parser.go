package borelog

import (
	"io"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/strataworks/borevault/internal/errors"
)

// ParseDocument consumes the row sequence and returns borehole metadata plus
// the stratum tree. Dialect detection happens on the fly: the first row that
// looks like a structured header or a template header decides the path.
func ParseDocument(rows RowReader) (Metadata, []*Stratum, error) {
	var metadataRows [][]string
	for {
		row, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.KindMalformedInput, "read document row")
		}
		normalized := normalizeRow(row)
		if !hasMeaningfulData(normalized) {
			continue
		}

		if looksLikeStructuredHeader(normalized) {
			return parseStructured(rows, normalized)
		}

		metadataRows = append(metadataRows, normalized)
		if looksLikeTemplateHeader(normalized) {
			return parseTemplate(metadataRows, normalized, rows)
		}
	}
	return nil, nil, errors.New(errors.KindMalformedInput,
		"failed to detect borelog header: expected structured columns "+
			"(project_name, stratum_description, ...) or a template header "+
			"containing 'Description of Soil Stratum'")
}

func normalizeRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}

func hasMeaningfulData(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return true
		}
	}
	return false
}

func looksLikeStructuredHeader(row []string) bool {
	seen := map[string]bool{}
	for _, cell := range row {
		if cell != "" {
			seen[strings.ToLower(cell)] = true
		}
	}
	return seen["project_name"] && seen["stratum_description"] && seen["stratum_depth_from"]
}

func looksLikeTemplateHeader(row []string) bool {
	var parts []string
	for _, cell := range row {
		if cell != "" {
			parts = append(parts, strings.ToLower(cell))
		}
	}
	joined := strings.Join(parts, " ")
	return strings.Contains(joined, "description of soil stratum") && strings.Contains(joined, "depth")
}

// Structured dialect: header row of machine names, one metadata row, then
// stratum/sample rows keyed by the header.

func parseStructured(rows RowReader, header []string) (Metadata, []*Stratum, error) {
	slog.Info("Structured borelog document detected", "columns", len(header))

	var metadataRecord map[string]string
	var strataRecords []map[string]string
	for {
		row, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.KindMalformedInput, "read document row")
		}
		normalized := normalizeRow(row)
		if len(normalized) == 0 {
			continue
		}
		record := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(normalized) {
				record[col] = normalized[i]
			} else {
				record[col] = ""
			}
		}
		if metadataRecord == nil {
			metadataRecord = record
			continue
		}
		strataRecords = append(strataRecords, record)
	}

	if metadataRecord == nil {
		return nil, nil, errors.New(errors.KindMalformedInput, "structured document missing metadata row")
	}
	return buildStructuredMetadata(metadataRecord), buildStructuredStrata(strataRecords), nil
}

func buildStructuredMetadata(record map[string]string) Metadata {
	pick := func(key string) *string {
		if v := strings.TrimSpace(record[key]); v != "" {
			return &v
		}
		return nil
	}
	location := ""
	if v := pick("location"); v != nil {
		location = *v
	}
	status := "draft"
	if v := pick("status"); v != nil {
		status = *v
	}
	return Metadata{
		"project_name":              pick("project_name"),
		"job_code":                  pick("job_code"),
		"chainage_km":               safeNumber(pick("chainage_km")),
		"borehole_no":               pick("borehole_no"),
		"msl":                       safeNumber(pick("msl")),
		"method_of_boring":          pick("method_of_boring"),
		"diameter_of_hole":          pick("diameter_of_hole"),
		"section_name":              pick("section_name"),
		"location":                  location,
		"coordinate_e":              pick("coordinate_e"),
		"coordinate_l":              pick("coordinate_l"),
		"commencement_date":         pick("commencement_date"),
		"completion_date":           pick("completion_date"),
		"standing_water_level":      pick("standing_water_level"),
		"termination_depth":         pick("termination_depth"),
		"permeability_tests_count":  safeInt(pick("permeability_tests_count")),
		"spt_tests_count":           safeInt(pick("spt_tests_count")),
		"vs_tests_count":            safeInt(pick("vs_tests_count")),
		"undisturbed_samples_count": safeInt(pick("undisturbed_samples_count")),
		"disturbed_samples_count":   safeInt(pick("disturbed_samples_count")),
		"water_samples_count":       safeInt(pick("water_samples_count")),
		"version_number":            safeInt(pick("version_number")),
		"status":                    status,
		"remarks":                   pick("remarks"),
	}
}

type stratumKey struct {
	from, to    float64
	description string
}

// buildStructuredStrata groups rows sharing (depth_from, depth_to,
// description) into one stratum and attaches each row's sample data to it.
func buildStructuredStrata(records []map[string]string) []*Stratum {
	var strata []*Stratum
	index := map[stratumKey]*Stratum{}

	for _, record := range records {
		description := strings.TrimSpace(record["stratum_description"])
		depthFrom := safeNumber(cellPtr(record["stratum_depth_from"]))
		depthTo := safeNumber(cellPtr(record["stratum_depth_to"]))
		if description == "" || depthFrom == nil || depthTo == nil {
			continue
		}

		key := stratumKey{from: *depthFrom, to: *depthTo, description: description}
		stratum := index[key]
		if stratum == nil {
			thickness := safeNumber(cellPtr(record["stratum_thickness_m"]))
			if thickness == nil {
				thickness = calcThickness(*depthFrom, *depthTo)
			}
			stratum = &Stratum{
				Description:         description,
				DepthFrom:           depthFrom,
				DepthTo:             depthTo,
				Thickness:           thickness,
				ColourOfReturnWater: safeString(cellPtr(record["return_water_colour"])),
				WaterLoss:           safeString(cellPtr(record["water_loss"])),
				DiameterOfBorehole:  safeString(cellPtr(record["borehole_diameter"])),
				Remarks:             safeString(cellPtr(record["remarks"])),
				TCRPercent:          safeNumber(cellPtr(record["tcr_percent"])),
				RQDPercent:          safeNumber(cellPtr(record["rqd_percent"])),
				Samples:             []*Sample{},
			}
			index[key] = stratum
			strata = append(strata, stratum)
		} else if stratum.Remarks == nil {
			stratum.Remarks = safeString(cellPtr(record["remarks"]))
		}

		if sample := buildStructuredSample(record); sample != nil {
			stratum.Samples = append(stratum.Samples, sample)
		}
	}
	return strata
}

func buildStructuredSample(record map[string]string) *Sample {
	sampleType := safeString(cellPtr(record["sample_event_type"]))
	sampleDepth := safeNumber(cellPtr(record["sample_event_depth_m"]))
	runLength := safeNumber(cellPtr(record["run_length_m"]))
	blows := []*float64{
		safeNumber(cellPtr(record["spt_blows_1"])),
		safeNumber(cellPtr(record["spt_blows_2"])),
		safeNumber(cellPtr(record["spt_blows_3"])),
	}
	nValue := safeString(cellPtr(record["n_value_is_2131"]))
	totalCore := safeNumber(cellPtr(record["total_core_length_cm"]))
	tcr := safeNumber(cellPtr(record["tcr_percent"]))
	rqdLength := safeNumber(cellPtr(record["rqd_length_cm"]))
	rqdPercent := safeNumber(cellPtr(record["rqd_percent"]))
	remarks := safeString(cellPtr(record["remarks"]))

	if sampleType == nil && sampleDepth == nil && runLength == nil &&
		totalCore == nil && tcr == nil && rqdLength == nil && rqdPercent == nil &&
		!anyBlow(blows) && remarks == nil {
		return nil
	}
	return &Sample{
		SampleEventType:   sampleType,
		SampleEventDepthM: sampleDepth,
		RunLengthM:        runLength,
		Penetration15CM:   blows,
		NValue:            nValue,
		TotalCoreLengthCM: totalCore,
		TCRPercent:        tcr,
		RQDLengthCM:       rqdLength,
		RQDPercent:        rqdPercent,
		Remarks:           remarks,
	}
}

// Template dialect: metadata scattered above the header, a possible
// sub-header with precise From/To/Thickness labels, then stratum rows.

func parseTemplate(metadataRows [][]string, header []string, rows RowReader) (Metadata, []*Stratum, error) {
	slog.Info("Template-style borelog document detected", "columns", len(header))
	metadata := buildTemplateMetadata(metadataRows)

	var remaining [][]string
	for {
		row, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.KindMalformedInput, "read document row")
		}
		remaining = append(remaining, normalizeRow(row))
	}

	mappingRow := header
	dataStart := 0
	if len(remaining) > 0 && isPreciseSubHeader(remaining[0]) {
		mappingRow = remaining[0]
		dataStart = 1
		slog.Debug("Template sub-header row supersedes main header")
	}
	columnMap := buildTemplateColumnMap(mappingRow)

	strata := buildTemplateStrata(remaining[dataStart:], columnMap)
	return metadata, strata, nil
}

// isPreciseSubHeader reports whether the row directly under the main header
// carries its own column labels (a "From" cell and a "To" cell).
func isPreciseSubHeader(row []string) bool {
	hasFrom, hasTo := false, false
	for _, cell := range row {
		lowered := strings.ToLower(cell)
		if strings.Contains(lowered, "from") {
			hasFrom = true
		}
		if strings.Contains(lowered, "to") && lowered != "total" {
			hasTo = true
		}
	}
	return hasFrom && hasTo
}

var templateLabelMap = map[string]string{
	"project name":              "project_name",
	"job code":                  "job_code",
	"section name":              "section_name",
	"chainage":                  "chainage_km",
	"location":                  "location",
	"borehole no":               "borehole_no",
	"commencement date":         "commencement_date",
	"completion date":           "completion_date",
	"method of boring":          "method_of_boring",
	"diameter of hole":          "diameter_of_hole",
	"standing water level":      "standing_water_level",
	"termination depth":         "termination_depth",
	"mean sea level":            "mean_sea_level",
	"no. of permeabilty test":   "permeability_tests_count",
	"no. of sp test":            "spt_tests_count",
	"no. of undisturbed sample": "undisturbed_samples_count",
	"no. of disturbed sample":   "disturbed_samples_count",
	"no. of water sample":       "water_samples_count",
}

var templateNumberKeys = []string{"chainage_km", "standing_water_level", "termination_depth", "mean_sea_level"}

var templateCountKeys = []string{
	"permeability_tests_count", "spt_tests_count", "undisturbed_samples_count",
	"disturbed_samples_count", "water_samples_count",
}

// buildTemplateMetadata walks the rows above the header. Two conventions are
// supported: "Label: value" inside one cell, and a label cell followed by a
// value cell. First value wins.
func buildTemplateMetadata(rows [][]string) Metadata {
	values := map[string]string{}

	for _, row := range rows {
		for idx, cell := range row {
			if strings.Contains(cell, ":") {
				label, value, _ := strings.Cut(cell, ":")
				key := templateLabelMap[strings.ToLower(strings.TrimSpace(label))]
				if key != "" && values[key] == "" {
					values[key] = strings.TrimSpace(value)
				}
				continue
			}
			key := templateLabelMap[strings.ToLower(cell)]
			if key != "" && idx+1 < len(row) {
				if value := strings.TrimSpace(row[idx+1]); value != "" && values[key] == "" {
					values[key] = value
				}
			}
		}
	}

	metadata := Metadata{}
	for _, key := range []string{
		"project_name", "job_code", "section_name", "borehole_no",
		"commencement_date", "completion_date", "method_of_boring",
		"diameter_of_hole",
	} {
		metadata[key] = safeString(cellPtr(values[key]))
	}
	for _, key := range templateNumberKeys {
		metadata[key] = safeNumber(cellPtr(values[key]))
	}
	for _, key := range templateCountKeys {
		metadata[key] = safeInt(cellPtr(values[key]))
	}
	metadata["location"] = values["location"]
	return metadata
}

// buildTemplateColumnMap matches lowered header cells against substring
// predicates to find each semantic column's index.
func buildTemplateColumnMap(row []string) map[string]int {
	columnMap := map[string]int{}
	set := func(name string, idx int) {
		if _, ok := columnMap[name]; !ok {
			columnMap[name] = idx
		}
	}

	for idx, header := range row {
		lowered := strings.ToLower(strings.TrimSpace(header))
		switch {
		case strings.Contains(lowered, "description of soil stratum"):
			columnMap["description"] = idx
		case lowered == "from" || (strings.HasPrefix(lowered, "from") && !strings.Contains(lowered, "depth")):
			columnMap["depth_from"] = idx
		case lowered == "to" || (strings.HasPrefix(lowered, "to") && !strings.Contains(lowered, "depth") && !strings.Contains(lowered, "total")):
			columnMap["depth_to"] = idx
		case strings.Contains(lowered, "depth") && strings.Contains(lowered, "from"):
			set("depth_from", idx)
		case strings.Contains(lowered, "depth") && strings.Contains(lowered, "to") && !strings.Contains(lowered, "total"):
			set("depth_to", idx)
		case strings.Contains(lowered, "thickness"):
			columnMap["thickness"] = idx
		case strings.Contains(lowered, "sample") && strings.Contains(lowered, "type"):
			columnMap["sample_type"] = idx
		case strings.Contains(lowered, "sample") && (strings.Contains(lowered, "depth") || strings.Contains(lowered, "(m)")):
			set("sample_depth", idx)
		case strings.Contains(lowered, "run length"):
			columnMap["run_length"] = idx
		case strings.Contains(lowered, "15 cm"):
			if _, ok := columnMap["spt_blows_1"]; !ok {
				columnMap["spt_blows_1"] = idx
			} else if _, ok := columnMap["spt_blows_2"]; !ok {
				columnMap["spt_blows_2"] = idx
			} else if _, ok := columnMap["spt_blows_3"]; !ok {
				columnMap["spt_blows_3"] = idx
			}
			set("spt_blows", idx)
		case strings.Contains(lowered, "n - value") || strings.Contains(lowered, "n value") || strings.Contains(lowered, "is - 2131"):
			columnMap["n_value"] = idx
		case strings.Contains(lowered, "total core length"):
			columnMap["total_core_length"] = idx
		case strings.Contains(lowered, "tcr") && strings.Contains(lowered, "%"):
			columnMap["tcr_percent"] = idx
		case strings.Contains(lowered, "rqd length"):
			columnMap["rqd_length"] = idx
		case strings.Contains(lowered, "rqd (%)") || strings.Contains(lowered, "rqd %"):
			columnMap["rqd_percent"] = idx
		case strings.Contains(lowered, "colour of return water") || strings.Contains(lowered, "color of return water"):
			columnMap["return_water_colour"] = idx
		case strings.Contains(lowered, "diameter") && strings.Contains(lowered, "bore hole"):
			columnMap["borehole_diameter"] = idx
		case strings.Contains(lowered, "water loss"):
			columnMap["water_loss"] = idx
		case strings.Contains(lowered, "remarks"):
			columnMap["remarks"] = idx
		}
	}
	return columnMap
}

var descriptionDepthPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*[-–]\s*(\d+(?:\.\d+)?)\s*m?`)

func buildTemplateStrata(rows [][]string, columnMap map[string]int) []*Stratum {
	var strata []*Stratum
	var current *Stratum

	for _, row := range rows {
		if !hasMeaningfulData(row) {
			continue
		}
		if isTemplateFooter(row) {
			break
		}
		if isSubHeaderRow(row) {
			continue
		}

		description := valueFromRow(row, columnMap, "description")
		depthFrom := safeNumber(valueFromRow(row, columnMap, "depth_from"))
		depthTo := safeNumber(valueFromRow(row, columnMap, "depth_to"))
		thickness := safeNumber(valueFromRow(row, columnMap, "thickness"))

		// Depths embedded in the description, e.g. "Silty clay 0.0-3.5m"
		if description != nil && (depthFrom == nil || depthTo == nil) {
			if loc := descriptionDepthPattern.FindStringSubmatchIndex(*description); loc != nil {
				if depthFrom == nil {
					if f, err := strconv.ParseFloat((*description)[loc[2]:loc[3]], 64); err == nil {
						depthFrom = &f
					}
				}
				if depthTo == nil {
					if f, err := strconv.ParseFloat((*description)[loc[4]:loc[5]], 64); err == nil {
						depthTo = &f
					}
				}
				if clean := strings.TrimSpace((*description)[:loc[0]]); clean != "" {
					description = &clean
				}
			}
		}

		hasFromTo := depthFrom != nil && depthTo != nil
		isStratumRow := description != nil && (hasFromTo || thickness != nil)

		if isStratumRow {
			if thickness == nil && hasFromTo {
				thickness = calcThickness(*depthFrom, *depthTo)
			} else if !hasFromTo {
				depthFrom, depthTo = nil, nil
			}
			current = &Stratum{
				Description:         strings.TrimSpace(*description),
				DepthFrom:           depthFrom,
				DepthTo:             depthTo,
				Thickness:           thickness,
				ColourOfReturnWater: safeString(valueFromRow(row, columnMap, "return_water_colour")),
				WaterLoss:           safeString(valueFromRow(row, columnMap, "water_loss")),
				DiameterOfBorehole:  safeString(valueFromRow(row, columnMap, "borehole_diameter")),
				Remarks:             safeString(valueFromRow(row, columnMap, "remarks")),
				TCRPercent:          safeNumber(valueFromRow(row, columnMap, "tcr_percent")),
				RQDPercent:          safeNumber(valueFromRow(row, columnMap, "rqd_percent")),
				Samples:             []*Sample{},
			}
			strata = append(strata, current)
			if sample := buildTemplateSample(row, columnMap); sample != nil {
				current.Samples = append(current.Samples, sample)
			}
			continue
		}

		if current != nil {
			if sample := buildTemplateSample(row, columnMap); sample != nil {
				current.Samples = append(current.Samples, sample)
			}
		}
	}
	return strata
}

var subHeaderKeywords = []string{
	"from", "to", "thickness", "type", "depth", "sample", "event",
	"run length", "15 cm", "n - value", "total core", "tcr", "rqd",
	"colour", "water", "diameter", "remarks",
}

var digitPattern = regexp.MustCompile(`\d`)

// isSubHeaderRow catches stray label rows inside the data block: header-like
// keywords, no digits, at most five non-empty cells.
func isSubHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	nonEmpty := 0
	var parts []string
	for _, cell := range row {
		if cell == "" {
			continue
		}
		nonEmpty++
		parts = append(parts, strings.ToLower(cell))
		if digitPattern.MatchString(cell) {
			return false
		}
	}
	joined := strings.Join(parts, " ")
	for _, keyword := range subHeaderKeywords {
		if strings.Contains(joined, keyword) {
			return nonEmpty <= 5
		}
	}
	return false
}

func isTemplateFooter(row []string) bool {
	joined := strings.ToLower(strings.Join(row, " "))
	for _, marker := range []string{"termination depth", "total depth", "end of log"} {
		if strings.Contains(joined, marker) {
			return true
		}
	}
	return false
}

func buildTemplateSample(row []string, columnMap map[string]int) *Sample {
	sampleType := valueFromRow(row, columnMap, "sample_type")
	sampleDepth := safeNumber(valueFromRow(row, columnMap, "sample_depth"))
	runLength := safeNumber(valueFromRow(row, columnMap, "run_length"))

	var blows []*float64
	for _, name := range []string{"spt_blows_1", "spt_blows_2", "spt_blows_3"} {
		if _, ok := columnMap[name]; ok {
			blows = append(blows, safeNumber(valueFromRow(row, columnMap, name)))
		}
	}
	if len(blows) == 0 {
		if _, ok := columnMap["spt_blows"]; ok {
			blows = parseSPTBlows(valueFromRow(row, columnMap, "spt_blows"))
		}
	}
	for len(blows) < 3 {
		blows = append(blows, nil)
	}
	blows = blows[:3]

	nValue := valueFromRow(row, columnMap, "n_value")
	totalCore := safeNumber(valueFromRow(row, columnMap, "total_core_length"))
	tcr := safeNumber(valueFromRow(row, columnMap, "tcr_percent"))
	rqdLength := safeNumber(valueFromRow(row, columnMap, "rqd_length"))
	rqdPercent := safeNumber(valueFromRow(row, columnMap, "rqd_percent"))
	remarks := valueFromRow(row, columnMap, "remarks")

	if !meaningful(sampleType) && sampleDepth == nil && runLength == nil &&
		totalCore == nil && tcr == nil && rqdLength == nil && rqdPercent == nil &&
		!anyBlow(blows) && !meaningful(nValue) && !meaningful(remarks) {
		return nil
	}
	return &Sample{
		SampleEventType:   safeString(sampleType),
		SampleEventDepthM: sampleDepth,
		RunLengthM:        runLength,
		Penetration15CM:   blows,
		NValue:            safeString(nValue),
		TotalCoreLengthCM: totalCore,
		TCRPercent:        tcr,
		RQDLengthCM:       rqdLength,
		RQDPercent:        rqdPercent,
		Remarks:           safeString(remarks),
	}
}

var sptSplitPattern = regexp.MustCompile(`[,\s]+`)

// parseSPTBlows splits a combined blow-count cell like "12 15 18" or
// "12,15,18" into exactly three values.
func parseSPTBlows(value *string) []*float64 {
	if value == nil {
		return nil
	}
	parts := sptSplitPattern.Split(*value, -1)
	var blows []*float64
	for _, part := range parts {
		if len(blows) == 3 {
			break
		}
		blows = append(blows, safeNumber(cellPtr(part)))
	}
	return blows
}

func valueFromRow(row []string, columnMap map[string]int, name string) *string {
	idx, ok := columnMap[name]
	if !ok || idx >= len(row) {
		return nil
	}
	return cellPtr(row[idx])
}

func cellPtr(cell string) *string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	return &cell
}

func anyBlow(blows []*float64) bool {
	for _, b := range blows {
		if b != nil {
			return true
		}
	}
	return false
}

// Sentinel cells the spreadsheet exports produce for absent numeric data.
var numericSentinels = map[string]bool{
	"-": true, "#VALUE!": true, "[object Object]": true,
}

// safeNumber parses a numeric cell, mapping sentinels to null. Zero is a
// valid value, not a sentinel.
func safeNumber(value *string) *float64 {
	if value == nil {
		return nil
	}
	s := strings.TrimSpace(*value)
	if s == "" || numericSentinels[s] {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func safeInt(value *string) *int {
	f := safeNumber(value)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

func safeString(value *string) *string {
	if value == nil {
		return nil
	}
	s := strings.TrimSpace(*value)
	if s == "" {
		return nil
	}
	return &s
}

// meaningful reports whether a string cell carries sample data; the dash
// placeholder does not count.
func meaningful(value *string) bool {
	s := safeString(value)
	return s != nil && *s != "-"
}

func calcThickness(depthFrom, depthTo float64) *float64 {
	t := math.Round((depthTo-depthFrom)*1000) / 1000
	return &t
}
