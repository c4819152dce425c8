package borelog

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"github.com/strataworks/borevault/internal/errors"
)

// Minimal XLSX reading: the archive's first worksheet plus the shared-string
// table. Enough for the spreadsheet exports this package parses; anything
// fancier should go through the CSV path.

const sheet1Path = "xl/worksheets/sheet1.xml"

type xlsxSharedStrings struct {
	Items []xlsxStringItem `xml:"si"`
}

type xlsxStringItem struct {
	Text []string      `xml:"t"`
	Runs []xlsxTextRun `xml:"r"`
}

type xlsxTextRun struct {
	Text string `xml:"t"`
}

func (si xlsxStringItem) value() string {
	var b strings.Builder
	for _, t := range si.Text {
		b.WriteString(t)
	}
	for _, r := range si.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

type xlsxWorksheet struct {
	Rows []xlsxRow `xml:"sheetData>row"`
}

type xlsxRow struct {
	Cells []xlsxCell `xml:"c"`
}

type xlsxCell struct {
	Ref    string         `xml:"r,attr"`
	Type   string         `xml:"t,attr"`
	Value  string         `xml:"v"`
	Inline *xlsxInlineStr `xml:"is"`
}

type xlsxInlineStr struct {
	Text []string      `xml:"t"`
	Runs []xlsxTextRun `xml:"r"`
}

var columnRefPattern = regexp.MustCompile(`^[A-Z]+`)

// columnRefToIndex converts a cell reference like "B2" to its zero-based
// column index.
func columnRefToIndex(ref string) int {
	letters := columnRefPattern.FindString(ref)
	if letters == "" {
		return 0
	}
	result := 0
	for _, ch := range letters {
		result = result*26 + int(ch-'A') + 1
	}
	return result - 1
}

// ReadXLSXRows extracts the first worksheet as rows of cell strings. Sparse
// rows are padded to honor each cell reference's column position.
func ReadXLSXRows(data []byte) ([][]string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedInput, "open spreadsheet archive")
	}

	shared, err := readSharedStrings(archive)
	if err != nil {
		return nil, err
	}

	sheetData, err := readArchiveFile(archive, sheet1Path)
	if err != nil {
		return nil, err
	}
	if sheetData == nil {
		return nil, errors.New(errors.KindMalformedInput, "XLSX missing %s", sheet1Path)
	}

	var sheet xlsxWorksheet
	if err := xml.Unmarshal(sheetData, &sheet); err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedInput, "parse %s", sheet1Path)
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		var values []string
		for _, cell := range row.Cells {
			col := columnRefToIndex(cell.Ref)
			for len(values) < col {
				values = append(values, "")
			}
			values = append(values, strings.TrimSpace(cellValue(cell, shared)))
		}
		rows = append(rows, values)
	}
	return rows, nil
}

func readSharedStrings(archive *zip.Reader) ([]string, error) {
	data, err := readArchiveFile(archive, "xl/sharedStrings.xml")
	if err != nil || data == nil {
		return nil, err
	}
	var sst xlsxSharedStrings
	if err := xml.Unmarshal(data, &sst); err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedInput, "parse shared strings")
	}
	strings := make([]string, len(sst.Items))
	for i, si := range sst.Items {
		strings[i] = si.value()
	}
	return strings, nil
}

func readArchiveFile(archive *zip.Reader, name string) ([]byte, error) {
	for _, f := range archive.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrap(err, errors.KindMalformedInput, "open %s", name)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			return nil, errors.Wrap(err, errors.KindMalformedInput, "read %s", name)
		}
		return buf.Bytes(), nil
	}
	return nil, nil
}

func cellValue(cell xlsxCell, shared []string) string {
	switch cell.Type {
	case "s":
		idx, err := strconv.Atoi(cell.Value)
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx]
	case "inlineStr":
		if cell.Inline == nil {
			return ""
		}
		var b strings.Builder
		for _, t := range cell.Inline.Text {
			b.WriteString(t)
		}
		for _, r := range cell.Inline.Runs {
			b.WriteString(r.Text)
		}
		return b.String()
	default:
		return cell.Value
	}
}
