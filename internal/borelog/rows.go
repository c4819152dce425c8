package borelog

import (
	"encoding/csv"
	"io"
	"strings"
)

// csvRowReader streams rows from a CSV document without materializing it.
type csvRowReader struct {
	r *csv.Reader
}

// NewCSVRowReader wraps r as a row source. Ragged rows are allowed.
func NewCSVRowReader(r io.Reader) RowReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return &csvRowReader{r: cr}
}

func (c *csvRowReader) Next() ([]string, error) {
	record, err := c.r.Read()
	if err != nil {
		return nil, err
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	return record, nil
}

// sliceRowReader serves pre-read rows, used for spreadsheet input.
type sliceRowReader struct {
	rows [][]string
	pos  int
}

// NewSliceRowReader wraps already-materialized rows as a row source.
func NewSliceRowReader(rows [][]string) RowReader {
	return &sliceRowReader{rows: rows}
}

func (s *sliceRowReader) Next() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}
