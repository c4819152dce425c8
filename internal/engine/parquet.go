package engine

import (
	"bytes"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/strataworks/borevault/internal/errors"
	"github.com/strataworks/borevault/internal/schema"
)

// EncodeFile serializes rows into parquet file bytes without touching the
// object store. Callers that manage their own keys use this directly.
func EncodeFile(s *schema.Schema, rows []Row) ([]byte, error) {
	return encodeRows(s, rows)
}

// DecodeFile deserializes parquet file bytes produced by EncodeFile.
func DecodeFile(s *schema.Schema, data []byte) ([]Row, error) {
	return decodeRows(s, data)
}

// parquetSchema translates a registry schema into a parquet file schema.
func parquetSchema(s *schema.Schema) (*parquet.Schema, error) {
	group := parquet.Group{}
	for _, f := range s.Fields {
		var node parquet.Node
		switch f.Type {
		case schema.TypeString:
			node = parquet.String()
		case schema.TypeInt32:
			node = parquet.Int(32)
		case schema.TypeInt64:
			node = parquet.Int(64)
		case schema.TypeFloat64:
			node = parquet.Leaf(parquet.DoubleType)
		case schema.TypeBool:
			node = parquet.Leaf(parquet.BooleanType)
		case schema.TypeTimestampMS:
			node = parquet.Timestamp(parquet.Millisecond)
		case schema.TypeStringList:
			node = parquet.List(parquet.String())
		default:
			return nil, errors.New(errors.KindInternal, "unsupported column type %s for field %s", f.Type, f.Name)
		}
		if f.Nullable {
			node = parquet.Optional(node)
		}
		group[f.Name] = node
	}
	return parquet.NewSchema(s.Name, group), nil
}

// encodeRows serializes rows into a snappy-compressed parquet file.
func encodeRows(s *schema.Schema, rows []Row) ([]byte, error) {
	ps, err := parquetSchema(s)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[map[string]any](&buf, ps, parquet.Compression(&parquet.Snappy))

	batch := make([]map[string]any, 0, len(rows))
	for i, row := range rows {
		enc, err := encodeRow(s, row)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindSchemaValidation, "row %d", i)
		}
		batch = append(batch, enc)
	}
	if _, err := writer.Write(batch); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "encode rows")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "finalize parquet file")
	}
	return buf.Bytes(), nil
}

// encodeRow converts canonical Go values to the physical representation the
// writer expects. Timestamps become epoch milliseconds.
func encodeRow(s *schema.Schema, row Row) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		v, ok := row[f.Name]
		if !ok || v == nil {
			if !f.Nullable {
				return nil, fmt.Errorf("field %s: required value is null", f.Name)
			}
			out[f.Name] = nil
			continue
		}
		enc, err := encodeValue(f, v)
		if err != nil {
			return nil, err
		}
		out[f.Name] = enc
	}
	return out, nil
}

func encodeValue(f schema.Field, v any) (any, error) {
	switch f.Type {
	case schema.TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %s: expected string, got %T", f.Name, v)
		}
		return s, nil
	case schema.TypeInt32:
		switch n := v.(type) {
		case int32:
			return n, nil
		case int:
			return int32(n), nil
		case int64:
			return int32(n), nil
		}
		return nil, fmt.Errorf("field %s: expected int32, got %T", f.Name, v)
	case schema.TypeInt64:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		}
		return nil, fmt.Errorf("field %s: expected int64, got %T", f.Name, v)
	case schema.TypeFloat64:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, fmt.Errorf("field %s: expected float64, got %T", f.Name, v)
	case schema.TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("field %s: expected bool, got %T", f.Name, v)
		}
		return b, nil
	case schema.TypeTimestampMS:
		switch t := v.(type) {
		case time.Time:
			return t.UnixMilli(), nil
		case int64:
			return t, nil
		}
		return nil, fmt.Errorf("field %s: expected timestamp, got %T", f.Name, v)
	case schema.TypeStringList:
		switch l := v.(type) {
		case []string:
			return l, nil
		case []any:
			out := make([]string, len(l))
			for i, e := range l {
				s, ok := e.(string)
				if !ok {
					return nil, fmt.Errorf("field %s: list element %d is %T, not string", f.Name, i, e)
				}
				out[i] = s
			}
			return out, nil
		}
		return nil, fmt.Errorf("field %s: expected string list, got %T", f.Name, v)
	default:
		return nil, fmt.Errorf("field %s: unsupported type %s", f.Name, f.Type)
	}
}

// decodeRows deserializes a parquet file back into canonical rows.
func decodeRows(s *schema.Schema, data []byte) ([]Row, error) {
	ps, err := parquetSchema(s)
	if err != nil {
		return nil, err
	}

	reader := parquet.NewGenericReader[map[string]any](bytes.NewReader(data), ps)
	defer reader.Close()

	var rows []Row
	buf := make([]map[string]any, 64)
	for {
		n, err := reader.Read(buf)
		for i := 0; i < n; i++ {
			row, derr := decodeRow(s, buf[i])
			if derr != nil {
				return nil, derr
			}
			rows = append(rows, row)
			buf[i] = nil
		}
		if err != nil {
			break
		}
	}
	return rows, nil
}

func decodeRow(s *schema.Schema, raw map[string]any) (Row, error) {
	row := make(Row, len(s.Fields))
	for _, f := range s.Fields {
		v, ok := raw[f.Name]
		if !ok || v == nil {
			row[f.Name] = nil
			continue
		}
		dec, err := decodeValue(f, v)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "decode field %s", f.Name)
		}
		row[f.Name] = dec
	}
	return row, nil
}

// decodeValue normalizes reader output to the canonical Go types.
func decodeValue(f schema.Field, v any) (any, error) {
	switch f.Type {
	case schema.TypeString:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		}
	case schema.TypeInt32:
		switch n := v.(type) {
		case int32:
			return n, nil
		case int64:
			return int32(n), nil
		case int:
			return int32(n), nil
		}
	case schema.TypeInt64:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int32:
			return int64(n), nil
		case int:
			return int64(n), nil
		}
	case schema.TypeFloat64:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		}
	case schema.TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case schema.TypeTimestampMS:
		switch t := v.(type) {
		case int64:
			return time.UnixMilli(t).UTC(), nil
		case time.Time:
			return t.UTC(), nil
		}
	case schema.TypeStringList:
		switch l := v.(type) {
		case []string:
			return l, nil
		case []any:
			out := make([]string, 0, len(l))
			for _, e := range l {
				switch s := e.(type) {
				case string:
					out = append(out, s)
				case []byte:
					out = append(out, string(s))
				default:
					return nil, fmt.Errorf("list element %T", e)
				}
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("unexpected value %T for %s column", v, f.Type)
}
