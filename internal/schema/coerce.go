package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order when parsing timestamp strings.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseValue coerces a raw cell value to the field's logical type. nil stays
// nil; nullability is the caller's concern. Unparseable values fail.
func ParseValue(f Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case TypeString:
		switch s := v.(type) {
		case string:
			return s, nil
		default:
			return fmt.Sprint(v), nil
		}
	case TypeInt32:
		n, err := parseInt(v)
		if err != nil {
			return nil, err
		}
		return int32(n), nil
	case TypeInt64:
		return parseInt(v)
	case TypeFloat64:
		return parseFloat(v)
	case TypeBool:
		return parseBool(v)
	case TypeTimestampMS:
		return parseTimestamp(v)
	case TypeStringList:
		return parseStringList(v)
	default:
		return nil, fmt.Errorf("unsupported type %s", f.Type)
	}
}

func parseInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("value %v is not an integer", n)
		}
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not an integer", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not an integer", v, v)
	}
}

func parseFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not a number", v, v)
	}
}

func parseBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, fmt.Errorf("value %q is not a boolean", b)
	case int:
		if b == 0 || b == 1 {
			return b == 1, nil
		}
	case float64:
		if b == 0 || b == 1 {
			return b == 1, nil
		}
	}
	return false, fmt.Errorf("value %v (%T) is not a boolean", v, v)
}

func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("value %q is not a timestamp", t)
	default:
		return time.Time{}, fmt.Errorf("value %v (%T) is not a timestamp", v, v)
	}
}

func parseStringList(v any) ([]string, error) {
	switch l := v.(type) {
	case []string:
		return l, nil
	case []any:
		out := make([]string, len(l))
		for i, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("list element %d is %T, not string", i, e)
			}
			out[i] = s
		}
		return out, nil
	case string:
		var out []string
		if err := json.Unmarshal([]byte(l), &out); err != nil {
			return nil, fmt.Errorf("value %q is not a JSON string array", l)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value %v (%T) is not a list", v, v)
	}
}
