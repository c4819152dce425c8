package dispatch

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/strataworks/borevault/internal/errors"
)

// ParseEvent normalizes a raw invocation event into a Request. Gateway
// events carry the fields in a JSON body plus path and query parameters;
// direct invocations carry them at the top level. When the same field
// appears in several places, body wins over path, path over query.
func ParseEvent(raw []byte) (*Request, error) {
	var event map[string]any
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedInput, "decode event")
	}

	fields := event
	if isGatewayEvent(event) {
		fields = map[string]any{}
		for _, params := range []string{"queryStringParameters", "pathParameters"} {
			if m, ok := event[params].(map[string]any); ok {
				for k, v := range m {
					fields[k] = v
				}
			}
		}
		if body, ok := event["body"].(string); ok && body != "" {
			var bodyFields map[string]any
			// An unparseable body degrades to path and query fields only.
			if err := json.Unmarshal([]byte(body), &bodyFields); err == nil {
				for k, v := range bodyFields {
					fields[k] = v
				}
			}
		}
	}

	req := &Request{
		Action:     stringField(fields, "action"),
		EntityType: stringField(fields, "entity_type"),
		ProjectID:  stringField(fields, "project_id"),
		EntityID:   stringField(fields, "entity_id"),
		User:       stringField(fields, "user", "created_by", "updated_by"),
		Approver:   stringField(fields, "approver", "approved_by"),
		Rejector:   stringField(fields, "rejector", "rejected_by"),
		Comment:    stringField(fields, "comment"),
		Version:    stringField(fields, "version"),
		Status:     stringField(fields, "status"),

		BorelogID:          stringField(fields, "borelog_id"),
		StratumMetadataKey: stringField(fields, "stratum_metadata_key"),
		StratumDataKey:     stringField(fields, "stratum_data_key"),
		UserID:             stringField(fields, "user_id"),
	}

	for _, key := range []string{"payload", "data"} {
		if m, ok := fields[key].(map[string]any); ok {
			req.Payload = m
			break
		}
	}
	if layers, ok := fields["layers"].([]any); ok {
		req.Layers = layers
	}
	if v, ok := fields["version_no"]; ok && v != nil {
		if raw, err := json.Marshal(v); err == nil {
			req.VersionNo = raw
		}
	}
	return req, nil
}

func isGatewayEvent(event map[string]any) bool {
	_, hasMethod := event["httpMethod"]
	_, hasContext := event["requestContext"]
	return hasMethod || hasContext
}

// stringField returns the first present key rendered as a string. Numbers
// arrive as float64 from the JSON decoder; integral ones print without the
// fractional part so identifiers and versions stay clean.
func stringField(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		switch value := v.(type) {
		case string:
			return strings.TrimSpace(value)
		case float64:
			if value == math.Trunc(value) {
				return strconv.FormatInt(int64(value), 10)
			}
			return strconv.FormatFloat(value, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(value)
		default:
			return strings.TrimSpace(fmt.Sprint(value))
		}
	}
	return ""
}
