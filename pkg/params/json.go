package params

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sternrassler/bitrix24-client/pkg/logging"
	"github.com/rs/zerolog/log"
)

// ParseOutcome is the result of reading an optional JSON parameter.
// Malformed input never fails an operation: it yields the empty default with
// Defaulted set and the parse failure in Reason.
type ParseOutcome struct {
	Value     any
	Defaulted bool
	Reason    string
}

// Object returns the value as an object, or an empty map.
func (o ParseOutcome) Object() map[string]any {
	if m, ok := o.Value.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// Array returns the value as an array, or an empty slice.
func (o ParseOutcome) Array() []any {
	if a, ok := o.Value.([]any); ok {
		return a
	}
	return []any{}
}

// ParseJSONObject reads an optional JSON object. raw may be a JSON string or
// an already decoded value. Blank input is an empty object without a warning.
func ParseJSONObject(raw any) ParseOutcome {
	v, reason := decode(raw)
	if reason != "" {
		return ParseOutcome{Value: map[string]any{}, Defaulted: true, Reason: reason}
	}
	switch t := v.(type) {
	case nil:
		return ParseOutcome{Value: map[string]any{}}
	case map[string]any:
		return ParseOutcome{Value: t}
	default:
		return ParseOutcome{Value: map[string]any{}, Defaulted: true, Reason: fmt.Sprintf("expected JSON object, got %T", v)}
	}
}

// ParseJSONArray reads an optional JSON array. Blank input is an empty array.
func ParseJSONArray(raw any) ParseOutcome {
	v, reason := decode(raw)
	if reason != "" {
		return ParseOutcome{Value: []any{}, Defaulted: true, Reason: reason}
	}
	switch t := v.(type) {
	case nil:
		return ParseOutcome{Value: []any{}}
	case []any:
		return ParseOutcome{Value: t}
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return ParseOutcome{Value: out}
	default:
		return ParseOutcome{Value: []any{}, Defaulted: true, Reason: fmt.Sprintf("expected JSON array, got %T", v)}
	}
}

// ParseJSON reads an optional JSON value of any shape. Blank input is nil.
func ParseJSON(raw any) ParseOutcome {
	v, reason := decode(raw)
	if reason != "" {
		return ParseOutcome{Defaulted: true, Reason: reason}
	}
	return ParseOutcome{Value: v}
}

func decode(raw any) (any, string) {
	s, ok := raw.(string)
	if !ok {
		return raw, ""
	}
	if strings.TrimSpace(s) == "" {
		return nil, ""
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err.Error()
	}
	return v, ""
}

// JSONObject reads key as an optional JSON object and logs a warning when
// the input had to be replaced by the default.
func (p Params) JSONObject(key string) ParseOutcome {
	return warn(key, ParseJSONObject(p[key]))
}

// JSONArray reads key as an optional JSON array, logging defaulted input.
func (p Params) JSONArray(key string) ParseOutcome {
	return warn(key, ParseJSONArray(p[key]))
}

// JSON reads key as an optional JSON value, logging defaulted input.
func (p Params) JSON(key string) ParseOutcome {
	return warn(key, ParseJSON(p[key]))
}

func warn(key string, o ParseOutcome) ParseOutcome {
	if o.Defaulted {
		log.Warn().
			Str("component", logging.ComponentNode).
			Str("field", key).
			Str("reason", o.Reason).
			Msg("Malformed JSON parameter - using empty default")
	}
	return o
}

// ParseJSONStrict decodes a required-valid JSON parameter. Blank input
// decodes to nil; malformed input is an error naming the field.
func ParseJSONStrict(raw any, field string) (any, error) {
	v, reason := decode(raw)
	if reason != "" {
		return nil, fmt.Errorf("invalid JSON in %s: %s", field, reason)
	}
	return v, nil
}
