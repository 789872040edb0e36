package customfield

import (
	"fmt"
	"strconv"
)

// InputsFromParams reads the host collection shape {"field": [{...}, ...]}.
// Keys that are absent stay nil so the selector can fall back.
func InputsFromParams(raw map[string]any) []Input {
	rows, _ := raw["field"].([]any)
	out := make([]Input, 0, len(rows))
	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		in := Input{Value: row["value"]}
		if v, ok := row["fieldName"]; ok && v != nil {
			in.FieldName = fmt.Sprint(v)
		}
		if v, ok := row["valueString"]; ok && v != nil {
			s := fmt.Sprint(v)
			in.ValueString = &s
		}
		if v, ok := row["valueNumber"]; ok && v != nil {
			if n, ok := toFloat(v); ok {
				in.ValueNumber = &n
			}
		}
		if v, ok := row["valueBoolean"]; ok && v != nil {
			if b, ok := v.(bool); ok {
				in.ValueBoolean = &b
			}
		}
		if v, ok := row["valueDate"]; ok && v != nil {
			s := fmt.Sprint(v)
			in.ValueDate = &s
		}
		out = append(out, in)
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

// RawFields copies the collection as fieldName → value without type
// decoding. Lead and company forms send custom fields this way.
func RawFields(raw map[string]any) map[string]any {
	rows, _ := raw["field"].([]any)
	out := make(map[string]any, len(rows))
	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		name, _ := row["fieldName"].(string)
		if name == "" {
			continue
		}
		out[name] = row["value"]
	}
	return out
}

// DefaultValueType is used for multi-field entries without an explicit type.
const DefaultValueType = "WORK"

// MultiField converts a phone or email collection ({itemKey: [{VALUE,
// VALUE_TYPE}]}) into the Bitrix24 multi-field list. It returns nil when the
// collection is empty so the field is left out of the request.
func MultiField(raw map[string]any, itemKey string) []map[string]any {
	rows, _ := raw[itemKey].([]any)
	if len(rows) == 0 {
		return nil
	}
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		row, _ := r.(map[string]any)
		value := ""
		if v, ok := row["VALUE"]; ok && v != nil {
			value = fmt.Sprint(v)
		}
		valueType := DefaultValueType
		if v, ok := row["VALUE_TYPE"]; ok && v != nil {
			valueType = fmt.Sprint(v)
		}
		out = append(out, map[string]any{"VALUE": value, "VALUE_TYPE": valueType})
	}
	return out
}

// Wrap turns a scalar into a single-entry multi-field of the default type.
func Wrap(value any) []map[string]any {
	return []map[string]any{{"VALUE": value, "VALUE_TYPE": DefaultValueType}}
}
