// Package params reads operation parameters supplied by the workflow host.
//
// The host hands every operation a map of already-resolved values. Numbers
// may arrive as float64 (JSON), int (Go callers) or strings (form input), so
// the getters coerce the common shapes and fall back to a default otherwise.
package params

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Params is the parameter map of one item.
type Params map[string]any

// Has reports whether key is present and not nil.
func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// Raw returns the untouched value of key.
func (p Params) Raw(key string) any {
	return p[key]
}

// String returns a non-empty string value, formatting numbers.
func (p Params) String(key, def string) string {
	switch t := p[key].(type) {
	case string:
		if t != "" {
			return t
		}
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return def
}

// Int returns an integer value.
func (p Params) Int(key string, def int) int {
	switch t := p[key].(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return i
		}
	}
	return def
}

// Float returns a floating point value.
func (p Params) Float(key string, def float64) float64 {
	switch t := p[key].(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return def
}

// Bool returns a boolean value. "Y"/"N" are accepted besides strconv forms.
func (p Params) Bool(key string, def bool) bool {
	switch t := p[key].(type) {
	case bool:
		return t
	case string:
		switch strings.ToUpper(strings.TrimSpace(t)) {
		case "Y":
			return true
		case "N":
			return false
		}
		if b, err := strconv.ParseBool(t); err == nil {
			return b
		}
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return def
}

// Object returns a nested object (collection) or an empty map.
func (p Params) Object(key string) map[string]any {
	switch t := p[key].(type) {
	case map[string]any:
		return t
	case Params:
		return t
	}
	return map[string]any{}
}

// Nested returns a nested object as Params.
func (p Params) Nested(key string) Params {
	return Params(p.Object(key))
}

// Slice returns a list value or nil.
func (p Params) Slice(key string) []any {
	switch t := p[key].(type) {
	case []any:
		return t
	case []map[string]any:
		return lo.Map(t, func(m map[string]any, _ int) any { return m })
	case []string:
		return lo.Map(t, func(s string, _ int) any { return s })
	}
	return nil
}

// Strings returns a list of strings. A string value is split on commas.
func (p Params) Strings(key string) []string {
	switch t := p[key].(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			if s, ok := it.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		return SplitList(t)
	}
	return nil
}

// SplitList splits a comma-separated list, trimming blanks and dropping
// empty entries.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := lo.Map(strings.Split(s, ","), func(part string, _ int) string {
		return strings.TrimSpace(part)
	})
	return lo.Compact(parts)
}

// YN renders a boolean as the "Y"/"N" flag Bitrix24 expects.
func YN(b bool) string {
	return lo.Ternary(b, "Y", "N")
}

// SetIf copies p[key] into dst[field] when present and non-empty.
func (p Params) SetIf(dst map[string]any, key, field string) {
	v, ok := p[key]
	if !ok || v == nil {
		return
	}
	if s, isStr := v.(string); isStr && s == "" {
		return
	}
	dst[field] = v
}
