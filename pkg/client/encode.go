package client

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// appendQuery flattens value into q using the bracket notation Bitrix24
// parses on its PHP side: filter[ID]=1, select[0]=TITLE.
func appendQuery(q url.Values, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			appendQuery(q, nestedKey(prefix, k), v[k])
		}
	case []any:
		for i, item := range v {
			appendQuery(q, nestedKey(prefix, strconv.Itoa(i)), item)
		}
	case []string:
		for i, item := range v {
			q.Add(nestedKey(prefix, strconv.Itoa(i)), item)
		}
	default:
		if prefix != "" {
			q.Add(prefix, scalarString(v))
		}
	}
}

func nestedKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "[" + key + "]"
}

func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}
