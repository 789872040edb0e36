package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"sort"
	"strings"

	"github.com/Jeffail/gabs/v2"
)

// ErrMalformedEvent is returned when an inbound delivery cannot be decoded.
var ErrMalformedEvent = errors.New("malformed event delivery")

// Decode reads an inbound event delivery. JSON bodies are decoded as is.
// Form bodies use PHP-style nested keys, so data[FIELDS][ID]=5 becomes
// {"data": {"FIELDS": {"ID": "5"}}} and a trailing [] appends to a list.
func Decode(r *http.Request) (map[string]any, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return decodeJSON(r)
	}
	return decodeForm(r)
}

func decodeJSON(r *http.Request) (map[string]any, error) {
	container, err := gabs.ParseJSONDecoder(json.NewDecoder(r.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	event, ok := container.Data().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrMalformedEvent)
	}
	return event, nil
}

func decodeForm(r *http.Request) (map[string]any, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	keys := make([]string, 0, len(r.PostForm))
	for key := range r.PostForm {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	container := gabs.New()
	for _, key := range keys {
		path, appendValue := formPath(key)
		for _, value := range r.PostForm[key] {
			var err error
			if appendValue {
				err = container.ArrayAppend(value, path...)
			} else {
				_, err = container.Set(value, path...)
			}
			if err != nil {
				return nil, fmt.Errorf("%w: key %q: %v", ErrMalformedEvent, key, err)
			}
		}
	}

	event, _ := container.Data().(map[string]any)
	if event == nil {
		event = map[string]any{}
	}
	return event, nil
}

// formPath splits a[b][c] into [a b c]. A trailing [] reports append.
// Keys with unbalanced brackets are taken literally.
func formPath(key string) ([]string, bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}, false
	}

	path := []string{key[:open]}
	rest := key[open:]
	for rest != "" {
		if rest[0] != '[' {
			return []string{key}, false
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []string{key}, false
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}

	if last := path[len(path)-1]; last == "" {
		return path[:len(path)-1], true
	}
	return path, false
}
