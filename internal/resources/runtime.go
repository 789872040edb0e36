package resources

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Sternrassler/bitrix24-client/pkg/client"
	"github.com/Sternrassler/bitrix24-client/pkg/logging"
	"github.com/Sternrassler/bitrix24-client/pkg/pagination"
	"github.com/Sternrassler/bitrix24-client/pkg/params"
	"github.com/rs/zerolog"
)

// DefaultLimit is the page size used by list operations without a limit.
const DefaultLimit = 50

// Runtime carries the remote caller shared by all operations of one
// invocation.
type Runtime struct {
	caller pagination.PageFetcher
	pages  *pagination.Aggregator
	logger zerolog.Logger
}

// NewRuntime creates a runtime over caller. *client.Client is the usual
// caller.
func NewRuntime(caller pagination.PageFetcher, cfg pagination.Config) *Runtime {
	return &Runtime{
		caller: caller,
		pages:  pagination.NewAggregator(caller, cfg),
		logger: logging.NewLogger(logging.ComponentNode),
	}
}

func (rt *Runtime) post(ctx context.Context, method string, body map[string]any) (*client.Response, error) {
	return rt.caller.Call(ctx, http.MethodPost, method, body, nil)
}

func (rt *Runtime) fetchAll(ctx context.Context, method string, body map[string]any) ([]any, error) {
	return rt.pages.FetchAll(ctx, http.MethodPost, method, body)
}

// list returns every item when limit is 0, and the first page (start=0)
// otherwise. pick selects the items from a single page response; nil takes
// the whole result.
func (rt *Runtime) list(ctx context.Context, method string, body map[string]any, limit int, pick func(*client.Response) any) (map[string]any, error) {
	if limit == 0 {
		items, err := rt.fetchAll(ctx, method, body)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": items, "total": len(items)}, nil
	}

	page := clone(body)
	page["start"] = 0
	res, err := rt.post(ctx, method, page)
	if err != nil {
		return nil, err
	}

	items := res.Value()
	if pick != nil {
		items = pick(res)
	}
	return map[string]any{"items": items, "total": total(res)}, nil
}

// byID builds an operation that sends {bodyKey: p[idParam]} to method and
// shapes the response with out.
func byID(method, idParam, bodyKey string, out func(*client.Response) map[string]any) Operation {
	return func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		id, err := required(p, idParam)
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, method, map[string]any{bodyKey: id})
		if err != nil {
			return nil, err
		}
		return out(res), nil
	}
}

// required returns a non-empty string parameter.
func required(p params.Params, key string) (string, error) {
	v := strings.TrimSpace(p.String(key, ""))
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParameter, key)
	}
	return v, nil
}

func created(res *client.Response) map[string]any {
	return map[string]any{"id": res.Value(), "success": true}
}

func succeeded(res *client.Response) map[string]any {
	return map[string]any{"success": res.Value()}
}

func asObject(res *client.Response) map[string]any {
	return object(res.Value())
}

func listed(res *client.Response) map[string]any {
	return map[string]any{"items": res.Value(), "total": total(res)}
}

func total(res *client.Response) any {
	if res.Total == nil {
		return nil
	}
	return *res.Total
}

// object returns v as an output object. Scalars and lists are wrapped under
// "result"; nil becomes an empty object.
func object(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case nil:
		return map[string]any{}
	default:
		return map[string]any{"result": v}
	}
}

// field returns v[key] when v is an object.
func field(v any, key string) any {
	if m, ok := v.(map[string]any); ok {
		return m[key]
	}
	return nil
}

// firstOf returns the first non-nil value of keys in v.
func firstOf(v any, keys ...string) any {
	for _, key := range keys {
		if f := field(v, key); f != nil {
			return f
		}
	}
	return nil
}

// orElse returns v unless it is nil.
func orElse(v, def any) any {
	if v == nil {
		return def
	}
	return v
}

func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// truthy mirrors the loose checks form values get: nil, false, zero and the
// empty string are unset.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}
