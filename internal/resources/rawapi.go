package resources

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Sternrassler/bitrix24-client/pkg/client"
	"github.com/Sternrassler/bitrix24-client/pkg/params"
	"github.com/samber/lo"
)

// strictObject decodes a JSON object parameter that must be valid. Blank
// input is an empty object.
func strictObject(p params.Params, key, label string) (map[string]any, error) {
	v, err := params.ParseJSONStrict(p[key], label)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return t, nil
	default:
		return nil, fmt.Errorf("invalid JSON in %s: expected object, got %T", label, v)
	}
}

// rawResult shapes a single response: the whole envelope when raw is set,
// otherwise the result (or the envelope when the result is null).
func rawResult(res *client.Response, raw bool) map[string]any {
	if raw {
		return res.Raw
	}
	if v := res.Value(); v != nil {
		return object(v)
	}
	return res.Raw
}

var rawAPIOps = Resource{
	"execute": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		method, err := required(p, "method")
		if err != nil {
			return nil, err
		}
		httpMethod := strings.ToUpper(p.String("httpMethod", http.MethodPost))
		raw := p.Nested("outputOptions").Bool("rawResponse", false)

		body, err := strictObject(p, "params", "Parameters field")
		if err != nil {
			return nil, err
		}

		if p.Bool("fetchAll", false) {
			items, err := rt.pages.FetchAll(ctx, httpMethod, method, body)
			if err != nil {
				return nil, err
			}
			key := lo.Ternary(raw, "result", "items")
			return map[string]any{key: items, "total": len(items)}, nil
		}

		res, err := rt.caller.Call(ctx, httpMethod, method, body, nil)
		if err != nil {
			return nil, err
		}
		return rawResult(res, raw), nil
	},
	"batch": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		commands, err := strictObject(p, "batchCommands", "Batch Commands field")
		if err != nil {
			return nil, err
		}
		raw := p.Nested("outputOptions").Bool("rawResponse", false)

		body := lo.Assign(map[string]any{
			"halt": lo.Ternary(p.Bool("haltOnError", true), 1, 0),
		}, commands)

		res, err := rt.post(ctx, "batch", body)
		if err != nil {
			return nil, err
		}
		return rawResult(res, raw), nil
	},
}
