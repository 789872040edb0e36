package resources

import (
	"context"

	"github.com/Sternrassler/bitrix24-client/pkg/client"
	"github.com/Sternrassler/bitrix24-client/pkg/params"
)

var userOps = Resource{
	// user.get answers with a list even for a single ID.
	"get": byID("user.get", "userId", "ID", func(res *client.Response) map[string]any {
		users, _ := res.Value().([]any)
		if len(users) == 0 {
			return map[string]any{}
		}
		return object(users[0])
	}),
	"getCurrent": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, "profile", map[string]any{})
		if err != nil {
			return nil, err
		}
		return asObject(res), nil
	},
	"list": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		return rt.list(ctx, "user.get", map[string]any{"FILTER": filterOf(p)}, p.Int("limit", DefaultLimit), nil)
	},
	"search": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, "user.search", map[string]any{"NAME": p.String("searchQuery", "")})
		if err != nil {
			return nil, err
		}
		return listed(res), nil
	},
}
