package resources

import (
	"context"

	"github.com/Sternrassler/bitrix24-client/pkg/params"
	"github.com/samber/lo"
)

// splitLists turns comma-separated string values of keys into lists.
func splitLists(body map[string]any, keys ...string) {
	for _, key := range keys {
		if s, ok := body[key].(string); ok && s != "" {
			body[key] = params.SplitList(s)
		}
	}
}

var blogPostOps = Resource{
	"create": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		body := lo.Assign(map[string]any{"POST_TITLE": p.String("title", "")}, p.Object("postFields"))
		splitLists(body, "DEST", "TAG")

		res, err := rt.post(ctx, "log.blogpost.add", body)
		if err != nil {
			return nil, err
		}
		return created(res), nil
	},
	"get": byID("log.blogpost.get", "postId", "POST_ID", asObject),
	"update": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		id, err := required(p, "postId")
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, "log.blogpost.update", lo.Assign(map[string]any{"POST_ID": id}, p.Object("postFields")))
		if err != nil {
			return nil, err
		}
		return succeeded(res), nil
	},
	"delete": byID("log.blogpost.delete", "postId", "POST_ID", succeeded),
	"list": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		return rt.list(ctx, "log.blogpost.get", clone(p.Object("listFilters")), p.Int("limit", 20), nil)
	},
	"addComment": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		id, err := required(p, "postId")
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, "log.blogcomment.add", map[string]any{
			"POST_ID": id,
			"TEXT":    p.String("commentText", ""),
		})
		if err != nil {
			return nil, err
		}
		return created(res), nil
	},
	"listComments": byID("log.blogcomment.get", "postId", "POST_ID", listed),
}

// activityFields converts the bindEntityType/bindEntityId pair into BINDINGS.
func activityFields(fields map[string]any) map[string]any {
	if truthy(fields["bindEntityType"]) && truthy(fields["bindEntityId"]) {
		fields["BINDINGS"] = []any{map[string]any{
			"OWNER_TYPE_ID": fields["bindEntityType"],
			"OWNER_ID":      fields["bindEntityId"],
		}}
	}
	delete(fields, "bindEntityType")
	delete(fields, "bindEntityId")
	return fields
}

var crmActivityOps = Resource{
	"create": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		fields := activityFields(lo.Assign(map[string]any{"SUBJECT": p.String("subject", "")}, p.Object("activityFields")))
		res, err := rt.post(ctx, "crm.activity.add", map[string]any{"fields": fields})
		if err != nil {
			return nil, err
		}
		return created(res), nil
	},
	"get": byID("crm.activity.get", "activityId", "id", asObject),
	"update": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		id, err := required(p, "activityId")
		if err != nil {
			return nil, err
		}
		fields := activityFields(clone(p.Object("activityFields")))
		res, err := rt.post(ctx, "crm.activity.update", map[string]any{"id": id, "fields": fields})
		if err != nil {
			return nil, err
		}
		return succeeded(res), nil
	},
	"delete": byID("crm.activity.delete", "activityId", "id", succeeded),
	"complete": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		id, err := required(p, "activityId")
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, "crm.activity.update", map[string]any{
			"id":     id,
			"fields": map[string]any{"COMPLETED": "Y"},
		})
		if err != nil {
			return nil, err
		}
		return succeeded(res), nil
	},
	"list": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		filter := filterOf(p)
		completedFlag(filter)
		return rt.list(ctx, "crm.activity.list", map[string]any{
			"filter": filter,
			"select": []string{"*"},
		}, p.Int("limit", DefaultLimit), nil)
	},
}
