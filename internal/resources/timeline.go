package resources

import (
	"context"

	"github.com/Sternrassler/bitrix24-client/pkg/params"
	"github.com/samber/lo"
)

var timelineCommentOps = Resource{
	"add": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, "crm.timeline.comment.add", map[string]any{
			"fields": map[string]any{
				"ENTITY_ID":   p.String("commentEntityId", ""),
				"ENTITY_TYPE": p.String("commentEntityType", ""),
				"COMMENT":     p.String("commentText", ""),
			},
		})
		if err != nil {
			return nil, err
		}
		return created(res), nil
	},
	"get": byID("crm.timeline.comment.get", "commentId", "id", asObject),
	"update": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		id, err := required(p, "commentId")
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, "crm.timeline.comment.update", map[string]any{
			"id":     id,
			"fields": map[string]any{"COMMENT": p.String("commentNewText", "")},
		})
		if err != nil {
			return nil, err
		}
		return succeeded(res), nil
	},
	"delete": byID("crm.timeline.comment.delete", "commentId", "id", succeeded),
	"list": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, "crm.timeline.comment.list", map[string]any{
			"filter": map[string]any{
				"ENTITY_ID":   p.String("commentEntityId", ""),
				"ENTITY_TYPE": p.String("commentEntityType", ""),
			},
			"select": []string{"*"},
			"start":  0,
		})
		if err != nil {
			return nil, err
		}
		return listed(res), nil
	},
}

var timelineNoteOps = Resource{
	"add": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, "crm.timeline.note.add", map[string]any{
			"entityTypeId": p.String("noteEntityType", ""),
			"entityId":     p.String("noteEntityId", ""),
			"fields":       map[string]any{"TEXT": p.String("noteText", "")},
		})
		if err != nil {
			return nil, err
		}
		return created(res), nil
	},
	"get": byID("crm.timeline.note.get", "noteId", "id", asObject),
	"update": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		id, err := required(p, "noteId")
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, "crm.timeline.note.update", map[string]any{
			"id":     id,
			"fields": map[string]any{"TEXT": p.String("noteNewText", "")},
		})
		if err != nil {
			return nil, err
		}
		return succeeded(res), nil
	},
	"delete": byID("crm.timeline.note.delete", "noteId", "id", succeeded),
	"list": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, "crm.timeline.note.list", map[string]any{
			"entityTypeId": p.String("noteEntityType", ""),
			"entityId":     p.String("noteEntityId", ""),
		})
		if err != nil {
			return nil, err
		}
		return listed(res), nil
	},
}

func bindingCall(method string) Operation {
	return func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, method, map[string]any{
			"fields": map[string]any{
				"ENTITY_TYPE_ID": p.String("bindingTimelineTypeId", ""),
				"ENTITY_ID":      p.String("bindingTimelineId", ""),
				"OWNER_TYPE_ID":  p.String("bindingTargetTypeId", ""),
				"OWNER_ID":       p.String("bindingTargetId", ""),
			},
		})
		if err != nil {
			return nil, err
		}
		return succeeded(res), nil
	}
}

var timelineBindingOps = Resource{
	"bind":   bindingCall("crm.timeline.bindings.bind"),
	"unbind": bindingCall("crm.timeline.bindings.unbind"),
	"list": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, "crm.timeline.bindings.list", map[string]any{
			"filter": map[string]any{
				"ENTITY_TYPE_ID": p.String("bindingTimelineTypeId", ""),
				"ENTITY_ID":      p.String("bindingTimelineId", ""),
			},
		})
		if err != nil {
			return nil, err
		}
		return listed(res), nil
	},
}

// completedFlag rewrites a boolean COMPLETED field as Y/N.
func completedFlag(fields map[string]any) {
	if _, ok := fields["COMPLETED"]; ok {
		fields["COMPLETED"] = params.YN(params.Params(fields).Bool("COMPLETED", false))
	}
}

var timelineActivityOps = Resource{
	"add": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		fields := lo.Assign(map[string]any{
			"OWNER_TYPE_ID": p.Int("actOwnerTypeId", 0),
			"OWNER_ID":      p.String("actOwnerId", ""),
			"TYPE_ID":       p.Int("actTypeId", 0),
			"SUBJECT":       p.String("actSubject", ""),
		}, p.Object("actExtra"))
		completedFlag(fields)

		res, err := rt.post(ctx, "crm.activity.add", map[string]any{"fields": fields})
		if err != nil {
			return nil, err
		}
		return created(res), nil
	},
	"get": byID("crm.activity.get", "actId", "id", asObject),
	"update": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		id, err := required(p, "actId")
		if err != nil {
			return nil, err
		}
		fields := clone(p.Object("actUpdateFields"))
		completedFlag(fields)

		res, err := rt.post(ctx, "crm.activity.update", map[string]any{"id": id, "fields": fields})
		if err != nil {
			return nil, err
		}
		return succeeded(res), nil
	},
	"delete": byID("crm.activity.delete", "actId", "id", succeeded),
	"list": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, "crm.activity.list", map[string]any{
			"filter": map[string]any{
				"OWNER_TYPE_ID": p.Int("actListOwnerTypeId", 0),
				"OWNER_ID":      p.String("actListOwnerId", ""),
			},
			"select": []string{"*"},
			"start":  0,
		})
		if err != nil {
			return nil, err
		}

		items, _ := res.Value().([]any)
		if items == nil {
			items = []any{}
		}
		if limit := p.Int("actListLimit", DefaultLimit); limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		return map[string]any{"items": items, "total": total(res)}, nil
	},
}
