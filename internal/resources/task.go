package resources

import (
	"context"

	"github.com/Sternrassler/bitrix24-client/pkg/client"
	"github.com/Sternrassler/bitrix24-client/pkg/params"
	"github.com/samber/lo"
)

var taskOps = Resource{
	"create": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		fields := lo.Assign(map[string]any{"TITLE": p.String("title", "")}, p.Object("taskFields"))
		if tags, ok := fields["TAGS"].(string); ok && tags != "" {
			fields["TAGS"] = params.SplitList(tags)
		}

		res, err := rt.post(ctx, "tasks.task.add", map[string]any{"fields": fields})
		if err != nil {
			return nil, err
		}
		id := res.Get("task.id").Value()
		if id == nil {
			id = res.Value()
		}
		return map[string]any{"id": id, "success": true}, nil
	},
	"get": byID("tasks.task.get", "taskId", "taskId", func(res *client.Response) map[string]any {
		return object(field(res.Value(), "task"))
	}),
	"update": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		id, err := required(p, "taskId")
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, "tasks.task.update", map[string]any{
			"taskId": id,
			"fields": clone(p.Object("taskFields")),
		})
		if err != nil {
			return nil, err
		}
		return succeeded(res), nil
	},
	"delete":   byID("tasks.task.delete", "taskId", "taskId", succeeded),
	"complete": byID("tasks.task.complete", "taskId", "taskId", succeeded),
	"list": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		return rt.list(ctx, "tasks.task.list", map[string]any{
			"filter": filterOf(p),
			"select": []string{"*"},
		}, p.Int("limit", DefaultLimit), func(res *client.Response) any {
			result := res.Value()
			return orElse(field(result, "tasks"), result)
		})
	},
}

func taskCommentItem(method string, withText bool, out func(*client.Response) map[string]any) Operation {
	return func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		commentID, err := required(p, "commentId")
		if err != nil {
			return nil, err
		}
		body := map[string]any{
			"TASK_ID": p.String("taskIdForComment", ""),
			"ITEM_ID": commentID,
		}
		if withText {
			body["fields"] = map[string]any{"POST_MESSAGE": p.String("commentText", "")}
		}
		res, err := rt.post(ctx, method, body)
		if err != nil {
			return nil, err
		}
		return out(res), nil
	}
}

var taskCommentOps = Resource{
	"create": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, "task.commentitem.add", map[string]any{
			"TASK_ID": p.String("taskId", ""),
			"fields":  map[string]any{"POST_MESSAGE": p.String("commentText", "")},
		})
		if err != nil {
			return nil, err
		}
		return created(res), nil
	},
	"get": taskCommentItem("task.commentitem.get", false, asObject),
	"list": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, "task.commentitem.getlist", map[string]any{"TASK_ID": p.String("taskId", "")})
		if err != nil {
			return nil, err
		}
		return listed(res), nil
	},
	"update": taskCommentItem("task.commentitem.update", true, succeeded),
	"delete": taskCommentItem("task.commentitem.delete", false, succeeded),
}
