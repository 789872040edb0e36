package resources

import (
	"context"

	"github.com/Sternrassler/bitrix24-client/pkg/params"
	"github.com/samber/lo"
)

var chatbotOps = Resource{
	"register": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, "imbot.register", map[string]any{
			"CODE":          p.String("botCode", ""),
			"TYPE":          p.String("botType", "B"),
			"EVENT_HANDLER": p.String("handlerUrl", ""),
			"PROPERTIES": lo.Assign(
				map[string]any{"NAME": p.String("botName", "")},
				p.Object("registerOptions"),
			),
		})
		if err != nil {
			return nil, err
		}
		return created(res), nil
	},
	"unregister": byID("imbot.unregister", "botId", "BOT_ID", succeeded),
	"list": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, "imbot.bot.list", map[string]any{})
		if err != nil {
			return nil, err
		}
		return listed(res), nil
	},
	"update": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		id, err := required(p, "botId")
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, "imbot.update", map[string]any{
			"BOT_ID": id,
			"FIELDS": p.Object("updateFields"),
		})
		if err != nil {
			return nil, err
		}
		return succeeded(res), nil
	},
}

var chatbotMessageOps = Resource{
	"send": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		body := map[string]any{
			"BOT_ID":    p.String("botId", ""),
			"DIALOG_ID": p.String("dialogId", ""),
			"MESSAGE":   p.String("messageText", ""),
		}
		messageExtras(body, p.Nested("messageOptions"), "KEYBOARD", "ATTACH", "SYSTEM")

		res, err := rt.post(ctx, "imbot.message.add", body)
		if err != nil {
			return nil, err
		}
		return map[string]any{"messageId": res.Value(), "success": true}, nil
	},
	"update": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		messageID, err := required(p, "messageId")
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, "imbot.message.update", map[string]any{
			"BOT_ID":     p.String("botId", ""),
			"MESSAGE_ID": messageID,
			"MESSAGE":    p.String("messageText", ""),
		})
		if err != nil {
			return nil, err
		}
		return succeeded(res), nil
	},
	"delete": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		messageID, err := required(p, "messageId")
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, "imbot.message.delete", map[string]any{
			"BOT_ID":     p.String("botId", ""),
			"MESSAGE_ID": messageID,
		})
		if err != nil {
			return nil, err
		}
		return succeeded(res), nil
	},
}
