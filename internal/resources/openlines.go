package resources

import (
	"context"

	"github.com/Sternrassler/bitrix24-client/pkg/params"
)

// messageExtras copies the optional KEYBOARD and ATTACH JSON values and the
// SYSTEM flag from opts into body. Malformed JSON leaves the key out.
func messageExtras(body map[string]any, opts params.Params, keyboard, attach, system string) {
	if truthy(opts[keyboard]) {
		if o := opts.JSON(keyboard); !o.Defaulted && o.Value != nil {
			body["KEYBOARD"] = o.Value
		}
	}
	if truthy(opts[attach]) {
		if o := opts.JSON(attach); !o.Defaulted && o.Value != nil {
			body["ATTACH"] = o.Value
		}
	}
	if opts.Bool(system, false) {
		body["SYSTEM"] = "Y"
	}
}

var openChannelMessageOps = Resource{
	"send": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		body := map[string]any{
			"CHAT_ID": p.String("chatId", ""),
			"MESSAGE": p.String("message", ""),
		}
		messageExtras(body, p.Nested("sendOptions"), "keyboard", "attach", "system")

		res, err := rt.post(ctx, "imopenlines.bot.message.add", body)
		if err != nil {
			return nil, err
		}
		return map[string]any{"messageId": res.Value(), "success": true}, nil
	},
	"history": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, "im.dialog.messages.get", map[string]any{
			"DIALOG_ID": "chat" + p.String("chatId", ""),
			"LIMIT":     p.Int("limit", 20),
		})
		if err != nil {
			return nil, err
		}
		return asObject(res), nil
	},
	"delete": byID("im.message.delete", "messageId", "MESSAGE_ID", succeeded),
}

var conversationOps = Resource{
	"get": byID("imopenlines.session.get", "sessionId", "SESSION_ID", asObject),
	"list": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		body := map[string]any{"LIMIT": p.Int("limit", 20)}
		p.SetIf(body, "lineId", "LINE_ID")

		res, err := rt.post(ctx, "imopenlines.session.list", body)
		if err != nil {
			return nil, err
		}
		return listed(res), nil
	},
	"complete": byID("imopenlines.session.finish", "sessionId", "SESSION_ID", succeeded),
	"assign": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		sessionID, err := required(p, "sessionId")
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, "imopenlines.session.transfer", map[string]any{
			"SESSION_ID": sessionID,
			"USER_ID":    p.String("assignUserId", ""),
		})
		if err != nil {
			return nil, err
		}
		return succeeded(res), nil
	},
}
