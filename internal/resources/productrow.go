package resources

import (
	"context"

	"github.com/Sternrassler/bitrix24-client/pkg/client"
	"github.com/Sternrassler/bitrix24-client/pkg/params"
	"github.com/samber/lo"
)

// productFields returns the row fields shared by add and update.
func productFields(p params.Params, base map[string]any) map[string]any {
	fields := lo.Assign(base, map[string]any{
		"price":    p.Float("price", 0),
		"quantity": p.Float("quantity", 0),
	}, p.Object("optionalFields"))
	p.SetIf(fields, "productId", "productId")
	p.SetIf(fields, "productName", "productName")
	return fields
}

var productRowOps = Resource{
	"add": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		fields := productFields(p, map[string]any{
			"ownerType": p.String("ownerType", ""),
			"ownerId":   p.String("ownerId", ""),
		})
		res, err := rt.post(ctx, "crm.item.productrow.add", map[string]any{"fields": fields})
		if err != nil {
			return nil, err
		}
		result := res.Value()
		return map[string]any{"id": orElse(field(result, "productRow"), result), "success": true}, nil
	},
	"get": byID("crm.item.productrow.get", "productRowId", "id", func(res *client.Response) map[string]any {
		result := res.Value()
		return object(orElse(field(result, "productRow"), result))
	}),
	"update": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		id, err := required(p, "productRowId")
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, "crm.item.productrow.update", map[string]any{
			"id":     id,
			"fields": productFields(p, map[string]any{}),
		})
		if err != nil {
			return nil, err
		}
		return succeeded(res), nil
	},
	"delete": byID("crm.item.productrow.delete", "productRowId", "id", succeeded),
	"list": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, "crm.item.productrow.get", map[string]any{
			"filter": map[string]any{
				"ownerType": p.String("ownerType", ""),
				"ownerId":   p.String("ownerId", ""),
			},
		})
		if err != nil {
			return nil, err
		}
		result := res.Value()
		return map[string]any{"items": orElse(field(result, "productRows"), result)}, nil
	},
	// set replaces all rows of the owner in one call.
	"set": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		res, err := rt.post(ctx, "crm.item.productrow.set", map[string]any{
			"ownerType":   p.String("ownerType", ""),
			"ownerId":     p.String("ownerId", ""),
			"productRows": p.JSONArray("productRowsJson").Array(),
		})
		if err != nil {
			return nil, err
		}
		return succeeded(res), nil
	},
}
