package resources

import (
	"context"

	"github.com/Sternrassler/bitrix24-client/pkg/client"
	"github.com/Sternrassler/bitrix24-client/pkg/params"
)

// document unwraps the {document: {...}} envelope of the document methods.
func document(res *client.Response) map[string]any {
	result := res.Value()
	return object(orElse(field(result, "document"), result))
}

// pagedItems picks result.items from a documentgenerator list page.
func pagedItems(res *client.Response) any {
	result := res.Value()
	return orElse(field(result, "items"), result)
}

// listDocuments handles the shared list shape: limit 0 walks every page,
// otherwise one page of count=limit is returned.
func listDocuments(ctx context.Context, rt *Runtime, method string, body map[string]any, limit int) (map[string]any, error) {
	if limit == 0 {
		return rt.list(ctx, method, body, 0, nil)
	}
	page := clone(body)
	page["count"] = limit
	return rt.list(ctx, method, page, limit, pagedItems)
}

var documentGeneratorOps = Resource{
	"listTemplates": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		filters := p.Nested("templateFilters")
		body := map[string]any{"start": 0}
		if truthy(filters["entityTypeId"]) {
			body["entityTypeId"] = filters["entityTypeId"]
		}
		if filters.Has("active") {
			body["active"] = params.YN(filters.Bool("active", false))
		}
		return listDocuments(ctx, rt, "crm.documentgenerator.template.list", body, p.Int("limit", DefaultLimit))
	},
	"getTemplate": byID("crm.documentgenerator.template.get", "templateId", "id", func(res *client.Response) map[string]any {
		result := res.Value()
		return object(orElse(field(result, "template"), result))
	}),
	"generate": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		templateID, err := required(p, "templateId")
		if err != nil {
			return nil, err
		}
		opts := p.Nested("generateOptions")
		body := map[string]any{
			"templateId":    templateID,
			"entityTypeId":  p.Int("entityTypeId", 2),
			"entityId":      p.String("entityId", ""),
			"stampsEnabled": params.YN(opts.Bool("stampsEnabled", false)),
		}
		// Values that are not valid JSON are passed through as given.
		if truthy(opts["values"]) {
			if o := params.ParseJSON(opts["values"]); !o.Defaulted {
				body["values"] = o.Value
			} else {
				body["values"] = opts["values"]
			}
		}

		res, err := rt.post(ctx, "crm.documentgenerator.document.add", body)
		if err != nil {
			return nil, err
		}
		if doc, ok := field(res.Value(), "document").(map[string]any); ok {
			return doc, nil
		}
		return created(res), nil
	},
	"getDocument": byID("crm.documentgenerator.document.get", "documentId", "id", document),
	"listDocuments": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		filters := p.Nested("documentFilters")
		body := map[string]any{"start": 0}
		for _, key := range []string{"entityTypeId", "entityId", "templateId"} {
			if truthy(filters[key]) {
				body[key] = filters[key]
			}
		}
		return listDocuments(ctx, rt, "crm.documentgenerator.document.list", body, p.Int("limit", DefaultLimit))
	},
	"getDownloadUrl": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		id, err := required(p, "documentId")
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, "crm.documentgenerator.document.get", map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		doc := document(res)
		return map[string]any{
			"documentId":  id,
			"downloadUrl": firstOf(doc, "pdfUrl", "downloadUrl", "URL"),
			"title":       firstOf(doc, "title", "TITLE"),
			"status":      doc["status"],
		}, nil
	},
	"deleteDocument": byID("crm.documentgenerator.document.delete", "documentId", "id", succeeded),
}
