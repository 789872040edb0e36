package resources

import (
	"context"

	"github.com/Sternrassler/bitrix24-client/pkg/customfield"
	"github.com/Sternrassler/bitrix24-client/pkg/params"
	"github.com/samber/lo"
)

// crmEntity describes one of the classic CRM entities. They share the same
// crm.{name}.* method family and differ in form fields only.
type crmEntity struct {
	name    string
	idParam string

	// titleField is set from titleParam on create.
	titleField string
	titleParam string

	listSelect   []string
	searchField  string
	searchSelect []string

	// customFields converts the customFields collection into request fields.
	customFields func(raw map[string]any) map[string]any

	// contactPoints enables the phones/emails collections.
	contactPoints bool

	// Scalar fields sent as single-entry multi-fields.
	wrapOnCreate []string
	wrapOnUpdate []string
}

func typedCustomFields(raw map[string]any) map[string]any {
	return customfield.Resolve(customfield.InputsFromParams(raw))
}

var (
	deal = crmEntity{
		name:         "deal",
		idParam:      "dealId",
		titleField:   "TITLE",
		titleParam:   "title",
		listSelect:   []string{"*", "UF_*"},
		searchField:  "%TITLE",
		searchSelect: []string{"*", "UF_*"},
		customFields: typedCustomFields,
	}

	lead = crmEntity{
		name:         "lead",
		idParam:      "leadId",
		titleField:   "TITLE",
		titleParam:   "title",
		listSelect:   []string{"*", "UF_*"},
		searchField:  "%TITLE",
		searchSelect: []string{"*"},
		customFields: customfield.RawFields,
	}

	contact = crmEntity{
		name:          "contact",
		idParam:       "contactId",
		titleField:    "NAME",
		titleParam:    "firstName",
		listSelect:    []string{"*", "UF_*", "PHONE", "EMAIL"},
		searchField:   "%NAME",
		searchSelect:  []string{"*", "UF_*", "PHONE", "EMAIL"},
		customFields:  typedCustomFields,
		contactPoints: true,
	}

	company = crmEntity{
		name:         "company",
		idParam:      "companyId",
		titleField:   "TITLE",
		titleParam:   "title",
		listSelect:   []string{"*", "UF_*"},
		searchField:  "%TITLE",
		searchSelect: []string{"*"},
		customFields: customfield.RawFields,
		wrapOnCreate: []string{"PHONE", "EMAIL", "WEB"},
		wrapOnUpdate: []string{"PHONE", "EMAIL"},
	}
)

func (e crmEntity) method(op string) string {
	return "crm." + e.name + "." + op
}

func (e crmEntity) operations() Resource {
	return Resource{
		"create": e.create,
		"get":    byID(e.method("get"), e.idParam, "id", asObject),
		"update": e.update,
		"delete": byID(e.method("delete"), e.idParam, "id", succeeded),
		"list":   e.list,
		"search": e.search,
	}
}

// fields assembles the entity fields in form order: title, fixed fields,
// phones and emails, custom fields. Wrapped scalars are converted last.
func (e crmEntity) fields(p params.Params, title bool, wrap []string) map[string]any {
	fields := map[string]any{}
	if title {
		fields[e.titleField] = p.String(e.titleParam, "")
	}
	fields = lo.Assign(fields, p.Object("fixedFields"))

	if e.contactPoints {
		if phones := customfield.MultiField(p.Object("phones"), "phone"); phones != nil {
			fields["PHONE"] = phones
		}
		if emails := customfield.MultiField(p.Object("emails"), "email"); emails != nil {
			fields["EMAIL"] = emails
		}
	}

	fields = lo.Assign(fields, e.customFields(p.Object("customFields")))

	for _, key := range wrap {
		if v := fields[key]; truthy(v) {
			if _, isList := v.([]any); !isList {
				fields[key] = customfield.Wrap(v)
			}
		}
	}
	return fields
}

func (e crmEntity) create(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
	res, err := rt.post(ctx, e.method("add"), map[string]any{
		"fields": e.fields(p, true, e.wrapOnCreate),
	})
	if err != nil {
		return nil, err
	}
	return created(res), nil
}

func (e crmEntity) update(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
	id, err := required(p, e.idParam)
	if err != nil {
		return nil, err
	}
	res, err := rt.post(ctx, e.method("update"), map[string]any{
		"id":     id,
		"fields": e.fields(p, false, e.wrapOnUpdate),
	})
	if err != nil {
		return nil, err
	}
	return succeeded(res), nil
}

func (e crmEntity) list(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
	return rt.list(ctx, e.method("list"), map[string]any{
		"filter": filterOf(p),
		"select": e.listSelect,
	}, p.Int("limit", DefaultLimit), nil)
}

func (e crmEntity) search(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
	res, err := rt.post(ctx, e.method("list"), map[string]any{
		"filter": map[string]any{e.searchField: p.String("searchQuery", "")},
		"select": e.searchSelect,
	})
	if err != nil {
		return nil, err
	}
	return listed(res), nil
}

// filterOf merges the quickFilters collection with the advancedFilter JSON
// object. Advanced keys win. A malformed advanced filter is ignored with a
// warning.
func filterOf(p params.Params) map[string]any {
	return lo.Assign(p.Object("quickFilters"), p.JSONObject("advancedFilter").Object())
}
