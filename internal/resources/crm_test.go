package resources

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/Sternrassler/bitrix24-client/internal/testutil"
	"github.com/Sternrassler/bitrix24-client/pkg/client"
	"github.com/Sternrassler/bitrix24-client/pkg/pagination"
	"github.com/Sternrassler/bitrix24-client/pkg/params"
)

func TestDeal_Create(t *testing.T) {
	mock, rt := newTestRuntime(t)
	mock.SetResult("crm.deal.add", 42)

	out := execute(t, rt, "deal", "create", params.Params{
		"title": "Big deal",
		"fixedFields": map[string]any{
			"STAGE_ID":    "NEW",
			"OPPORTUNITY": 1000.0,
		},
		"customFields": map[string]any{
			"field": []any{
				map[string]any{"fieldName": "UF_CRM_SIZE|number", "valueNumber": 5.0},
				map[string]any{"fieldName": "UF_CRM_VIP|boolean", "valueBoolean": true},
				map[string]any{"fieldName": "", "value": "skipped"},
			},
		},
	})

	if !reflect.DeepEqual(out, map[string]any{"id": 42.0, "success": true}) {
		t.Errorf("output = %v", out)
	}
	assertBody(t, mock.LastCall(), map[string]any{
		"fields": map[string]any{
			"TITLE":       "Big deal",
			"STAGE_ID":    "NEW",
			"OPPORTUNITY": 1000.0,
			"UF_CRM_SIZE": 5.0,
			"UF_CRM_VIP":  "1",
		},
	})
}

func TestDeal_GetUpdateDelete(t *testing.T) {
	mock, rt := newTestRuntime(t)
	mock.SetResult("crm.deal.get", map[string]any{"ID": "7", "TITLE": "Deal"})
	mock.SetResult("crm.deal.update", true)
	mock.SetResult("crm.deal.delete", true)

	got := execute(t, rt, "deal", "get", params.Params{"dealId": "7"})
	if got["TITLE"] != "Deal" {
		t.Errorf("get output = %v", got)
	}
	assertBody(t, mock.LastCall(), map[string]any{"id": "7"})

	got = execute(t, rt, "deal", "update", params.Params{
		"dealId":      7.0,
		"fixedFields": map[string]any{"STAGE_ID": "WON"},
	})
	if got["success"] != true {
		t.Errorf("update output = %v", got)
	}
	assertBody(t, mock.LastCall(), map[string]any{
		"id":     "7",
		"fields": map[string]any{"STAGE_ID": "WON"},
	})

	got = execute(t, rt, "deal", "delete", params.Params{"dealId": "7"})
	if got["success"] != true {
		t.Errorf("delete output = %v", got)
	}
}

func TestDeal_ListSinglePage(t *testing.T) {
	mock, rt := newTestRuntime(t)
	items := []any{map[string]any{"ID": "1"}, map[string]any{"ID": "2"}, map[string]any{"ID": "3"}}
	mock.SetPages("crm.deal.list", items, 2)

	out := execute(t, rt, "deal", "list", params.Params{
		"quickFilters":   map[string]any{"STAGE_ID": "NEW", "ASSIGNED_BY_ID": "1"},
		"advancedFilter": `{"ASSIGNED_BY_ID": "5", ">OPPORTUNITY": 100}`,
	})

	if mock.GetRequestCount() != 1 {
		t.Fatalf("request count = %d, want 1", mock.GetRequestCount())
	}
	if got := out["items"].([]any); len(got) != 2 {
		t.Errorf("items = %v, want first page", got)
	}
	if out["total"] != 3 {
		t.Errorf("total = %v, want 3", out["total"])
	}
	assertBody(t, mock.LastCall(), map[string]any{
		"filter": map[string]any{
			"STAGE_ID":       "NEW",
			"ASSIGNED_BY_ID": "5",
			">OPPORTUNITY":   100.0,
		},
		"select": []any{"*", "UF_*"},
		"start":  0.0,
	})
}

func TestDeal_ListAll(t *testing.T) {
	mock, rt := newTestRuntime(t)
	items := make([]any, 120)
	for i := range items {
		items[i] = map[string]any{"ID": float64(i + 1)}
	}
	mock.SetPages("crm.deal.list", items, 50)

	out := execute(t, rt, "deal", "list", params.Params{"limit": 0})

	calls := mock.CallsFor("crm.deal.list")
	if len(calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(calls))
	}
	for i, want := range []int{0, 50, 100} {
		if got := testutil.StartOf(calls[i]); got != want {
			t.Errorf("call %d start = %d, want %d", i, got, want)
		}
	}
	if got := out["items"].([]any); len(got) != 120 {
		t.Errorf("len(items) = %d, want 120", len(got))
	}
	if out["total"] != 120 {
		t.Errorf("total = %v, want 120", out["total"])
	}
}

func TestDeal_ListAllPageFailure(t *testing.T) {
	mock, rt := newTestRuntime(t)
	mock.On("crm.deal.list", func(call testutil.Call) testutil.MockResponse {
		if testutil.StartOf(call) == 0 {
			return testutil.MockResponse{Body: map[string]any{
				"result": []any{map[string]any{"ID": "1"}},
				"next":   50,
			}}
		}
		return testutil.Error(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "boom")
	})

	out, err := Execute(context.Background(), rt, "deal", "list", params.Params{"limit": 0})
	if out != nil {
		t.Errorf("output = %v, want nil", out)
	}

	var partial *pagination.PartialResultError
	if !errors.As(err, &partial) {
		t.Fatalf("error = %v, want *PartialResultError", err)
	}
	if len(partial.Items) != 1 {
		t.Errorf("partial items = %d, want 1", len(partial.Items))
	}
	var apiErr *client.ApiError
	if !errors.As(err, &apiErr) || apiErr.Message != "boom" {
		t.Errorf("wrapped ApiError = %v", apiErr)
	}
}

func TestDeal_ListMalformedAdvancedFilter(t *testing.T) {
	mock, rt := newTestRuntime(t)
	mock.SetPages("crm.deal.list", []any{}, 50)

	execute(t, rt, "deal", "list", params.Params{
		"quickFilters":   map[string]any{"STAGE_ID": "NEW"},
		"advancedFilter": `{"broken":`,
	})

	filter := mock.LastCall().Body["filter"]
	if !reflect.DeepEqual(filter, map[string]any{"STAGE_ID": "NEW"}) {
		t.Errorf("filter = %v, want quick filters only", filter)
	}
}

func TestCRM_Search(t *testing.T) {
	tests := []struct {
		resource   string
		wantFilter map[string]any
		wantSelect []any
	}{
		{"deal", map[string]any{"%TITLE": "acme"}, []any{"*", "UF_*"}},
		{"lead", map[string]any{"%TITLE": "acme"}, []any{"*"}},
		{"contact", map[string]any{"%NAME": "acme"}, []any{"*", "UF_*", "PHONE", "EMAIL"}},
		{"company", map[string]any{"%TITLE": "acme"}, []any{"*"}},
	}

	for _, tt := range tests {
		t.Run(tt.resource, func(t *testing.T) {
			mock, rt := newTestRuntime(t)
			mock.SetResult("crm."+tt.resource+".list", []any{})

			out := execute(t, rt, tt.resource, "search", params.Params{"searchQuery": "acme"})
			if _, ok := out["items"]; !ok {
				t.Errorf("output missing items: %v", out)
			}
			assertBody(t, mock.LastCall(), map[string]any{
				"filter": tt.wantFilter,
				"select": tt.wantSelect,
			})
		})
	}
}

func TestContact_CreateWithPhonesAndEmails(t *testing.T) {
	mock, rt := newTestRuntime(t)
	mock.SetResult("crm.contact.add", 9)

	execute(t, rt, "contact", "create", params.Params{
		"firstName":   "Ana",
		"fixedFields": map[string]any{"LAST_NAME": "Silva"},
		"phones": map[string]any{
			"phone": []any{
				map[string]any{"VALUE": "+5511999", "VALUE_TYPE": "MOBILE"},
				map[string]any{"VALUE": "+5511888"},
			},
		},
		"emails": map[string]any{},
	})

	assertBody(t, mock.LastCall(), map[string]any{
		"fields": map[string]any{
			"NAME":      "Ana",
			"LAST_NAME": "Silva",
			"PHONE": []any{
				map[string]any{"VALUE": "+5511999", "VALUE_TYPE": "MOBILE"},
				map[string]any{"VALUE": "+5511888", "VALUE_TYPE": "WORK"},
			},
		},
	})
}

func TestCompany_WrapsScalarContactFields(t *testing.T) {
	mock, rt := newTestRuntime(t)
	mock.SetResult("crm.company.add", 3)
	mock.SetResult("crm.company.update", true)

	execute(t, rt, "company", "create", params.Params{
		"title": "Acme",
		"fixedFields": map[string]any{
			"PHONE": "+100",
			"EMAIL": "hi@acme.test",
			"WEB":   "acme.test",
		},
		"customFields": map[string]any{
			"field": []any{map[string]any{"fieldName": "UF_CRM_TIER", "value": "gold"}},
		},
	})
	assertBody(t, mock.LastCall(), map[string]any{
		"fields": map[string]any{
			"TITLE":       "Acme",
			"PHONE":       []any{map[string]any{"VALUE": "+100", "VALUE_TYPE": "WORK"}},
			"EMAIL":       []any{map[string]any{"VALUE": "hi@acme.test", "VALUE_TYPE": "WORK"}},
			"WEB":         []any{map[string]any{"VALUE": "acme.test", "VALUE_TYPE": "WORK"}},
			"UF_CRM_TIER": "gold",
		},
	})

	execute(t, rt, "company", "update", params.Params{
		"companyId":   "3",
		"fixedFields": map[string]any{"PHONE": "+200", "WEB": "new.test"},
	})
	assertBody(t, mock.LastCall(), map[string]any{
		"id": "3",
		"fields": map[string]any{
			"PHONE": []any{map[string]any{"VALUE": "+200", "VALUE_TYPE": "WORK"}},
			"WEB":   "new.test",
		},
	})
}

func TestLead_RawCustomFields(t *testing.T) {
	mock, rt := newTestRuntime(t)
	mock.SetResult("crm.lead.add", 11)

	execute(t, rt, "lead", "create", params.Params{
		"title": "Inbound",
		"customFields": map[string]any{
			"field": []any{map[string]any{"fieldName": "UF_CRM_SRC|string", "value": "web"}},
		},
	})

	fields := mock.LastCall().Body["fields"].(map[string]any)
	if fields["UF_CRM_SRC|string"] != "web" {
		t.Errorf("fields = %v, want raw custom field key", fields)
	}
}
