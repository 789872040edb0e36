// Package options loads the dropdown values offered by operation forms:
// users, pipelines, stages, statuses, custom fields, open lines, bots and
// drive storages. Results are cached per portal when a cache is configured.
package options

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/Sternrassler/bitrix24-client/pkg/cache"
	"github.com/Sternrassler/bitrix24-client/pkg/client"
	"github.com/tidwall/gjson"
)

var (
	// ErrUnknownLookup is returned by Load for a lookup name it does not serve.
	ErrUnknownLookup = errors.New("unknown option lookup")

	// ErrMissingArgument is returned when a lookup argument is empty.
	ErrMissingArgument = errors.New("missing lookup argument")
)

// DefaultCategoryID is the deal pipeline every portal has.
const DefaultCategoryID = "0"

// Option is one dropdown entry.
type Option struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Caller performs remote calls and names the portal they go to.
// *client.Client implements it.
type Caller interface {
	Call(ctx context.Context, httpMethod, method string, body, query map[string]any) (*client.Response, error)
	Portal(ctx context.Context) (string, error)
}

// Loader fetches option lists.
type Loader struct {
	caller Caller
	cache  *cache.Manager
}

// NewLoader creates a loader. cacheManager may be nil.
func NewLoader(caller Caller, cacheManager *cache.Manager) *Loader {
	return &Loader{caller: caller, cache: cacheManager}
}

// Load dispatches a lookup by name. args carries lookup arguments such as
// "categoryId" for dealStages or "entity" for customFields.
func (l *Loader) Load(ctx context.Context, name string, args map[string]string) ([]Option, error) {
	switch name {
	case "users":
		return l.Users(ctx)
	case "dealCategories":
		return l.DealCategories(ctx)
	case "dealStages":
		return l.DealStages(ctx, args["categoryId"])
	case "leadStatuses":
		return l.LeadStatuses(ctx)
	case "customFields":
		return l.CustomFields(ctx, args["entity"])
	case "openLines":
		return l.OpenLines(ctx)
	case "chatBots":
		return l.ChatBots(ctx)
	case "driveStorages":
		return l.DriveStorages(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLookup, name)
	}
}

func (l *Loader) cached(ctx context.Context, lookup string, args map[string]string, fetch func(context.Context) ([]Option, error)) ([]Option, error) {
	if l.cache == nil {
		return fetch(ctx)
	}
	portal, err := l.caller.Portal(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve portal: %w", err)
	}
	key := cache.CacheKey{Portal: portal, Lookup: lookup, Args: args}
	return cache.GetOrLoad(ctx, l.cache, key, fetch)
}

func (l *Loader) result(ctx context.Context, method string, body map[string]any) (gjson.Result, error) {
	res, err := l.caller.Call(ctx, http.MethodPost, method, body, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(res.Result), nil
}

// each maps the elements of a JSON array; anything else yields an empty list.
func each(list gjson.Result, fn func(item gjson.Result) Option) []Option {
	out := []Option{}
	if !list.IsArray() {
		return out
	}
	list.ForEach(func(_, item gjson.Result) bool {
		out = append(out, fn(item))
		return true
	})
	return out
}

// present reports whether a field exists and is not null.
func present(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}

// Users lists active users as "NAME LAST_NAME (EMAIL)".
func (l *Loader) Users(ctx context.Context) ([]Option, error) {
	return l.cached(ctx, "users", nil, func(ctx context.Context) ([]Option, error) {
		result, err := l.result(ctx, "user.get", map[string]any{
			"FILTER": map[string]any{"ACTIVE": true},
		})
		if err != nil {
			return nil, err
		}
		return each(result, func(u gjson.Result) Option {
			name := fmt.Sprintf("%s %s (%s)", u.Get("NAME").String(), u.Get("LAST_NAME").String(), u.Get("EMAIL").String())
			return Option{Name: strings.TrimSpace(name), Value: u.Get("ID").String()}
		}), nil
	})
}

// DealCategories lists deal pipelines, starting with the default one.
func (l *Loader) DealCategories(ctx context.Context) ([]Option, error) {
	return l.cached(ctx, "dealCategories", nil, func(ctx context.Context) ([]Option, error) {
		result, err := l.result(ctx, "crm.category.list", map[string]any{"entityTypeId": 2})
		if err != nil {
			return nil, err
		}
		categories := each(result.Get("categories"), func(c gjson.Result) Option {
			return Option{Name: c.Get("NAME").String(), Value: c.Get("ID").String()}
		})
		return append([]Option{{Name: "General (Default Pipeline)", Value: DefaultCategoryID}}, categories...), nil
	})
}

// DealStages lists the stages of a pipeline. An empty category is the
// default pipeline.
func (l *Loader) DealStages(ctx context.Context, categoryID string) ([]Option, error) {
	if categoryID == "" {
		categoryID = DefaultCategoryID
	}
	args := map[string]string{"categoryId": categoryID}

	return l.cached(ctx, "dealStages", args, func(ctx context.Context) ([]Option, error) {
		method, body := "crm.dealcategory.stages", map[string]any{"id": categoryID}
		if categoryID == DefaultCategoryID {
			method, body = "crm.status.list", map[string]any{"filter": map[string]any{"ENTITY_ID": "DEAL_STAGE"}}
		}

		result, err := l.result(ctx, method, body)
		if err != nil {
			return nil, err
		}
		return each(result, func(s gjson.Result) Option {
			value := s.Get("STATUS_ID")
			if !present(value) {
				value = s.Get("ID")
			}
			return Option{Name: s.Get("NAME").String(), Value: value.String()}
		}), nil
	})
}

// LeadStatuses lists lead statuses.
func (l *Loader) LeadStatuses(ctx context.Context) ([]Option, error) {
	return l.cached(ctx, "leadStatuses", nil, func(ctx context.Context) ([]Option, error) {
		result, err := l.result(ctx, "crm.status.list", map[string]any{
			"filter": map[string]any{"ENTITY_ID": "STATUS"},
		})
		if err != nil {
			return nil, err
		}
		return each(result, func(s gjson.Result) Option {
			return Option{Name: s.Get("NAME").String(), Value: s.Get("STATUS_ID").String()}
		}), nil
	})
}

// CustomFields lists the UF_ fields of a CRM entity (deal, lead, contact or
// company), sorted by name.
func (l *Loader) CustomFields(ctx context.Context, entity string) ([]Option, error) {
	entity = strings.ToLower(strings.TrimSpace(entity))
	if entity == "" {
		return nil, fmt.Errorf("%w: entity", ErrMissingArgument)
	}
	args := map[string]string{"entity": entity}

	return l.cached(ctx, "customFields", args, func(ctx context.Context) ([]Option, error) {
		result, err := l.result(ctx, "crm."+entity+".fields", map[string]any{})
		if err != nil {
			return nil, err
		}

		out := []Option{}
		result.ForEach(func(key, meta gjson.Result) bool {
			if !strings.HasPrefix(key.String(), "UF_") {
				return true
			}
			name := key.String()
			if label := meta.Get("listLabel"); present(label) {
				name = label.String()
			} else if title := meta.Get("title"); present(title) {
				name = title.String()
			}
			fieldType := "unknown"
			if t := meta.Get("type"); present(t) {
				fieldType = t.String()
			}
			out = append(out, Option{
				Name:        name,
				Value:       key.String(),
				Description: "Type: " + fieldType,
			})
			return true
		})

		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Name < out[j].Name
		})
		return out, nil
	})
}

// OpenLines lists open channel lines.
func (l *Loader) OpenLines(ctx context.Context) ([]Option, error) {
	return l.cached(ctx, "openLines", nil, func(ctx context.Context) ([]Option, error) {
		result, err := l.result(ctx, "imopenlines.config.list", map[string]any{})
		if err != nil {
			return nil, err
		}
		return each(result, func(line gjson.Result) Option {
			id := line.Get("ID").String()
			name := "Line " + id
			if n := line.Get("LINE_NAME"); present(n) {
				name = n.String()
			} else if n := line.Get("NAME"); present(n) {
				name = n.String()
			}
			return Option{Name: name, Value: id}
		}), nil
	})
}

// ChatBots lists registered chat bots.
func (l *Loader) ChatBots(ctx context.Context) ([]Option, error) {
	return l.cached(ctx, "chatBots", nil, l.nameID("imbot.bot.list"))
}

// DriveStorages lists drive storages.
func (l *Loader) DriveStorages(ctx context.Context) ([]Option, error) {
	return l.cached(ctx, "driveStorages", nil, l.nameID("disk.storage.getlist"))
}

func (l *Loader) nameID(method string) func(context.Context) ([]Option, error) {
	return func(ctx context.Context) ([]Option, error) {
		result, err := l.result(ctx, method, map[string]any{})
		if err != nil {
			return nil, err
		}
		return each(result, func(item gjson.Result) Option {
			return Option{Name: item.Get("NAME").String(), Value: item.Get("ID").String()}
		}), nil
	}
}
