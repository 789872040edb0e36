package trigger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs/v2"
	"github.com/Sternrassler/bitrix24-client/pkg/client"
	"github.com/Sternrassler/bitrix24-client/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Caller performs remote calls. *client.Client implements it.
type Caller interface {
	Call(ctx context.Context, httpMethod, method string, body, query map[string]any) (*client.Response, error)
}

// Service binds, unbinds and enriches events for workflows.
type Service struct {
	caller Caller
	store  Store
	logger zerolog.Logger
}

// NewService creates a trigger service. A nil store keeps registrations in
// memory.
func NewService(caller Caller, store Store) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Service{
		caller: caller,
		store:  store,
		logger: log.With().Str("component", logging.ComponentTrigger).Logger(),
	}
}

// HandlerID identifies a subscription by event and handler URL.
func HandlerID(event, handlerURL string) string {
	return event + "::" + handlerURL
}

// Exists reports whether the workflow has a stored subscription.
func (s *Service) Exists(ctx context.Context, workflowID string) (bool, error) {
	_, err := s.store.Get(ctx, workflowID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotRegistered):
		return false, nil
	default:
		return false, err
	}
}

// Create subscribes handlerURL to event. It returns false when the portal
// answers with a falsy result; nothing is stored in that case.
func (s *Service) Create(ctx context.Context, workflowID, event, handlerURL string) (bool, error) {
	if err := ValidateEvent(event); err != nil {
		return false, err
	}

	res, err := s.caller.Call(ctx, http.MethodPost, "event.bind", map[string]any{
		"event":   event,
		"handler": handlerURL,
	}, nil)
	if err != nil {
		subscriptions.WithLabelValues("bind", "error").Inc()
		return false, fmt.Errorf("event.bind %s: %w", event, err)
	}
	if !accepted(res.Value()) {
		subscriptions.WithLabelValues("bind", "rejected").Inc()
		s.logger.Warn().Str("workflow", workflowID).Str("event", event).Msg("Portal rejected event binding")
		return false, nil
	}

	reg := Registration{HandlerID: HandlerID(event, handlerURL), Event: event}
	if err := s.store.Put(ctx, workflowID, reg); err != nil {
		return false, fmt.Errorf("store registration: %w", err)
	}

	subscriptions.WithLabelValues("bind", "ok").Inc()
	s.logger.Info().Str("workflow", workflowID).Str("event", event).Msg("Event bound")
	return true, nil
}

// Delete unsubscribes the workflow's handler. It returns false when the
// unbind call fails; the registration is kept so deactivation can be
// retried. A workflow without a registration has nothing to unbind.
func (s *Service) Delete(ctx context.Context, workflowID, handlerURL string) bool {
	reg, err := s.store.Get(ctx, workflowID)
	if errors.Is(err, ErrNotRegistered) {
		return true
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("workflow", workflowID).Msg("Failed to load registration")
		return false
	}

	_, err = s.caller.Call(ctx, http.MethodPost, "event.unbind", map[string]any{
		"event":   reg.Event,
		"handler": handlerURL,
	}, nil)
	if err != nil {
		subscriptions.WithLabelValues("unbind", "error").Inc()
		s.logger.Warn().Err(err).Str("workflow", workflowID).Str("event", reg.Event).Msg("event.unbind failed")
		return false
	}

	if err := s.store.Delete(ctx, workflowID); err != nil {
		s.logger.Warn().Err(err).Str("workflow", workflowID).Msg("Failed to remove registration")
		return false
	}

	subscriptions.WithLabelValues("unbind", "ok").Inc()
	s.logger.Info().Str("workflow", workflowID).Str("event", reg.Event).Msg("Event unbound")
	return true
}

func accepted(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// Enrich returns a copy of event. With fetchFull set it adds fullObject,
// the current state of the CRM entity or task the event refers to. Fetch
// failures are logged and leave the event without fullObject.
func (s *Service) Enrich(ctx context.Context, event map[string]any, fetchFull bool) map[string]any {
	out := lo.Assign(event)

	name := strings.ToUpper(fmt.Sprint(lo.ValueOr(event, "event", "")))
	deliveries.WithLabelValues(eventLabel(name)).Inc()

	data := gabs.Wrap(event).Search("data")
	if !fetchFull || data.Data() == nil {
		return out
	}

	method, body, pick := fullObjectRequest(name, data)
	if method == "" {
		return out
	}

	res, err := s.caller.Call(ctx, http.MethodPost, method, body, nil)
	if err != nil {
		enrichFailures.Inc()
		s.logger.Debug().Err(err).Str("event", name).Str("method", method).Msg("Full object fetch skipped")
		return out
	}

	if pick == "" {
		out["fullObject"] = res.Value()
	} else if v := res.Get(pick); v.Exists() {
		out["fullObject"] = v.Value()
	}
	return out
}

// fullObjectRequest chooses the get method for an event. CRM events carry
// the entity ID in data.FIELDS.ID and task events in data.FIELDS_AFTER.ID.
func fullObjectRequest(event string, data *gabs.Container) (method string, body map[string]any, pick string) {
	entityID := idAt(data, "FIELDS", "ID")
	taskID := idAt(data, "FIELDS_AFTER", "ID")

	for _, entity := range []string{"DEAL", "LEAD", "CONTACT", "COMPANY"} {
		if strings.Contains(event, entity) && entityID != "" {
			return "crm." + strings.ToLower(entity) + ".get", map[string]any{"id": entityID}, ""
		}
	}
	if strings.Contains(event, "TASK") && taskID != "" {
		return "tasks.task.get", map[string]any{"taskId": taskID}, "task"
	}
	return "", nil, ""
}

func idAt(data *gabs.Container, path ...string) string {
	switch v := data.Search(path...).Data().(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func eventLabel(name string) string {
	if ValidateEvent(name) == nil {
		return name
	}
	return "other"
}
