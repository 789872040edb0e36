package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/bitrix24-client/internal/node"
	"github.com/Sternrassler/bitrix24-client/internal/options"
	"github.com/Sternrassler/bitrix24-client/internal/resources"
	"github.com/Sternrassler/bitrix24-client/internal/trigger"
	"github.com/Sternrassler/bitrix24-client/pkg/cache"
	"github.com/Sternrassler/bitrix24-client/pkg/client"
	"github.com/Sternrassler/bitrix24-client/pkg/logging"
	"github.com/Sternrassler/bitrix24-client/pkg/metrics"
	"github.com/Sternrassler/bitrix24-client/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const requestTimeout = 5 * time.Minute

type server struct {
	bitrix   *client.Client
	redis    *redis.Client
	cache    *cache.Manager
	executor *node.Executor
	options  *options.Loader
	triggers *trigger.Service
	logger   zerolog.Logger
}

// newServer wires the handlers. redisClient and cacheManager may be nil.
func newServer(bitrix *client.Client, redisClient *redis.Client, cacheManager *cache.Manager, pages pagination.Config) *server {
	var store trigger.Store = trigger.NewMemoryStore()
	if redisClient != nil {
		store = trigger.NewRedisStore(redisClient)
	}

	return &server{
		bitrix:   bitrix,
		redis:    redisClient,
		cache:    cacheManager,
		executor: node.NewExecutor(resources.NewRuntime(bitrix, pages)),
		options:  options.NewLoader(bitrix, cacheManager),
		triggers: trigger.NewService(bitrix, store),
		logger:   logging.NewLogger(logging.ComponentNode),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler(s.redis))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /resources", s.handleResources)
	mux.HandleFunc("POST /execute", s.handleExecute)

	mux.HandleFunc("GET /options/{name}", s.handleOptions)
	mux.HandleFunc("DELETE /options", s.handleInvalidateOptions)

	mux.HandleFunc("GET /trigger/events", s.handleEvents)
	mux.HandleFunc("GET /trigger/{workflowID}", s.handleTriggerExists)
	mux.HandleFunc("POST /trigger/{workflowID}", s.handleTriggerCreate)
	mux.HandleFunc("DELETE /trigger/{workflowID}", s.handleTriggerDelete)

	mux.HandleFunc("POST /webhook", s.handleWebhook)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

type executeRequest struct {
	Items          []node.Item `json:"items"`
	ContinueOnFail bool        `json:"continueOnFail"`
}

func (s *server) handleResources(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]string)
	for _, name := range resources.Names() {
		out[name] = resources.Operations(name)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	results, err := s.executor.Execute(ctx, req.Items, req.ContinueOnFail)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *server) handleOptions(w http.ResponseWriter, r *http.Request) {
	args := make(map[string]string)
	for key := range r.URL.Query() {
		args[key] = r.URL.Query().Get(key)
	}

	opts, err := s.options.Load(r.Context(), r.PathValue("name"), args)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, opts)
}

func (s *server) handleInvalidateOptions(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"deleted": 0})
		return
	}

	portal, err := s.bitrix.Portal(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	deleted, err := s.cache.Invalidate(r.Context(), portal)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, trigger.Events(r.URL.Query().Get("category")))
}

type triggerRequest struct {
	Event      string `json:"event"`
	HandlerURL string `json:"handlerUrl"`
}

func (s *server) handleTriggerExists(w http.ResponseWriter, r *http.Request) {
	exists, err := s.triggers.Exists(r.Context(), r.PathValue("workflowID"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"exists": exists})
}

func (s *server) handleTriggerCreate(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.HandlerURL == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("handlerUrl is required"))
		return
	}

	created, err := s.triggers.Create(r.Context(), r.PathValue("workflowID"), req.Event, req.HandlerURL)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"created": created})
}

func (s *server) handleTriggerDelete(w http.ResponseWriter, r *http.Request) {
	handlerURL := r.URL.Query().Get("handlerUrl")
	if handlerURL == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("handlerUrl is required"))
		return
	}

	deleted := s.triggers.Delete(r.Context(), r.PathValue("workflowID"), handlerURL)
	s.writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (s *server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	event, err := trigger.Decode(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	fetchFull, _ := strconv.ParseBool(r.URL.Query().Get("fetchFull"))
	out := s.triggers.Enrich(r.Context(), event, fetchFull)

	s.logger.Debug().Interface("event", out["event"]).Bool("fetch_full", fetchFull).Msg("Event received")
	s.writeJSON(w, http.StatusOK, out)
}

// statusFor maps an error to the HTTP status returned to the host.
func statusFor(err error) int {
	var apiErr *client.ApiError
	switch {
	case errors.Is(err, resources.ErrUnknownResource),
		errors.Is(err, resources.ErrUnknownOperation),
		errors.Is(err, resources.ErrMissingParameter),
		errors.Is(err, options.ErrMissingArgument),
		errors.Is(err, trigger.ErrUnknownEvent):
		return http.StatusBadRequest
	case errors.Is(err, options.ErrUnknownLookup):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write response")
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	body := map[string]any{"error": err.Error()}

	var apiErr *client.ApiError
	if errors.As(err, &apiErr) {
		body["code"] = apiErr.Code
	}
	var partial *pagination.PartialResultError
	if errors.As(err, &partial) {
		body["partialItems"] = len(partial.Items)
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	s.writeJSON(w, status, body)
}
