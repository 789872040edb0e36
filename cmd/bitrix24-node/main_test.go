package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/bitrix24-client/internal/testutil"
	"github.com/Sternrassler/bitrix24-client/pkg/cache"
	"github.com/Sternrassler/bitrix24-client/pkg/client"
	"github.com/Sternrassler/bitrix24-client/pkg/credential"
	"github.com/Sternrassler/bitrix24-client/pkg/pagination"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type testEnv struct {
	mock    *testutil.MockBitrix
	mr      *miniredis.Miniredis
	redis   *redis.Client
	handler http.Handler
}

func setupTestServer(t *testing.T, withRedis bool) *testEnv {
	t.Helper()

	mock := testutil.NewMockBitrix()
	t.Cleanup(mock.Close)

	logger := zerolog.Nop()
	bitrix, err := client.New(client.RequestContext{
		Credentials: credential.Static(credential.Webhook(mock.WebhookURL())),
		HTTPClient:  mock.Client(),
		Logger:      &logger,
	}, client.DefaultConfig())
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}

	env := &testEnv{mock: mock}
	var cacheManager *cache.Manager
	if withRedis {
		env.mr = miniredis.RunT(t)
		env.redis = redis.NewClient(&redis.Options{Addr: env.mr.Addr()})
		t.Cleanup(func() { env.redis.Close() })
		cacheManager = cache.NewManager(env.redis, cache.DefaultConfig())
	}

	env.handler = newServer(bitrix, env.redis, cacheManager, pagination.DefaultConfig()).routes()
	return env
}

func (e *testEnv) do(t *testing.T, method, target, contentType, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)

	resp := w.Result()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func decodeBody[T any](t *testing.T, data []byte) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestServer(t, false)

	resp, body := env.do(t, http.MethodGet, "/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint(t *testing.T) {
	env := setupTestServer(t, true)

	t.Run("ready", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/ready", "", "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", resp.StatusCode)
		}
	})

	t.Run("not_ready_redis_down", func(t *testing.T) {
		env.mr.Close()

		resp, _ := env.do(t, http.MethodGet, "/ready", "", "")
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", resp.StatusCode)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t, false)
	env.mock.SetResult("profile", map[string]any{"ID": "1"})

	// One call so the request metrics have samples.
	env.do(t, http.MethodPost, "/execute", "application/json", `{"items":[{"resource":"user","operation":"getCurrent"}]}`)

	resp, body := env.do(t, http.MethodGet, "/metrics", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	out := string(body)
	if !strings.Contains(out, "# HELP") || !strings.Contains(out, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	for _, name := range []string{"bitrix24_requests_total", "bitrix24_node_items_total"} {
		if !strings.Contains(out, name) {
			t.Errorf("Expected metrics output to contain %s", name)
		}
	}
}

func TestExecuteEndpoint(t *testing.T) {
	env := setupTestServer(t, false)
	env.mock.SetResult("crm.deal.add", 42)
	env.mock.SetError("crm.deal.get", http.StatusBadRequest, "NOT_FOUND", "Not found")

	t.Run("success", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/execute", "application/json",
			`{"items":[{"resource":"deal","operation":"create","params":{"title":"Big deal"}}]}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body %s", resp.StatusCode, body)
		}

		got := decodeBody[map[string][]map[string]any](t, body)
		if len(got["results"]) != 1 || got["results"][0]["id"] != 42.0 {
			t.Errorf("results = %v", got["results"])
		}
	})

	t.Run("remote error", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/execute", "application/json",
			`{"items":[{"resource":"deal","operation":"get","params":{"dealId":"1"}}]}`)
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", resp.StatusCode)
		}
		if got := decodeBody[map[string]any](t, body); got["code"] != "NOT_FOUND" {
			t.Errorf("error body = %v", got)
		}
	})

	t.Run("continue on fail", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/execute", "application/json",
			`{"continueOnFail":true,"items":[{"resource":"deal","operation":"get","params":{"dealId":"1"}}]}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body %s", resp.StatusCode, body)
		}
		got := decodeBody[map[string][]map[string]any](t, body)
		if _, ok := got["results"][0]["error"]; !ok {
			t.Errorf("results = %v, want error item", got["results"])
		}
	})

	t.Run("unknown resource", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/execute", "application/json",
			`{"items":[{"resource":"invoice","operation":"get"}]}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("bad json", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/execute", "application/json", `{"items":`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestResourcesEndpoint(t *testing.T) {
	env := setupTestServer(t, false)

	resp, body := env.do(t, http.MethodGet, "/resources", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decodeBody[map[string][]string](t, body)
	if len(got) != 22 || len(got["rawApi"]) != 2 {
		t.Errorf("resources = %v", got)
	}
}

func TestOptionsEndpoint(t *testing.T) {
	env := setupTestServer(t, true)
	env.mock.SetResult("crm.dealcategory.stages", []any{map[string]any{"STATUS_ID": "C4:NEW", "NAME": "New"}})

	for i := 0; i < 2; i++ {
		resp, body := env.do(t, http.MethodGet, "/options/dealStages?categoryId=4", "", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body %s", resp.StatusCode, body)
		}
		got := decodeBody[[]map[string]any](t, body)
		if len(got) != 1 || got[0]["value"] != "C4:NEW" {
			t.Errorf("options = %v", got)
		}
	}
	if n := len(env.mock.CallsFor("crm.dealcategory.stages")); n != 1 {
		t.Errorf("remote calls = %d, want 1 (second served from cache)", n)
	}

	resp, body := env.do(t, http.MethodDelete, "/options", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("invalidate status = %d", resp.StatusCode)
	}
	if got := decodeBody[map[string]any](t, body); got["deleted"] != 1.0 {
		t.Errorf("invalidate = %v, want 1 deleted", got)
	}

	resp, _ = env.do(t, http.MethodGet, "/options/currencies", "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown lookup status = %d, want 404", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodGet, "/options/customFields", "", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("customFields without entity status = %d, want 400", resp.StatusCode)
	}
}

func TestTriggerEndpoints(t *testing.T) {
	env := setupTestServer(t, true)
	env.mock.SetResult("event.bind", true)
	env.mock.SetResult("event.unbind", true)
	handler := "https://hooks.test/wf-1"

	resp, body := env.do(t, http.MethodPost, "/trigger/wf-1", "application/json",
		`{"event":"ONCRMDEALADD","handlerUrl":"`+handler+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, body)
	}
	if got := decodeBody[map[string]any](t, body); got["created"] != true {
		t.Errorf("create = %v", got)
	}
	if got := env.mr.HGet("bitrix24:trigger:wf-1", "event"); got != "ONCRMDEALADD" {
		t.Errorf("stored event = %q", got)
	}

	_, body = env.do(t, http.MethodGet, "/trigger/wf-1", "", "")
	if got := decodeBody[map[string]any](t, body); got["exists"] != true {
		t.Errorf("exists = %v", got)
	}

	resp, body = env.do(t, http.MethodDelete, "/trigger/wf-1?handlerUrl="+url.QueryEscape(handler), "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if got := decodeBody[map[string]any](t, body); got["deleted"] != true {
		t.Errorf("delete = %v", got)
	}

	resp, _ = env.do(t, http.MethodPost, "/trigger/wf-2", "application/json", `{"event":"ONNOTHING","handlerUrl":"x"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown event status = %d, want 400", resp.StatusCode)
	}

	_, body = env.do(t, http.MethodGet, "/trigger/events?category=tasks", "", "")
	if got := decodeBody[[]map[string]any](t, body); len(got) != 4 {
		t.Errorf("task events = %v", got)
	}
}

func TestWebhookEndpoint(t *testing.T) {
	env := setupTestServer(t, false)
	env.mock.SetResult("crm.deal.get", map[string]any{"ID": "5", "TITLE": "Deal"})

	form := url.Values{}
	form.Set("event", "ONCRMDEALUPDATE")
	form.Set("data[FIELDS][ID]", "5")

	resp, body := env.do(t, http.MethodPost, "/webhook?fetchFull=true", "application/x-www-form-urlencoded", form.Encode())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}

	got := decodeBody[map[string]any](t, body)
	full, _ := got["fullObject"].(map[string]any)
	if full["TITLE"] != "Deal" {
		t.Errorf("webhook output = %v", got)
	}

	resp, _ = env.do(t, http.MethodPost, "/webhook", "application/json", `[1]`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed status = %d, want 400", resp.StatusCode)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("BITRIX24_RATE_LIMIT", "0.5")
	t.Setenv("BITRIX24_RATE_BURST", "not-a-number")
	t.Setenv("OPTIONS_CACHE_TTL", "90s")

	cfg := loadConfig()
	if cfg.Port != "9090" || !cfg.LogPretty || cfg.RateLimit != 0.5 {
		t.Errorf("loadConfig() = %+v", cfg)
	}
	if cfg.RateBurst != 50 {
		t.Errorf("RateBurst = %d, want default 50", cfg.RateBurst)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Errorf("CacheTTL = %v, want 90s", cfg.CacheTTL)
	}
}

func TestNewRedisClient(t *testing.T) {
	tests := []struct {
		raw      string
		wantAddr string
		wantErr  bool
	}{
		{raw: "localhost:6379", wantAddr: "localhost:6379"},
		{raw: "redis://cache.internal:6380/2", wantAddr: "cache.internal:6380"},
		{raw: "http://nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c, err := newRedisClient(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Error("newRedisClient() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newRedisClient() error = %v", err)
			}
			defer c.Close()
			if c.Options().Addr != tt.wantAddr {
				t.Errorf("Addr = %s, want %s", c.Options().Addr, tt.wantAddr)
			}
		})
	}
}
