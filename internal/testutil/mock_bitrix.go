// Package testutil provides testing utilities for the Bitrix24 client.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// WebhookPath is the inbound webhook prefix served by MockBitrix.
const WebhookPath = "/rest/1/testtoken/"

// Call records one request received by the mock portal.
type Call struct {
	HTTPMethod string
	Method     string
	Query      url.Values
	Body       map[string]any
	Header     http.Header
}

// MockResponse defines the reply for a remote method.
type MockResponse struct {
	StatusCode int
	Body       any
	Headers    map[string]string
	Delay      time.Duration
}

// Handler computes the reply for a call.
type Handler func(call Call) MockResponse

// MockBitrix is a configurable mock Bitrix24 REST portal. Remote methods are
// addressed by the last path segment without the ".json" suffix, so it serves
// both webhook URLs and the oauth2 "/rest/{method}.json" layout.
type MockBitrix struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]Handler
	calls    []Call
}

// NewMockBitrix creates and starts a mock portal.
func NewMockBitrix() *MockBitrix {
	mock := &MockBitrix{
		handlers: make(map[string]Handler),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := Call{
			HTTPMethod: r.Method,
			Method:     remoteMethod(r.URL.Path),
			Query:      r.URL.Query(),
			Header:     r.Header.Clone(),
		}
		if r.Method == http.MethodPost {
			data, _ := io.ReadAll(r.Body)
			if len(data) > 0 {
				_ = json.Unmarshal(data, &call.Body)
			}
		}

		mock.mu.Lock()
		mock.calls = append(mock.calls, call)
		handler, exists := mock.handlers[call.Method]
		mock.mu.Unlock()

		if !exists {
			writeResponse(w, Error(http.StatusBadRequest, "ERROR_METHOD_NOT_FOUND", "Method not found!"))
			return
		}
		writeResponse(w, handler(call))
	}))

	return mock
}

func remoteMethod(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return strings.TrimSuffix(path, ".json")
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	switch body := resp.Body.(type) {
	case nil:
	case string:
		w.Write([]byte(body))
	case []byte:
		w.Write(body)
	default:
		json.NewEncoder(w).Encode(body)
	}
}

// URL returns the mock server root URL.
func (m *MockBitrix) URL() string {
	return m.server.URL
}

// WebhookURL returns an inbound webhook URL pointing at the mock portal.
func (m *MockBitrix) WebhookURL() string {
	return m.server.URL + WebhookPath
}

// Domain returns host:port of the mock portal for oauth2 credentials.
func (m *MockBitrix) Domain() string {
	return strings.TrimPrefix(m.server.URL, "http://")
}

// Client returns an HTTP client that talks to the mock portal.
func (m *MockBitrix) Client() *http.Client {
	return m.server.Client()
}

// Close shuts down the mock server.
func (m *MockBitrix) Close() {
	m.server.Close()
}

// Reset clears recorded calls.
func (m *MockBitrix) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// On installs a handler for a remote method.
func (m *MockBitrix) On(method string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method] = h
}

// SetResult makes a remote method answer {"result": result}.
func (m *MockBitrix) SetResult(method string, result any) {
	m.On(method, func(Call) MockResponse {
		return Result(result)
	})
}

// SetError makes a remote method answer with a Bitrix24 error envelope.
func (m *MockBitrix) SetError(method string, status int, code, description string) {
	m.On(method, func(Call) MockResponse {
		return Error(status, code, description)
	})
}

// SetPages serves a paginated list of items, pageSize per call, honoring the
// "start" cursor from the request body or query.
func (m *MockBitrix) SetPages(method string, items []any, pageSize int) {
	m.On(method, func(call Call) MockResponse {
		start := StartOf(call)
		end := start + pageSize
		if end > len(items) {
			end = len(items)
		}
		page := []any{}
		if start < len(items) {
			page = items[start:end]
		}
		body := map[string]any{
			"result": page,
			"total":  len(items),
		}
		if end < len(items) {
			body["next"] = end
		}
		return MockResponse{Body: body}
	})
}

// Calls returns a copy of every recorded call.
func (m *MockBitrix) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsFor returns the recorded calls of one remote method.
func (m *MockBitrix) CallsFor(method string) []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Call
	for _, c := range m.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// LastCall returns the most recent call, or the zero Call.
func (m *MockBitrix) LastCall() Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.calls) == 0 {
		return Call{}
	}
	return m.calls[len(m.calls)-1]
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockBitrix) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// StartOf extracts the pagination cursor of a call.
func StartOf(call Call) int {
	if v, ok := call.Body["start"]; ok {
		if f, ok := v.(float64); ok {
			return int(f)
		}
	}
	n, _ := strconv.Atoi(call.Query.Get("start"))
	return n
}

// Result builds a 200 response with {"result": result}.
func Result(result any) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       map[string]any{"result": result},
	}
}

// Error builds a Bitrix24 error envelope.
func Error(status int, code, description string) MockResponse {
	body := map[string]any{"error": code}
	if description != "" {
		body["error_description"] = description
	}
	return MockResponse{StatusCode: status, Body: body}
}

// NewQueryLimitResponse creates the reply Bitrix24 sends once the portal bucket overflows.
func NewQueryLimitResponse() MockResponse {
	return Error(http.StatusServiceUnavailable, "QUERY_LIMIT_EXCEEDED", "Too many requests")
}
