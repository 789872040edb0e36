// Package client provides the Bitrix24 REST request client: credential
// resolution, request encoding, envelope decoding, error classification and
// request pacing.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/bitrix24-client/pkg/credential"
	"github.com/Sternrassler/bitrix24-client/pkg/logging"
	"github.com/Sternrassler/bitrix24-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Prometheus metrics for Bitrix24 calls.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bitrix24_requests_total",
		Help: "Total Bitrix24 REST calls by remote method and status",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bitrix24_request_duration_seconds",
		Help:    "Bitrix24 REST call duration in seconds by remote method",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bitrix24_errors_total",
		Help: "Total Bitrix24 call errors by class",
	}, []string{"class"})
)

// RequestContext carries everything a call needs from its caller.
type RequestContext struct {
	// Credentials resolves the portal credential for every call.
	Credentials credential.Resolver

	// HTTPClient performs the request. Nil selects an otelhttp-instrumented client.
	HTTPClient *http.Client

	// Logger overrides the component logger.
	Logger *zerolog.Logger

	// Limiter paces calls per portal. Optional.
	Limiter *ratelimit.Tracker
}

// Config holds the client configuration.
type Config struct {
	// User-Agent header sent with every call
	UserAgent string

	// Timeout of the default HTTP client
	Timeout time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		UserAgent: "bitrix24-client/1.0",
		Timeout:   30 * time.Second,
	}
}

// Response is the decoded Bitrix24 envelope.
type Response struct {
	Result           json.RawMessage `json:"result"`
	Total            *int            `json:"total,omitempty"`
	Next             *int            `json:"next,omitempty"`
	Error            string          `json:"error,omitempty"`
	ErrorDescription string          `json:"error_description,omitempty"`
	Time             map[string]any  `json:"time,omitempty"`

	// Raw is the full envelope as decoded JSON.
	Raw map[string]any `json:"-"`
}

// Decode unmarshals the result into v.
func (r *Response) Decode(v any) error {
	if len(r.Result) == 0 {
		return json.Unmarshal([]byte("null"), v)
	}
	return json.Unmarshal(r.Result, v)
}

// Value returns the result as generic JSON (map, slice or scalar).
func (r *Response) Value() any {
	var v any
	if err := r.Decode(&v); err != nil {
		return nil
	}
	return v
}

// Get reads a path from the result, e.g. "task.id" or "items.#".
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Result, path)
}

// Client is the Bitrix24 REST client.
type Client struct {
	httpClient *http.Client
	rc         RequestContext
	config     Config
	logger     zerolog.Logger
}

// New creates a new client.
func New(rc RequestContext, cfg Config) (*Client, error) {
	if rc.Credentials == nil {
		return nil, fmt.Errorf("credentials resolver is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	logger := log.With().Str("component", logging.ComponentClient).Logger()
	if rc.Logger != nil {
		logger = *rc.Logger
	}

	httpClient := rc.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &Client{
		httpClient: httpClient,
		rc:         rc,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Call performs one remote call. body is sent as JSON for POST and as query
// parameters for GET; query is always appended to the URL. Exactly one HTTP
// attempt is made. Every failure is returned as *ApiError.
func (c *Client) Call(ctx context.Context, httpMethod, method string, body, query map[string]any) (*Response, error) {
	httpMethod = strings.ToUpper(strings.TrimSpace(httpMethod))
	if httpMethod == "" {
		httpMethod = http.MethodPost
	}
	if httpMethod != http.MethodGet && httpMethod != http.MethodPost {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, httpMethod)
	}

	cred, err := c.rc.Credentials.Resolve(ctx)
	if err != nil {
		return nil, c.fail(method, &ApiError{
			Class:   ErrorClassAuth,
			Message: "resolve credentials",
			Err:     err,
		})
	}
	portal := cred.Portal()

	if c.rc.Limiter != nil {
		if err := c.rc.Limiter.Wait(ctx, portal); err != nil {
			return nil, c.fail(method, &ApiError{
				Class:   ErrorClassTransport,
				Message: "wait for request budget",
				Err:     err,
			})
		}
	}

	req, err := c.newRequest(ctx, cred, httpMethod, method, body, query)
	if err != nil {
		return nil, c.fail(method, &ApiError{
			Class:   ErrorClassTransport,
			Message: "build request",
			Err:     err,
		})
	}

	c.logger.Debug().
		Str("method", method).
		Str("http_method", httpMethod).
		Str("portal", portal).
		Msg("Executing Bitrix24 call")

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(method, "network_error").Inc()
		return nil, c.fail(method, &ApiError{
			Class:   ErrorClassTransport,
			Message: fmt.Sprintf("request %s failed", method),
			Err:     err,
		})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(method, "network_error").Inc()
		return nil, c.fail(method, &ApiError{
			Class:      ErrorClassTransport,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("read %s response", method),
			Err:        err,
		})
	}
	requestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	out, apiErr := decodeEnvelope(method, resp.StatusCode, data)
	if apiErr != nil {
		if apiErr.Class == ErrorClassRateLimit && c.rc.Limiter != nil {
			if err := c.rc.Limiter.RecordLimitExceeded(ctx, portal); err != nil {
				c.logger.Warn().Err(err).Str("portal", portal).Msg("Failed to record query limit")
			}
		}
		return nil, c.fail(method, apiErr)
	}

	return out, nil
}

func (c *Client) newRequest(ctx context.Context, cred credential.Credential, httpMethod, method string, body, query map[string]any) (*http.Request, error) {
	u, err := url.Parse(cred.Endpoint(method))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	q := u.Query()
	appendQuery(q, "", query)
	if cred.UsesQueryAuth() {
		q.Set("auth", cred.AccessToken)
	}

	var reader io.Reader
	if httpMethod == http.MethodGet {
		appendQuery(q, "", body)
	} else {
		if body == nil {
			body = map[string]any{}
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, httpMethod, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func decodeEnvelope(method string, status int, data []byte) (*Response, *ApiError) {
	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &ApiError{
			Class:      ErrorClassDecode,
			StatusCode: status,
			Message:    fmt.Sprintf("decode %s response (status %d)", method, status),
			Err:        err,
		}
	}
	_ = json.Unmarshal(data, &out.Raw)

	if out.Error != "" {
		msg := out.ErrorDescription
		if msg == "" {
			msg = out.Error
		}
		return nil, &ApiError{
			Class:      ClassifyCode(out.Error),
			Code:       out.Error,
			StatusCode: status,
			Message:    msg,
		}
	}

	if status >= http.StatusBadRequest {
		return nil, &ApiError{
			Class:      ErrorClassRemote,
			StatusCode: status,
			Message:    fmt.Sprintf("%s returned status %d", method, status),
		}
	}

	return &out, nil
}

func (c *Client) fail(method string, err *ApiError) error {
	errorsTotal.WithLabelValues(string(err.Class)).Inc()
	c.logger.Warn().
		Str("method", method).
		Str("error_class", string(err.Class)).
		Str("code", err.Code).
		Int("status", err.StatusCode).
		Msg(err.Error())
	return err
}

// Portal returns the host of the currently resolved credential.
func (c *Client) Portal(ctx context.Context) (string, error) {
	cred, err := c.rc.Credentials.Resolve(ctx)
	if err != nil {
		return "", err
	}
	return cred.Portal(), nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
