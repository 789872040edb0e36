// Package metrics provides centralized Prometheus metrics registry for the Bitrix24 client.
// All metrics are defined in their respective packages (client, pagination, cache, ratelimit,
// trigger, node) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - bitrix24_requests_total{method, status} (Counter): Calls by remote method and HTTP status
//   - bitrix24_request_duration_seconds{method} (Histogram): Call duration by remote method
//   - bitrix24_errors_total{class} (Counter): Errors by class (remote, transport, decode, rate_limit, auth)
//
// Pagination Metrics (pkg/pagination):
//   - bitrix24_pagination_pages_total{method} (Counter): Pages fetched while aggregating list methods
//
// Rate Limit Metrics (pkg/ratelimit):
//   - bitrix24_rate_limit_wait_seconds (Histogram): Time spent waiting for the portal budget
//   - bitrix24_rate_limit_cooldowns_total (Counter): Cooldown windows opened after QUERY_LIMIT_EXCEEDED
//
// Cache Metrics (pkg/cache):
//   - bitrix24_cache_hits_total{layer="redis"} (Counter): Lookup cache hits
//   - bitrix24_cache_misses_total (Counter): Lookup cache misses
//   - bitrix24_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - bitrix24_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(bitrix24_cache_hits_total[5m])) /
//   (sum(rate(bitrix24_cache_hits_total[5m])) + sum(rate(bitrix24_cache_misses_total[5m])))
//
//   # Query limit pressure
//   rate(bitrix24_rate_limit_cooldowns_total[5m]) > 0
//
//   # Error rate by class
//   sum by (class) (rate(bitrix24_errors_total[5m]))
//
//   # P95 call latency
//   histogram_quantile(0.95, rate(bitrix24_request_duration_seconds_bucket[5m]))
//
// Trigger Metrics (internal/trigger):
//   - bitrix24_trigger_subscriptions_total{action, outcome} (Counter): event.bind and event.unbind attempts
//   - bitrix24_trigger_events_total{event} (Counter): Received events, "other" outside the catalog
//   - bitrix24_trigger_enrich_failures_total (Counter): Full-object fetches that failed during enrichment
//
// Node Metrics (internal/node):
//   - bitrix24_node_items_total{resource, outcome} (Counter): Executed items by resource and outcome
