// Package metrics exposes the Prometheus metrics of the Intercom connector.
// All metrics are defined in their respective packages (client, pagination,
// ratelimit, connector) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and the HTTP handler serving them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the connector.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back everything registered in Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Invocation Metrics (pkg/connector):
//   - intercom_fetch_total{outcome} (Counter): Invocations by outcome
//     (success, not_authenticated, http_error, unexpected_json)
//   - intercom_fetch_duration_seconds (Histogram): Invocation duration
//   - intercom_fetch_rows (Histogram): Rows returned by successful invocations
//
// Pagination Metrics (pkg/pagination):
//   - intercom_pages_fetched_total{key} (Counter): Pages fetched by resource key
//   - intercom_pagination_truncated_total{key} (Counter): Fetches stopped by the page cap
//
// Request Metrics (pkg/client):
//   - intercom_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - intercom_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - intercom_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - intercom_rate_limit_remaining (Gauge): Requests remaining in the current window
//   - intercom_rate_limit_waits_total (Counter): Requests delayed until the window reset
//   - intercom_rate_limit_blocks_total (Counter): Requests blocked because the reset was too far away
//   - intercom_rate_limit_throttles_total (Counter): Requests throttled near the limit
//
// Example Prometheus Queries:
//
//   # Invocation failure rate
//   sum(rate(intercom_fetch_total{outcome!="success"}[5m])) /
//   sum(rate(intercom_fetch_total[5m]))
//
//   # Truncated reference lists
//   increase(intercom_pagination_truncated_total[1h]) > 0
//
//   # Rate limit headroom
//   intercom_rate_limit_remaining < 10
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(intercom_request_duration_seconds_bucket[5m]))
