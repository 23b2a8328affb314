// Package metrics provides the central Prometheus registry reference for
// the extractor. All metrics are defined in their respective packages
// (client, fetch, cache) via promauto to keep modularity and avoid circular
// dependencies.
//
// This package documents the full metric surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the extractor.
// All metrics are automatically registered via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - gh_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - gh_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - gh_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - gh_retries_total{error_class} (Counter): Retry attempts by error class
//   - gh_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - gh_retry_exhausted_total{error_class} (Counter): Requests that exhausted max attempts
//
// Fetch Metrics (pkg/fetch):
//   - gh_listing_pages_fetched_total (Counter): Issue listing pages fetched
//   - gh_fanout_items_total{outcome} (Counter): Fan-out item fetches by outcome (ok, failed)
//
// Cache Metrics (pkg/cache):
//   - gh_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - gh_cache_misses_total (Counter): Cache misses
//   - gh_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - gh_304_responses_total (Counter): 304 Not Modified responses
//   - gh_conditional_requests_total (Counter): Conditional requests sent with If-None-Match
//   - gh_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Fan-out failure rate
//   rate(gh_fanout_items_total{outcome="failed"}[5m]) /
//   rate(gh_fanout_items_total[5m])
//
//   # Request error rate
//   rate(gh_errors_total[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(gh_request_duration_seconds_bucket[5m]))
//
//   # 304 hit rate (free requests)
//   rate(gh_304_responses_total[5m]) / rate(gh_requests_total[5m])
