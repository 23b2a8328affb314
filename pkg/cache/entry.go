// Package cache provides an optional redis-backed response cache keyed on
// GitHub ETags. GitHub serves 304 Not Modified for matching If-None-Match
// headers without charging the rate limit, so re-running an extraction
// against a mostly unchanged repository costs almost nothing.
package cache

import (
	"net/http"
	"time"
)

// Entry represents a cached GitHub API response.
type Entry struct {
	// Data is the response body.
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match).
	ETag string `json:"etag"`

	// StatusCode is the HTTP status code of the cached response.
	StatusCode int `json:"status_code"`

	// CachedAt is when the response was cached.
	CachedAt time.Time `json:"cached_at"`
}

// AddConditionalHeaders adds an If-None-Match header to the request when the
// entry carries an ETag. GitHub ignores If-Modified-Since on most endpoints,
// so the ETag is the only revalidation handle used.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if entry == nil || req == nil {
		return
	}
	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	}
}
