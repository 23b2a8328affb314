package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key represents a unique identifier for a cached GitHub response.
type Key struct {
	// Path is the request path (e.g., "/repos/owner/name/issues").
	Path string

	// Query are the request query parameters (per_page, page, sort, ...).
	Query url.Values
}

// KeyForURL builds a cache key from a raw request URL. An unparseable URL
// degrades to a key over the raw string rather than failing the request.
func KeyForURL(rawURL string) Key {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Key{Path: rawURL}
	}
	return Key{Path: u.Path, Query: u.Query()}
}

// String generates a deterministic cache key string.
// Format: gh:path:param1=val1:param2=val2
//
// Example:
//
//	gh:repos/octo/demo/issues:direction=desc:page=1:per_page=100:sort=created:state=all
func (k Key) String() string {
	parts := []string{"gh"}

	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	if len(k.Query) > 0 {
		queryKeys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Query.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
