// Package testutil provides testing utilities for the extractor.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a custom mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockComment is a canned issue comment.
type MockComment struct {
	ID   int64
	Body string
	User string
}

// MockEvent is a canned timeline event.
type MockEvent struct {
	ID    int64
	Event string
	Actor string
}

// MockIssue is a canned listing item served by the fake API. Zero-value
// fields get sensible defaults; CommentsStatus/TimelineStatus override the
// sub-resource endpoint with an error status when non-zero.
type MockIssue struct {
	Number         int
	Title          string
	State          string
	IsPullRequest  bool
	Labels         []string
	Comments       []MockComment
	Timeline       []MockEvent
	CommentsStatus int
	TimelineStatus int
}

// MockGitHub is a configurable fake GitHub API for testing. It serves the
// issue listing with real per_page/page pagination semantics plus the
// per-issue comments and timeline endpoints, for any owner/name path.
type MockGitHub struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	issues   []MockIssue

	// Tracking
	RequestCount      int
	PathCounts        map[string]int
	LastRequestHeader http.Header
}

// NewMockGitHub creates a new mock server.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		handlers:   make(map[string]http.HandlerFunc),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.route(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// Reset clears tracking counters.
func (m *MockGitHub) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
	m.LastRequestHeader = nil
}

// SetIssues installs the canned issue set served by the listing.
func (m *MockGitHub) SetIssues(issues ...MockIssue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues = issues
}

// SetHandler sets a custom handler for a specific path, overriding routing.
func (m *MockGitHub) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple canned response for a path.
func (m *MockGitHub) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockGitHub) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// PathCount returns the number of requests made to a specific path.
func (m *MockGitHub) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// route dispatches /repos/{owner}/{name}/issues[...] paths.
func (m *MockGitHub) route(w http.ResponseWriter, r *http.Request) {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(segments) < 4 || segments[0] != "repos" || segments[3] != "issues" {
		writeJSONError(w, http.StatusNotFound, "Not Found")
		return
	}
	owner, repo := segments[1], segments[2]

	switch {
	case len(segments) == 4:
		m.serveListing(w, r, owner, repo)
	case len(segments) == 6 && segments[5] == "comments":
		m.serveComments(w, owner, repo, segments[4])
	case len(segments) == 6 && segments[5] == "timeline":
		m.serveTimeline(w, segments[4])
	default:
		writeJSONError(w, http.StatusNotFound, "Not Found")
	}
}

func (m *MockGitHub) serveListing(w http.ResponseWriter, r *http.Request, owner, repo string) {
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage <= 0 {
		perPage = 30
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}

	m.mu.RLock()
	issues := m.issues
	m.mu.RUnlock()

	start := (page - 1) * perPage
	if start >= len(issues) {
		writeJSON(w, []any{})
		return
	}
	end := start + perPage
	if end > len(issues) {
		end = len(issues)
	}

	items := make([]any, 0, end-start)
	for _, issue := range issues[start:end] {
		items = append(items, m.issueObject(owner, repo, issue))
	}
	writeJSON(w, items)
}

func (m *MockGitHub) serveComments(w http.ResponseWriter, owner, repo, number string) {
	issue, ok := m.findIssue(number)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "Not Found")
		return
	}
	if issue.CommentsStatus != 0 && issue.CommentsStatus != http.StatusOK {
		writeJSONError(w, issue.CommentsStatus, "mock comments failure")
		return
	}

	items := make([]any, 0, len(issue.Comments))
	for i, c := range issue.Comments {
		id := c.ID
		if id == 0 {
			id = int64(issue.Number)*1000 + int64(i) + 1
		}
		user := c.User
		if user == "" {
			user = "octocat"
		}
		items = append(items, map[string]any{
			"id":                 id,
			"node_id":            fmt.Sprintf("IC_%d", id),
			"body":               c.Body,
			"user":               map[string]any{"login": user},
			"created_at":         "2024-01-02T03:04:05Z",
			"updated_at":         "2024-01-02T03:04:05Z",
			"author_association": "NONE",
			"reactions":          map[string]any{"total_count": 0},
			"issue_url":          fmt.Sprintf("%s/repos/%s/%s/issues/%d", m.server.URL, owner, repo, issue.Number),
			"html_url":           fmt.Sprintf("https://example.com/issues/%d#issuecomment-%d", issue.Number, id),
		})
	}
	writeJSON(w, items)
}

func (m *MockGitHub) serveTimeline(w http.ResponseWriter, number string) {
	issue, ok := m.findIssue(number)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "Not Found")
		return
	}
	if issue.TimelineStatus != 0 && issue.TimelineStatus != http.StatusOK {
		writeJSONError(w, issue.TimelineStatus, "mock timeline failure")
		return
	}

	items := make([]any, 0, len(issue.Timeline))
	for i, e := range issue.Timeline {
		id := e.ID
		if id == 0 {
			id = int64(issue.Number)*10000 + int64(i) + 1
		}
		actor := e.Actor
		if actor == "" {
			actor = "octocat"
		}
		items = append(items, map[string]any{
			"id":         id,
			"node_id":    fmt.Sprintf("TE_%d", id),
			"event":      e.Event,
			"created_at": "2024-01-03T03:04:05Z",
			"actor":      map[string]any{"login": actor},
		})
	}
	writeJSON(w, items)
}

func (m *MockGitHub) findIssue(number string) (MockIssue, bool) {
	n, err := strconv.Atoi(number)
	if err != nil {
		return MockIssue{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, issue := range m.issues {
		if issue.Number == n {
			return issue, true
		}
	}
	return MockIssue{}, false
}

// issueObject builds the raw listing JSON for one canned issue.
func (m *MockGitHub) issueObject(owner, repo string, issue MockIssue) map[string]any {
	state := issue.State
	if state == "" {
		state = "open"
	}
	title := issue.Title
	if title == "" {
		title = fmt.Sprintf("Issue %d", issue.Number)
	}

	labels := make([]any, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, map[string]any{"name": l})
	}

	apiBase := fmt.Sprintf("%s/repos/%s/%s/issues/%d", m.server.URL, owner, repo, issue.Number)
	obj := map[string]any{
		"number":             issue.Number,
		"title":              title,
		"state":              state,
		"body":               fmt.Sprintf("Body of issue %d", issue.Number),
		"comments":           len(issue.Comments),
		"labels":             labels,
		"user":               map[string]any{"login": "octocat"},
		"author_association": "OWNER",
		"created_at":         "2024-01-01T00:00:00Z",
		"updated_at":         "2024-01-02T00:00:00Z",
		"reactions":          map[string]any{"total_count": 0},
		"url":                apiBase,
		"comments_url":       apiBase + "/comments",
		"timeline_url":       apiBase + "/timeline",
		"html_url":           fmt.Sprintf("https://example.com/%s/%s/issues/%d", owner, repo, issue.Number),
	}
	if issue.IsPullRequest {
		obj["pull_request"] = map[string]any{"url": apiBase}
	}
	return obj
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	data, err := json.Marshal(v)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("ETag", fmt.Sprintf("%q", etagFor(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"message": %q}`, msg)
}

// etagFor derives a stable weak tag from the payload length and a prefix of
// its bytes; good enough for conditional-request tests.
func etagFor(data []byte) string {
	n := len(data)
	if n > 16 {
		n = 16
	}
	return fmt.Sprintf("mock-%d-%x", len(data), data[:n])
}

// ConditionalHandler returns a handler that serves data with the given ETag
// and answers matching If-None-Match requests with 304 Not Modified.
func ConditionalHandler(etag, data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
