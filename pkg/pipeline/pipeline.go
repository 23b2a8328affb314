// Package pipeline wires the extraction stages end to end: sequential issue
// listing, two independent fan-outs for comments and timeline events,
// normalization, and the sinks. A pagination failure aborts the run; every
// per-item failure is absorbed here and only surfaces in the summary counts.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tracefetch/gh-issue-extract/pkg/cache"
	"github.com/tracefetch/gh-issue-extract/pkg/client"
	"github.com/tracefetch/gh-issue-extract/pkg/fetch"
	"github.com/tracefetch/gh-issue-extract/pkg/github"
	"github.com/tracefetch/gh-issue-extract/pkg/logging"
	"github.com/tracefetch/gh-issue-extract/pkg/sink"
)

// EnvGitHubToken is the environment variable consulted when no token is
// passed explicitly.
const EnvGitHubToken = "GITHUB_TOKEN"

// Options configures one pipeline run. Everything is supplied explicitly;
// the only environment fallback is the token.
type Options struct {
	// Repository is the target in "owner/name" form.
	Repository string

	// Token is the API credential. Empty falls back to GITHUB_TOKEN; still
	// empty means unauthenticated requests.
	Token string

	// Limit caps the number of issues extracted.
	Limit int

	// MaxPages bounds the listing pagination.
	MaxPages int

	// Concurrency is the fan-out worker pool size.
	Concurrency int

	// OutputDir receives the CSV artifacts ("." when empty).
	OutputDir string

	// DatabasePath, when set, additionally writes the batch to SQLite.
	DatabasePath string

	// BaseURL overrides the API base (tests, GHE).
	BaseURL string

	// Cache enables conditional-request caching when set.
	Cache *cache.Manager

	// Retry overrides the default backoff policy when MaxAttempts is set.
	Retry client.RetryConfig
}

// DefaultOptions returns the default run configuration for a repository.
func DefaultOptions(repository string) Options {
	return Options{
		Repository:  repository,
		Limit:       100,
		MaxPages:    20,
		Concurrency: fetch.DefaultWorkers,
	}
}

// Summary reports what a completed run collected and what it dropped.
type Summary struct {
	Issues           int
	Comments         int
	TimelineEvents   int
	CommentFailures  int
	TimelineFailures int
	MalformedRecords int
	Artifacts        sink.Artifacts
	Duration         time.Duration
}

// ParseRepository splits an "owner/name" identifier.
func ParseRepository(repo string) (owner, name string, err error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/name", repo)
	}
	return parts[0], parts[1], nil
}

// Run executes the full extraction for opts.Repository. The returned error
// is non-nil only for configuration, pagination, or sink failures; item
// failures are reported through the Summary.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()
	logger := logging.NewLogger("pipeline")

	if _, _, err := ParseRepository(opts.Repository); err != nil {
		return nil, err
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultOptions(opts.Repository).Limit
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultOptions(opts.Repository).MaxPages
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = fetch.DefaultWorkers
	}

	token := opts.Token
	if token == "" {
		token = os.Getenv(EnvGitHubToken)
	}

	cfg := client.DefaultConfig(token)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cfg.Cache = opts.Cache
	if opts.Retry.MaxAttempts > 0 {
		cfg.Retry = opts.Retry
	}

	ghClient, err := client.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	logger.Info().
		Str("repo", opts.Repository).
		Int("limit", opts.Limit).
		Int("max_pages", opts.MaxPages).
		Int("concurrency", opts.Concurrency).
		Bool("authenticated", ghClient.Authenticated()).
		Msg("Starting extraction")

	pager := fetch.NewPager(ghClient, fetch.PagerConfig{Limit: opts.Limit, MaxPages: opts.MaxPages}, logger)
	rawIssues, err := pager.FetchIssues(ctx, opts.Repository)
	if err != nil {
		// A hole in the listing sequence cannot be repaired; discard
		// whatever was gathered and fail the run.
		return nil, fmt.Errorf("issue listing failed: %w", err)
	}

	malformed := 0
	issues := make([]github.IssueRecord, 0, len(rawIssues))
	commentJobs := make([]fetch.Job, 0, len(rawIssues))
	timelineJobs := make([]fetch.Job, 0, len(rawIssues))

	for _, raw := range rawIssues {
		rec, err := github.NormalizeIssue(raw)
		if err != nil {
			malformed++
			logger.Warn().Err(err).Msg("Skipping malformed issue")
			continue
		}
		issues = append(issues, rec)

		// Sub-resources are only fetched for issues confirmed present in
		// the issues table, which keeps the join keys referential.
		commentJobs = append(commentJobs, fetch.Job{IssueNumber: rec.Number, URL: commentsURL(raw)})
		timelineJobs = append(timelineJobs, fetch.Job{IssueNumber: rec.Number, URL: timelineURL(raw)})
	}

	fetchV3 := func(ctx context.Context, url string) ([]byte, error) {
		return ghClient.GetJSON(ctx, url, client.AcceptV3)
	}
	fetchVersioned := func(ctx context.Context, url string) ([]byte, error) {
		return ghClient.GetJSON(ctx, url, client.AcceptVersioned)
	}

	commentResults, commentFailures := fetch.NewFanout(fetchV3, opts.Concurrency,
		logging.NewLogger("comments-fanout")).Run(ctx, commentJobs)
	timelineResults, timelineFailures := fetch.NewFanout(fetchVersioned, opts.Concurrency,
		logging.NewLogger("timeline-fanout")).Run(ctx, timelineJobs)

	var comments []github.CommentRecord
	for _, res := range commentResults {
		var raws []github.Comment
		if err := json.Unmarshal(res.Body, &raws); err != nil {
			commentFailures++
			logger.Error().Err(err).Int("issue", res.IssueNumber).Msg("Failed to decode comments, dropping item")
			continue
		}
		for _, raw := range raws {
			rec, err := github.NormalizeComment(raw, res.IssueNumber)
			if err != nil {
				malformed++
				logger.Warn().Err(err).Int("issue", res.IssueNumber).Msg("Skipping malformed comment")
				continue
			}
			comments = append(comments, rec)
		}
	}

	var events []github.TimelineEventRecord
	for _, res := range timelineResults {
		var raws []github.TimelineEvent
		if err := json.Unmarshal(res.Body, &raws); err != nil {
			timelineFailures++
			logger.Error().Err(err).Int("issue", res.IssueNumber).Msg("Failed to decode timeline, dropping item")
			continue
		}
		for _, raw := range raws {
			events = append(events, github.NormalizeTimelineEvent(raw, res.IssueNumber))
		}
	}

	csvSink := sink.NewCSV(opts.OutputDir, logging.NewLogger("sink"))
	arts, err := csvSink.Write(opts.Repository, issues, comments, events)
	if err != nil {
		return nil, fmt.Errorf("write artifacts: %w", err)
	}

	if opts.DatabasePath != "" {
		db, err := sink.OpenDB(opts.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open database sink: %w", err)
		}
		defer db.Close()
		if err := db.Replace(opts.Repository, issues, comments, events); err != nil {
			return nil, fmt.Errorf("write database sink: %w", err)
		}
	}

	summary := &Summary{
		Issues:           len(issues),
		Comments:         len(comments),
		TimelineEvents:   len(events),
		CommentFailures:  commentFailures,
		TimelineFailures: timelineFailures,
		MalformedRecords: malformed,
		Artifacts:        arts,
		Duration:         time.Since(start),
	}

	logger.Info().
		Str("repo", opts.Repository).
		Int("issues", summary.Issues).
		Int("comments", summary.Comments).
		Int("timeline_events", summary.TimelineEvents).
		Int("comment_failures", summary.CommentFailures).
		Int("timeline_failures", summary.TimelineFailures).
		Int("malformed_records", summary.MalformedRecords).
		Dur("duration", summary.Duration).
		Msg("Extraction complete")

	return summary, nil
}

// commentsURL prefers the listing's comments_url and falls back to the
// issue API URL convention.
func commentsURL(raw github.Issue) string {
	if raw.CommentsURL != "" {
		return raw.CommentsURL
	}
	return raw.URL + "/comments"
}

// timelineURL mirrors commentsURL for the timeline endpoint.
func timelineURL(raw github.Issue) string {
	if raw.TimelineURL != "" {
		return raw.TimelineURL
	}
	return raw.URL + "/timeline"
}
