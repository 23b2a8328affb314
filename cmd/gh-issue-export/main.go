package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tracefetch/gh-issue-extract/pkg/cache"
	"github.com/tracefetch/gh-issue-extract/pkg/logging"
	"github.com/tracefetch/gh-issue-extract/pkg/pipeline"
)

func main() {
	repo := flag.String("repo", "", "Repository to extract (owner/name)")
	limit := flag.Int("limit", 100, "Maximum number of issues to fetch")
	maxPages := flag.Int("max-pages", 20, "Maximum listing pages to request")
	concurrency := flag.Int("concurrency", 3, "Fan-out worker count")
	out := flag.String("out", ".", "Output directory for CSV artifacts")
	dbPath := flag.String("db", "", "Optional SQLite artifact path")
	token := flag.String("token", "", "GitHub token (defaults to GITHUB_TOKEN)")
	redisAddr := flag.String("redis", os.Getenv("REDIS_URL"), "Optional redis address enabling the response cache")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	pretty := flag.Bool("pretty", false, "Human-readable log output")
	flag.Parse()

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(*logLevel),
		Pretty: *pretty,
		Output: os.Stderr,
	})

	if *repo == "" {
		fmt.Fprintln(os.Stderr, "gh-issue-export: -repo owner/name is required")
		flag.Usage()
		os.Exit(2)
	}

	opts := pipeline.DefaultOptions(*repo)
	opts.Limit = *limit
	opts.MaxPages = *maxPages
	opts.Concurrency = *concurrency
	opts.OutputDir = *out
	opts.DatabasePath = *dbPath
	opts.Token = *token

	ctx := context.Background()

	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("redis", *redisAddr).
				Msg("Redis unavailable, running without response cache")
			rdb.Close()
		} else {
			defer rdb.Close()
			opts.Cache = cache.NewManager(rdb, 0)
			logger.Info().Str("redis", *redisAddr).Msg("Response cache enabled")
		}
	}

	summary, err := pipeline.Run(ctx, opts)
	if err != nil {
		logger.Error().Err(err).Msg("Extraction failed")
		os.Exit(1)
	}

	fmt.Printf("extracted %d issues, %d comments, %d timeline events in %s\n",
		summary.Issues, summary.Comments, summary.TimelineEvents, summary.Duration.Round(time.Millisecond))
	if summary.CommentFailures > 0 || summary.TimelineFailures > 0 || summary.MalformedRecords > 0 {
		fmt.Printf("dropped: %d comment fetches, %d timeline fetches, %d malformed records\n",
			summary.CommentFailures, summary.TimelineFailures, summary.MalformedRecords)
	}
	fmt.Printf("artifacts: %s %s %s\n",
		summary.Artifacts.IssuesPath, summary.Artifacts.CommentsPath, summary.Artifacts.TimelinePath)
}
