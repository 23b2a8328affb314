package integration

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tracefetch/gh-issue-extract/internal/testutil"
	"github.com/tracefetch/gh-issue-extract/pkg/cache"
	"github.com/tracefetch/gh-issue-extract/pkg/client"
	"github.com/tracefetch/gh-issue-extract/pkg/pipeline"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func fastRetry() client.RetryConfig {
	return client.RetryConfig{
		MaxAttempts:       2,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        50 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

// TestConditionalRequestFlow covers the full ETag cycle: a first request
// stores the body and its ETag, a second request revalidates with
// If-None-Match and serves the 304 from cache.
func TestConditionalRequestFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockGitHub()
	defer mock.Close()

	const listing = `[{"number": 1, "title": "cached issue", "state": "open"}]`
	mock.SetHandler("/repos/octo/demo/issues", testutil.ConditionalHandler(`W/"stable-etag"`, listing))

	manager := cache.NewManager(redisClient, time.Minute)

	ghClient, err := client.New(client.Config{
		BaseURL:   mock.URL(),
		UserAgent: "gh-issue-extract-integration/1.0",
		Timeout:   5 * time.Second,
		Retry:     fastRetry(),
		Cache:     manager,
	})
	if err != nil {
		t.Fatalf("client.New() failed: %v", err)
	}

	ctx := context.Background()
	url := mock.URL() + "/repos/octo/demo/issues?per_page=100&page=1"

	first, err := ghClient.GetJSON(ctx, url, client.AcceptV3)
	if err != nil {
		t.Fatalf("First GetJSON() failed: %v", err)
	}
	if string(first) != listing {
		t.Errorf("First body = %s", first)
	}

	// The entry must be in redis before the revalidation round.
	key := cache.KeyForURL(url)
	entry, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Cache entry missing after first request: %v", err)
	}
	if entry.ETag != `W/"stable-etag"` {
		t.Errorf("Cached ETag = %q", entry.ETag)
	}

	second, err := ghClient.GetJSON(ctx, url, client.AcceptV3)
	if err != nil {
		t.Fatalf("Second GetJSON() failed: %v", err)
	}
	if string(second) != listing {
		t.Errorf("304 response did not serve the cached body: %s", second)
	}

	// Both rounds hit the network; the second is answered with a 304.
	if got := mock.PathCount("/repos/octo/demo/issues"); got != 2 {
		t.Errorf("Expected 2 upstream requests, got %d", got)
	}
}

// TestPipelineWithCache runs the same extraction twice against one cache and
// expects identical results.
func TestPipelineWithCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetIssues(
		testutil.MockIssue{
			Number:   2,
			Comments: []testutil.MockComment{{Body: "first"}, {Body: "second"}},
			Timeline: []testutil.MockEvent{{Event: "labeled"}},
		},
		testutil.MockIssue{Number: 1},
	)

	opts := pipeline.DefaultOptions("octo/demo")
	opts.BaseURL = mock.URL()
	opts.OutputDir = t.TempDir()
	opts.Retry = fastRetry()
	opts.Cache = cache.NewManager(redisClient, time.Minute)

	first, err := pipeline.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("First Run() failed: %v", err)
	}
	second, err := pipeline.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Second Run() failed: %v", err)
	}

	if first.Issues != second.Issues || first.Comments != second.Comments || first.TimelineEvents != second.TimelineEvents {
		t.Errorf("Cached rerun disagrees: %+v vs %+v", first, second)
	}
	if second.Issues != 2 || second.Comments != 2 || second.TimelineEvents != 1 {
		t.Errorf("Unexpected counts: %+v", second)
	}
}
