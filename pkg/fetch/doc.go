// Package fetch implements the two retrieval stages of the extraction
// pipeline.
//
// The Pager enumerates the issue listing sequentially: each page request
// depends on the loop state of the previous one, so no parallelism is
// applied and a single failed page aborts the listing (a hole in the
// sequence would corrupt ordering).
//
// The Fanout dispatches per-issue sub-resource fetches (comments, timeline)
// across a fixed worker pool. Items are independent: a worker that exhausts
// its retries drops only its own item from the results, and the collector
// joins everything after the pool drains. The default pool size is small (3)
// to stay inside GitHub's secondary rate limits.
//
// Example usage:
//
//	pager := fetch.NewPager(ghClient, fetch.PagerConfig{Limit: 100, MaxPages: 20}, logger)
//	issues, err := pager.FetchIssues(ctx, "owner/name")
//
//	fanout := fetch.NewFanout(fetchComments, 3, logger)
//	results, failed := fanout.Run(ctx, jobs)
package fetch
