package fetch

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultWorkers is the default fan-out pool size.
const DefaultWorkers = 3

var fanoutItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gh_fanout_items_total",
	Help: "Fan-out item fetches by outcome",
}, []string{"outcome"}) // "ok", "failed"

// FetchFunc fetches one sub-resource URL and returns its raw body. The
// client's retry policy runs inside; by the time an error surfaces here the
// item's attempt budget is spent.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// Job names one per-issue sub-resource fetch.
type Job struct {
	IssueNumber int
	URL         string
}

// Result is a successful per-issue fetch. Failed items never appear in the
// result set; they are only counted.
type Result struct {
	IssueNumber int
	Body        []byte
}

// Fanout runs per-issue fetches across a fixed worker pool. Workers pull
// jobs from a shared queue until it drains; no worker observes or cancels
// another, and each owns its result privately until the post-join merge.
type Fanout struct {
	fetch   FetchFunc
	workers int
	logger  zerolog.Logger
}

// NewFanout creates a fan-out over the given fetch function.
func NewFanout(fetch FetchFunc, workers int, logger zerolog.Logger) *Fanout {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Fanout{
		fetch:   fetch,
		workers: workers,
		logger:  logger,
	}
}

// Run fetches every job and returns the successful results plus the failure
// count. A failed item is logged with its issue number and cause and dropped
// from the results; it never aborts the batch. Result order is arrival
// order, which carries no guarantee — only the issue number join key does.
func (f *Fanout) Run(ctx context.Context, jobs []Job) ([]Result, int) {
	if len(jobs) == 0 {
		return nil, 0
	}

	jobQueue := make(chan Job, len(jobs))
	for _, job := range jobs {
		jobQueue <- job
	}
	close(jobQueue)

	type outcome struct {
		result Result
		err    error
	}
	outcomes := make(chan outcome, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < f.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			processed := 0

			for job := range jobQueue {
				select {
				case <-ctx.Done():
					f.logger.Debug().
						Int("worker_id", workerID).
						Int("processed", processed).
						Msg("Worker stopping (context cancelled)")
					return
				default:
				}

				body, err := f.fetch(ctx, job.URL)
				if err != nil {
					outcomes <- outcome{result: Result{IssueNumber: job.IssueNumber}, err: err}
				} else {
					outcomes <- outcome{result: Result{IssueNumber: job.IssueNumber, Body: body}}
				}
				processed++
			}

			if processed > 0 {
				f.logger.Debug().
					Int("worker_id", workerID).
					Int("processed", processed).
					Msg("Worker completed")
			}
		}(i)
	}

	// The pool join is the stage's single synchronization barrier.
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var results []Result
	failed := 0
	for o := range outcomes {
		if o.err != nil {
			failed++
			fanoutItemsTotal.WithLabelValues("failed").Inc()
			f.logger.Error().
				Err(o.err).
				Int("issue", o.result.IssueNumber).
				Msg("Item fetch failed, dropping from this fan-out")
			continue
		}
		fanoutItemsTotal.WithLabelValues("ok").Inc()
		results = append(results, o.result)
	}

	f.logger.Info().
		Int("items", len(jobs)).
		Int("ok", len(results)).
		Int("failed", failed).
		Msg("Fan-out complete")

	return results, failed
}
