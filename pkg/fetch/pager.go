package fetch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/tracefetch/gh-issue-extract/pkg/client"
	"github.com/tracefetch/gh-issue-extract/pkg/github"
)

// MaxPerPage is the GitHub API page size ceiling.
const MaxPerPage = 100

var pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gh_listing_pages_fetched_total",
	Help: "Total issue listing pages fetched",
})

// PagerConfig bounds a listing run.
type PagerConfig struct {
	// Limit is the maximum number of issues to return.
	Limit int

	// MaxPages is the maximum number of pages to request.
	MaxPages int
}

// DefaultPagerConfig returns the default pagination bounds.
func DefaultPagerConfig() PagerConfig {
	return PagerConfig{
		Limit:    100,
		MaxPages: 20,
	}
}

// PageError reports a listing page whose fetch exhausted its retries. It is
// fatal to the whole run: the partial item set cannot be trusted once a page
// is missing from the sequence.
type PageError struct {
	Page int
	Err  error
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("fetch listing page %d: %v", e.Page, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PageError) Unwrap() error {
	return e.Err
}

// Pager fetches the issue listing one page at a time, newest first.
type Pager struct {
	client *client.Client
	config PagerConfig
	logger zerolog.Logger
}

// NewPager creates a pager over the given client.
func NewPager(c *client.Client, config PagerConfig, logger zerolog.Logger) *Pager {
	if config.Limit <= 0 {
		config.Limit = DefaultPagerConfig().Limit
	}
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultPagerConfig().MaxPages
	}
	return &Pager{
		client: c,
		config: config,
		logger: logger,
	}
}

// FetchIssues returns up to Limit non-PR issues for repo ("owner/name"),
// sorted newest first as the API returns them. Pagination stops early on an
// empty page or a page shorter than the requested page size; the raw item
// count decides the last-page signal because the PR filter runs afterwards.
func (p *Pager) FetchIssues(ctx context.Context, repo string) ([]github.Issue, error) {
	perPage := p.config.Limit
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	var collected []github.Issue

	for page := 1; page <= p.config.MaxPages; page++ {
		if len(collected) >= p.config.Limit {
			break
		}

		url := fmt.Sprintf("%s/repos/%s/issues?state=all&sort=created&direction=desc&per_page=%d&page=%d",
			p.client.BaseURL(), repo, perPage, page)

		body, err := p.client.GetJSON(ctx, url, client.AcceptV3)
		if err != nil {
			return nil, &PageError{Page: page, Err: err}
		}
		pagesFetchedTotal.Inc()

		var batch []github.Issue
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, &PageError{Page: page, Err: fmt.Errorf("decode listing page: %w", err)}
		}

		if len(batch) == 0 {
			break
		}

		kept := 0
		for _, issue := range batch {
			if issue.IsPullRequest() {
				continue
			}
			collected = append(collected, issue)
			kept++
		}

		p.logger.Debug().
			Str("repo", repo).
			Int("page", page).
			Int("items", len(batch)).
			Int("kept", kept).
			Msg("Fetched listing page")

		if len(batch) < perPage {
			break
		}
	}

	if len(collected) > p.config.Limit {
		collected = collected[:p.config.Limit]
	}

	p.logger.Info().
		Str("repo", repo).
		Int("issues", len(collected)).
		Msg("Issue listing complete (after PR filter)")

	return collected, nil
}
