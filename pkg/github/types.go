// Package github models the raw GitHub API responses consumed by the
// pipeline and their normalization into flat, schema-stable records.
//
// Every optional nested field is a pointer: the API omits user, reactions,
// sub-issue summaries, and most timeline attributes freely, and the parse
// step must never index into absent structure. Timestamps stay as the RFC
// 3339 strings the API returns; the records are a passthrough extraction,
// not a time-zone interpretation layer.
package github

import "encoding/json"

// User is a GitHub account reference.
type User struct {
	Login string `json:"login"`
}

// Label is an issue label.
type Label struct {
	Name string `json:"name"`
}

// Reactions is the reaction rollup attached to issues and comments.
type Reactions struct {
	TotalCount int `json:"total_count"`
}

// SubIssuesSummary is the sub-issue progress rollup on an issue.
type SubIssuesSummary struct {
	Total            int     `json:"total_count"`
	Completed        int     `json:"completed_count"`
	PercentCompleted float64 `json:"percent_complete"`
}

// PullRequestRef is the pull-request object referenced by timeline events.
type PullRequestRef struct {
	Number *int   `json:"number"`
	URL    string `json:"url"`
}

// Source is the cross-reference source on timeline events.
type Source struct {
	Type string `json:"type"`
}

// Issue is a raw item from the issue listing endpoint. The listing conflates
// issues and pull requests; PullRequest is non-nil for the latter.
type Issue struct {
	Number            *int              `json:"number"`
	Title             string            `json:"title"`
	State             string            `json:"state"`
	StateReason       *string           `json:"state_reason"`
	Body              *string           `json:"body"`
	CreatedAt         string            `json:"created_at"`
	UpdatedAt         string            `json:"updated_at"`
	ClosedAt          *string           `json:"closed_at"`
	Comments          int               `json:"comments"`
	Labels            []Label           `json:"labels"`
	User              *User             `json:"user"`
	Assignee          *User             `json:"assignee"`
	AuthorAssociation string            `json:"author_association"`
	ClosedBy          *User             `json:"closed_by"`
	Reactions         *Reactions        `json:"reactions"`
	SubIssuesSummary  *SubIssuesSummary `json:"sub_issues_summary"`
	PullRequest       *json.RawMessage  `json:"pull_request"`
	CommentsURL       string            `json:"comments_url"`
	TimelineURL       string            `json:"timeline_url"`
	URL               string            `json:"url"`
	HTMLURL           string            `json:"html_url"`
}

// IsPullRequest reports whether the listing item is a pull request.
func (i *Issue) IsPullRequest() bool {
	return i.PullRequest != nil
}

// Comment is a raw issue comment. The comment payload does not carry the
// owning issue number; the fan-out injects it during normalization.
type Comment struct {
	ID                *int64           `json:"id"`
	NodeID            string           `json:"node_id"`
	User              *User            `json:"user"`
	CreatedAt         string           `json:"created_at"`
	UpdatedAt         string           `json:"updated_at"`
	AuthorAssociation string           `json:"author_association"`
	Body              string           `json:"body"`
	Reactions         *Reactions       `json:"reactions"`
	IssueURL          string           `json:"issue_url"`
	ViaApp            *json.RawMessage `json:"performed_via_github_app"`
	HTMLURL           string           `json:"html_url"`
}

// TimelineEvent is a raw issue timeline entry. The shape varies wildly by
// event type; nearly everything is optional. Cross-referenced events carry
// no numeric id at all.
type TimelineEvent struct {
	ID          *int64           `json:"id"`
	NodeID      string           `json:"node_id"`
	Event       string           `json:"event"`
	CreatedAt   string           `json:"created_at"`
	Actor       *User            `json:"actor"`
	CommitID    *string          `json:"commit_id"`
	CommitURL   *string          `json:"commit_url"`
	Label       *Label           `json:"label"`
	ViaApp      *json.RawMessage `json:"performed_via_github_app"`
	PullRequest *PullRequestRef  `json:"pull_request"`
	Source      *Source          `json:"source"`
	URL         string           `json:"url"`
}
