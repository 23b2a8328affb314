package github

import (
	"errors"
	"fmt"
)

// ErrMissingField indicates a raw record lacks a mandatory identifying
// field. The caller skips the record and counts the failure; absence of any
// optional structure is never an error.
var ErrMissingField = errors.New("missing mandatory field")

// NormalizeIssue converts a raw listing item into an IssueRecord, applying
// defaults for every absent optional field. The issue number is the only
// mandatory field.
func NormalizeIssue(raw Issue) (IssueRecord, error) {
	if raw.Number == nil {
		return IssueRecord{}, fmt.Errorf("%w: issue number", ErrMissingField)
	}

	rec := IssueRecord{
		Number:            *raw.Number,
		Title:             raw.Title,
		State:             raw.State,
		CreatedAt:         raw.CreatedAt,
		UpdatedAt:         raw.UpdatedAt,
		CommentCount:      raw.Comments,
		AuthorAssociation: raw.AuthorAssociation,
		URL:               raw.HTMLURL,
	}

	if raw.StateReason != nil {
		rec.StateReason = *raw.StateReason
	}
	if raw.Body != nil {
		rec.Body = *raw.Body
	}
	if raw.ClosedAt != nil {
		rec.ClosedAt = *raw.ClosedAt
	}
	if raw.User != nil {
		rec.User = raw.User.Login
	}
	if raw.Assignee != nil {
		rec.Assignee = raw.Assignee.Login
	}
	if raw.ClosedBy != nil {
		rec.ClosedBy = raw.ClosedBy.Login
	}
	if raw.Reactions != nil {
		rec.ReactionCount = raw.Reactions.TotalCount
	}
	if raw.SubIssuesSummary != nil {
		rec.SubIssuesTotal = raw.SubIssuesSummary.Total
		rec.SubIssuesCompleted = raw.SubIssuesSummary.Completed
		rec.SubIssuesPercent = raw.SubIssuesSummary.PercentCompleted
	}

	rec.Labels = make([]string, 0, len(raw.Labels))
	for _, l := range raw.Labels {
		rec.Labels = append(rec.Labels, l.Name)
	}

	return rec, nil
}

// NormalizeComment converts a raw comment into a CommentRecord. The owning
// issue number comes from the fan-out, not the payload, which keeps the
// referential invariant by construction. The comment id is mandatory.
func NormalizeComment(raw Comment, issueNumber int) (CommentRecord, error) {
	if raw.ID == nil {
		return CommentRecord{}, fmt.Errorf("%w: comment id", ErrMissingField)
	}

	rec := CommentRecord{
		CommentID:         *raw.ID,
		IssueNumber:       issueNumber,
		CreatedAt:         raw.CreatedAt,
		UpdatedAt:         raw.UpdatedAt,
		AuthorAssociation: raw.AuthorAssociation,
		Body:              raw.Body,
		NodeID:            raw.NodeID,
		IssueURL:          raw.IssueURL,
		ViaApp:            raw.ViaApp != nil,
		URL:               raw.HTMLURL,
	}

	if raw.User != nil {
		rec.User = raw.User.Login
	}
	if raw.Reactions != nil {
		rec.ReactionCount = raw.Reactions.TotalCount
	}

	return rec, nil
}

// NormalizeTimelineEvent converts a raw timeline entry into a
// TimelineEventRecord. Beyond the injected issue number nothing is
// mandatory: some event types omit the id, the actor, or both.
func NormalizeTimelineEvent(raw TimelineEvent, issueNumber int) TimelineEventRecord {
	rec := TimelineEventRecord{
		NodeID:      raw.NodeID,
		IssueNumber: issueNumber,
		EventType:   raw.Event,
		CreatedAt:   raw.CreatedAt,
		ViaApp:      raw.ViaApp != nil,
		URL:         raw.URL,
	}

	if raw.ID != nil {
		rec.EventID = *raw.ID
	}
	if raw.Actor != nil {
		rec.Actor = raw.Actor.Login
	}
	if raw.CommitID != nil {
		rec.CommitID = *raw.CommitID
	}
	if raw.CommitURL != nil {
		rec.CommitURL = *raw.CommitURL
	}
	if raw.Label != nil {
		rec.Label = raw.Label.Name
	}
	if raw.PullRequest != nil {
		if raw.PullRequest.Number != nil {
			rec.PullNumber = *raw.PullRequest.Number
		}
		rec.PullURL = raw.PullRequest.URL
	}
	if raw.Source != nil {
		rec.SourceType = raw.Source.Type
	}

	return rec
}
