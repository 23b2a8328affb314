// Package sink persists the three normalized record collections as named
// artifacts: always the per-kind CSV files, optionally a SQLite database.
// Writing happens only after the full in-memory batch is assembled; a re-run
// for the same repository overwrites prior artifacts wholesale.
package sink

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tracefetch/gh-issue-extract/pkg/github"
)

var repoSanitizer = strings.NewReplacer("/", "_", "-", "_", ".", "_")

// SanitizeRepo converts a repository identifier into a filename-safe prefix:
// path separators, hyphens, and dots all become underscores.
func SanitizeRepo(repo string) string {
	return repoSanitizer.Replace(repo)
}

// Artifact filename suffixes per record kind.
const (
	issuesSuffix   = "_issues.csv"
	commentsSuffix = "_issue_comments.csv"
	timelineSuffix = "_issue_timeline.csv"
)

var (
	issueHeader = []string{
		"number", "title", "state", "state_reason", "body",
		"created_at", "updated_at", "closed_at", "comment_count", "labels",
		"user", "assignee", "author_association", "closed_by", "reaction_count",
		"sub_issues_total", "sub_issues_completed", "sub_issues_percent_completed", "url",
	}
	commentHeader = []string{
		"comment_id", "issue_number", "user", "created_at", "updated_at",
		"author_association", "body", "reaction_count", "node_id", "issue_url",
		"via_app", "url",
	}
	timelineHeader = []string{
		"event_id", "node_id", "issue_number", "event_type", "created_at",
		"actor", "commit_id", "commit_url", "label", "via_app",
		"pull_number", "pull_url", "source_type", "url",
	}
)

// Artifacts names the files written by a run.
type Artifacts struct {
	IssuesPath   string
	CommentsPath string
	TimelinePath string
}

// CSV writes the three record tables under a directory.
type CSV struct {
	dir    string
	logger zerolog.Logger
}

// NewCSV creates a CSV sink rooted at dir ("." when empty).
func NewCSV(dir string, logger zerolog.Logger) *CSV {
	if dir == "" {
		dir = "."
	}
	return &CSV{dir: dir, logger: logger}
}

// Write persists all three collections and returns the artifact paths.
// Each file is written to a temporary sibling and renamed into place, so an
// artifact is either the complete new table or the untouched previous one.
func (s *CSV) Write(repo string, issues []github.IssueRecord, comments []github.CommentRecord, events []github.TimelineEventRecord) (Artifacts, error) {
	prefix := SanitizeRepo(repo)
	arts := Artifacts{
		IssuesPath:   filepath.Join(s.dir, prefix+issuesSuffix),
		CommentsPath: filepath.Join(s.dir, prefix+commentsSuffix),
		TimelinePath: filepath.Join(s.dir, prefix+timelineSuffix),
	}

	if err := s.writeTable(arts.IssuesPath, issueHeader, issueRows(issues)); err != nil {
		return Artifacts{}, fmt.Errorf("write issues: %w", err)
	}
	if err := s.writeTable(arts.CommentsPath, commentHeader, commentRows(comments)); err != nil {
		return Artifacts{}, fmt.Errorf("write comments: %w", err)
	}
	if err := s.writeTable(arts.TimelinePath, timelineHeader, timelineRows(events)); err != nil {
		return Artifacts{}, fmt.Errorf("write timeline: %w", err)
	}

	s.logger.Info().
		Str("repo", repo).
		Int("issues", len(issues)).
		Int("comments", len(comments)).
		Int("timeline_events", len(events)).
		Str("dir", s.dir).
		Msg("Wrote CSV artifacts")

	return arts, nil
}

func (s *CSV) writeTable(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// labelsCell serializes the label names as a JSON array string, which
// survives CSV round-trips regardless of what the names contain.
func labelsCell(labels []string) string {
	if len(labels) == 0 {
		return "[]"
	}
	data, err := json.Marshal(labels)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func issueRows(issues []github.IssueRecord) [][]string {
	rows := make([][]string, 0, len(issues))
	for _, r := range issues {
		rows = append(rows, []string{
			strconv.Itoa(r.Number), r.Title, r.State, r.StateReason, r.Body,
			r.CreatedAt, r.UpdatedAt, r.ClosedAt, strconv.Itoa(r.CommentCount), labelsCell(r.Labels),
			r.User, r.Assignee, r.AuthorAssociation, r.ClosedBy, strconv.Itoa(r.ReactionCount),
			strconv.Itoa(r.SubIssuesTotal), strconv.Itoa(r.SubIssuesCompleted), formatFloat(r.SubIssuesPercent), r.URL,
		})
	}
	return rows
}

func commentRows(comments []github.CommentRecord) [][]string {
	rows := make([][]string, 0, len(comments))
	for _, r := range comments {
		rows = append(rows, []string{
			strconv.FormatInt(r.CommentID, 10), strconv.Itoa(r.IssueNumber), r.User, r.CreatedAt, r.UpdatedAt,
			r.AuthorAssociation, r.Body, strconv.Itoa(r.ReactionCount), r.NodeID, r.IssueURL,
			strconv.FormatBool(r.ViaApp), r.URL,
		})
	}
	return rows
}

func timelineRows(events []github.TimelineEventRecord) [][]string {
	rows := make([][]string, 0, len(events))
	for _, r := range events {
		rows = append(rows, []string{
			strconv.FormatInt(r.EventID, 10), r.NodeID, strconv.Itoa(r.IssueNumber), r.EventType, r.CreatedAt,
			r.Actor, r.CommitID, r.CommitURL, r.Label, strconv.FormatBool(r.ViaApp),
			strconv.Itoa(r.PullNumber), r.PullURL, r.SourceType, r.URL,
		})
	}
	return rows
}
