package sink

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tracefetch/gh-issue-extract/pkg/github"
)

// DB is an optional SQLite artifact holding the same three tables as the
// CSV sink, keyed by repository so several extractions can share one file.
type DB struct {
	*sql.DB
}

// OpenDB opens (or creates) the database at path and ensures the schema.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	d := &DB{DB: db}
	if err := d.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (db *DB) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS issues (
		repository TEXT NOT NULL,
		number INTEGER NOT NULL,
		title TEXT NOT NULL,
		state TEXT NOT NULL,
		state_reason TEXT,
		body TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		closed_at TEXT,
		comment_count INTEGER NOT NULL,
		labels TEXT NOT NULL,
		user TEXT,
		assignee TEXT,
		author_association TEXT,
		closed_by TEXT,
		reaction_count INTEGER NOT NULL,
		sub_issues_total INTEGER NOT NULL,
		sub_issues_completed INTEGER NOT NULL,
		sub_issues_percent_completed REAL NOT NULL,
		url TEXT,
		PRIMARY KEY (repository, number)
	);

	CREATE TABLE IF NOT EXISTS issue_comments (
		repository TEXT NOT NULL,
		comment_id INTEGER NOT NULL,
		issue_number INTEGER NOT NULL,
		user TEXT,
		created_at TEXT,
		updated_at TEXT,
		author_association TEXT,
		body TEXT,
		reaction_count INTEGER NOT NULL,
		node_id TEXT,
		issue_url TEXT,
		via_app BOOLEAN NOT NULL DEFAULT 0,
		url TEXT,
		PRIMARY KEY (repository, comment_id)
	);

	CREATE TABLE IF NOT EXISTS issue_timeline (
		repository TEXT NOT NULL,
		event_id INTEGER NOT NULL,
		node_id TEXT,
		issue_number INTEGER NOT NULL,
		event_type TEXT,
		created_at TEXT,
		actor TEXT,
		commit_id TEXT,
		commit_url TEXT,
		label TEXT,
		via_app BOOLEAN NOT NULL DEFAULT 0,
		pull_number INTEGER,
		pull_url TEXT,
		source_type TEXT,
		url TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_comments_issue
		ON issue_comments (repository, issue_number);
	CREATE INDEX IF NOT EXISTS idx_timeline_issue
		ON issue_timeline (repository, issue_number);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Replace swaps the repository's rows for the new batch in one transaction.
// There is no merge path: like the CSV artifacts, a re-run overwrites the
// prior extraction wholesale.
func (db *DB) Replace(repo string, issues []github.IssueRecord, comments []github.CommentRecord, events []github.TimelineEventRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"issues", "issue_comments", "issue_timeline"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE repository = ?", repo); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	issueStmt, err := tx.Prepare(`
	INSERT INTO issues (
		repository, number, title, state, state_reason, body,
		created_at, updated_at, closed_at, comment_count, labels,
		user, assignee, author_association, closed_by, reaction_count,
		sub_issues_total, sub_issues_completed, sub_issues_percent_completed, url
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare issue insert: %w", err)
	}
	defer issueStmt.Close()

	for _, r := range issues {
		if _, err := issueStmt.Exec(
			repo, r.Number, r.Title, r.State, r.StateReason, r.Body,
			r.CreatedAt, r.UpdatedAt, r.ClosedAt, r.CommentCount, labelsCell(r.Labels),
			r.User, r.Assignee, r.AuthorAssociation, r.ClosedBy, r.ReactionCount,
			r.SubIssuesTotal, r.SubIssuesCompleted, r.SubIssuesPercent, r.URL,
		); err != nil {
			return fmt.Errorf("insert issue %d: %w", r.Number, err)
		}
	}

	commentStmt, err := tx.Prepare(`
	INSERT INTO issue_comments (
		repository, comment_id, issue_number, user, created_at, updated_at,
		author_association, body, reaction_count, node_id, issue_url, via_app, url
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare comment insert: %w", err)
	}
	defer commentStmt.Close()

	for _, r := range comments {
		if _, err := commentStmt.Exec(
			repo, r.CommentID, r.IssueNumber, r.User, r.CreatedAt, r.UpdatedAt,
			r.AuthorAssociation, r.Body, r.ReactionCount, r.NodeID, r.IssueURL, r.ViaApp, r.URL,
		); err != nil {
			return fmt.Errorf("insert comment %d: %w", r.CommentID, err)
		}
	}

	eventStmt, err := tx.Prepare(`
	INSERT INTO issue_timeline (
		repository, event_id, node_id, issue_number, event_type, created_at,
		actor, commit_id, commit_url, label, via_app, pull_number, pull_url, source_type, url
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare timeline insert: %w", err)
	}
	defer eventStmt.Close()

	for _, r := range events {
		if _, err := eventStmt.Exec(
			repo, r.EventID, r.NodeID, r.IssueNumber, r.EventType, r.CreatedAt,
			r.Actor, r.CommitID, r.CommitURL, r.Label, r.ViaApp, r.PullNumber, r.PullURL, r.SourceType, r.URL,
		); err != nil {
			return fmt.Errorf("insert timeline event %d: %w", r.EventID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
