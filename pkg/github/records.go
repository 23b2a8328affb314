package github

// IssueRecord is a flat, schema-stable row for one issue. Records are
// created once per run and never mutated downstream; the Number field is
// the join key shared with CommentRecord and TimelineEventRecord.
type IssueRecord struct {
	Number             int
	Title              string
	State              string
	StateReason        string
	Body               string
	CreatedAt          string
	UpdatedAt          string
	ClosedAt           string
	CommentCount       int
	Labels             []string
	User               string
	Assignee           string
	AuthorAssociation  string
	ClosedBy           string
	ReactionCount      int
	SubIssuesTotal     int
	SubIssuesCompleted int
	SubIssuesPercent   float64
	URL                string
}

// CommentRecord is a flat row for one issue comment.
type CommentRecord struct {
	CommentID         int64
	IssueNumber       int
	User              string
	CreatedAt         string
	UpdatedAt         string
	AuthorAssociation string
	Body              string
	ReactionCount     int
	NodeID            string
	IssueURL          string
	ViaApp            bool
	URL               string
}

// TimelineEventRecord is a flat row for one issue timeline event.
// EventID is zero for event types that carry no numeric id.
type TimelineEventRecord struct {
	EventID     int64
	NodeID      string
	IssueNumber int
	EventType   string
	CreatedAt   string
	Actor       string
	CommitID    string
	CommitURL   string
	Label       string
	ViaApp      bool
	PullNumber  int
	PullURL     string
	SourceType  string
	URL         string
}
