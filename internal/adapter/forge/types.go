package forge

import (
	"fmt"
	"strings"

	"github.com/bkyoung/prreview/internal/domain"
)

// PositionedFinding wraps a domain.Finding with the diff position it
// will be posted at. The adapter layer, not the domain layer, knows
// about GitHub's diff-position addressing scheme.
type PositionedFinding struct {
	Finding      domain.Finding
	DiffPosition *int
}

// InDiff reports whether this finding can receive an inline comment.
func (pf PositionedFinding) InDiff() bool {
	return pf.DiffPosition != nil
}

// ReviewEvent is the action GitHub takes when a review is submitted.
type ReviewEvent string

const (
	EventComment        ReviewEvent = "COMMENT"
	EventApprove        ReviewEvent = "APPROVE"
	EventRequestChanges ReviewEvent = "REQUEST_CHANGES"
)

// CreateReviewRequest is the body of POST .../pulls/{pull_number}/reviews.
type CreateReviewRequest struct {
	CommitID string          `json:"commit_id"`
	Event    ReviewEvent     `json:"event"`
	Body     string          `json:"body"`
	Comments []ReviewComment `json:"comments,omitempty"`
}

// ReviewComment is one inline comment within a CreateReviewRequest.
type ReviewComment struct {
	Path     string `json:"path"`
	Position int    `json:"position"`
	Body     string `json:"body"`
}

// CreateReviewResponse is the response from creating a PR review.
type CreateReviewResponse struct {
	ID          int64  `json:"id"`
	NodeID      string `json:"node_id"`
	User        User   `json:"user"`
	Body        string `json:"body"`
	State       string `json:"state"`
	HTMLURL     string `json:"html_url"`
	SubmittedAt string `json:"submitted_at"`
}

// IssueComment is a top-level or reply comment on a PR's conversation
// tab, or a reply within a review thread.
type IssueComment struct {
	ID        int64  `json:"id"`
	Body      string `json:"body"`
	User      User   `json:"user"`
	CreatedAt string `json:"created_at"`
	InReplyTo int64  `json:"in_reply_to_id,omitempty"`
}

// User identifies the actor on a comment or review.
type User struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
	Type  string `json:"type"`
}

// CreateReviewInput is everything CreateReview needs to post one review.
type CreateReviewInput struct {
	Owner      string
	Repo       string
	PullNumber int
	CommitSHA  string
	Event      ReviewEvent
	Summary    string
	Findings   []PositionedFinding
}

// BuildReviewComments converts positioned findings into GitHub review
// comments, silently dropping findings that are not in the diff; those
// still appear in the review summary body, built separately.
func BuildReviewComments(findings []PositionedFinding) []ReviewComment {
	var comments []ReviewComment
	for _, pf := range findings {
		if !pf.InDiff() {
			continue
		}
		comments = append(comments, ReviewComment{
			Path:     pf.Finding.File,
			Position: *pf.DiffPosition,
			Body:     FormatFindingComment(pf.Finding),
		})
	}
	return comments
}

// FormatFindingComment renders a finding as a GitHub-flavored Markdown
// inline comment body.
func FormatFindingComment(f domain.Finding) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("**%s**", strings.ToUpper(f.Severity)))
	if f.Category != "" {
		sb.WriteString(fmt.Sprintf(" · %s", f.Category))
	}
	sb.WriteString("\n\n")

	sb.WriteString(f.Title)
	sb.WriteString("\n\n")
	sb.WriteString(f.Body)

	if f.Suggestion != "" {
		sb.WriteString("\n\n**Suggestion:** ")
		sb.WriteString(f.Suggestion)
	}

	return sb.String()
}

// DetermineReviewEvent picks the review action from the severities of
// the in-diff findings: APPROVE when there are none, REQUEST_CHANGES
// when any reach high or critical, COMMENT otherwise.
func DetermineReviewEvent(findings []PositionedFinding) ReviewEvent {
	inDiff := filterInDiff(findings)
	if len(inDiff) == 0 {
		return EventApprove
	}
	for _, pf := range inDiff {
		if pf.Finding.Severity == domain.SeverityHigh || pf.Finding.Severity == domain.SeverityCritical {
			return EventRequestChanges
		}
	}
	return EventComment
}

func filterInDiff(findings []PositionedFinding) []PositionedFinding {
	var result []PositionedFinding
	for _, pf := range findings {
		if pf.InDiff() {
			result = append(result, pf)
		}
	}
	return result
}
