// Package domain holds the shared value types that flow between the
// gateway, scheduler, orchestrator, and persistence layers.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Repository indexing status values.
const (
	IndexStatusPending  = "pending"
	IndexStatusIndexing = "indexing"
	IndexStatusReady    = "ready"
	IndexStatusFailed   = "failed"
)

// Review status values.
const (
	ReviewStatusQueued     = "queued"
	ReviewStatusProcessing = "processing"
	ReviewStatusCompleted  = "completed"
	ReviewStatusFailed     = "failed"
)

// Finding severities, ordered from most to least severe.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
)

// SeverityRank returns an ordinal for sorting findings by severity; lower
// is more severe. Unknown severities sort last.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	case SeverityInfo:
		return 4
	default:
		return 5
	}
}

// Finding categories.
const (
	CategoryDefect         = "defect"
	CategorySecurity       = "security"
	CategoryStyle          = "style"
	CategoryPerformance    = "performance"
	CategoryDocs           = "docs"
	CategoryBreakingChange = "breaking-change"
)

// Installation represents a tenant boundary: a single authorization
// granted by an organizational account over a defined set of repositories.
// The installation ID is the tenant partition key carried by every
// credential, queue partition, and persisted record.
type Installation struct {
	ID        int64
	Login     string
	Kind      string // "User" or "Organization"
	Config    map[string]any
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository is identified by the forge's repository identifier.
type Repository struct {
	ID             int64
	InstallationID int64
	FullName       string // owner/name
	DefaultBranch  string
	IndexStatus    string
	LastIndexedSHA string
	LastIndexedAt  *time.Time
}

// Review is one row per (repository, pr-number, head-commit) attempt.
// At most one Review per (repo, pr, head) may be in a non-terminal
// status at any moment; that invariant is enforced externally by the
// idempotency keeper, not by this type.
type Review struct {
	ID            string
	RepositoryID  int64
	PRNumber      int
	BaseSHA       string
	HeadSHA       string
	Status        string
	Stage         string
	FindingCount  int
	CostUSDMicros int64 // accumulated cost, monotonic non-negative, in micro-USD
	EnqueuedAt    time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	TerminalError string
}

// Terminal reports whether the review has reached a terminal status.
func (r Review) Terminal() bool {
	return r.Status == ReviewStatusCompleted || r.Status == ReviewStatusFailed
}

// Finding is a child of a Review. Only findings with a non-nil
// DiffPosition whose start and end fall in the same hunk ever reach the
// forge; see (Finding).InDiff.
type Finding struct {
	ID             string
	ReviewID       string
	File           string
	LineStart      int
	LineEnd        int
	DiffPosition   *int
	Severity       string
	Category       string
	Title          string
	Body           string
	Suggestion     string
	ForgeCommentID *int64
	Applied        bool
	Dismissed      bool
	Confidence     float64
}

// FindingInput captures the information required to create a Finding.
type FindingInput struct {
	File       string
	LineStart  int
	LineEnd    int
	Severity   string
	Category   string
	Title      string
	Body       string
	Suggestion string
	Confidence float64
}

// NewFinding constructs a Finding with a deterministic ID derived from
// its content, so re-running a stage on an unchanged diff reproduces the
// same identifier for the same issue.
func NewFinding(reviewID string, input FindingInput) Finding {
	return Finding{
		ID:         hashFinding(reviewID, input),
		ReviewID:   reviewID,
		File:       input.File,
		LineStart:  input.LineStart,
		LineEnd:    input.LineEnd,
		Severity:   input.Severity,
		Category:   input.Category,
		Title:      input.Title,
		Body:       input.Body,
		Suggestion: input.Suggestion,
		Confidence: input.Confidence,
	}
}

func hashFinding(reviewID string, input FindingInput) string {
	payload := fmt.Sprintf("%s|%s|%d|%d|%s|%s|%s",
		reviewID, input.File, input.LineStart, input.LineEnd,
		input.Severity, input.Category, input.Title)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:16])
}

// InDiff reports whether this finding has a valid diff position and can
// be posted as an inline comment.
func (f Finding) InDiff() bool {
	return f.DiffPosition != nil
}

// ConversationThread is keyed by the forge comment identifier and
// references the originating Finding.
type ConversationThread struct {
	CommentID     int64
	FindingID     string
	ReviewID      string
	File          string
	Line          int
	CommitSHA     string // commit at the time the finding was posted, never updated
	CachedContent []byte
	History       []ConversationTurn
	CreatedAt     time.Time
}

// ConversationTurn is one role-tagged message in a thread's bounded history.
type ConversationTurn struct {
	Role      string // "user" or "assistant"
	Body      string
	Timestamp time.Time
}

// Intent is the classification of a reply in a conversation thread.
type Intent string

const (
	IntentFix      Intent = "fix"
	IntentExplain  Intent = "explain"
	IntentDismiss  Intent = "dismiss"
	IntentConverse Intent = "converse"
)
