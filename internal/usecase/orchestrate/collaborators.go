// Package orchestrate runs the six review stages (S0-S5) against a
// single pull request and posts the resulting findings back to the
// forge. One Orchestrator instance is owned by one worker process at a
// time; it holds no state between reviews beyond its collaborators.
package orchestrate

import (
	"context"
	"time"

	"github.com/bkyoung/prreview/internal/adapter/forge"
	"github.com/bkyoung/prreview/internal/domain"
)

// ForgeClient is the outbound port onto the pull request's host: diff
// fetch, file content at a ref, and posting. The orchestrator never
// talks to net/http directly.
type ForgeClient interface {
	GetPullRequestDiff(ctx context.Context, installationID int64, owner, repo string, pullNumber int) (string, error)
	GetFileContent(ctx context.Context, installationID int64, owner, repo, path, ref string) ([]byte, error)
	CreateReview(ctx context.Context, installationID int64, input forge.CreateReviewInput) (*forge.CreateReviewResponse, error)
	PostIssueComment(ctx context.Context, installationID int64, owner, repo string, pullNumber int, body string, inReplyTo int64) (*forge.IssueComment, error)
}

// ModelRequest is a single outbound call to a model collaborator. Cost
// is reported back in micro-USD so ReviewContext's cost ceiling can be
// tracked without floating point drift across many small charges.
type ModelRequest struct {
	SystemPrompt string
	Prompt       string
	MaxTokens    int
}

// ModelResponse is what every model collaborator (cheap or capable)
// returns, regardless of stage.
type ModelResponse struct {
	Text          string
	CostUSDMicros int64
}

// ModelClient is the outbound port onto an LLM collaborator. Stages
// hold two of these: a cheap one (S1, most of S2, S4, S5-ii) and a
// capable one (S2's file-level path, S3).
type ModelClient interface {
	Complete(ctx context.Context, req ModelRequest) (ModelResponse, error)
}

// AnalyzerResult is one raw finding emitted by an external static
// analyzer before hunk-containment filtering.
type AnalyzerResult struct {
	File      string
	Line      int
	Severity  string
	Rule      string
	Message   string
}

// AnalyzerRunner executes a language-appropriate external static
// analyzer against a file written to an isolated temporary location.
// Implementations are expected to enforce their own subprocess time
// limit; S0 additionally bounds the call with ctx.
type AnalyzerRunner interface {
	// Supports reports whether this runner has an analyzer for the file's language.
	Supports(language string) bool
	// Analyze runs the analyzer against the file at dir/relPath and returns raw findings.
	Analyze(ctx context.Context, dir, relPath, language string) ([]AnalyzerResult, error)
}

// CallSite is one usage of a changed symbol, as identified by the
// symbol-graph collaborator (preferred) or the vector-retrieval
// collaborator (fallback) in S3.
type CallSite struct {
	File string
	Line int
	Text string
}

// CallSiteFinder is the outbound port onto whichever collaborator can
// enumerate call sites for a changed symbol. The symbol-graph
// implementation is exact; the vector-retrieval implementation is a
// best-effort fallback when no symbol graph is available for the repo.
type CallSiteFinder interface {
	FindCallSites(ctx context.Context, repositoryID int64, symbol string) ([]CallSite, error)
}

// RepoConfigProvider fetches the per-repository configuration document
// (see spec's "Per-repository configuration") at a given base commit.
// A missing or malformed document resolves to the zero value, which
// callers treat as "use defaults".
type RepoConfigProvider interface {
	Fetch(ctx context.Context, installationID int64, owner, repo, baseSHA string) (RepoConfig, error)
}

// RepoConfig is the recognized subset of a repository's review
// configuration document.
type RepoConfig struct {
	Enabled bool
	// StyleDisabled mirrors the negated sense of the document's
	// review.style key (true when the document sets review.style:
	// false); nil/false is indistinguishable from "no document
	// present", and the style stage (S4) runs by default in both cases.
	StyleDisabled     bool
	SeverityThreshold string
	IgnorePatterns    []string
	LanguageRules     map[string]bool
	CustomGuidelines  string
}

// Redactor scrubs secrets out of diff and file content before it
// reaches a model collaborator. Satisfied by internal/redaction.Engine.
type Redactor interface {
	Redact(input string) (string, error)
}

// Store is the narrow persistence port this package needs; it is
// satisfied by internal/store.Store.
type Store interface {
	CompleteReview(ctx context.Context, reviewID, status, terminalError string, findings []domain.Finding) error
	UpdateReviewStatus(ctx context.Context, reviewID, status, stage, terminalError string) error
	IncrementReviewCost(ctx context.Context, reviewID string, deltaMicros int64) error
}

// ReviewTarget identifies the pull request under review and the
// installation whose credentials authorize reaching it.
type ReviewTarget struct {
	ReviewID       string
	InstallationID int64
	RepositoryID   int64
	Owner          string
	Repo           string
	PRNumber       int
	BaseSHA        string
	HeadSHA        string
}

// reviewDeadline bounds a single review's wall-clock time; stages still
// honor ctx cancellation beyond this (see §5 "Cancellation").
const reviewDeadline = 6 * time.Minute
