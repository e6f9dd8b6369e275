package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bkyoung/prreview/internal/adapter/forge"
	"github.com/bkyoung/prreview/internal/domain"
)

// historyTurnCap bounds a thread's stored history; the oldest turns are
// dropped first, the originating finding is never pruned (it isn't part
// of History — it's looked up separately by FindingID).
const historyTurnCap = 20

// ForgeClient is the outbound port this package needs: fetching fresh
// file content at the PR's current head, and posting a threaded reply.
type ForgeClient interface {
	GetFileContent(ctx context.Context, installationID int64, owner, repo, path, ref string) ([]byte, error)
	PostIssueComment(ctx context.Context, installationID int64, owner, repo string, pullNumber int, body string, inReplyTo int64) (*forge.IssueComment, error)
}

// ModelClient is the outbound port onto a cheap model collaborator,
// used for ambiguous-intent classification and for the fix/explain/
// converse handlers' free-form replies.
type ModelClient interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Store is the narrow persistence port this package needs.
type Store interface {
	CreateConversationThread(ctx context.Context, thread domain.ConversationThread) error
	GetConversationThread(ctx context.Context, commentID int64) (domain.ConversationThread, error)
	AppendConversationTurn(ctx context.Context, commentID int64, turn domain.ConversationTurn, maxTurns int) error
	GetFinding(ctx context.Context, findingID string) (domain.Finding, error)
	SetFindingDismissed(ctx context.Context, findingID string, dismissed bool) error
}

// ReplyEvent is a review-comment webhook event that references a known
// thread via the forge's parent-comment linkage.
type ReplyEvent struct {
	InstallationID  int64
	Owner           string
	Repo            string
	PRNumber        int
	HeadSHA         string // the PR's current head, not the thread's CommitSHA
	ParentCommentID int64
	Body            string
}

// Deps are the Tracker's collaborators. Model is optional; when nil,
// ambiguous replies fall back to converse without a classification
// call, and handlers that would otherwise call the model reply with a
// static acknowledgment instead.
type Deps struct {
	Forge  ForgeClient
	Model  ModelClient
	Store  Store
	Logger *slog.Logger
}

func (d Deps) validate() error {
	if d.Forge == nil {
		return fmt.Errorf("conversation: Forge collaborator is required")
	}
	if d.Store == nil {
		return fmt.Errorf("conversation: Store is required")
	}
	return nil
}

// Tracker holds a posted Finding's reply thread and routes incoming
// replies to the handler matching the reviewer's classified intent.
type Tracker struct {
	deps Deps
}

// New builds a Tracker.
func New(deps Deps) (*Tracker, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Tracker{deps: deps}, nil
}

// RecordPosted creates the ConversationThread for a Finding that was
// just posted as an inline comment. Called once, by the poster, right
// after the forge confirms the comment id (per §4.11's write-then-
// verify rule: the finding row gets its comment id only after this
// succeeds).
func (t *Tracker) RecordPosted(ctx context.Context, commentID int64, finding domain.Finding, commitSHA string, content []byte) error {
	return t.deps.Store.CreateConversationThread(ctx, domain.ConversationThread{
		CommentID:     commentID,
		FindingID:     finding.ID,
		ReviewID:      finding.ReviewID,
		File:          finding.File,
		Line:          finding.LineStart,
		CommitSHA:     commitSHA,
		CachedContent: content,
		CreatedAt:     time.Now(),
	})
}

// HandleReply loads the thread a reply was posted against, classifies
// the reply, dispatches to the matching handler, and appends both the
// reviewer's message and the handler's response to the thread's
// history. An unknown comment id (no thread found) is not an error the
// gateway should retry over — it just means this reply isn't one this
// tracker owns.
func (t *Tracker) HandleReply(ctx context.Context, event ReplyEvent) error {
	thread, err := t.deps.Store.GetConversationThread(ctx, event.ParentCommentID)
	if err != nil {
		return err
	}

	if err := t.deps.Store.AppendConversationTurn(ctx, thread.CommentID, domain.ConversationTurn{
		Role: "user",
		Body: event.Body,
	}, historyTurnCap); err != nil {
		t.deps.Logger.Warn("conversation: append user turn failed", "comment_id", thread.CommentID, "error", err)
	}

	intent := t.classify(ctx, event.Body)

	var reply string
	switch intent {
	case domain.IntentFix:
		reply, err = t.handleFix(ctx, event, thread)
	case domain.IntentDismiss:
		reply, err = t.handleDismiss(ctx, thread)
	case domain.IntentExplain:
		reply, err = t.handleExplain(ctx, event, thread)
	default:
		reply, err = t.handleConverse(ctx, event, thread)
	}
	if err != nil {
		return err
	}

	posted, err := t.deps.Forge.PostIssueComment(ctx, event.InstallationID, event.Owner, event.Repo, event.PRNumber, reply, event.ParentCommentID)
	if err != nil {
		return fmt.Errorf("conversation: post reply: %w", err)
	}

	if err := t.deps.Store.AppendConversationTurn(ctx, thread.CommentID, domain.ConversationTurn{
		Role: "assistant",
		Body: reply,
	}, historyTurnCap); err != nil {
		t.deps.Logger.Warn("conversation: append assistant turn failed", "comment_id", thread.CommentID, "posted_id", posted.ID, "error", err)
	}
	return nil
}

// classify applies the keyword rule table first; only ambiguous text
// (the rule table's converse fallback) escalates to a cheap-model call,
// the same two-tier shape used elsewhere in this codebase for cheap
// routing decisions. Any model failure or absence leaves the keyword
// fallback standing rather than blocking the reply.
func (t *Tracker) classify(ctx context.Context, body string) domain.Intent {
	intent := Classify(body)
	if intent != domain.IntentConverse || t.deps.Model == nil {
		return intent
	}
	resp, err := t.deps.Model.Complete(ctx, classifySystemPrompt, body)
	if err != nil {
		return domain.IntentConverse
	}
	return parseIntent(resp)
}

const classifySystemPrompt = "Classify the reviewer's reply to a code review comment as exactly " +
	"one word: fix, explain, dismiss, or converse. Respond with that single word."

func parseIntent(text string) domain.Intent {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case string(domain.IntentFix):
		return domain.IntentFix
	case string(domain.IntentExplain):
		return domain.IntentExplain
	case string(domain.IntentDismiss):
		return domain.IntentDismiss
	default:
		return domain.IntentConverse
	}
}

// handleFix re-fetches the file at the PR's current head — never the
// thread's CommitSHA, per the invariant that a regenerated suggestion
// must never be built against stale content — and asks the model for
// an updated suggestion.
func (t *Tracker) handleFix(ctx context.Context, event ReplyEvent, thread domain.ConversationThread) (string, error) {
	finding, err := t.deps.Store.GetFinding(ctx, thread.FindingID)
	if err != nil {
		return "", fmt.Errorf("conversation: load finding: %w", err)
	}

	content, err := t.deps.Forge.GetFileContent(ctx, event.InstallationID, event.Owner, event.Repo, thread.File, event.HeadSHA)
	if err != nil {
		return fmt.Sprintf("Couldn't fetch the current file content to regenerate a suggestion: %v", err), nil
	}

	if t.deps.Model == nil {
		return "A maintainer will need to apply this fix manually; automated suggestions aren't configured.", nil
	}

	prompt := fmt.Sprintf("Finding: %s\n%s\n\nCurrent file content at %s:%d:\n%s\n\nReviewer reply: %s\n\n"+
		"Propose an updated fix for this finding against the current content.",
		finding.Title, finding.Body, thread.File, thread.Line, truncate(string(content), suggestionPromptBudgetChars), event.Body)

	resp, err := t.deps.Model.Complete(ctx, fixSystemPrompt, prompt)
	if err != nil {
		return "Couldn't regenerate a suggestion right now; please retry.", nil
	}
	return resp, nil
}

const fixSystemPrompt = "You propose a concrete code fix for a previously raised review finding, " +
	"given the file's current content. Keep the suggestion minimal and scoped to the finding."

const suggestionPromptBudgetChars = 8000

func (t *Tracker) handleDismiss(ctx context.Context, thread domain.ConversationThread) (string, error) {
	if err := t.deps.Store.SetFindingDismissed(ctx, thread.FindingID, true); err != nil {
		return "", fmt.Errorf("conversation: mark finding dismissed: %w", err)
	}
	return "Got it, dismissing this finding.", nil
}

func (t *Tracker) handleExplain(ctx context.Context, event ReplyEvent, thread domain.ConversationThread) (string, error) {
	finding, err := t.deps.Store.GetFinding(ctx, thread.FindingID)
	if err != nil {
		return "", fmt.Errorf("conversation: load finding: %w", err)
	}
	if t.deps.Model == nil {
		return finding.Body, nil
	}

	prompt := fmt.Sprintf("Finding: %s\n%s\n\nReviewer asked: %s\n\nExplain the finding in more detail.",
		finding.Title, finding.Body, event.Body)
	resp, err := t.deps.Model.Complete(ctx, explainSystemPrompt, prompt)
	if err != nil {
		return finding.Body, nil
	}
	return resp, nil
}

const explainSystemPrompt = "You explain a previously raised code review finding in more detail, " +
	"answering the reviewer's follow-up question directly."

func (t *Tracker) handleConverse(ctx context.Context, event ReplyEvent, thread domain.ConversationThread) (string, error) {
	if t.deps.Model == nil {
		return "Noted.", nil
	}
	prompt := buildConversePrompt(thread, event.Body)
	resp, err := t.deps.Model.Complete(ctx, converseSystemPrompt, prompt)
	if err != nil {
		return "Noted.", nil
	}
	return resp, nil
}

const converseSystemPrompt = "You are continuing a free-form conversation about a code review " +
	"finding. Keep the reply short and grounded in the thread history below."

func buildConversePrompt(thread domain.ConversationThread, latest string) string {
	var sb strings.Builder
	for _, turn := range thread.History {
		fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Body)
	}
	fmt.Fprintf(&sb, "user: %s\n", latest)
	return sb.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[truncated]"
}
