// Package ingest defines the webhook payload shapes the gateway
// decodes and the pure mapping from a decoded payload to the inputs
// the gatekeeper and scheduler need, independent of net/http.
package ingest

import "github.com/bkyoung/prreview/internal/usecase/gatekeeper"

// Header names the gateway reads off every delivery.
const (
	HeaderSignature = "X-Hub-Signature-256"
	HeaderEvent     = "X-GitHub-Event"
	HeaderDelivery  = "X-GitHub-Delivery"
)

// Event kinds this gateway routes on; anything else falls through to
// "other" and is acknowledged without further action.
const (
	EventPullRequest              = "pull_request"
	EventPullRequestReviewComment = "pull_request_review_comment"
	EventInstallation             = "installation"
	EventPing                     = "ping"
)

// Pull request actions that warrant enqueuing a review task. Every
// other action (labeled, assigned, review_requested, ...) is
// acknowledged without enqueueing.
const (
	PRActionOpened      = "opened"
	PRActionReopened    = "reopened"
	PRActionSynchronize = "synchronize"
	PRActionReadyReview = "ready_for_review"
)

// ghUser is the minimal actor shape shared by every payload below.
type ghUser struct {
	Login string `json:"login"`
}

// ghLabel is one label attached to a pull request.
type ghLabel struct {
	Name string `json:"name"`
}

// ghRef is one side of a pull request (head or base).
type ghRef struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// ghPullRequest is the subset of GitHub's pull_request object this
// gateway needs to decide admission and build a task descriptor.
type ghPullRequest struct {
	Number       int       `json:"number"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Draft        bool      `json:"draft"`
	State        string    `json:"state"`
	ChangedFiles int       `json:"changed_files"`
	User         ghUser    `json:"user"`
	Labels       []ghLabel `json:"labels"`
	Head         ghRef     `json:"head"`
	Base         ghRef     `json:"base"`
}

// ghRepository is the subset of GitHub's repository object this
// gateway needs.
type ghRepository struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Name     string `json:"name"`
	Owner    ghUser `json:"owner"`
}

// ghInstallation identifies which installation's credentials authorize
// acting on this delivery.
type ghInstallation struct {
	ID int64 `json:"id"`
}

// ghReviewComment is the subset of a pull_request_review_comment
// payload's "comment" object the conversation tracker needs to route a
// reply to its thread.
type ghReviewComment struct {
	ID          int64  `json:"id"`
	InReplyToID int64  `json:"in_reply_to_id"`
	Body        string `json:"body"`
}

// PullRequestEvent is the payload for pull_request deliveries.
type PullRequestEvent struct {
	Action       string         `json:"action"`
	PullRequest  ghPullRequest  `json:"pull_request"`
	Repository   ghRepository   `json:"repository"`
	Sender       ghUser         `json:"sender"`
	Installation ghInstallation `json:"installation"`
}

// PullRequestReviewCommentEvent is the payload for
// pull_request_review_comment deliveries — the event the conversation
// tracker routes replies through, per §4.10.
type PullRequestReviewCommentEvent struct {
	Action       string          `json:"action"`
	Comment      ghReviewComment `json:"comment"`
	PullRequest  ghPullRequest   `json:"pull_request"`
	Repository   ghRepository    `json:"repository"`
	Sender       ghUser          `json:"sender"`
	Installation ghInstallation  `json:"installation"`
}

// InstallationEvent is the payload for installation lifecycle
// deliveries (created, deleted, suspend, unsuspend).
type InstallationEvent struct {
	Action       string         `json:"action"`
	Installation ghInstallation `json:"installation"`
	Sender       ghUser         `json:"sender"`
}

// PingEvent is GitHub's payload sent once when a webhook is registered.
type PingEvent struct {
	Zen    string `json:"zen"`
	HookID int    `json:"hook_id"`
}

// IsReviewableAction reports whether a pull_request action is one the
// gateway should evaluate for admission at all; every other action
// (labeled, review_requested, assigned, ...) is acknowledged and
// dropped before Gatekeeper ever runs.
func IsReviewableAction(action string) bool {
	switch action {
	case PRActionOpened, PRActionReopened, PRActionSynchronize, PRActionReadyReview:
		return true
	default:
		return false
	}
}

// GateInput builds the gatekeeper's pure input from a decoded
// pull_request payload. ChangedPaths can't carry real paths — GitHub's
// pull_request payload reports only a changed-file count, not the
// files themselves, and fetching the actual list is an outbound call
// this gateway's critical path (§4.6) may not make — so it's populated
// with unmatchable placeholders purely to give the large-PR
// file-count rule (§4.5 rule 5) the right length to compare against;
// the non-reviewable-path rule (§4.5 rule 4) can never fire from a
// webhook-only payload as a consequence, and is effectively exercised
// only when an upstream collaborator enriches the paths later. No
// commit messages are available on this payload either (those arrive
// on push events, not pull_request events), so the commit-message leg
// of the inline skip-trigger check never fires from this path; the
// title/body legs still do.
func GateInput(pr ghPullRequest) gatekeeper.GateInput {
	labels := make([]string, len(pr.Labels))
	for i, l := range pr.Labels {
		labels[i] = l.Name
	}
	placeholderPaths := make([]string, pr.ChangedFiles)
	return gatekeeper.GateInput{
		AuthorLogin:   pr.User.Login,
		Labels:        labels,
		Draft:         pr.Draft,
		ChangedPaths:  placeholderPaths,
		PRTitle:       pr.Title,
		PRDescription: pr.Body,
	}
}
