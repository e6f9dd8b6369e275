// Package httpapi wires the public webhook-receiving surface and the
// operator-facing admin surface described in spec.md §4.6: two
// separate chi routers, intentionally not sharing a listener so a
// misconfigured admin route can never become reachable from the
// internet-facing port.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bkyoung/prreview/internal/config"
	"github.com/bkyoung/prreview/internal/domain"
	"github.com/bkyoung/prreview/internal/ingest"
	"github.com/bkyoung/prreview/internal/scheduler"
	"github.com/bkyoung/prreview/internal/security"
	"github.com/bkyoung/prreview/internal/store"
	"github.com/bkyoung/prreview/internal/usecase/conversation"
	"github.com/bkyoung/prreview/internal/usecase/gatekeeper"
)

// defaultReplyQueueSize bounds how many pending review-comment replies
// the gateway holds before it starts dropping the oldest-arriving ones;
// the conversation lane is explicitly lightweight and best-effort, not
// durable like the review queue.
const defaultReplyQueueSize = 256

// defaultReplyWorkers is the number of goroutines draining the reply
// queue concurrently.
const defaultReplyWorkers = 2

// Metrics is the subset of observability.Metrics the gateway touches.
// Declared locally so this package doesn't need the full metrics
// surface to be constructed in tests.
type Metrics interface {
	WebhookReceived(event string)
	WebhookRejected(reason string)
	JobEnqueued(lane string)
}

// Deps wires the gateway to its collaborators.
type Deps struct {
	Config       config.GatewayConfig
	WebhookSecret []byte
	Gatekeeper   config.GatekeeperConfig
	Queue        *scheduler.Queue
	Idempotency  *scheduler.IdempotencyKeeper
	Store        store.Store
	Conversation *conversation.Tracker
	Metrics      Metrics
	Logger       *slog.Logger

	ReplyQueueSize int
	ReplyWorkers   int
}

// Gateway handles GitHub webhook deliveries per spec.md §4.6's
// read-verify-classify-admit-enqueue sequence.
type Gateway struct {
	deps     Deps
	deadline time.Duration
	replies  chan conversation.ReplyEvent
}

// NewGateway builds a Gateway and starts its reply-lane workers.
// Callers must not reuse a Deps across two Gateways (the reply channel
// is owned by the instance that started draining it).
func NewGateway(deps Deps) (*Gateway, error) {
	if deps.Queue == nil || deps.Idempotency == nil || deps.Store == nil {
		return nil, errors.New("httpapi: queue, idempotency keeper, and store are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.ReplyQueueSize <= 0 {
		deps.ReplyQueueSize = defaultReplyQueueSize
	}
	if deps.ReplyWorkers <= 0 {
		deps.ReplyWorkers = defaultReplyWorkers
	}

	deadline, err := time.ParseDuration(deps.Config.ResponseDeadline)
	if err != nil || deadline <= 0 {
		deadline = 100 * time.Millisecond
	}

	g := &Gateway{
		deps:     deps,
		deadline: deadline,
		replies:  make(chan conversation.ReplyEvent, deps.ReplyQueueSize),
	}

	for i := 0; i < deps.ReplyWorkers; i++ {
		go g.drainReplies()
	}

	return g, nil
}

// Router returns the public webhook-receiving handler.
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/webhook", g.handleWebhook)
	return r
}

func (g *Gateway) handleWebhook(w http.ResponseWriter, r *http.Request) {
	maxBody := g.deps.Config.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 5 << 20
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		g.reject(w, "body_too_large")
		return
	}

	if err := security.VerifyWebhookSignature(g.deps.WebhookSecret, r.Header.Get(ingest.HeaderSignature), body); err != nil {
		g.reject(w, "bad_signature")
		return
	}

	event := r.Header.Get(ingest.HeaderEvent)
	g.countReceived(event)

	ctx, cancel := context.WithTimeout(r.Context(), g.deadline)
	defer cancel()

	switch event {
	case ingest.EventPing:
		// Nothing to do but prove the endpoint is alive.
	case ingest.EventPullRequest:
		g.handlePullRequest(ctx, body)
	case ingest.EventPullRequestReviewComment:
		g.handleReviewComment(ctx, body)
	case ingest.EventInstallation:
		g.handleInstallation(ctx, body)
	default:
		g.deps.Logger.Debug("webhook event ignored", slog.String("event", event))
	}

	g.ack(w)
}

func (g *Gateway) handlePullRequest(ctx context.Context, body []byte) {
	var evt ingest.PullRequestEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		g.deps.Logger.Error("pull_request payload decode failed", slog.Any("error", err))
		return
	}

	if !ingest.IsReviewableAction(evt.Action) {
		return
	}

	decision := gatekeeper.Evaluate(ingest.GateInput(evt.PullRequest), g.deps.Gatekeeper)
	log := g.deps.Logger.With(
		slog.Int64("repository_id", evt.Repository.ID),
		slog.Int("pr_number", evt.PullRequest.Number),
	)
	if !decision.Admit {
		log.Info("pull request not admitted", slog.String("reason", decision.Reason))
		return
	}

	key := scheduler.IdempotencyKey(evt.Repository.ID, evt.PullRequest.Number, evt.PullRequest.Head.SHA)
	claimed, err := g.deps.Idempotency.TryClaim(ctx, key)
	if err != nil {
		log.Error("idempotency claim failed", slog.Any("error", err))
		return
	}
	if !claimed {
		log.Info("pull request head already in flight, not re-enqueued")
		return
	}

	task := scheduler.Task{
		ID:             key,
		Lane:           mapLane(decision.Lane),
		InstallationID: evt.Installation.ID,
		RepositoryID:   evt.Repository.ID,
		Owner:          evt.Repository.Owner.Login,
		Repo:           evt.Repository.Name,
		PRNumber:       evt.PullRequest.Number,
		BaseSHA:        evt.PullRequest.Base.SHA,
		HeadSHA:        evt.PullRequest.Head.SHA,
		EnqueuedAt:     time.Now(),
	}

	if err := g.deps.Queue.Enqueue(ctx, task); err != nil {
		log.Error("enqueue failed", slog.Any("error", err))
		// Don't leave the claim standing for a task that never made it
		// onto the queue — a later delivery for the same head would
		// otherwise be silently swallowed forever.
		if releaseErr := g.deps.Idempotency.Release(context.Background(), key); releaseErr != nil {
			log.Error("idempotency release after failed enqueue also failed", slog.Any("error", releaseErr))
		}
		return
	}

	if g.deps.Metrics != nil {
		g.deps.Metrics.JobEnqueued(string(task.Lane))
	}
	log.Info("pull request admitted", slog.String("lane", string(task.Lane)))
}

func (g *Gateway) handleReviewComment(_ context.Context, body []byte) {
	var evt ingest.PullRequestReviewCommentEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		g.deps.Logger.Error("review comment payload decode failed", slog.Any("error", err))
		return
	}

	// Only a freshly created reply to an existing review thread is
	// relevant; edits, deletes, and top-level (non-reply) comments
	// don't address any finding.
	if evt.Action != "created" || evt.Comment.InReplyToID == 0 {
		return
	}

	replyEvent := conversation.ReplyEvent{
		InstallationID:  evt.Installation.ID,
		Owner:           evt.Repository.Owner.Login,
		Repo:            evt.Repository.Name,
		PRNumber:        evt.PullRequest.Number,
		HeadSHA:         evt.PullRequest.Head.SHA,
		ParentCommentID: evt.Comment.InReplyToID,
		Body:            evt.Comment.Body,
	}

	select {
	case g.replies <- replyEvent:
	default:
		g.deps.Logger.Warn("conversation reply lane full, dropping reply",
			slog.Int64("parent_comment_id", replyEvent.ParentCommentID))
	}
}

func (g *Gateway) handleInstallation(ctx context.Context, body []byte) {
	var evt ingest.InstallationEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		g.deps.Logger.Error("installation payload decode failed", slog.Any("error", err))
		return
	}

	var err error
	switch evt.Action {
	case "deleted", "suspend":
		err = g.deps.Store.DeactivateInstallation(ctx, evt.Installation.ID)
	case "created", "unsuspend", "new_permissions_accepted":
		now := time.Now()
		err = g.deps.Store.UpsertInstallation(ctx, domain.Installation{
			ID:        evt.Installation.ID,
			Login:     evt.Sender.Login,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err != nil {
		g.deps.Logger.Error("installation event persistence failed",
			slog.Int64("installation_id", evt.Installation.ID), slog.Any("error", err))
	}
}

// drainReplies runs for the lifetime of the Gateway, dispatching
// buffered review-comment replies to the conversation tracker one at a
// time per worker. A nil Tracker (conversation replies not configured)
// just discards the lane.
func (g *Gateway) drainReplies() {
	for event := range g.replies {
		if g.deps.Conversation == nil {
			continue
		}
		if err := g.deps.Conversation.HandleReply(context.Background(), event); err != nil {
			g.deps.Logger.Error("conversation reply handling failed",
				slog.Int64("parent_comment_id", event.ParentCommentID), slog.Any("error", err))
		}
	}
}

func (g *Gateway) reject(w http.ResponseWriter, reason string) {
	if g.deps.Metrics != nil {
		g.deps.Metrics.WebhookRejected(reason)
	}
	w.WriteHeader(http.StatusForbidden)
}

func (g *Gateway) countReceived(event string) {
	if g.deps.Metrics != nil {
		g.deps.Metrics.WebhookReceived(event)
	}
}

// ack always answers 200: spec.md §4.6 treats "admitted but couldn't
// fully process within the response budget" as a drop-and-log
// condition, not a delivery failure GitHub should retry — a retried
// delivery would just re-run the same admission decision and risk a
// duplicate enqueue race with the idempotency key's TTL.
func (g *Gateway) ack(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}

func mapLane(lane gatekeeper.Lane) scheduler.Lane {
	if lane == gatekeeper.LaneSlow {
		return scheduler.LaneSlow
	}
	return scheduler.LaneFast
}
