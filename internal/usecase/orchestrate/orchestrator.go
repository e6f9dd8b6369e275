package orchestrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bkyoung/prreview/internal/diff"
	"github.com/bkyoung/prreview/internal/domain"
)

// Deps are every collaborator the orchestrator reaches out to. Only
// Forge, Cheap, and Store are required; the rest degrade gracefully
// when nil (S0 with no analyzers, S3 with no call-site finder).
type Deps struct {
	Forge       ForgeClient
	Cheap       ModelClient
	Capable     ModelClient
	Analyzers   []AnalyzerRunner
	CallSites   CallSiteFinder
	RepoConfigs RepoConfigProvider
	Redactor    Redactor
	Store       Store
	Logger      *slog.Logger
}

func (d Deps) validate() error {
	if d.Forge == nil {
		return fmt.Errorf("orchestrate: Forge collaborator is required")
	}
	if d.Cheap == nil {
		return fmt.Errorf("orchestrate: Cheap model collaborator is required")
	}
	if d.Store == nil {
		return fmt.Errorf("orchestrate: Store is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return nil
}

// Orchestrator executes the six review stages for one PR at a time;
// it is owned by exactly one worker goroutine for the duration of a
// review (§5's "Workers run ... one task at a time per process").
type Orchestrator struct {
	deps Deps
}

// New builds an Orchestrator, defaulting Capable to Cheap when no
// separate capable-model collaborator is configured.
func New(deps Deps) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Capable == nil {
		deps.Capable = deps.Cheap
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Redactor == nil {
		deps.Redactor = noopRedactor{}
	}
	return &Orchestrator{deps: deps}, nil
}

// noopRedactor is the Redactor used when no collaborator is configured;
// it passes content through unchanged rather than leaving callers to
// nil-check before every Redact call.
type noopRedactor struct{}

func (noopRedactor) Redact(input string) (string, error) { return input, nil }

// Result is what a completed (or gracefully truncated) review produced.
type Result struct {
	Status    string
	Summary   string
	Findings  []domain.Finding
	CostMicros int64
}

// Run executes S0 through S5 and posts the outcome, then persists the
// terminal Review status and Findings atomically via Store.CompleteReview
// (§4.11). A fatal error (diff fetch failure, posting failure) marks the
// Review failed rather than returning without a terminal record, so a
// review is never left dangling in "processing".
func (o *Orchestrator) Run(ctx context.Context, target ReviewTarget, costCeilingMicros int64) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, reviewDeadline)
	defer cancel()

	cfg, foundConfig, err := o.fetchRepoConfig(ctx, target)
	if err != nil {
		return o.fail(ctx, target, "fetch_repo_config", err)
	}
	if foundConfig && !cfg.Enabled {
		return o.fail(ctx, target, "repo_config", fmt.Errorf("review disabled by repository configuration"))
	}

	rawDiff, err := o.deps.Forge.GetPullRequestDiff(ctx, target.InstallationID, target.Owner, target.Repo, target.PRNumber)
	if err != nil {
		return o.fail(ctx, target, "fetch_diff", err)
	}
	parsed, err := diff.Parse(rawDiff)
	if err != nil {
		return o.fail(ctx, target, "parse_diff", err)
	}

	rc := NewReviewContext(target, cfg, parsed, costCeilingMicros)
	stageCfg := DefaultStageConfig()
	severityThreshold := cfg.SeverityThreshold
	if severityThreshold == "" {
		severityThreshold = domain.SeverityInfo
	}

	_ = o.deps.Store.UpdateReviewStatus(ctx, target.ReviewID, domain.ReviewStatusProcessing, "s0_static", "")
	stageZero(ctx, rc, o.deps.Forge, o.deps.Analyzers, o.deps.Logger)

	_ = o.deps.Store.UpdateReviewStatus(ctx, target.ReviewID, domain.ReviewStatusProcessing, "s1_summary", "")
	stageOne(ctx, rc, o.deps.Cheap, o.deps.Redactor)

	if !rc.Cancelled() {
		_ = o.deps.Store.UpdateReviewStatus(ctx, target.ReviewID, domain.ReviewStatusProcessing, "s2_defects", "")
		stageTwo(ctx, rc, o.deps.Cheap, o.deps.Capable, o.deps.Redactor, stageCfg)
	}

	if !rc.Cancelled() {
		_ = o.deps.Store.UpdateReviewStatus(ctx, target.ReviewID, domain.ReviewStatusProcessing, "s3_impact", "")
		stageThree(ctx, rc, o.deps.Capable, o.deps.CallSites)
	}

	if !cfg.StyleDisabled && !rc.Cancelled() {
		_ = o.deps.Store.UpdateReviewStatus(ctx, target.ReviewID, domain.ReviewStatusProcessing, "s4_style", "")
		stageFour(ctx, rc, o.deps.Cheap, o.deps.Redactor, stageCfg)
	}

	_ = o.deps.Store.UpdateReviewStatus(ctx, target.ReviewID, domain.ReviewStatusProcessing, "s5_synthesis", "")
	stageFive(ctx, rc, o.deps.Cheap, severityThreshold, stageCfg)

	_ = o.deps.Store.IncrementReviewCost(ctx, target.ReviewID, rc.CostMicros())

	postResult, err := postFindings(ctx, rc, o.deps.Forge, o.deps.Logger)
	if err != nil {
		return o.fail(ctx, target, "posting", err)
	}

	if err := o.deps.Store.CompleteReview(ctx, target.ReviewID, domain.ReviewStatusCompleted, "", postResult.Posted); err != nil {
		return Result{}, fmt.Errorf("orchestrate: complete review: %w", err)
	}

	return Result{
		Status:     domain.ReviewStatusCompleted,
		Summary:    rc.Summary,
		Findings:   postResult.Posted,
		CostMicros: rc.CostMicros(),
	}, nil
}

func (o *Orchestrator) fetchRepoConfig(ctx context.Context, target ReviewTarget) (cfg RepoConfig, found bool, err error) {
	if o.deps.RepoConfigs == nil {
		return RepoConfig{}, false, nil
	}
	cfg, err = o.deps.RepoConfigs.Fetch(ctx, target.InstallationID, target.Owner, target.Repo, target.BaseSHA)
	if err != nil {
		// Missing or malformed documents fall back silently to defaults.
		return RepoConfig{}, false, nil
	}
	return cfg, true, nil
}

func (o *Orchestrator) fail(ctx context.Context, target ReviewTarget, stage string, cause error) (Result, error) {
	message := fmt.Sprintf("%s: %v", stage, cause)
	if completeErr := o.deps.Store.CompleteReview(ctx, target.ReviewID, domain.ReviewStatusFailed, message, nil); completeErr != nil {
		o.deps.Logger.Error("orchestrate: failed to persist failed review", "review_id", target.ReviewID, "error", completeErr)
	}
	return Result{Status: domain.ReviewStatusFailed}, fmt.Errorf("orchestrate: %s: %w", stage, cause)
}
