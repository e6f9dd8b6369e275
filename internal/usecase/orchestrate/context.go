package orchestrate

import (
	"fmt"
	"sync/atomic"

	"github.com/bkyoung/prreview/internal/diff"
	"github.com/bkyoung/prreview/internal/domain"
)

// RiskLevel is S1's coarse risk classification of the whole diff.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskElevated RiskLevel = "elevated"
)

// ReviewContext is assembled once per review and flows through every
// stage unmodified in shape; no stage reaches into another stage's
// private state, it only reads and appends to the fields below. Fields
// populated by a later stage are zero-valued until that stage runs.
type ReviewContext struct {
	Target   ReviewTarget
	Config   RepoConfig
	Parsed   diff.ParsedDiff
	CostCeilingMicros int64

	// costMicros is the accumulating cost counter; incremented before
	// each outbound model call per §4.9 and §8's monotonicity invariant.
	costMicros atomic.Int64

	// cancelled is set when an external cancellation (newer head
	// supersedes, soft deadline) arrives; stages check it between
	// per-file iterations and stop starting new work, but never abort
	// an in-flight forge post.
	cancelled atomic.Bool

	// Summary and Risk are populated by S1.
	Summary string
	Risk    RiskLevel

	// Diagnostics accumulates human-readable notes appended to the
	// summary comment, e.g. a cost-ceiling truncation notice.
	Diagnostics []string

	// Findings accumulates raw findings from S0 through S4; S5 reads
	// and replaces this slice with the deduplicated, capped result.
	Findings []domain.Finding
}

// NewReviewContext builds a ReviewContext ready for S0.
func NewReviewContext(target ReviewTarget, cfg RepoConfig, parsed diff.ParsedDiff, costCeilingMicros int64) *ReviewContext {
	return &ReviewContext{
		Target:            target,
		Config:            cfg,
		Parsed:            parsed,
		CostCeilingMicros: costCeilingMicros,
	}
}

// ChargeCost adds a completed call's cost to the running total and
// reports whether the ceiling has now been reached. The charge is
// applied before the call begins, per §4.9, by callers invoking this
// ahead of the collaborator call with the call's estimated or quoted cost.
func (rc *ReviewContext) ChargeCost(deltaMicros int64) (overCeiling bool) {
	total := rc.costMicros.Add(deltaMicros)
	return total >= rc.CostCeilingMicros
}

// CostMicros returns the accumulated cost so far.
func (rc *ReviewContext) CostMicros() int64 {
	return rc.costMicros.Load()
}

// ReconcileCost adjusts the running total from an estimate charged
// before a call to the actual cost the collaborator reported once the
// call returns. The counter only ever moves in the direction of truth;
// a zero actualMicros (collaborator didn't report one) leaves the
// pre-charged estimate standing rather than zeroing it out.
func (rc *ReviewContext) ReconcileCost(estimatedMicros, actualMicros int64) {
	if actualMicros <= 0 {
		return
	}
	rc.costMicros.Add(actualMicros - estimatedMicros)
}

// Cancel marks the context cancelled; already-running stages finish
// their current unit of work but no new stage work starts afterward.
func (rc *ReviewContext) Cancel() {
	rc.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (rc *ReviewContext) Cancelled() bool {
	return rc.cancelled.Load()
}

// AddFindings appends newly produced findings. Safe to call from a
// single stage's own goroutines as long as the stage serializes its
// own appends (stages do this via a mutex or by collecting into a
// per-goroutine slice and appending once; see stage2.go/stage4.go).
func (rc *ReviewContext) AddFindings(findings ...domain.Finding) {
	rc.Findings = append(rc.Findings, findings...)
}

// Note appends a diagnostic line surfaced in the top-level summary.
func (rc *ReviewContext) Note(format string, args ...any) {
	rc.Diagnostics = append(rc.Diagnostics, fmt.Sprintf(format, args...))
}
