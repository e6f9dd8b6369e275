package orchestrate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bkyoung/prreview/internal/domain"
)

// stageFive runs the two-phase synthesis pass: a rule-based grouping
// and cap, then (if the result is still large) a single cheap-model
// pass to pare it further. The final ordering is severity, then file,
// then line, matching §4.9.
func stageFive(ctx context.Context, rc *ReviewContext, cheap ModelClient, severityThreshold string, cfg StageConfig) {
	grouped := groupOverlapping(rc.Findings, cfg.LineOverlapTolerance)

	var kept []domain.Finding
	for _, group := range grouped {
		best := bestOf(group)
		if !best.InDiff() {
			continue // null diff-position, per §4.9's rule-based pass
		}
		if domain.SeverityRank(best.Severity) > domain.SeverityRank(severityThreshold) {
			continue // below the configured severity threshold
		}
		kept = append(kept, best)
	}

	sortFindings(kept)
	if len(kept) > cfg.MaxFindings {
		rc.Note("capped at %d findings by severity order (%d produced)", cfg.MaxFindings, len(kept))
		kept = kept[:cfg.MaxFindings]
	}

	if len(kept) > cfg.SynthesisTrimThreshold && cheap != nil {
		kept = trimWithModel(ctx, rc, cheap, kept, cfg.SynthesisTrimThreshold)
	}

	sortFindings(kept)
	rc.Findings = kept
}

// groupOverlapping groups findings by file plus overlapping line range;
// it does not compare finding text, unlike the provider-consensus
// grouping this is modeled on, because within a single review the
// categories producing each finding (S0-S4) rarely disagree on the same
// location.
func groupOverlapping(findings []domain.Finding, tolerance int) [][]domain.Finding {
	var groups [][]domain.Finding
	for _, f := range findings {
		placed := false
		for i, group := range groups {
			rep := group[0]
			if rep.File == f.File && linesOverlapWithTolerance(f.LineStart, f.LineEnd, rep.LineStart, rep.LineEnd, tolerance) {
				groups[i] = append(groups[i], f)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []domain.Finding{f})
		}
	}
	return groups
}

// bestOf picks the highest (severity, confidence) finding in a group.
func bestOf(group []domain.Finding) domain.Finding {
	best := group[0]
	for _, f := range group[1:] {
		if domain.SeverityRank(f.Severity) < domain.SeverityRank(best.Severity) {
			best = f
			continue
		}
		if domain.SeverityRank(f.Severity) == domain.SeverityRank(best.Severity) && f.Confidence > best.Confidence {
			best = f
		}
	}
	return best
}

func sortFindings(findings []domain.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if domain.SeverityRank(a.Severity) != domain.SeverityRank(b.Severity) {
			return domain.SeverityRank(a.Severity) < domain.SeverityRank(b.Severity)
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.LineStart < b.LineStart
	})
}

const trimSystemPrompt = "You are pruning a list of code review findings down to the most " +
	"important ones. Respond with the KEEP indices (1-based, comma-separated) of the " +
	"findings worth keeping, nothing else."

// trimWithModel asks the cheap model to pick which findings survive
// when the rule-based pass still leaves more than the trim threshold.
// On any parse or call failure, the untrimmed (but already capped)
// slice is kept rather than losing findings to a broken response.
func trimWithModel(ctx context.Context, rc *ReviewContext, cheap ModelClient, findings []domain.Finding, target int) []domain.Finding {
	var sb strings.Builder
	for i, f := range findings {
		fmt.Fprintf(&sb, "%d. [%s/%s] %s: %s\n", i+1, f.Severity, f.Category, f.File, f.Title)
	}
	fmt.Fprintf(&sb, "\nKeep at most %d of the above.", target)

	cost := estimateCostMicros(sb.String())
	if rc.ChargeCost(cost) {
		rc.Note("cost ceiling reached before stage5 trim pass; keeping capped list as-is")
		return findings
	}

	resp, err := cheap.Complete(ctx, ModelRequest{
		SystemPrompt: trimSystemPrompt,
		Prompt:       sb.String(),
		MaxTokens:    200,
	})
	if err != nil {
		return findings
	}
	rc.ReconcileCost(cost, resp.CostUSDMicros)

	keepIdx := parseKeepIndices(resp.Text, len(findings))
	if len(keepIdx) == 0 {
		return findings
	}

	var trimmed []domain.Finding
	for _, idx := range keepIdx {
		trimmed = append(trimmed, findings[idx])
	}
	return trimmed
}

func parseKeepIndices(text string, n int) []int {
	var out []int
	for _, part := range strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' }) {
		var idx int
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d", &idx); err != nil {
			continue
		}
		if idx >= 1 && idx <= n {
			out = append(out, idx-1)
		}
	}
	return out
}
