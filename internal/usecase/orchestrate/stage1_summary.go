package orchestrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/bkyoung/prreview/internal/adapter/llm"
	"github.com/bkyoung/prreview/internal/diff"
)

const summaryPromptBudgetChars = 12000

// stageOne submits a truncated diff plus metadata to the cheap model
// and attaches the resulting prose summary and risk level to the
// context. A cheap-model failure here degrades to a generic summary
// rather than aborting the review, consistent with §4.9's tolerance.
func stageOne(ctx context.Context, rc *ReviewContext, cheap ModelClient, redactor Redactor) {
	prompt := buildSummaryPrompt(rc.Parsed, rc.Target)
	if scrubbed, err := redactor.Redact(prompt); err == nil {
		prompt = scrubbed
	}
	cost := estimateCostMicros(prompt)
	if rc.ChargeCost(cost) {
		rc.Risk = RiskElevated
		rc.Summary = "Review truncated before the summary stage: cost ceiling reached."
		rc.Note("cost ceiling reached before stage1 (summary)")
		return
	}

	resp, err := cheap.Complete(ctx, ModelRequest{
		SystemPrompt: summarySystemPrompt,
		Prompt:       prompt,
		MaxTokens:    400,
	})
	if err != nil {
		rc.Summary = fmt.Sprintf("Automated summary unavailable (%d files changed).", len(rc.Parsed.Files))
		rc.Risk = RiskElevated // fail toward caution, not toward silence
		rc.Note("stage1 summary call failed: %v", err)
		return
	}
	rc.ReconcileCost(cost, resp.CostUSDMicros)

	summary, risk := parseSummaryResponse(resp.Text)
	rc.Summary = summary
	rc.Risk = risk
}

const summarySystemPrompt = "You summarize a pull request's diff for a reviewer. " +
	"Respond with two lines: a one-paragraph prose summary, then a line " +
	"starting with RISK: followed by either low or elevated."

func buildSummaryPrompt(parsed diff.ParsedDiff, target ReviewTarget) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Repository %s/%s, PR #%d, %s..%s\n\n", target.Owner, target.Repo, target.PRNumber, target.BaseSHA, target.HeadSHA)
	for _, fd := range parsed.Files {
		if sb.Len() >= summaryPromptBudgetChars {
			sb.WriteString("\n[diff truncated for summary budget]\n")
			break
		}
		fmt.Fprintf(&sb, "--- %s\n", fd.NewPath)
		for _, h := range fd.Hunks {
			sb.WriteString(h.HeaderText)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func parseSummaryResponse(text string) (summary string, risk RiskLevel) {
	risk = RiskLow
	lines := strings.Split(strings.TrimSpace(text), "\n")
	var kept []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToUpper(trimmed), "RISK:") {
			value := strings.ToLower(strings.TrimSpace(trimmed[len("RISK:"):]))
			if value == string(RiskElevated) {
				risk = RiskElevated
			}
			continue
		}
		kept = append(kept, line)
	}
	summary = strings.TrimSpace(strings.Join(kept, "\n"))
	if summary == "" {
		summary = strings.TrimSpace(text)
	}
	return summary, risk
}

// estimateCostMicros gives a rough per-call cost estimate in micro-USD
// from the prompt's token count, used to charge the ceiling before a
// call begins. Real per-call cost (once known) is reconciled by the
// caller via ModelResponse.CostUSDMicros; this estimate only gates
// whether the call is attempted.
func estimateCostMicros(prompt string) int64 {
	const microsPerToken = 8 // conservative flat per-token estimate
	return int64(llm.EstimateTokens(prompt) * microsPerToken)
}
