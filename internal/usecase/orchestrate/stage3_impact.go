package orchestrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/bkyoung/prreview/internal/domain"
)

// stageThree runs cross-file impact analysis, but only when stage-1
// flagged elevated risk or a changed hunk looks like a signature
// change (a heuristic stand-in for the AST-level signal spec.md
// describes, since no AST collaborator is in scope here). For each
// call site the finder returns, one additional model call assesses
// whether the change breaks that call site.
func stageThree(ctx context.Context, rc *ReviewContext, capable ModelClient, finder CallSiteFinder) {
	if rc.Risk != RiskElevated && !anyHunkLooksLikeSignatureChange(rc) {
		return
	}
	if finder == nil {
		rc.Note("stage3 skipped: no call-site collaborator configured")
		return
	}

	symbols := changedSymbols(rc)
	for _, symbol := range symbols {
		if rc.Cancelled() {
			return
		}
		sites, err := finder.FindCallSites(ctx, rc.Target.RepositoryID, symbol)
		if err != nil {
			continue // absorbed per §4.9: a failed S3 skips
		}
		for _, site := range sites {
			if rc.Cancelled() {
				return
			}
			finding, ok := assessCallSite(ctx, rc, capable, symbol, site)
			if ok {
				rc.AddFindings(finding)
			}
		}
	}
}

func anyHunkLooksLikeSignatureChange(rc *ReviewContext) bool {
	for _, fd := range rc.Parsed.Files {
		for _, h := range fd.Hunks {
			if h.EnclosingSymbol != "" {
				return true
			}
		}
	}
	return false
}

func changedSymbols(rc *ReviewContext) []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, fd := range rc.Parsed.Files {
		for _, h := range fd.Hunks {
			if h.EnclosingSymbol == "" {
				continue
			}
			if !seen[h.EnclosingSymbol] {
				seen[h.EnclosingSymbol] = true
				symbols = append(symbols, h.EnclosingSymbol)
			}
		}
	}
	return symbols
}

func assessCallSite(ctx context.Context, rc *ReviewContext, capable ModelClient, symbol string, site CallSite) (domain.Finding, bool) {
	prompt := fmt.Sprintf(
		"Symbol %q changed. Assess whether the call site below is broken by that change.\n\n%s:%d\n%s\n\n"+
			"Respond with exactly one line in the defect format if broken, or the single word NONE otherwise.",
		symbol, site.File, site.Line, site.Text)

	cost := estimateCostMicros(prompt)
	if rc.ChargeCost(cost) {
		rc.Note("cost ceiling reached before stage3 call-site assessment of %s", site.File)
		return domain.Finding{}, false
	}

	resp, err := capable.Complete(ctx, ModelRequest{
		SystemPrompt: defectSystemPrompt,
		Prompt:       prompt,
		MaxTokens:    300,
	})
	if err != nil {
		return domain.Finding{}, false
	}
	rc.ReconcileCost(cost, resp.CostUSDMicros)
	if strings.TrimSpace(resp.Text) == "NONE" {
		return domain.Finding{}, false
	}

	fields := splitModelFields(strings.TrimSpace(resp.Text))
	if fields["TITLE"] == "" {
		return domain.Finding{}, false
	}

	return domain.NewFinding(rc.Target.ReviewID, domain.FindingInput{
		File:       site.File,
		LineStart:  site.Line,
		LineEnd:    site.Line,
		Severity:   normalizeAnalyzerSeverity(strings.ToLower(fields["SEVERITY"])),
		Category:   domain.CategoryBreakingChange,
		Title:      fields["TITLE"],
		Body:       fields["BODY"],
		Confidence: 0.6,
	}), true
}
