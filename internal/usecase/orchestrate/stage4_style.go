package orchestrate

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bkyoung/prreview/internal/domain"
)

const styleSystemPrompt = "You review a code change for style and convention issues only " +
	"(naming, formatting, idiom, documentation) — not correctness or security. " +
	"For each issue respond with one line: LINE:<new-file-line-number> SEVERITY:<low|info> " +
	"CATEGORY:style TITLE:<short title> BODY:<explanation>. Emit nothing else."

// stageFour reviews every hunk for style issues on the cheap model in
// parallel, then drops any style finding overlapping a stage-2 finding
// on the same file within the configured line tolerance, keeping the
// stage-2 finding as the more authoritative one.
func stageFour(ctx context.Context, rc *ReviewContext, cheap ModelClient, redactor Redactor, cfg StageConfig) {
	existing := append([]domain.Finding(nil), rc.Findings...)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.ModelConcurrency)

	var mu sync.Mutex
	var produced []domain.Finding

	for i := range rc.Parsed.Files {
		fd := rc.Parsed.Files[i]
		if fd.Binary {
			continue
		}
		for j := range fd.Hunks {
			hunk := fd.Hunks[j]
			g.Go(func() error {
				if rc.Cancelled() {
					return nil
				}
				prompt := buildDefectPrompt(fd, &hunk)
				if scrubbed, err := redactor.Redact(prompt); err == nil {
					prompt = scrubbed
				}
				cost := estimateCostMicros(prompt)
				if rc.ChargeCost(cost) {
					rc.Note("cost ceiling reached before stage4 call on %s", fd.NewPath)
					return nil
				}
				resp, err := cheap.Complete(gctx, ModelRequest{
					SystemPrompt: styleSystemPrompt,
					Prompt:       prompt,
					MaxTokens:    400,
				})
				if err != nil {
					return nil
				}
				rc.ReconcileCost(cost, resp.CostUSDMicros)
				findings := parseDefectFindings(rc.Target.ReviewID, fd, resp.Text)
				mu.Lock()
				produced = append(produced, findings...)
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	for _, f := range produced {
		if overlapsAny(f, existing, cfg.LineOverlapTolerance) {
			continue // stage-2 finding wins, per §4.9
		}
		rc.AddFindings(f)
	}
}

func overlapsAny(candidate domain.Finding, others []domain.Finding, tolerance int) bool {
	for _, o := range others {
		if o.File != candidate.File {
			continue
		}
		if linesOverlapWithTolerance(candidate.LineStart, candidate.LineEnd, o.LineStart, o.LineEnd, tolerance) {
			return true
		}
	}
	return false
}

func linesOverlapWithTolerance(aStart, aEnd, bStart, bEnd, tolerance int) bool {
	return aStart-tolerance <= bEnd && bStart-tolerance <= aEnd
}
