package orchestrate

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bkyoung/prreview/internal/diff"
	"github.com/bkyoung/prreview/internal/domain"
	"github.com/bkyoung/prreview/internal/usecase/gatekeeper"
)

// stageTwo reviews every changed file for defects and security issues.
// Security-sensitive files and files with more hunks than the
// configured threshold get a single file-level call against the
// capable model; everything else is split into per-hunk calls against
// the cheap model, run with bounded concurrency. A failure reviewing
// one file or hunk is logged and does not affect any other.
func stageTwo(ctx context.Context, rc *ReviewContext, cheap, capable ModelClient, redactor Redactor, cfg StageConfig) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.ModelConcurrency)

	var mu sync.Mutex

	for i := range rc.Parsed.Files {
		fd := rc.Parsed.Files[i]
		if fd.Binary {
			continue
		}
		if requiresFileLevel(fd, cfg) {
			g.Go(func() error {
				findings := reviewFileLevel(gctx, rc, capable, redactor, fd)
				mu.Lock()
				rc.AddFindings(findings...)
				mu.Unlock()
				return nil
			})
			continue
		}
		for j := range fd.Hunks {
			hunk := fd.Hunks[j]
			g.Go(func() error {
				findings := reviewHunkLevel(gctx, rc, cheap, redactor, fd, hunk)
				mu.Lock()
				rc.AddFindings(findings...)
				mu.Unlock()
				return nil
			})
		}
	}

	_ = g.Wait() // stage goroutines never return a non-nil error; failures are absorbed per-call
}

func requiresFileLevel(fd diff.FileDiff, cfg StageConfig) bool {
	if gatekeeper.MatchesAny(fd.NewPath, cfg.SecuritySensitiveGlobs) {
		return true
	}
	return len(fd.Hunks) > cfg.FileLevelHunkThreshold
}

func reviewFileLevel(ctx context.Context, rc *ReviewContext, capable ModelClient, redactor Redactor, fd diff.FileDiff) []domain.Finding {
	if rc.Cancelled() {
		return nil
	}
	prompt := buildDefectPrompt(fd, nil)
	if scrubbed, err := redactor.Redact(prompt); err == nil {
		prompt = scrubbed
	}
	cost := estimateCostMicros(prompt)
	if rc.ChargeCost(cost) {
		rc.Note("cost ceiling reached before stage2 file-level call on %s", fd.NewPath)
		return nil
	}

	resp, err := capable.Complete(ctx, ModelRequest{
		SystemPrompt: defectSystemPrompt,
		Prompt:       prompt,
		MaxTokens:    1200,
	})
	if err != nil {
		return nil // per-file failure does not impair other files, §4.9
	}
	rc.ReconcileCost(cost, resp.CostUSDMicros)
	return parseDefectFindings(rc.Target.ReviewID, fd, resp.Text)
}

func reviewHunkLevel(ctx context.Context, rc *ReviewContext, cheap ModelClient, redactor Redactor, fd diff.FileDiff, hunk diff.Hunk) []domain.Finding {
	if rc.Cancelled() {
		return nil
	}
	prompt := buildDefectPrompt(fd, &hunk)
	if scrubbed, err := redactor.Redact(prompt); err == nil {
		prompt = scrubbed
	}
	cost := estimateCostMicros(prompt)
	if rc.ChargeCost(cost) {
		rc.Note("cost ceiling reached before stage2 hunk-level call on %s", fd.NewPath)
		return nil
	}

	resp, err := cheap.Complete(ctx, ModelRequest{
		SystemPrompt: defectSystemPrompt,
		Prompt:       prompt,
		MaxTokens:    600,
	})
	if err != nil {
		return nil
	}
	rc.ReconcileCost(cost, resp.CostUSDMicros)
	return parseDefectFindings(rc.Target.ReviewID, fd, resp.Text)
}

const defectSystemPrompt = "You review a code change for defects and security issues. " +
	"For each issue respond with one line: LINE:<new-file-line-number> SEVERITY:<critical|high|medium|low|info> " +
	"CATEGORY:<defect|security> TITLE:<short title> BODY:<explanation>. Emit nothing else."

func buildDefectPrompt(fd diff.FileDiff, hunk *diff.Hunk) string {
	var sb []byte
	sb = append(sb, []byte(fmt.Sprintf("File: %s\n", fd.NewPath))...)
	if hunk != nil {
		sb = append(sb, []byte(hunk.HeaderText+"\n")...)
		for _, line := range hunk.Lines {
			sb = append(sb, []byte(renderDiffLine(line)+"\n")...)
		}
		return string(sb)
	}
	for _, h := range fd.Hunks {
		sb = append(sb, []byte(h.HeaderText+"\n")...)
		for _, line := range h.Lines {
			sb = append(sb, []byte(renderDiffLine(line)+"\n")...)
		}
	}
	return string(sb)
}

func renderDiffLine(line diff.Line) string {
	prefix := " "
	switch line.Type {
	case diff.LineAddition:
		prefix = "+"
	case diff.LineDeletion:
		prefix = "-"
	}
	return prefix + line.Content
}
