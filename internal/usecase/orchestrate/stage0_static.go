package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bkyoung/prreview/internal/diff"
	"github.com/bkyoung/prreview/internal/domain"
)

// stageZero runs the external static analyzer over every reviewable
// file in an isolated, per-review temporary directory, then drops
// every raw finding whose line falls outside the changed hunks. A
// failing analyzer for one file is logged and does not abort the
// stage, matching §4.9's partial-failure tolerance.
func stageZero(ctx context.Context, rc *ReviewContext, forge ForgeClient, runners []AnalyzerRunner, logger *slog.Logger) {
	if len(runners) == 0 {
		return
	}

	dir, err := os.MkdirTemp("", "prreview-s0-*")
	if err != nil {
		logger.Warn("stage0: temp dir create failed", "error", err)
		return
	}
	defer os.RemoveAll(dir)

	for _, fd := range rc.Parsed.Files {
		if rc.Cancelled() {
			return
		}
		if fd.Binary || fd.NewPath == "" {
			continue
		}
		language := diff.Language(fd.NewPath)
		runner := selectRunner(runners, language)
		if runner == nil {
			continue
		}

		content, err := forge.GetFileContent(ctx, rc.Target.InstallationID, rc.Target.Owner, rc.Target.Repo, fd.NewPath, rc.Target.HeadSHA)
		if err != nil {
			logger.Warn("stage0: fetch content failed", "file", fd.NewPath, "error", err)
			continue
		}

		relPath := filepath.Join(fmt.Sprintf("f%d", hashIndex(fd.NewPath)), filepath.Base(fd.NewPath))
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			logger.Warn("stage0: mkdir failed", "file", fd.NewPath, "error", err)
			continue
		}
		if err := os.WriteFile(absPath, content, 0o644); err != nil {
			logger.Warn("stage0: write failed", "file", fd.NewPath, "error", err)
			continue
		}

		results, err := runner.Analyze(ctx, dir, relPath, language)
		if err != nil {
			logger.Warn("stage0: analyzer failed", "file", fd.NewPath, "language", language, "error", err)
			continue
		}

		for _, raw := range results {
			pos := fd.FindPosition(raw.Line)
			if pos == nil {
				continue // outside changed hunks, per §4.9
			}
			finding := domain.NewFinding(rc.Target.ReviewID, domain.FindingInput{
				File:       fd.NewPath,
				LineStart:  raw.Line,
				LineEnd:    raw.Line,
				Severity:   normalizeAnalyzerSeverity(raw.Severity),
				Category:   domain.CategoryDefect,
				Title:      raw.Rule,
				Body:       raw.Message,
				Confidence: 0.8,
			})
			finding.DiffPosition = pos
			rc.AddFindings(finding)
		}
	}
}

func selectRunner(runners []AnalyzerRunner, language string) AnalyzerRunner {
	for _, r := range runners {
		if r.Supports(language) {
			return r
		}
	}
	return nil
}

func normalizeAnalyzerSeverity(s string) string {
	switch s {
	case domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow, domain.SeverityInfo:
		return s
	default:
		return domain.SeverityInfo
	}
}

func hashIndex(path string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(path); i++ {
		h ^= uint32(path[i])
		h *= 16777619
	}
	return h
}
