package orchestrate

import (
	"strconv"
	"strings"

	"github.com/bkyoung/prreview/internal/diff"
	"github.com/bkyoung/prreview/internal/domain"
)

// parseDefectFindings parses the line-oriented LINE:/SEVERITY:/CATEGORY:/
// TITLE:/BODY: format both the defect and style prompts ask models to
// respond in, attaching each finding's diff position from fd. A line
// that does not map to a changed hunk line is silently dropped: only
// in-diff findings are ever posted (domain.Finding.InDiff).
func parseDefectFindings(reviewID string, fd diff.FileDiff, text string) []domain.Finding {
	var findings []domain.Finding
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" || !strings.HasPrefix(raw, "LINE:") {
			continue
		}
		fields := splitModelFields(raw)
		lineNo, _ := strconv.Atoi(fields["LINE"])
		if lineNo <= 0 {
			continue
		}
		pos := fd.FindPosition(lineNo)
		if pos == nil {
			continue // outside the changed hunks
		}
		severity := normalizeAnalyzerSeverity(strings.ToLower(fields["SEVERITY"]))
		category := normalizeCategory(strings.ToLower(fields["CATEGORY"]))
		finding := domain.NewFinding(reviewID, domain.FindingInput{
			File:       fd.NewPath,
			LineStart:  lineNo,
			LineEnd:    lineNo,
			Severity:   severity,
			Category:   category,
			Title:      fields["TITLE"],
			Body:       fields["BODY"],
			Confidence: 0.7,
		})
		finding.DiffPosition = pos
		findings = append(findings, finding)
	}
	return findings
}

func normalizeCategory(c string) string {
	switch c {
	case domain.CategoryDefect, domain.CategorySecurity, domain.CategoryStyle,
		domain.CategoryPerformance, domain.CategoryDocs, domain.CategoryBreakingChange:
		return c
	default:
		return domain.CategoryDefect
	}
}

// splitModelFields parses a line of the form
// "LINE:12 SEVERITY:high CATEGORY:security TITLE:foo bar BODY:explanation text"
// into a map; TITLE and BODY may contain spaces and are cut off by the
// next recognized "KEY:" token.
func splitModelFields(line string) map[string]string {
	keys := []string{"LINE", "SEVERITY", "CATEGORY", "TITLE", "BODY"}
	positions := make(map[string]int)
	for _, k := range keys {
		idx := strings.Index(line, k+":")
		if idx >= 0 {
			positions[k] = idx
		}
	}

	type span struct {
		key   string
		start int
	}
	var spans []span
	for k, pos := range positions {
		spans = append(spans, span{k, pos})
	}
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			if spans[j].start < spans[i].start {
				spans[i], spans[j] = spans[j], spans[i]
			}
		}
	}

	result := make(map[string]string, len(spans))
	for i, s := range spans {
		valueStart := s.start + len(s.key) + 1
		valueEnd := len(line)
		if i+1 < len(spans) {
			valueEnd = spans[i+1].start
		}
		if valueStart > valueEnd {
			continue
		}
		result[s.key] = strings.TrimSpace(line[valueStart:valueEnd])
	}
	return result
}
