package orchestrate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/bkyoung/prreview/internal/adapter/forge"
	"github.com/bkyoung/prreview/internal/domain"
)

// PostResult summarizes what made it to the forge.
type PostResult struct {
	Posted  []domain.Finding
	Dropped []domain.Finding
}

// postFindings constructs inline-comment descriptors from the final
// findings, drops any whose start and end positions don't fall in the
// same hunk, and submits the batch. On a 422 batch rejection it falls
// back to submitting each finding individually, dropping the offenders
// one at a time so the rest of the batch still lands — the teacher's
// WaitGroup+channel fan-out pattern for individual re-posts after a
// batch rejection, kept here because no semaphore limit is specified
// for this path (unlike S2/S4's model calls).
func postFindings(ctx context.Context, rc *ReviewContext, client ForgeClient, logger *slog.Logger) (PostResult, error) {
	var result PostResult
	var positioned []forge.PositionedFinding

	for _, f := range rc.Findings {
		if !validSingleHunkPosition(rc, f) {
			result.Dropped = append(result.Dropped, f)
			continue
		}
		result.Posted = append(result.Posted, f)
		positioned = append(positioned, forge.PositionedFinding{Finding: f, DiffPosition: f.DiffPosition})
	}

	if len(positioned) == 0 {
		return result, nil
	}

	event := forge.DetermineReviewEvent(positioned)
	input := forge.CreateReviewInput{
		Owner:      rc.Target.Owner,
		Repo:       rc.Target.Repo,
		PullNumber: rc.Target.PRNumber,
		CommitSHA:  rc.Target.HeadSHA,
		Event:      event,
		Summary:    buildSummaryComment(rc),
		Findings:   positioned,
	}

	_, err := client.CreateReview(ctx, rc.Target.InstallationID, input)
	if err == nil {
		return result, nil
	}

	var forgeErr *forge.Error
	if !errors.As(err, &forgeErr) || forgeErr.Type != forge.ErrTypeInvalidRequest {
		// Not a per-item validation failure: per §7's error taxonomy,
		// "failure to post any comments" is fatal and propagates so the
		// Review is marked failed rather than silently swallowed.
		result.Posted = nil
		return result, err
	}

	logger.Warn("posting: batch rejected (422), retrying individually", "count", len(positioned))
	result = postIndividually(ctx, rc, client, positioned, logger)
	return result, nil
}

func postIndividually(ctx context.Context, rc *ReviewContext, client ForgeClient, positioned []forge.PositionedFinding, logger *slog.Logger) PostResult {
	var result PostResult
	var mu sync.WaitGroup
	var lock sync.Mutex

	for _, pf := range positioned {
		pf := pf
		mu.Add(1)
		go func() {
			defer mu.Done()
			input := forge.CreateReviewInput{
				Owner:      rc.Target.Owner,
				Repo:       rc.Target.Repo,
				PullNumber: rc.Target.PRNumber,
				CommitSHA:  rc.Target.HeadSHA,
				Event:      forge.EventComment,
				Summary:    "",
				Findings:   []forge.PositionedFinding{pf},
			}
			_, err := client.CreateReview(ctx, rc.Target.InstallationID, input)
			lock.Lock()
			defer lock.Unlock()
			if err != nil {
				logger.Warn("posting: individual finding rejected", "file", pf.Finding.File, "error", err)
				result.Dropped = append(result.Dropped, pf.Finding)
				return
			}
			result.Posted = append(result.Posted, pf.Finding)
		}()
	}
	mu.Wait()
	return result
}

// validSingleHunkPosition enforces that a finding's start and end lines
// resolve to positions within the same hunk before it is ever handed to
// the forge client.
func validSingleHunkPosition(rc *ReviewContext, f domain.Finding) bool {
	if !f.InDiff() {
		return false
	}
	fd := rc.Parsed.File(f.File)
	if fd == nil {
		return false
	}
	startHunk := fd.Hunk(*f.DiffPosition)
	if startHunk == nil {
		return false
	}
	if f.LineEnd == f.LineStart || f.LineEnd == 0 {
		return true
	}
	endPos := fd.FindPosition(f.LineEnd)
	if endPos == nil {
		return false
	}
	endHunk := fd.Hunk(*endPos)
	return endHunk != nil && endHunk.HeaderText == startHunk.HeaderText
}

func buildSummaryComment(rc *ReviewContext) string {
	summary := rc.Summary
	for _, note := range rc.Diagnostics {
		summary += "\n\n_" + note + "_"
	}
	return summary
}
