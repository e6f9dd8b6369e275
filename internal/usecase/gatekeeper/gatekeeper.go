// Package gatekeeper implements the pure, deterministic admission
// filter that decides whether an inbound pull request event is
// reviewed at all, and if so on which queue lane.
package gatekeeper

import (
	"path/filepath"
	"strings"

	"github.com/bkyoung/prreview/internal/config"
)

// Lane is the queue lane an admitted event is routed to.
type Lane string

const (
	LaneSkip Lane = "skip"
	LaneFast Lane = "fast"
	LaneSlow Lane = "slow"
)

// Skip reasons, used for metrics labels and log lines.
const (
	ReasonBotAuthor     = "bot_author"
	ReasonSkipLabel     = "skip_label"
	ReasonDraftPR       = "draft_pr"
	ReasonNonReviewable = "non_reviewable_paths"
	ReasonLargePR       = "large_pr"
	ReasonAdmitted      = "admitted"
)

// GateInput is everything the gatekeeper needs, gathered from the
// webhook payload without any further network I/O.
type GateInput struct {
	AuthorLogin    string
	Labels         []string
	Draft          bool
	ChangedPaths   []string
	CommitMessages []string
	PRTitle        string
	PRDescription  string
}

// Decision is the gatekeeper's output: whether to admit the event and,
// if so, which lane it lands in.
type Decision struct {
	Admit  bool
	Reason string
	Lane   Lane
}

// Evaluate runs the rule chain in the fixed order spec'd: bot author,
// skip label, draft, non-reviewable paths, large-PR threshold. The
// first rule that fires decides the outcome.
func Evaluate(input GateInput, cfg config.GatekeeperConfig) Decision {
	if hasSkipTrigger(input) {
		return Decision{Admit: false, Reason: ReasonSkipTrigger, Lane: LaneSkip}
	}
	if isBotAuthor(input.AuthorLogin, cfg.BotLoginSuffixes) {
		return Decision{Admit: false, Reason: ReasonBotAuthor, Lane: LaneSkip}
	}
	if hasSkipLabel(input.Labels, cfg.SkipLabels) {
		return Decision{Admit: false, Reason: ReasonSkipLabel, Lane: LaneSkip}
	}
	if cfg.SkipDraftPRs && input.Draft {
		return Decision{Admit: false, Reason: ReasonDraftPR, Lane: LaneSkip}
	}
	if allPathsIgnored(input.ChangedPaths, cfg.IgnoredPathGlobs) {
		return Decision{Admit: false, Reason: ReasonNonReviewable, Lane: LaneSkip}
	}
	if cfg.LargePRFileLimit > 0 && len(input.ChangedPaths) > cfg.LargePRFileLimit {
		return Decision{Admit: true, Reason: ReasonLargePR, Lane: LaneSlow}
	}
	return Decision{Admit: true, Reason: ReasonAdmitted, Lane: LaneFast}
}

func isBotAuthor(login string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if suffix == "" {
			continue
		}
		if login == suffix || strings.HasSuffix(login, suffix) {
			return true
		}
	}
	return false
}

func hasSkipLabel(labels, skipLabels []string) bool {
	skip := make(map[string]bool, len(skipLabels))
	for _, l := range skipLabels {
		skip[l] = true
	}
	for _, l := range labels {
		if skip[l] {
			return true
		}
	}
	return false
}

func allPathsIgnored(paths, globs []string) bool {
	if len(paths) == 0 {
		return false
	}
	for _, p := range paths {
		if !matchesAny(p, globs) {
			return false
		}
	}
	return true
}

func matchesAny(path string, globs []string) bool {
	return MatchesAny(path, globs)
}

// MatchesAny reports whether path matches any of the given globs, with
// "**" supported for arbitrary directory depth. Exported so other
// components needing the same glob semantics (e.g. the orchestrator's
// security-sensitive path set) don't reimplement it.
func MatchesAny(path string, globs []string) bool {
	for _, glob := range globs {
		if matchGlob(glob, path) {
			return true
		}
	}
	return false
}

// matchGlob extends filepath.Match with "**" support, since configured
// ignore globs commonly need to match at any directory depth
// (e.g. "**/*.md", "vendor/**").
func matchGlob(pattern, path string) bool {
	if !strings.Contains(pattern, "**") {
		ok, err := filepath.Match(pattern, path)
		return err == nil && ok
	}

	parts := strings.SplitN(pattern, "**", 2)
	prefix := strings.TrimSuffix(parts[0], "/")
	suffix := strings.TrimPrefix(parts[1], "/")

	if prefix != "" && !strings.HasPrefix(path, prefix) {
		return false
	}
	if suffix == "" {
		return true
	}

	remainder := strings.TrimPrefix(path, prefix)
	remainder = strings.TrimPrefix(remainder, "/")

	segments := strings.Split(remainder, "/")
	for i := range segments {
		candidate := strings.Join(segments[i:], "/")
		ok, err := filepath.Match(suffix, candidate)
		if err == nil && ok {
			return true
		}
	}
	return false
}
