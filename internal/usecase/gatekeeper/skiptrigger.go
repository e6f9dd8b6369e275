package gatekeeper

import (
	"regexp"
	"strings"
)

// ReasonSkipTrigger fires when the author opted out of review inline.
const ReasonSkipTrigger = "skip_trigger"

// skipTriggerPattern matches [skip code-review] or [skip-code-review],
// case-insensitive, anywhere in a commit message, PR title, or body.
var skipTriggerPattern = regexp.MustCompile(`(?i)\[skip[ -]code-review\]`)

// containsSkipTrigger reports whether text carries the opt-out marker.
func containsSkipTrigger(text string) bool {
	return skipTriggerPattern.MatchString(text)
}

// hasSkipTrigger checks commit messages, then PR title, then PR
// description, returning on the first match found.
func hasSkipTrigger(input GateInput) bool {
	for _, msg := range input.CommitMessages {
		if containsSkipTrigger(msg) {
			return true
		}
	}
	if containsSkipTrigger(strings.TrimSpace(input.PRTitle)) {
		return true
	}
	return containsSkipTrigger(input.PRDescription)
}
