// Package conversation tracks reply threads on posted findings and
// classifies the reviewer's intent before deciding whether to escalate
// to the model.
package conversation

import (
	"strings"
	"unicode"

	"github.com/bkyoung/prreview/internal/domain"
)

// fixKeywords are phrases that indicate the reviewer wants the finding
// fixed, either by them or by the bot. Checked with word/phrase boundary
// matching so "fixture" never matches "fix".
var fixKeywords = []string{
	"fix this",
	"fix it",
	"please fix",
	"can you fix",
	"could you fix",
	"suggest a fix",
	"apply the fix",
	"apply this",
	"apply suggestion",
	"go ahead",
	"do it",
	"sounds good",
	"lgtm",
}

// explainKeywords are phrases that ask for more detail without
// committing to any action.
var explainKeywords = []string{
	"why",
	"what do you mean",
	"can you explain",
	"could you explain",
	"not sure i understand",
	"i don't understand",
	"elaborate",
	"clarify",
	"what's the risk",
	"what is the risk",
	"how would this",
	"example",
}

// dismissKeywords mirror the status-disposition phrases a reviewer uses
// to close a finding without further action: acknowledgment that it
// won't be fixed, or an outright dispute that it's wrong.
var dismissKeywords = []string{
	"won't fix",
	"wont fix",
	"will not fix",
	"wontfix",
	"not an issue",
	"not a bug",
	"not a problem",
	"false positive",
	"intentional",
	"by design",
	"as designed",
	"working as intended",
	"dismiss",
	"disregard",
	"ignore this",
	"n/a",
	"doesn't apply",
	"does not apply",
}

// Classify returns the reviewer's intent for a single reply body. Dismiss
// is checked first since it is the most specific and consequential
// classification; fix next; explain next; anything left over falls back
// to converse, which the caller should route to a bounded free-form
// model turn rather than any automated action.
func Classify(body string) domain.Intent {
	normalized := strings.ToLower(body)

	for _, keyword := range dismissKeywords {
		if containsPhrase(normalized, keyword) {
			return domain.IntentDismiss
		}
	}
	for _, keyword := range fixKeywords {
		if containsPhrase(normalized, keyword) {
			return domain.IntentFix
		}
	}
	for _, keyword := range explainKeywords {
		if containsPhrase(normalized, keyword) {
			return domain.IntentExplain
		}
	}
	return domain.IntentConverse
}

// containsPhrase checks if text contains the phrase at a word boundary.
// A word boundary is either the start/end of string or a non-alphanumeric
// character; this keeps "fix" from matching inside "fixture" while still
// matching "please fix this".
func containsPhrase(text, phrase string) bool {
	searchFrom := 0
	for {
		idx := strings.Index(text[searchFrom:], phrase)
		if idx == -1 {
			return false
		}
		idx += searchFrom

		leftOK := idx == 0 || !isWordChar(rune(text[idx-1]))
		endIdx := idx + len(phrase)
		rightOK := endIdx == len(text) || !isWordChar(rune(text[endIdx]))
		if leftOK && rightOK {
			return true
		}
		searchFrom = idx + 1
	}
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
