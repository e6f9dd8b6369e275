package conversation

import (
	"testing"

	"github.com/bkyoung/prreview/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		body string
		want domain.Intent
	}{
		{"fix request", "Can you fix this for me?", domain.IntentFix},
		{"apply suggestion", "please apply the fix", domain.IntentFix},
		{"explain request", "why is this a problem?", domain.IntentExplain},
		{"clarify request", "could you elaborate on the risk here", domain.IntentExplain},
		{"wontfix", "wontfix, this is intentional", domain.IntentDismiss},
		{"false positive", "this is a false positive", domain.IntentDismiss},
		{"dispute prefix not a word boundary false match", "the fixture for this test is fine", domain.IntentConverse},
		{"plain chat", "interesting, let me think about it", domain.IntentConverse},
		{"dismiss wins over fix", "won't fix, don't bother applying anything", domain.IntentDismiss},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.body))
		})
	}
}

func TestClassify_WordBoundary(t *testing.T) {
	assert.Equal(t, domain.IntentConverse, Classify("a fixture library handles this"))
	assert.Equal(t, domain.IntentFix, Classify("fix it"))
}
