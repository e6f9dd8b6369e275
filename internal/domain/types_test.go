package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFinding_DeterministicID(t *testing.T) {
	input := FindingInput{
		File:      "main.go",
		LineStart: 10,
		LineEnd:   12,
		Severity:  SeverityHigh,
		Category:  CategoryDefect,
		Title:     "nil pointer dereference",
	}

	a := NewFinding("review-1", input)
	b := NewFinding("review-1", input)
	assert.Equal(t, a.ID, b.ID, "identical input must produce identical IDs")

	c := NewFinding("review-2", input)
	assert.NotEqual(t, a.ID, c.ID, "different review IDs must not collide")
}

func TestFinding_InDiff(t *testing.T) {
	f := Finding{}
	assert.False(t, f.InDiff())

	pos := 42
	f.DiffPosition = &pos
	assert.True(t, f.InDiff())
}

func TestSeverityRank_Ordering(t *testing.T) {
	assert.Less(t, SeverityRank(SeverityCritical), SeverityRank(SeverityHigh))
	assert.Less(t, SeverityRank(SeverityHigh), SeverityRank(SeverityMedium))
	assert.Less(t, SeverityRank(SeverityMedium), SeverityRank(SeverityLow))
	assert.Less(t, SeverityRank(SeverityLow), SeverityRank(SeverityInfo))
	assert.Less(t, SeverityRank(SeverityInfo), SeverityRank("unknown"))
}

func TestReview_Terminal(t *testing.T) {
	assert.False(t, Review{Status: ReviewStatusProcessing}.Terminal())
	assert.True(t, Review{Status: ReviewStatusCompleted}.Terminal())
	assert.True(t, Review{Status: ReviewStatusFailed}.Terminal())
}
