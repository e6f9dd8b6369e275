package diff_test

import (
	"testing"

	"github.com/bkyoung/prreview/internal/diff"
	"github.com/stretchr/testify/assert"
)

func TestLanguage(t *testing.T) {
	assert.Equal(t, "go", diff.Language("internal/diff/parser.go"))
	assert.Equal(t, "python", diff.Language("scripts/build.PY"))
	assert.Equal(t, "", diff.Language("Makefile"))
	assert.Equal(t, "", diff.Language("README"))
}
