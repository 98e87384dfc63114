package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown_BasicFormatting(t *testing.T) {
	out := RenderMarkdown("**bold** and `code`")
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<code>code</code>")
}

func TestRenderMarkdown_StripsScriptTags(t *testing.T) {
	out := RenderMarkdown("hello <script>alert(1)</script> world")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "alert(1)")
}

func TestRenderMarkdown_GFMTable(t *testing.T) {
	out := RenderMarkdown("| a | b |\n|---|---|\n| 1 | 2 |")
	assert.Contains(t, out, "<table>")
}

func TestRenderMarkdown_Empty(t *testing.T) {
	assert.Equal(t, "", RenderMarkdown(""))
}

func TestScoreClass(t *testing.T) {
	assert.Equal(t, "score-good", ScoreClass(95))
	assert.Equal(t, "score-good", ScoreClass(80))
	assert.Equal(t, "score-mid", ScoreClass(79.9))
	assert.Equal(t, "score-mid", ScoreClass(50))
	assert.Equal(t, "score-bad", ScoreClass(49.9))
	assert.Equal(t, "score-bad", ScoreClass(0))
}

func TestParseTemplates(t *testing.T) {
	templates, err := parseTemplates()
	assert.NoError(t, err)
	assert.NotNil(t, templates)
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "85", formatScore(85.0))
	assert.Equal(t, "85.5", formatScore(85.5))
	assert.Equal(t, "0", formatScore(0))
}
