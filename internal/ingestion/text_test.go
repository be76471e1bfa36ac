package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText_PreserveMarkdownHeadings(t *testing.T) {
	input := "   # Title\n## Subtitle\nContent here"
	result := CleanText(input)

	assert.Contains(t, result, "# Title")
	assert.Contains(t, result, "## Subtitle")
	assert.Contains(t, result, "Content here")
}

func TestCleanText_PreserveBulletLists(t *testing.T) {
	input := "- Item 1\n- Item 2\n* Item 3"
	result := CleanText(input)

	assert.Contains(t, result, "- Item 1")
	assert.Contains(t, result, "- Item 2")
	assert.Contains(t, result, "* Item 3")
}

func TestCleanText_NormalizeWhitespace(t *testing.T) {
	input := "Line    with    multiple    spaces"
	result := CleanText(input)

	assert.Contains(t, result, "Line with multiple spaces")
	assert.NotContains(t, result, "    ") // Should not have 4 spaces
}

func TestCleanText_RemoveExcessiveBlankLines(t *testing.T) {
	input := "Line 1\n\n\n\n\nLine 2"
	result := CleanText(input)

	// Should have max 2 consecutive newlines
	assert.NotContains(t, result, "\n\n\n\n")
	// But should preserve up to 2
	assert.Contains(t, result, "\n\n")
}

func TestCleanText_NormalizeLineEndings(t *testing.T) {
	input := "Line 1\r\nLine 2\rLine 3\nLine 4"
	result := CleanText(input)

	// All should be normalized to LF
	assert.NotContains(t, result, "\r\n")
	assert.NotContains(t, result, "\r")
	assert.Contains(t, result, "\n")
}

func TestCleanText_DeterministicOutput(t *testing.T) {
	input := "Test content   with   spaces\n\n\nMultiple   blank   lines"
	result1 := CleanText(input)
	result2 := CleanText(input)

	// Same input should produce identical output
	assert.Equal(t, result1, result2)
}

func TestCleanText_EmptyInput(t *testing.T) {
	result := CleanText("")
	assert.Empty(t, result)
}

func TestCleanText_OnlyWhitespace(t *testing.T) {
	result := CleanText("   \n  \n  ")
	assert.Empty(t, result)
}

func TestCleanText_SpecialCharacters(t *testing.T) {
	input := "Test with émojis 🚀 and spéciàl chàracters"
	result := CleanText(input)

	assert.Contains(t, result, "émojis")
	assert.Contains(t, result, "🚀")
	assert.Contains(t, result, "spéciàl chàracters")
}

func TestCleanText_IndentationOnlyForClauses(t *testing.T) {
	input := "CLAUSES\n    1.2 The provider shall\n              justified   prose line\n  - nested item"
	result := CleanText(input)

	assert.Contains(t, result, "\n    1.2 The provider shall")
	assert.Contains(t, result, "\njustified prose line")
	assert.Contains(t, result, "\n  - nested item")
}

func TestCleanText_FormFeedSeparatesPages(t *testing.T) {
	result := CleanText("page one\fpage two")
	assert.Equal(t, "page one\n\npage two", result)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		max           int
		want          string
		wantTruncated bool
	}{
		{name: "under budget", text: "short", max: 10, want: "short"},
		{name: "exactly at budget", text: "12345", max: 5, want: "12345"},
		{name: "over budget", text: "1234567890", max: 4, want: "1234" + TruncationMarker, wantTruncated: true},
		{name: "multibyte counted as characters", text: "añoñoñ", max: 3, want: "año" + TruncationMarker, wantTruncated: true},
		{name: "zero disables", text: "anything", max: 0, want: "anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := Truncate(tt.text, tt.max)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantTruncated, truncated)
		})
	}
}

func TestTruncate_DefaultBudget(t *testing.T) {
	text := strings.Repeat("a", 30001)
	got, truncated := Truncate(text, 30000)
	assert.True(t, truncated)
	assert.True(t, strings.HasSuffix(got, "[... TRUNCATED ...]"))
	assert.Equal(t, 30000+len(TruncationMarker), len(got))
}
