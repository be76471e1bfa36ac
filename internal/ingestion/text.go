package ingestion

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TruncationMarker is appended to text cut by Truncate so the model sees that content is missing.
const TruncationMarker = "\n\n[... TRUNCATED ...]"

const maxIndent = 8

var (
	multiSpace   = regexp.MustCompile(`\s+`)
	blankLines3  = regexp.MustCompile(`\n\n\n+`)
	clauseNumber = regexp.MustCompile(`^(\d+(\.\d+)*\.?|[a-z]\))\s`)
)

// CleanText normalizes extracted document text while keeping clause structure:
// line endings become LF, runs of spaces collapse, list and clause markers keep their
// indentation, and at most one blank line separates paragraphs.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	// pdftotext separates pages with form feeds
	content = strings.ReplaceAll(content, "\f", "\n\n")

	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, cleanLine(line))
	}

	result := removeExcessiveBlankLines(strings.Join(cleaned, "\n"))
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return ""
	}

	indent := len(line) - len(trimmed)
	body := multiSpace.ReplaceAllString(trimmed, " ")

	// Headings start at column zero.
	if strings.HasPrefix(body, "#") {
		return body
	}
	// Layout mode pads justified prose; only nested list items and clauses keep their indent.
	if indent > 0 && (isListItem(body) || isClauseNumber(body)) {
		return strings.Repeat(" ", min(indent, maxIndent)) + body
	}
	return body
}

func isListItem(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") ||
		strings.HasPrefix(line, "• ") || strings.HasPrefix(line, "· ")
}

// isClauseNumber matches "1.", "2.3", "a)" style clause markers.
func isClauseNumber(line string) bool {
	return clauseNumber.MatchString(line)
}

func removeExcessiveBlankLines(content string) string {
	return blankLines3.ReplaceAllString(content, "\n\n")
}

// Truncate keeps the first maxChars characters of text and appends TruncationMarker.
// Clauses past the budget are never seen by extraction. maxChars <= 0 disables truncation.
func Truncate(text string, maxChars int) (string, bool) {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text, false
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i] + TruncationMarker, true
		}
		n++
	}
	return text, false
}
