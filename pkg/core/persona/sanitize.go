package persona

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// sanitizeText collapses internal whitespace runs from an LLM-generated
// field. When preserveParagraphs is false every run (including newlines)
// collapses to a single space. When true, each paragraph (split on "\n") is
// collapsed internally but paragraph breaks are preserved as "\n\n" —
// grounded on persona_generator_langchain.py's `_sanitize_text`, which
// exists to stop a raw double-newline from leaking into single-line UI
// fields.
func sanitizeText(text string, preserveParagraphs bool) string {
	if text == "" {
		return text
	}
	if !preserveParagraphs {
		return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	}

	lines := strings.Split(text, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(whitespaceRun.ReplaceAllString(line, " "))
		if trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
