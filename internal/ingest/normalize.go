// Package ingest normalizes raw page content before extraction. The pipeline
// validates whatever it receives; normalization only improves what the
// provider gets to see.
package ingest

import (
	"log/slog"
	"regexp"
	"strings"

	"code.sajari.com/docconv"
)

var (
	htmlHint       = regexp.MustCompile(`(?i)<\s*(!doctype|html|head|body|div|p|span|table|article|section)\b`)
	blankLines     = regexp.MustCompile(`\n{3,}`)
	trailingSpaces = regexp.MustCompile(`[ \t]+\n`)
)

// LooksLikeHTML reports whether the content appears to be HTML markup rather
// than plain text.
func LooksLikeHTML(content string) bool {
	return htmlHint.MatchString(content)
}

// Normalize flattens HTML content to plain text and collapses excess
// whitespace. Plain text passes through with only whitespace cleanup. On
// conversion failure the original content is returned so extraction can
// still be attempted against the raw markup.
//
// Readability filtering stays off: job pages keep salary and requirement
// blocks in short fragments that boilerplate removal tends to discard.
func Normalize(content string) string {
	if LooksLikeHTML(content) {
		text, _, err := docconv.ConvertHTML(strings.NewReader(content), false)
		if err != nil {
			slog.Warn("failed to flatten HTML content, using raw markup", "error", err)
			return collapse(content)
		}
		if strings.TrimSpace(text) == "" {
			// Readability stripped everything; the raw markup is still
			// better than an empty prompt
			return collapse(content)
		}
		return collapse(text)
	}
	return collapse(content)
}

func collapse(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = trailingSpaces.ReplaceAllString(s, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
