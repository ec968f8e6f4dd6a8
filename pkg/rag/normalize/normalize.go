// Package normalize turns raw extracted document text into a single line
// of space separated words, with page footers and hyphenated line wraps
// removed.
package normalize

import (
	"regexp"
	"strings"
)

var (
	newlineRuns = regexp.MustCompile(`\n+`)
	hyphenWrap  = regexp.MustCompile(`-\n+`)
	pageFooter  = regexp.MustCompile(`(?i)Página \d+ de \d+`)
)

// Text cleans raw text. The result never contains line breaks, runs of
// whitespace or "Página N de M" footers, and Text(Text(s)) == Text(s).
func Text(raw string) string {
	if raw == "" {
		return ""
	}

	text := strings.ReplaceAll(raw, "\r", " ")
	text = newlineRuns.ReplaceAllString(text, "\n")
	// Heal words split across lines before line breaks turn into spaces.
	text = hyphenWrap.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\n", " ")
	text = collapse(text)

	// Removing one footer can join its neighbours into a new one.
	for pageFooter.MatchString(text) {
		text = collapse(pageFooter.ReplaceAllString(text, " "))
	}

	return text
}

// Words splits text on whitespace.
func Words(text string) []string {
	return strings.Fields(text)
}

// collapse squeezes whitespace runs into one space and trims both ends.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
