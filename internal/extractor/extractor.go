// Package extractor picks short summary sentences out of loosely structured markdown.
package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Fallback is returned by SmartExtract when no paragraph qualifies.
const Fallback = "See content below."

const minSentenceLen = 15

var (
	blockquoteRe = regexp.MustCompile(`(?m)^>\s*`)
	boldRe       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\([^\)]+\)`)
	codeRe       = regexp.MustCompile("`([^`]+)`")
	labelRe      = regexp.MustCompile(`(?i)^(Summary|Abstract|Overview)[\s:-]*`)
	paragraphRe  = regexp.MustCompile(`\n\s*\n`)
	letterRe     = regexp.MustCompile(`[a-zA-Z\x{4e00}-\x{9fff}]`)
)

// CleanText strips markdown noise from a single paragraph.
func CleanText(text string) string {
	text = blockquoteRe.ReplaceAllString(text, "")
	text = boldRe.ReplaceAllString(text, "$1")
	text = linkRe.ReplaceAllString(text, "$1")
	text = codeRe.ReplaceAllString(text, "$1")
	text = labelRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// IsValidSentence rejects headings, fences, images, code-like blobs and fragments.
func IsValidSentence(text string) bool {
	text = strings.TrimSpace(text)
	switch {
	case utf8.RuneCountInString(text) < minSentenceLen:
		return false
	case strings.HasPrefix(text, "```"),
		strings.HasPrefix(text, "#"),
		strings.HasPrefix(text, "!["):
		return false
	case strings.Count(text, ";") > 3, strings.Count(text, "{") > 2:
		return false
	}
	return letterRe.MatchString(text)
}

// SmartExtract returns the first valid cleaned paragraph across contents, in priority
// order, skipping one equal to exclude. Newlines inside the paragraph become spaces.
func SmartExtract(contents []string, exclude string) string {
	for _, content := range contents {
		if content == "" {
			continue
		}
		for _, p := range paragraphRe.Split(content, -1) {
			cleaned := CleanText(p)
			if !IsValidSentence(cleaned) {
				continue
			}
			final := strings.TrimSpace(strings.ReplaceAll(cleaned, "\n", " "))
			if exclude != "" && final == exclude {
				continue
			}
			return final
		}
	}
	return Fallback
}
