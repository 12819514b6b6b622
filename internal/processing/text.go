package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"regexp"
	"strings"
)

var (
	urlRegex   = regexp.MustCompile(`https?://[^\s]+`)
	whitespace = regexp.MustCompile(`\s+`)
)

// RemoveURLs strips all HTTP(S) URLs from the input text.
func RemoveURLs(input string) string {
	return urlRegex.ReplaceAllString(input, " ")
}

// CleanText unescapes HTML entities, removes URLs, and squeezes whitespace.
// Video descriptions are mostly link farms and hashtag blocks; cleaning them
// before they reach the transformation prompt keeps the payload small and
// stops the model from echoing promotional URLs into summaries.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(input)
	decoded = RemoveURLs(decoded)
	decoded = whitespace.ReplaceAllString(decoded, " ")
	return strings.TrimSpace(decoded)
}

// Truncate cuts text to at most limit runes, appending an ellipsis when
// anything was dropped. limit <= 0 means no truncation.
func Truncate(input string, limit int) string {
	if limit <= 0 {
		return input
	}
	runes := []rune(input)
	if len(runes) <= limit {
		return input
	}
	return string(runes[:limit]) + "..."
}

// BuildDocumentID derives the stable knowledge-base document ID from a
// source URL. Hashing the canonicalized URL makes republication of the same
// item land on the same document.
func BuildDocumentID(rawURL string) string {
	canonical := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	s := sha1.Sum([]byte(canonical))
	return hex.EncodeToString(s[:])
}
