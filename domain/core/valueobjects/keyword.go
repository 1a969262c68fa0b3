package valueobjects

import (
	"strings"
	"unicode/utf8"
)

// MaxKeywordLength bounds a seed keyword in runes after normalization.
const MaxKeywordLength = 100

// NormalizeKeyword lowercases a keyword, trims surrounding whitespace and
// strips leading '#' and '@' markers. Every lookup in the exploration graph
// (visited set, node ids, history matching) goes through this function.
func NormalizeKeyword(keyword string) string {
	k := strings.TrimSpace(strings.ToLower(keyword))
	k = strings.TrimLeft(k, "#@")
	return strings.TrimSpace(k)
}

// ValidateSeedKeyword reports why a seed keyword cannot start an exploration.
// An empty string means the keyword is acceptable.
func ValidateSeedKeyword(keyword string) string {
	normalized := NormalizeKeyword(keyword)
	switch {
	case normalized == "":
		return "seed keyword is required"
	case utf8.RuneCountInString(normalized) > MaxKeywordLength:
		return "seed keyword is too long"
	case strings.ContainsAny(normalized, "\n\r\t"):
		return "seed keyword must be a single line"
	}
	return ""
}
