package stringutil

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	htmlTagRE          = regexp.MustCompile(`<[^>]*>`)
	mdEmphasisPrefixRE = regexp.MustCompile("^[*`~_]+")
	mdEmphasisSuffixRE = regexp.MustCompile("[*`~_]+$")
)

// EnvOr returns value (trimmed) if non-empty, otherwise returns existing.
func EnvOr(existing, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return existing
	}
	return value
}

// FirstNonEmpty returns the first non-empty string after trimming.
func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// StripMarkup removes HTML tags and surrounding markdown emphasis so a message
// can be shown as a one-line preview.
func StripMarkup(text string) string {
	text = htmlTagRE.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = mdEmphasisPrefixRE.ReplaceAllString(text, "")
	text = mdEmphasisSuffixRE.ReplaceAllString(text, "")
	return text
}

// CollapseWhitespace replaces every run of whitespace (including newlines)
// with a single space and trims the result.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
}

// Truncate shortens text to at most limit runes, appending an ellipsis when
// something was cut off.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit == 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}
