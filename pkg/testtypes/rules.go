package testtypes

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// urlPattern accepts http(s) URLs with a dotted host, localhost or an IPv4 address,
// an optional port and an optional path/query.
var urlPattern = regexp.MustCompile(`(?i)^https?://(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,6}\.?|localhost|\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})(?::\d+)?(?:/?|[/?]\S+)$`)

// selectorKeyPattern restricts selector hint element names
var selectorKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// forbiddenSelectorChars may not appear in a selector hint value
const forbiddenSelectorChars = `<>{}|\`

// IsValidURL reports whether s is an http(s) URL accepted for screenshots and navigation
func IsValidURL(s string) bool {
	return urlPattern.MatchString(s)
}

// HasForbiddenSelectorChars reports whether s contains any of < > { } | \
func HasForbiddenSelectorChars(s string) bool {
	return strings.ContainsAny(s, forbiddenSelectorChars)
}

func hasAlnum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func minWords(n int, msg string) Rule {
	return func(v any) error {
		if s, ok := v.(string); ok && wordCount(s) < n {
			return errors.New(msg)
		}
		return nil
	}
}

func alphanumeric(msg string) Rule {
	return func(v any) error {
		if s, ok := v.(string); ok && !hasAlnum(s) {
			return errors.New(msg)
		}
		return nil
	}
}

// matches fails with format applied to the offending value
func matches(re *regexp.Regexp, format string) Rule {
	return func(v any) error {
		if s, ok := v.(string); ok && !re.MatchString(s) {
			return fmt.Errorf(format, s)
		}
		return nil
	}
}

func noForbiddenChars(msg string) Rule {
	return func(v any) error {
		if s, ok := v.(string); ok && HasForbiddenSelectorChars(s) {
			return errors.New(msg)
		}
		return nil
	}
}

// unique rejects lists with repeated entries, optionally ignoring case
func unique(foldCase bool, msg string) Rule {
	return func(v any) error {
		items, ok := v.([]string)
		if !ok {
			return nil
		}
		seen := make(map[string]bool, len(items))
		for _, item := range items {
			key := item
			if foldCase {
				key = strings.ToLower(item)
			}
			if seen[key] {
				return errors.New(msg)
			}
			seen[key] = true
		}
		return nil
	}
}
