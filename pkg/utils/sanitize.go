package utils

import (
	"errors"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

const MaxMessageLength = 8000

var (
	scriptTagRegex = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	onEventRegex   = regexp.MustCompile(`(?i)\s+on\w+\s*=`)
	htmlTagRegex   = regexp.MustCompile(`<[^>]*>`)
	phoneRegex     = regexp.MustCompile(`^[0-9]{5,15}$`)
	dialCodeRegex  = regexp.MustCompile(`^\+?[0-9]{1,4}$`)
)

var ErrMessageTooLong = errors.New("message exceeds maximum length")

// EscapeSQLWildcards escapes LIKE wildcards in user input.
func EscapeSQLWildcards(input string) string {
	input = strings.ReplaceAll(input, "\\", "\\\\")
	input = strings.ReplaceAll(input, "%", "\\%")
	input = strings.ReplaceAll(input, "_", "\\_")
	return input
}

// SanitizeSearchQuery prepares a search string for partial matching with LIKE.
func SanitizeSearchQuery(input string) string {
	input = strings.TrimSpace(input)
	if len(input) > 100 {
		input = input[:100]
	}
	return "%" + strings.ToLower(EscapeSQLWildcards(input)) + "%"
}

// SanitizeMessageContent drops script tags and inline handlers then escapes
// the rest. Empty input is allowed since attachment-only messages exist.
func SanitizeMessageContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", nil
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	content = scriptTagRegex.ReplaceAllString(content, "")
	content = onEventRegex.ReplaceAllString(content, " ")
	return strings.TrimSpace(html.EscapeString(content)), nil
}

// StripHTML removes all HTML tags from a string.
func StripHTML(input string) string {
	return htmlTagRegex.ReplaceAllString(input, "")
}

func ValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}

func ValidDialCode(dialCode string) bool {
	return dialCodeRegex.MatchString(dialCode)
}

// NormalizeDialCode makes sure the dial code carries a leading plus.
func NormalizeDialCode(dialCode string) string {
	dialCode = strings.TrimSpace(dialCode)
	if dialCode == "" || strings.HasPrefix(dialCode, "+") {
		return dialCode
	}
	return "+" + dialCode
}

func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}
