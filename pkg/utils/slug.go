package utils

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var nonSlugChars = regexp.MustCompile("[^a-z0-9_]+")

// GenerateSlug lowercases the input and keeps letters, digits and
// underscores, with spaces turned into underscores.
func GenerateSlug(input string) string {
	slug := strings.ToLower(strings.TrimSpace(input))
	slug = strings.ReplaceAll(slug, " ", "_")
	return nonSlugChars.ReplaceAllString(slug, "")
}

// GenerateUsername derives a username from a display name or email with a
// short random suffix.
func GenerateUsername(name, email string) string {
	base := GenerateSlug(name)
	if base == "" {
		base = GenerateSlug(strings.Split(email, "@")[0])
	}
	if base == "" {
		base = "user"
	}
	return TruncateString(base, 24) + "_" + uuid.New().String()[:4]
}
