package wizard

import (
	"regexp"
	"strings"
)

// Validation here is deliberately syntactic; the backend is the
// authority and re-checks everything on save.

var (
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	// UPI virtual payment addresses look like name@provider.
	upiPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*@[a-zA-Z]{2,}$`)
)

// ValidPhone accepts exactly ten digits, the national mobile format.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(strings.TrimSpace(s))
}

// ValidUPI accepts a UPI virtual payment address.
func ValidUPI(s string) bool {
	return upiPattern.MatchString(strings.TrimSpace(s))
}

// NormalizeTags trims, lowercases and de-duplicates cuisine tags,
// dropping empties.
func NormalizeTags(tags []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
