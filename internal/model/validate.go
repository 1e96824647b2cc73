package model

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxIDLength bounds ids so they stay usable as directory names.
const MaxIDLength = 96

var (
	idPattern       = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
	categoryPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
)

// ValidateID checks that id is safe to use as a directory name.
func ValidateID(op, id string) error {
	if id == "" {
		return Invalid(op, id, "id is required")
	}
	if len(id) > MaxIDLength {
		return Invalid(op, id, "id is too long")
	}
	if !idPattern.MatchString(id) || strings.Contains(id, "..") {
		return Invalid(op, id, "id must match [a-z0-9][a-z0-9._-]*")
	}
	return nil
}

// ValidateCategory checks that c is a lower-case token.
func ValidateCategory(op, id string, c Category) error {
	if !categoryPattern.MatchString(string(c)) {
		return Invalid(op, id, "category must match [a-z][a-z0-9_-]*")
	}
	return nil
}

// ValidateStatus checks that s is a known status.
func ValidateStatus(op, id string, s Status) error {
	if !s.Valid() {
		return Invalid(op, id, "unknown status "+string(s))
	}
	return nil
}

// NormalizeTitle trims and NFC-normalizes a title.
func NormalizeTitle(title string) string {
	return norm.NFC.String(strings.TrimSpace(title))
}

// Slugify folds a title to a lower-case ASCII slug. Accents are stripped via
// NFKD decomposition; runs of other characters collapse to a single dash.
func Slugify(title string, maxLen int) string {
	decomposed := norm.NFKD.String(title)
	var b strings.Builder
	dash := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if maxLen > 0 && len(slug) > maxLen {
		slug = strings.TrimRight(slug[:maxLen], "-")
	}
	return slug
}
