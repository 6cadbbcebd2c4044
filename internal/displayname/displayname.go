// Package displayname derives human-readable labels from identifiers.
package displayname

import (
	"regexp"
	"strings"
	"unicode"
)

// FromIdentifier converts snake_case, kebab-case and camelCase identifiers
// to Title Case words: "userId" -> "User Id", "first_name" -> "First Name".
func FromIdentifier(name string) string {
	var sb strings.Builder
	var prev rune
	for i, r := range name {
		switch {
		case r == '_' || r == '-':
			sb.WriteByte(' ')
		case i > 0 && unicode.IsUpper(r) && unicode.IsLower(prev):
			sb.WriteByte(' ')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
		prev = r
	}
	return title(strings.Join(strings.Fields(sb.String()), " "))
}

// Title upper-cases the first letter of every letter run: "user-profiles" -> "User-Profiles".
func Title(s string) string {
	return title(s)
}

// title upper-cases the first letter of every letter run and lower-cases the rest.
func title(s string) string {
	out := make([]rune, 0, len(s))
	inWord := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if inWord {
				out = append(out, unicode.ToLower(r))
			} else {
				out = append(out, unicode.ToUpper(r))
			}
			inWord = true
			continue
		}
		out = append(out, r)
		inWord = false
	}
	return string(out)
}

// Batch maps every name to its display name.
func Batch(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = FromIdentifier(n)
	}
	return out
}

var (
	snakeWordPattern  = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	snakeUpperPattern = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// Snake converts CamelCase to snake_case: "CustomerOrder" -> "customer_order".
func Snake(name string) string {
	s := snakeWordPattern.ReplaceAllString(name, "${1}_${2}")
	return strings.ToLower(snakeUpperPattern.ReplaceAllString(s, "${1}_${2}"))
}

// Pluralize applies the simple English plural rules used for resource names.
// Names already ending in "s" are returned unchanged.
func Pluralize(name string) string {
	switch {
	case name == "" || strings.HasSuffix(name, "s"):
		return name
	case strings.HasSuffix(name, "y"):
		return name[:len(name)-1] + "ies"
	case strings.HasSuffix(name, "ch"), strings.HasSuffix(name, "sh"),
		strings.HasSuffix(name, "x"), strings.HasSuffix(name, "z"):
		return name + "es"
	}
	return name + "s"
}
