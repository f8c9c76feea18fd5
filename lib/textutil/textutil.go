// Package textutil holds the name-comparison helpers used when
// matching committee and panel names scraped from pages against
// configured values.
package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases a committee or panel name and strips all
// whitespace, so cosmetic differences between a configured name and
// the page's rendering don't break matching.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// EqualNames reports whether two names are the same once normalized.
func EqualNames(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// MatchName reports whether the normalized name contains any of the
// matchers (already-normalized fragments).
func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}
