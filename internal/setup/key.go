package setup

import (
	"regexp"
	"strings"
)

// KeyPrefix namespaces setup records in the backing store.
const KeyPrefix = "elpc_"

var (
	angleBrackets = regexp.MustCompile(`[<>]`)
	whitespace    = regexp.MustCompile(`\s+`)
	wordBreak     = regexp.MustCompile(`[-_\s]+([a-z])`)
)

// Sanitize strips angle brackets and collapses runs of whitespace.
func Sanitize(name string) string {
	name = angleBrackets.ReplaceAllString(strings.TrimSpace(name), "")
	return strings.TrimSpace(whitespace.ReplaceAllString(name, " "))
}

// CamelCase lower-cases s and joins words separated by spaces, dashes or
// underscores: "Blue Mug" becomes "blueMug".
func CamelCase(s string) string {
	return wordBreak.ReplaceAllStringFunc(strings.ToLower(s), func(m string) string {
		return strings.ToUpper(m[len(m)-1:])
	})
}

// KeyFor derives the storage key of a setup name. Names that differ only by
// case, brackets or spacing share a key. It returns "" for an empty name.
func KeyFor(name string) string {
	clean := Sanitize(name)
	if clean == "" {
		return ""
	}
	return KeyPrefix + CamelCase(clean)
}
