// Package profanity implements the blocklist check applied to wish messages.
//
// Matching is exact word-boundary, case-insensitive: a blocked word inside a
// longer compound word does not match. The same list is applied server-side
// on create and client-side as a defense-in-depth filter, so both sides must
// agree on boundary semantics.
package profanity

import (
	"regexp"
	"strings"
)

// DefaultWords is the baseline blocklist. Deployments can extend it via
// configuration; the matcher treats entries as literal words.
var DefaultWords = []string{"fuck", "shit", "bitch"}

// Filter is a compiled blocklist matcher. The zero value matches nothing;
// use New to build one. A Filter is safe for concurrent use.
type Filter struct {
	res []*regexp.Regexp
}

// New compiles a Filter from the given words. Empty entries are skipped and
// regex metacharacters in entries are escaped, so arbitrary configured
// strings are safe.
func New(words []string) *Filter {
	f := &Filter{}
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		f.res = append(f.res, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return f
}

// Default returns a Filter over DefaultWords.
func Default() *Filter {
	return New(DefaultWords)
}

// Contains reports whether s contains any blocked word.
func (f *Filter) Contains(s string) bool {
	for _, re := range f.res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Censor replaces each blocked word in s with bullet characters. Used by
// clients that prefer masking over rejecting cached content.
func (f *Filter) Censor(s string) string {
	for _, re := range f.res {
		s = re.ReplaceAllString(s, "•••")
	}
	return s
}
