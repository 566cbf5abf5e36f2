package mapper

import (
	"regexp"
	"strings"
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9]+`)
	nonKeyword = regexp.MustCompile(`[^a-z0-9\s]`)
)

var stopwords = map[string]struct{}{
	"and": {}, "the": {}, "for": {}, "using": {}, "with": {}, "in": {},
}

// Normalize lowercases s and joins its alphanumeric runs with hyphens:
// "Applied Mathematics - 1" becomes "applied-mathematics-1".
func Normalize(s string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// Keywords splits s into lowercase words longer than two characters,
// without stopwords.
func Keywords(s string) []string {
	s = nonKeyword.ReplaceAllString(strings.ToLower(s), " ")
	var out []string
	for _, w := range strings.Fields(s) {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Score is the share of words that overlap any keyword, where overlap is
// substring containment in either direction, over the longer of the two lists.
func Score(words, keywords []string) float64 {
	denom := max(len(words), len(keywords))
	if denom == 0 {
		return 0
	}
	matches := 0
	for _, w := range words {
		for _, k := range keywords {
			if strings.Contains(w, k) || strings.Contains(k, w) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(denom)
}

// Suggest builds an abbreviation from the initials of the first three keywords.
func Suggest(name string) string {
	words := Keywords(name)
	if len(words) > 3 {
		words = words[:3]
	}
	var b strings.Builder
	for _, w := range words {
		b.WriteString(strings.ToUpper(w[:1]))
	}
	return b.String()
}
