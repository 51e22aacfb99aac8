package normalize

import (
	"regexp"
	"strings"
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9]+`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Text lowercases s, turns every run of non-alphanumerics into one space and
// trims. Only ASCII letters and digits survive.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = nonAlnum.ReplaceAllString(strings.ToLower(s), " ")
	return strings.Join(strings.Fields(s), " ")
}

// Tokens returns the set of words of Text(s).
func Tokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(Text(s)) {
		set[tok] = struct{}{}
	}
	return set
}

// CollapseSpaces replaces each whitespace run (including NBSP) with a single
// space and trims the result.
func CollapseSpaces(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// NormalizeURL trims urlStr, adds https:// when it has no http(s) scheme and
// drops the fragment.
func NormalizeURL(urlStr string) string {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return ""
	}
	lower := strings.ToLower(urlStr)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		urlStr = "https://" + urlStr
	}
	if idx := strings.Index(urlStr, "#"); idx > -1 {
		urlStr = urlStr[:idx]
	}
	return urlStr
}

// Names trims every name and drops the blank ones, keeping order and
// duplicates.
func Names(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// SplitNames splits a comma separated list into Names.
func SplitNames(list string) []string {
	return Names(strings.Split(list, ","))
}
