package scraper

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"branch-address-scraper/internal/normalize"
)

const (
	// Longer texts are body copy, not headings.
	maxHeadingChars = 200
	// Share of the branch name's tokens a heading must contain.
	fuzzyThreshold = 0.85
)

// Tags that commonly carry a branch name.
var headingTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true,
	"strong": true, "span": true, "a": true, "div": true, "p": true,
}

// Class fragments of elements styled as headings on sites without h* tags.
var headingClassHints = []string{"heading", "hdr"}

// LocateBranch finds the element naming branchName under root. The first
// element whose normalized text equals the name wins; otherwise the fuzzy
// match with the shortest text is returned. The selection is empty when
// nothing matches.
func LocateBranch(root *goquery.Selection, branchName string) *goquery.Selection {
	target := normalize.Text(branchName)
	if target == "" {
		return root.Slice(0, 0)
	}

	var exact *goquery.Selection
	var best *goquery.Selection
	bestLen := -1

	root.Find("*").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !isHeadingCandidate(sel) {
			return true
		}
		text := visibleText(sel)
		n := utf8.RuneCountInString(text)
		if text == "" || n > maxHeadingChars {
			return true
		}
		if normalize.Text(text) == target {
			exact = sel
			return false
		}
		if FuzzyMatch(branchName, text) && (best == nil || n < bestLen) {
			best = sel
			bestLen = n
		}
		return true
	})

	if exact != nil {
		return exact
	}
	if best != nil {
		return best
	}
	return root.Slice(0, 0)
}

// FuzzyMatch reports whether candidate contains the words of target: all of
// them, or at least fuzzyThreshold of them.
func FuzzyMatch(target, candidate string) bool {
	targetTok := normalize.Tokens(target)
	candTok := normalize.Tokens(candidate)
	if len(targetTok) == 0 {
		return len(candTok) > 0
	}

	shared := 0
	for tok := range targetTok {
		if _, ok := candTok[tok]; ok {
			shared++
		}
	}
	if shared == len(targetTok) {
		return true
	}
	return float64(shared)/float64(len(targetTok)) >= fuzzyThreshold
}

func isHeadingCandidate(sel *goquery.Selection) bool {
	if headingTags[goquery.NodeName(sel)] {
		return true
	}
	class := strings.ToLower(sel.AttrOr("class", ""))
	for _, hint := range headingClassHints {
		if strings.Contains(class, hint) {
			return true
		}
	}
	return false
}
