package scraper

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"branch-address-scraper/internal/address"
)

const (
	candidateSelector = "p, div, td, strong, a, span, li"
	minBlockChars     = 10
	minScopeChars     = 15
)

// candidate is one scored text block.
type candidate struct {
	text  string
	score int
}

// FindAddress searches scope for address text. Two sources are compared:
// the best scoring single block, and an address pattern extracted from the
// whole scope text, which catches addresses split over sibling nodes. The
// extracted text wins when it carries a ZIP code and the block does not, or
// when there is no block at all.
func FindAddress(scope *goquery.Selection) (string, bool) {
	if scope.Length() == 0 {
		return "", false
	}

	best, haveBest := bestBlock(scope)
	extracted, haveExtracted := extractFromScope(scope)

	switch {
	case haveExtracted && address.HasZip(extracted):
		if !haveBest || !address.HasZip(best.text) {
			return extracted, true
		}
	case haveExtracted && !haveBest:
		return extracted, true
	}

	if haveBest {
		return best.text, true
	}
	return "", false
}

// bestBlock scores every candidate element under scope and keeps the first
// one with the highest score at or above address.MinScore.
func bestBlock(scope *goquery.Selection) (candidate, bool) {
	var best candidate
	found := false

	scope.Find(candidateSelector).Each(func(_ int, sel *goquery.Selection) {
		text := blockText(sel)
		if utf8.RuneCountInString(text) < minBlockChars {
			return
		}

		score := address.Score(text, hasAddressLabel(sel))
		if score >= address.MinScore && (!found || score > best.score) {
			best = candidate{text: text, score: score}
			found = true
		}
	})

	return best, found
}

// extractFromScope runs the address patterns over the whole scope text.
func extractFromScope(scope *goquery.Selection) (string, bool) {
	full := visibleText(scope)
	if utf8.RuneCountInString(full) < minScopeChars {
		return "", false
	}

	extracted, ok := address.Extract(full)
	if !ok || address.Score(extracted, false) < address.MinScore {
		return "", false
	}
	return extracted, true
}

// hasAddressLabel reports an "Address:" style label as the previous sibling
// element.
func hasAddressLabel(sel *goquery.Selection) bool {
	prev := sel.Prev()
	if prev.Length() == 0 {
		return false
	}
	return strings.Contains(strings.ToLower(prev.Text()), "address")
}
