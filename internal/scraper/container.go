package scraper

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// A container must hold more than this many characters beyond the heading.
const minExtraChars = 5

var containerTags = map[string]bool{
	"article": true,
	"section": true,
	"table":   true,
	"tbody":   true,
	"tr":      true,
}

// Class fragments used by page builders and CSS frameworks for card blocks.
var containerClassHints = []string{"row", "container", "wrap", "card", "elementor", "widget"}

// FindContainer walks up from branch to the nearest card-like ancestor that
// holds more than the heading itself. Without one it falls back to the
// immediate parent. The walk never enters html or body; the selection is
// empty when no eligible ancestor exists.
func FindContainer(branch *goquery.Selection) *goquery.Selection {
	if branch.Length() == 0 {
		return branch
	}

	headingLen := utf8.RuneCountInString(visibleText(branch))

	for parent := branch.Parent(); parent.Length() > 0 && !isDocumentRoot(parent); parent = parent.Parent() {
		if isContainerLike(parent) && utf8.RuneCountInString(visibleText(parent)) > headingLen+minExtraChars {
			return parent
		}
	}

	if parent := branch.Parent(); parent.Length() > 0 && !isDocumentRoot(parent) {
		return parent
	}
	return branch.Slice(0, 0)
}

// NextElementSibling skips text and comment nodes after sel.
func NextElementSibling(sel *goquery.Selection) *goquery.Selection {
	return sel.Next()
}

func isContainerLike(sel *goquery.Selection) bool {
	if containerTags[goquery.NodeName(sel)] {
		return true
	}
	class := strings.ToLower(sel.AttrOr("class", ""))
	for _, hint := range containerClassHints {
		if strings.Contains(class, hint) {
			return true
		}
	}
	return false
}

func isDocumentRoot(sel *goquery.Selection) bool {
	name := goquery.NodeName(sel)
	return name == "html" || name == "body"
}
