package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"branch-address-scraper/internal/normalize"
)

// Elements whose text never reaches the reader.
var hiddenTextParents = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// visibleText joins the trimmed, non-empty text nodes of every node in sel
// with single spaces.
func visibleText(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, " ")
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	case html.ElementNode:
		if hiddenTextParents[n.Data] {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// blockText renders sel's text keeping <br> as a break and the raw spacing of
// text nodes, then collapses all whitespace to single spaces.
func blockText(sel *goquery.Selection) string {
	var b strings.Builder
	found := false
	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if writeBlock(c, &b) {
				found = true
			}
		}
	}
	if !found {
		return visibleText(sel)
	}
	return normalize.CollapseSpaces(b.String())
}

func writeBlock(n *html.Node, b *strings.Builder) bool {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return true
	case html.ElementNode:
		if n.Data == "br" {
			b.WriteString("\n")
			return true
		}
		if hiddenTextParents[n.Data] {
			return false
		}
	}
	found := false
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if writeBlock(c, b) {
			found = true
		}
	}
	return found
}
