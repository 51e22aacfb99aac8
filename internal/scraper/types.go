package scraper

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a parsed document shared read-only by every branch lookup of one
// scrape.
type Page struct {
	doc *goquery.Document
}

// NewPage parses markup from r.
func NewPage(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Page{doc: doc}, nil
}

// NewPageFromString parses markup held in a string.
func NewPageFromString(html string) (*Page, error) {
	return NewPage(strings.NewReader(html))
}

// Root is the selection every search starts from.
func (p *Page) Root() *goquery.Selection {
	return p.doc.Selection
}

// MatchResult is the outcome of one branch lookup. Empty fields mean "not
// found"; MatchedBranchName is set as soon as the heading was located.
type MatchResult struct {
	MatchedBranchName string `json:"matched_branch_name"`
	AddressFull       string `json:"address_full"`
	Street            string `json:"street"`
	City              string `json:"city"`
	State             string `json:"state"`
	Zip               string `json:"zip"`
}

// Found reports whether an address was associated with the branch.
func (r MatchResult) Found() bool {
	return r.AddressFull != ""
}
