// Package address rates, extracts and parses US street addresses found in
// free text scraped from arbitrary pages.
package address

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Signal weights and limits used by Score. A block must reach MinScore to be
// accepted as an address.
const (
	MinScore = 8

	StreetNumberWeight = 6
	StreetSuffixWeight = 6
	CityStateZipWeight = 6
	LabelWeight        = 4
	NoisePenalty       = 10
	MarkupPenalty      = 10

	RejectScore   = -20
	MaxBlockChars = 500

	markupMinChars = 300
	markupMaxHits  = 2
)

var (
	streetNumberRe = regexp.MustCompile(`\b\d{1,6}\s+[\p{L}\p{N}_]+`)
	cityStateZipRe = regexp.MustCompile(`(?i),\s*[A-Z]{2}\s*\d{5}(-\d{4})?`)
	zipRe          = regexp.MustCompile(`\d{5}(?:-\d{4})?`)
)

// StreetSuffixes is the street-type vocabulary recognised as a separate word.
var StreetSuffixes = []string{
	"st", "street", "ave", "avenue", "rd", "road", "blvd", "boulevard",
	"ln", "lane", "dr", "drive", "hwy", "highway", "pkwy", "parkway",
	"ct", "court", "cir", "circle", "ter", "terrace", "way", "pl", "place",
}

// NoiseLabels mark metadata lines (opening hours, phone numbers) that sit
// next to addresses on branch cards.
var NoiseLabels = []string{"hours", "phone", "fax", "toll free"}

// Score rates how likely text is a mailing address. hasLabel reports an
// "Address" label right before the block.
func Score(text string, hasLabel bool) int {
	if text == "" || utf8.RuneCountInString(text) > MaxBlockChars {
		return RejectScore
	}

	lower := strings.ToLower(text)
	hasCSZ := cityStateZipRe.MatchString(text)

	score := 0
	if streetNumberRe.MatchString(text) {
		score += StreetNumberWeight
	}
	if hasSuffixWord(lower) {
		score += StreetSuffixWeight
	}
	if hasCSZ {
		score += CityStateZipWeight
	}
	if hasLabel {
		score += LabelWeight
	}

	// The suffix test here is a plain substring test, looser than
	// hasSuffixWord, so lines that may still be address parts escape the penalty.
	if containsAny(lower, NoiseLabels) && !hasCSZ && !containsAny(lower, StreetSuffixes) {
		score -= NoisePenalty
	}

	if utf8.RuneCountInString(text) > markupMinChars &&
		strings.Count(lower, "http")+strings.Count(lower, "<") > markupMaxHits {
		score -= MarkupPenalty
	}

	return score
}

// HasZip reports whether text carries a 5 or 9 digit ZIP code.
func HasZip(text string) bool {
	return zipRe.MatchString(text)
}

// hasSuffixWord matches a suffix surrounded by spaces or ending the text.
func hasSuffixWord(lower string) bool {
	padded := " " + lower + " "
	for _, s := range StreetSuffixes {
		if strings.Contains(padded, " "+s+" ") || strings.HasSuffix(lower, " "+s) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
