package address

import (
	"regexp"
	"strings"
)

var (
	// number, street keyword, city, state, ZIP. Word runs use \p{L} so
	// accented names ("San José") match too.
	fullAddressRe = regexp.MustCompile(`(?i)\d{1,6}[\p{L}\p{N}_\s.\-]*(?:street|st|avenue|ave|blvd|boulevard|road|rd|drive|dr|lane|ln|way|court|ct|place|pl|suite|ste)[\p{L}\p{N}_\s.\-]*` +
		`[\s,]+[\p{L}\p{N}_\s.\-]+[\s,]+\b[A-Za-z]{2}\b[\s,]+\d{5}(?:-\d{4})?`)
	// free text, state, ZIP
	looseAddressRe = regexp.MustCompile(`(?i)[\p{L}\p{N}_\s.\-]{3,80},?\s*[A-Za-z]{2}\s*,?\s*\d{5}(?:-\d{4})?`)

	addressLabelRe = regexp.MustCompile(`(?i)\bAddress:\s*`)
	punctRunRe     = regexp.MustCompile(`[.,;]+(\s*[.,;])+`)
	parseRe        = regexp.MustCompile(`(?is)^(.*),\s*([A-Z]{2})\s*(\d{5}(?:-\d{4})?)\s*$`)
)

// Parsed is a US address split into its parts. When the text does not end in
// "<state> <zip>" everything lands in Street.
type Parsed struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Extract returns the first address-looking span of text, trying the strict
// pattern before the loose one. ok is false when neither matches.
func Extract(text string) (string, bool) {
	if m := fullAddressRe.FindString(text); m != "" {
		return strings.TrimSpace(m), true
	}
	if m := looseAddressRe.FindString(text); m != "" {
		return strings.TrimSpace(m), true
	}
	return "", false
}

// Clean drops "Address:" labels and folds punctuation runs such as ". ," into
// a single comma.
func Clean(raw string) string {
	s := addressLabelRe.ReplaceAllString(raw, "")
	s = punctRunRe.ReplaceAllString(s, ",")
	return strings.TrimSpace(s)
}

// Parse cleans full and splits it into street, city, state and ZIP. The city
// is the last comma separated segment before the state.
func Parse(full string) Parsed {
	cleaned := Clean(full)

	m := parseRe.FindStringSubmatch(cleaned)
	if m == nil {
		return Parsed{Street: cleaned}
	}

	p := Parsed{
		State: strings.ToUpper(strings.TrimSpace(m[2])),
		Zip:   strings.TrimSpace(m[3]),
	}

	block := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(m[1]), ","))
	if !strings.Contains(block, ",") {
		p.Street = block
		return p
	}

	parts := strings.Split(block, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	p.City = parts[len(parts)-1]
	p.Street = strings.Join(parts[:len(parts)-1], ", ")
	return p
}
