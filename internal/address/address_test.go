package address

import (
	"strings"
	"testing"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		hasLabel bool
		expected int
	}{
		{"empty", "", false, RejectScore},
		{"too long", strings.Repeat("a", MaxBlockChars+1), false, RejectScore},
		{"street line", "123 Main Street", false, 12},
		{"city state zip", "Springfield, IL 62701", false, 6},
		{"full address", "123 Main Street, Springfield, IL 62701", false, 12},
		{"labelled address", "456 Oak Ave, Chicago, IL 60601", true, 16},
		{"accented street name", "12 Élan Ave", false, 12},
		{"suffix at end", "Corner of Oak Ave", false, 6},
		{"phone line", "Phone: (555) 123-4567", false, -NoisePenalty},
		{"hours line", "Hours: Mon-Fri 9am-5pm", false, -NoisePenalty},
		{"toll free with zip", "Toll free 1-800-555-0100, Springfield, IL 62701", false, 6},
		{"noise with suffix substring", "Call our phone line at Eastgate", false, 0},
		{"plain words", "Welcome to our friendly branch", false, 0},
	}

	for _, tt := range tests {
		if got := Score(tt.text, tt.hasLabel); got != tt.expected {
			t.Errorf("%s: Score(%q, %v) = %d, want %d", tt.name, tt.text, tt.hasLabel, got, tt.expected)
		}
	}
}

func TestScoreMarkupPenalty(t *testing.T) {
	text := "123 Main Street, Springfield, IL 62701 " + strings.Repeat("x", 270) + " http://a http://b http://c"
	if got := Score(text, false); got != 12-MarkupPenalty {
		t.Errorf("Score = %d, want %d", got, 12-MarkupPenalty)
	}

	short := "123 Main Street, Springfield, IL 62701 http://a http://b http://c"
	if got := Score(short, false); got != 12 {
		t.Errorf("short text should not get markup penalty, Score = %d", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	text := "Address: 789 West Rd, Denver, CO 80202"
	first := Score(text, true)
	for i := 0; i < 10; i++ {
		if got := Score(text, true); got != first {
			t.Fatalf("Score changed between calls: %d != %d", got, first)
		}
	}
}

func TestHasZip(t *testing.T) {
	if !HasZip("Denver, CO 80202-1234") {
		t.Error("expected ZIP+4 to match")
	}
	if HasZip("123 Main Street") {
		t.Error("street line has no ZIP")
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{
			"Main Branch 123 Main Street Springfield, IL 62701",
			"123 Main Street Springfield, IL 62701",
			true,
		},
		{
			"Downtown Office Address: 456 Oak Ave, Chicago, IL 60601",
			"456 Oak Ave, Chicago, IL 60601",
			true,
		},
		{
			"Visit us in Springfield, IL 62701 today",
			"Visit us in Springfield, IL 62701",
			true,
		},
		{
			"San José Branch 450 Alameda Way, San José, CA 95126",
			"450 Alameda Way, San José, CA 95126",
			true,
		},
		{"Open Monday to Friday", "", false},
	}

	for _, tt := range tests {
		got, ok := Extract(tt.input)
		if ok != tt.ok || got != tt.expected {
			t.Errorf("Extract(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.expected, tt.ok)
		}
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Address: 123 Main St", "123 Main St"},
		{"ADDRESS:123 Main St", "123 Main St"},
		{"123 Main St.,, Springfield; IL 62701", "123 Main St, Springfield; IL 62701"},
		{"100 Elm Rd. , Austin, TX 78701", "100 Elm Rd, Austin, TX 78701"},
		{"  plain  ", "plain"},
	}

	for _, tt := range tests {
		if got := Clean(tt.input); got != tt.expected {
			t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected Parsed
	}{
		{
			"123 Main Street, Springfield, IL 62701",
			Parsed{Street: "123 Main Street", City: "Springfield", State: "IL", Zip: "62701"},
		},
		{
			"Address: 456 Oak Ave, Chicago, il 60601",
			Parsed{Street: "456 Oak Ave", City: "Chicago", State: "IL", Zip: "60601"},
		},
		{
			"Suite 5, 100 Oak Ave, Denver, CO 80202-1234",
			Parsed{Street: "Suite 5, 100 Oak Ave", City: "Denver", State: "CO", Zip: "80202-1234"},
		},
		{
			"123 Main Street Springfield, IL 62701",
			Parsed{Street: "123 Main Street Springfield", State: "IL", Zip: "62701"},
		},
		{
			"450 Alameda Way, San José, CA 95126",
			Parsed{Street: "450 Alameda Way", City: "San José", State: "CA", Zip: "95126"},
		},
		{
			"PO Box 12, Springfield",
			Parsed{Street: "PO Box 12, Springfield"},
		},
	}

	for _, tt := range tests {
		if got := Parse(tt.input); got != tt.expected {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.expected)
		}
	}
}
