package normalize

import (
	"reflect"
	"testing"
)

func TestText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"Main Branch", "main branch"},
		{"  Main---Branch!! ", "main branch"},
		{"St. John's   Office", "st john s office"},
		{"Downtown\n\tOffice", "downtown office"},
		{"Café #12", "caf 12"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		if got := Text(tt.input); got != tt.expected {
			t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestTextIdempotent(t *testing.T) {
	inputs := []string{"", "Main Branch", "  a--b  C ", "123 Main St., Springfield, IL 62701", "ÜBER straße", "\u00a0x\u00a0"}
	for _, s := range inputs {
		once := Text(s)
		if twice := Text(once); twice != once {
			t.Errorf("Text not idempotent for %q: %q then %q", s, once, twice)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("Main, main BRANCH")
	want := map[string]struct{}{"main": {}, "branch": {}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens = %v, want %v", got, want)
	}
	if len(Tokens("...")) != 0 {
		t.Errorf("Tokens of punctuation should be empty")
	}
}

func TestCollapseSpaces(t *testing.T) {
	if got := CollapseSpaces("  a \n\n b\u00a0\u00a0c "); got != "a b c" {
		t.Errorf("CollapseSpaces = %q", got)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com/page#anchor", "https://example.com/page"},
		{"  https://example.com  ", "https://example.com"},
		{"example.com/locations", "https://example.com/locations"},
		{"HTTP://Example.com", "HTTP://Example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeURL(tt.input); got != tt.expected {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSplitNames(t *testing.T) {
	got := SplitNames(" Main Branch, ,Downtown,Main Branch ,")
	want := []string{"Main Branch", "Downtown", "Main Branch"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitNames = %v, want %v", got, want)
	}
}
