package podcast

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateOnRuneBoundary(t *testing.T) {
	cases := []struct {
		input    string
		max      int
		expected string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "hello"},
		{"café", 4, "caf"},
		{"cafés", 5, "café"},
		{"日本語", 4, "日"},
		{"", 5, ""},
	}

	for _, tc := range cases {
		got := truncateOnRuneBoundary(tc.input, tc.max)
		if got != tc.expected {
			t.Errorf("truncateOnRuneBoundary(%q, %d): expected %q, got %q", tc.input, tc.max, tc.expected, got)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncateOnRuneBoundary(%q, %d): produced invalid UTF-8 %q", tc.input, tc.max, got)
		}
	}
}

func TestSiteContentExtractorTruncates(t *testing.T) {
	extractor := NewSiteContentExtractor()

	body := strings.Repeat("é", maxSiteContentLength)
	html := "<html><head><title>Show</title></head><body><article><p>" + body + "</p></article></body></html>"

	text, err := extractor.Run([]byte(html))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(text) > maxSiteContentLength {
		t.Errorf("Expected at most %d bytes, got %d", maxSiteContentLength, len(text))
	}
	if !utf8.ValidString(text) {
		t.Error("Expected truncated content to remain valid UTF-8")
	}
}

func TestSiteContentExtractorEmptyInput(t *testing.T) {
	extractor := NewSiteContentExtractor()

	if _, err := extractor.Run(nil); err == nil {
		t.Error("Expected error for empty HTML data")
	}
}
