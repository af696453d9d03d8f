package podcast

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	readability "codeberg.org/readeck/go-readability"
)

const maxSiteContentLength = 2000

// SiteContentExtractor pulls readable text out of a podcast's website so
// the scoring oracle has more to work with than a one-line directory
// description.
type SiteContentExtractor struct{}

func NewSiteContentExtractor() *SiteContentExtractor {
	return &SiteContentExtractor{}
}

func (e *SiteContentExtractor) Run(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract site content: %w", err)
	}

	text := strings.TrimSpace(article.Content)
	if text == "" {
		return "", fmt.Errorf("no readable content extracted")
	}

	text = truncateOnRuneBoundary(text, maxSiteContentLength)

	slog.Debug("Site content extracted",
		"title", article.Title,
		"content_length", len(text))

	return text, nil
}

// truncateOnRuneBoundary cuts text to at most max bytes without
// splitting a multi-byte rune.
func truncateOnRuneBoundary(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
