package podcast

import (
	"strings"

	"golang.org/x/text/language"
)

// NormalizeLanguage canonicalizes an upstream language string ("EN-us",
// "english", "pt_BR") into a BCP-47 tag. Unparseable values are returned
// trimmed as-is so the snapshot never loses upstream data.
func NormalizeLanguage(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "_", "-")
	tag, err := language.Parse(s)
	if err != nil {
		if base, ok := wellKnownLanguages[strings.ToLower(s)]; ok {
			return base
		}
		return strings.TrimSpace(raw)
	}

	return tag.String()
}

// A few directory feeds report spelled-out language names instead of tags.
var wellKnownLanguages = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"portuguese": "pt",
	"german":     "de",
	"french":     "fr",
	"italian":    "it",
	"japanese":   "ja",
}

// DedupeIdentifiers removes duplicate and blank identifiers while
// preserving first-occurrence order. The returned order is the canonical
// ordering for any response built from this identifier set.
func DedupeIdentifiers(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
